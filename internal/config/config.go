// Package config defines the simulator's configuration surface and
// its validation, grounded on de-bkg-gognss/pkg/site/site.go's
// validator.New()/validate.Struct() idiom for the tag-driven checks
// and on original_source/src/process.rs's argument-resolution logic
// (mutually exclusive position sources, range-checked leap fields)
// for the cross-field checks validator tags can't express.
package config

import (
	"github.com/go-playground/validator/v10"

	"gpssim/internal/gpssim"
)

// Leap carries a custom leap-second event (the CLI's --leap flag),
// per spec.md §6: 1<=Dn<=7, Wnlsf>=0, -128<=Dtlsf<=127.
type Leap struct {
	Wnlsf int `validate:"gte=0"`
	Dn    int `validate:"gte=1,lte=7"`
	Dtlsf int `validate:"gte=-128,lte=127"`
}

// Config is the fully-resolved simulator configuration, assembled
// from CLI flags by cmd/gpssim and validated before any simulation
// work begins.
type Config struct {
	EphemerisPath string `validate:"required"`

	// At most one of these position sources may be set; when none is,
	// Validate installs the default static location.
	TrajectoryPath string
	StaticEcefSet  bool
	StaticLlhSet   bool
	StaticECEF     [3]float64
	StaticLLH      [3]float64

	Leap       *Leap
	StartTime  string // RFC3339, or the literal "now"
	TimeOverride bool

	DurationSec float64 `validate:"gte=0"`
	OutputPath  string  `validate:"required"`

	SampleRateHz float64 `validate:"gte=1000000"`
	Bits         int     `validate:"oneof=1 8 16"`

	IonoDisable bool
	FixedGain   float64 // 0 disables; else must be in [1,128]
	Verbose     bool
}

// DefaultStaticLatDeg/LonDeg/HeightM are the receiver location assumed
// when no trajectory or static location is given: Tokyo, per
// original_source/src/process.rs's argument resolution (umfile.is_none()
// && !static_location_mode installs this exact LLH).
const (
	DefaultStaticLatDeg  = 35.681298
	DefaultStaticLonDeg  = 139.766247
	DefaultStaticHeightM = 10.0
)

// Default returns a Config with spec.md §6's stated defaults.
func Default() Config {
	return Config{
		OutputPath:   "gpssim.bin",
		SampleRateHz: 2600000,
		Bits:         16,
		StartTime:    "now",
	}
}

// Validate runs struct-tag validation plus the cross-field checks
// validator tags cannot express (mutually exclusive position
// sources, fixed-gain range), returning an InputConflict
// *gpssim.Error on the first failure. When no position source was
// given, it installs the default static Tokyo location rather than
// erroring, matching the original's argument-resolution fallback.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return gpssim.Wrap(gpssim.InputConflict, "config: struct validation failed", err)
	}

	sources := 0
	if c.TrajectoryPath != "" {
		sources++
	}
	if c.StaticEcefSet {
		sources++
	}
	if c.StaticLlhSet {
		sources++
	}
	if sources == 0 {
		c.StaticLlhSet = true
		c.StaticLLH = [3]float64{DefaultStaticLatDeg, DefaultStaticLonDeg, DefaultStaticHeightM}
		sources = 1
	}
	if sources > 1 {
		return gpssim.New(gpssim.InputConflict, "config: more than one position source given")
	}

	if c.FixedGain != 0 && (c.FixedGain < 1 || c.FixedGain > 128) {
		return gpssim.New(gpssim.InputConflict, "config: fixed-gain must be in [1,128]")
	}

	if c.Leap != nil {
		if err := v.Struct(c.Leap); err != nil {
			return gpssim.Wrap(gpssim.InputConflict, "config: leap fields out of range", err)
		}
	}

	return nil
}
