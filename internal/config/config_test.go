package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/gpssim"
)

func validConfig() Config {
	c := Default()
	c.EphemerisPath = "brdc.19n"
	c.TrajectoryPath = "traj.csv"
	return c
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	a.NoError(c.Validate())
}

func TestValidateRejectsMissingEphemerisPath(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.EphemerisPath = ""
	err := c.Validate()
	a.Error(err)
}

func TestValidateDefaultsToTokyoWhenNoPositionSource(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.TrajectoryPath = ""
	a.NoError(c.Validate())
	a.True(c.StaticLlhSet)
	a.Equal([3]float64{DefaultStaticLatDeg, DefaultStaticLonDeg, DefaultStaticHeightM}, c.StaticLLH)
}

func TestValidateRejectsMultiplePositionSources(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.StaticEcefSet = true
	err := c.Validate()
	a.Error(err)
	var gerr *gpssim.Error
	a.ErrorAs(err, &gerr)
	a.Equal(gpssim.InputConflict, gerr.Kind)
}

func TestValidateRejectsLowSampleRate(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.SampleRateHz = 500000
	a.Error(c.Validate())
}

func TestValidateRejectsBadBits(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.Bits = 4
	a.Error(c.Validate())
}

func TestValidateRejectsFixedGainOutOfRange(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.FixedGain = 200
	a.Error(c.Validate())
}

func TestValidateRejectsLeapOutOfRange(t *testing.T) {
	a := assert.New(t)
	c := validConfig()
	c.Leap = &Leap{Wnlsf: 1929, Dn: 9, Dtlsf: 18}
	a.Error(c.Validate())
}
