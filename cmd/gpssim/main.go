// Command gpssim synthesizes a GPS L1 C/A baseband I/Q stream from a
// RINEX v2 navigation file and a receiver trajectory. CLI surface
// grounded on de-bkg-gognss/cmd/rnxgo/rnxgo.go's cli.App/cli.Flag
// idiom.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"gpssim/internal/config"
	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpslog"
	"gpssim/internal/gpssim"
	"gpssim/internal/gpstime"
	"gpssim/internal/iqpack"
	"gpssim/internal/rinex"
	"gpssim/internal/simulate"
	"gpssim/internal/trajectory"
)

func main() {
	app := &cli.App{
		Name:  "gpssim",
		Usage: "simulate a GPS L1 C/A baseband I/Q signal from RINEX ephemerides and a receiver trajectory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ephemerides", Aliases: []string{"e"}, Required: true, Usage: "RINEX v2 navigation file"},
			&cli.StringFlag{Name: "trajectory", Aliases: []string{"t"}, Usage: "trajectory file (.csv ECEF/LLH by extension, or NMEA GGA)"},
			&cli.StringFlag{Name: "location", Aliases: []string{"l"}, Usage: "static receiver location \"lat,lon,height\" (degrees,degrees,meters)"},
			&cli.StringFlag{Name: "leap", Usage: "custom leap-second event \"wnlsf,dn,dtlsf\""},
			&cli.StringFlag{Name: "start", Usage: "receiver start time (RFC3339, or \"now\")", Value: "now"},
			&cli.BoolFlag{Name: "time-override", Usage: "round start time to a 2-hour boundary and shift ephemerides accordingly"},
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "simulation duration in seconds (0: run until trajectory exhausted)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "gpssim.bin", Usage: "output file path"},
			&cli.Float64Flag{Name: "sample-rate", Value: 2600000, Usage: "sample rate in Hz (>= 1000000)"},
			&cli.IntFlag{Name: "bits", Value: 16, Usage: "output sample width: 1, 8, or 16"},
			&cli.BoolFlag{Name: "iono-disable", Usage: "zero all ionospheric delays"},
			&cli.Float64Flag{Name: "fixed-gain", Usage: "disable path-loss/antenna-pattern gain scaling, use this constant instead (1..128)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log per-channel state every 30 simulated seconds"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var gerr *gpssim.Error
	if errors.As(err, &gerr) {
		return int(gerr.Kind) + 1
	}
	return 1
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.EphemerisPath = c.String("ephemerides")
	cfg.TrajectoryPath = c.String("trajectory")
	cfg.OutputPath = c.String("output")
	cfg.SampleRateHz = c.Float64("sample-rate")
	cfg.Bits = c.Int("bits")
	cfg.IonoDisable = c.Bool("iono-disable")
	cfg.FixedGain = c.Float64("fixed-gain")
	cfg.Verbose = c.Bool("verbose")
	cfg.DurationSec = c.Float64("duration")
	cfg.StartTime = c.String("start")
	cfg.TimeOverride = c.Bool("time-override")

	if loc := c.String("location"); loc != "" {
		lat, lon, h, err := parseLocation(loc)
		if err != nil {
			return err
		}
		cfg.StaticLlhSet = true
		cfg.StaticLLH = [3]float64{lat, lon, h}
	}

	if leap := c.String("leap"); leap != "" {
		l, err := parseLeap(leap)
		if err != nil {
			return err
		}
		cfg.Leap = l
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := gpslog.New(os.Stderr, cfg.Verbose)

	table, err := loadTable(cfg.EphemerisPath)
	if err != nil {
		return err
	}
	if cfg.Leap != nil {
		table.Iono.Leapen = true
		table.Iono.Wnlsf = cfg.Leap.Wnlsf
		table.Iono.Dn = cfg.Leap.Dn
		table.Iono.Dtlsf = cfg.Leap.Dtlsf
	}

	pos, err := positionSource(cfg)
	if err != nil {
		return err
	}

	var format iqpack.Format
	switch cfg.Bits {
	case 1:
		format = iqpack.Format1Bit
	case 8:
		format = iqpack.Format8Bit
	default:
		format = iqpack.Format16Bit
	}

	params := simulate.Params{
		Table: table, Position: pos,
		SampleRateHz: cfg.SampleRateHz, Format: format, FixedGain: cfg.FixedGain,
		DurationSec: cfg.DurationSec, TimeOverride: cfg.TimeOverride,
		IonoDisable: cfg.IonoDisable, Log: log,
	}
	if cfg.StartTime != "now" {
		t0, err := parseStartTime(cfg.StartTime)
		if err != nil {
			return err
		}
		params.StartTime = t0
		params.HasStartTime = true
	}

	drv, err := simulate.New(params)
	if err != nil {
		return err
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return gpssim.Wrap(gpssim.Io, "gpssim: creating output file", err)
	}
	defer out.Close()

	return drv.Run(iqpack.NewWriter(out, format))
}

func loadTable(path string) (*ephstore.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gpssim.Wrap(gpssim.InputMissing, "gpssim: opening ephemerides file", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := rinex.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	table := ephstore.New(nil)
	table.Iono = hdr.Iono
	err = rinex.ReadBody(r, func(prn int, e ephstore.Ephemeris) {
		table.AddEphemeris(prn, e)
	})
	if err != nil {
		return nil, err
	}
	if table.SetCount == 0 {
		return nil, gpssim.New(gpssim.InputMissing, "gpssim: ephemerides file contains no valid records")
	}
	return table, nil
}

func positionSource(cfg config.Config) (trajectory.Source, error) {
	switch {
	case cfg.StaticLlhSet:
		loc := coord.Location{
			LatRad: cfg.StaticLLH[0] * (3.14159265358979323846 / 180.0),
			LonRad: cfg.StaticLLH[1] * (3.14159265358979323846 / 180.0),
			Height: cfg.StaticLLH[2],
		}
		return trajectory.NewStatic(loc), nil
	case cfg.StaticEcefSet:
		return trajectory.NewStatic(coord.ECEFToLLH(coord.Ecef{
			X: cfg.StaticECEF[0], Y: cfg.StaticECEF[1], Z: cfg.StaticECEF[2],
		})), nil
	case cfg.TrajectoryPath != "":
		f, err := os.Open(cfg.TrajectoryPath)
		if err != nil {
			return nil, gpssim.Wrap(gpssim.InputMissing, "gpssim: opening trajectory file", err)
		}
		switch {
		case strings.Contains(strings.ToLower(cfg.TrajectoryPath), "llh"):
			return trajectory.NewLlhCsv(f), nil
		case strings.HasSuffix(strings.ToLower(cfg.TrajectoryPath), ".nmea"):
			return trajectory.NewNmeaGga(f), nil
		default:
			return trajectory.NewEcefCsv(f), nil
		}
	}
	return nil, gpssim.New(gpssim.InputMissing, "gpssim: no position source given")
}

func parseLocation(s string) (lat, lon, h float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, gpssim.New(gpssim.InputFormat, "gpssim: --location wants \"lat,lon,height\"")
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, gpssim.Wrap(gpssim.InputFormat, "gpssim: malformed --location value", err)
		}
	}
	return vals[0], vals[1], vals[2], nil
}

func parseLeap(s string) (*config.Leap, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, gpssim.New(gpssim.InputFormat, "gpssim: --leap wants \"wnlsf,dn,dtlsf\"")
	}
	wnlsf, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	dn, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	dtlsf, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, gpssim.New(gpssim.InputFormat, "gpssim: malformed --leap value")
	}
	return &config.Leap{Wnlsf: wnlsf, Dn: dn, Dtlsf: dtlsf}, nil
}

func parseStartTime(s string) (gpstime.GpsTime, error) {
	var y, mo, d, h, mi int
	var sec float64
	if _, err := fmt.Sscanf(s, "%d-%d-%dT%d:%d:%fZ", &y, &mo, &d, &h, &mi, &sec); err != nil {
		return gpstime.GpsTime{}, gpssim.Wrap(gpssim.InputFormat, "gpssim: malformed --start time, want RFC3339 or \"now\"", err)
	}
	c := gpstime.CivilTime{Year: y, Month: mo, Day: d, Hour: h, Min: mi, Sec: sec}
	return c.ToGps(), nil
}
