package simulate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
	"gpssim/internal/iqpack"
	"gpssim/internal/trajectory"
)

func overheadTable(g gpstime.GpsTime) *ephstore.Table {
	tbl := ephstore.New(nil)
	tbl.AddEphemeris(1, ephstore.Ephemeris{
		Valid: true, Toc: g, Toe: g,
		Iode: 1, Iodc: 1, SqrtA: 5153.7, Ecc: 0.001, I0: 0.95,
	})
	return tbl
}

func TestNewResolvesStartTimeAndSelectsSet(t *testing.T) {
	a := assert.New(t)
	g := gpstime.GpsTime{Week: 2190, Sec: 0}
	tbl := overheadTable(g)
	rx := coord.LLHToECEF(coord.Location{LatRad: 0.6, LonRad: 2.4, Height: 50})

	d, err := New(Params{
		Table: tbl, Position: trajectory.NewStatic(coord.Location{LatRad: 0.6, LonRad: 2.4, Height: 50}),
		SampleRateHz: 2600000, Format: iqpack.Format16Bit,
		DurationSec: 0.2, StartTime: g, HasStartTime: true,
	})
	a.NoError(err)
	a.NotNil(d)
	a.Equal(g, d.g)
	a.Equal(0, d.setIdx)
	_ = rx
}

func TestRunProducesNonEmptyOutputForShortDuration(t *testing.T) {
	a := assert.New(t)
	g := gpstime.GpsTime{Week: 2190, Sec: 0}
	tbl := overheadTable(g)

	d, err := New(Params{
		Table: tbl, Position: trajectory.NewStatic(coord.Location{LatRad: 0.6, LonRad: 2.4, Height: 50}),
		SampleRateHz: 10000, Format: iqpack.Format16Bit,
		DurationSec: 0.1, StartTime: g, HasStartTime: true,
	})
	a.NoError(err)

	var buf bytes.Buffer
	w := iqpack.NewWriter(&buf, iqpack.Format16Bit)
	a.NoError(d.Run(w))
	a.Greater(buf.Len(), 0)
}
