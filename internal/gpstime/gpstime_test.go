package gpstime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddSecsRoundTrip(t *testing.T) {
	a := assert.New(t)
	base := GpsTime{Week: 2190, Sec: 345600.0}
	deltas := []float64{0, 1, -1, 604800, -604800, 2 * 604800, -2 * 604800, 123456.789}
	for _, d := range deltas {
		got := AddSecs(AddSecs(base, d), -d)
		a.InDelta(base.Sec, got.Sec, 1e-6)
		a.Equal(base.Week, got.Week)
	}
}

func TestNormalizeWeekRollover(t *testing.T) {
	a := assert.New(t)
	n := Normalize(GpsTime{Week: 100, Sec: 604800.0 + 10.0})
	a.Equal(int32(101), n.Week)
	a.InDelta(10.0, n.Sec, 1e-9)

	n = Normalize(GpsTime{Week: 100, Sec: -5.0})
	a.Equal(int32(99), n.Week)
	a.InDelta(SecondsPerWeek-5.0, n.Sec, 1e-9)
}

func TestDiffSecs(t *testing.T) {
	a := assert.New(t)
	x := GpsTime{Week: 10, Sec: 100.0}
	y := GpsTime{Week: 9, Sec: 604700.0}
	a.InDelta(100.0-604700.0+604800.0, DiffSecs(x, y), 1e-9)
}

func TestUnwrapHalfWeek(t *testing.T) {
	a := assert.New(t)
	a.InDelta(1.0, UnwrapHalfWeek(1.0), 1e-9)
	a.InDelta(-100.0, UnwrapHalfWeek(SecondsPerWeek-100.0), 1e-9)
	a.InDelta(100.0, UnwrapHalfWeek(-(SecondsPerWeek - 100.0)), 1e-9)
}

func TestCivilGpsRoundTrip(t *testing.T) {
	a := assert.New(t)
	cases := []CivilTime{
		{Year: 2022, Month: 1, Day: 1, Hour: 0, Min: 0, Sec: 0},
		{Year: 2022, Month: 1, Day: 1, Hour: 12, Min: 30, Sec: 15.5},
		{Year: 2020, Month: 2, Day: 29, Hour: 6, Min: 0, Sec: 0}, // leap day
		{Year: 1980, Month: 1, Day: 6, Hour: 0, Min: 0, Sec: 0},  // GPS epoch
		{Year: 1999, Month: 12, Day: 31, Hour: 23, Min: 59, Sec: 59},
	}
	for _, c := range cases {
		g := c.ToGps()
		back := g.ToCivil()
		a.Equal(c.Year, back.Year)
		a.Equal(c.Month, back.Month)
		a.Equal(c.Day, back.Day)
		a.Equal(c.Hour, back.Hour)
		a.Equal(c.Min, back.Min)
		a.InDelta(c.Sec, back.Sec, 1e-3)
	}
}

func TestGpsEpochIsWeekZero(t *testing.T) {
	a := assert.New(t)
	g := CivilTime{Year: 1980, Month: 1, Day: 6, Hour: 0, Min: 0, Sec: 0}.ToGps()
	a.Equal(int32(0), g.Week)
	a.True(math.Abs(g.Sec) < 1e-6)
}
