package trajectory

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/coord"
)

func TestEcefCsvIteratesRows(t *testing.T) {
	a := assert.New(t)
	src := NewEcefCsv(strings.NewReader("100.0,200.0,300.0\n101.0,201.0,301.0\n"))
	p1, err := src.Next()
	a.NoError(err)
	a.Equal(100.0, p1.X)
	p2, err := src.Next()
	a.NoError(err)
	a.Equal(101.0, p2.X)
	_, err = src.Next()
	a.ErrorIs(err, io.EOF)
}

func TestLlhCsvConvertsToEcef(t *testing.T) {
	a := assert.New(t)
	src := NewLlhCsv(strings.NewReader("35.68,139.77,50.0\n"))
	p, err := src.Next()
	a.NoError(err)
	a.Greater(p.X*p.X+p.Y*p.Y+p.Z*p.Z, 0.0)
}

func TestNmeaGgaParsesValidSentence(t *testing.T) {
	a := assert.New(t)
	sentence := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	src := NewNmeaGga(strings.NewReader(sentence + "\n"))
	p, err := src.Next()
	a.NoError(err)
	a.NotZero(p.X)
}

func TestNmeaGgaSkipsNonGgaAndBadChecksum(t *testing.T) {
	a := assert.New(t)
	lines := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\n" +
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00\n"
	src := NewNmeaGga(strings.NewReader(lines))
	_, err := src.Next()
	a.ErrorIs(err, io.EOF)
}

func TestParseNmeaLatLon(t *testing.T) {
	a := assert.New(t)
	v, err := parseNmeaLatLon("4807.038")
	a.NoError(err)
	a.InDelta(48.0+7.038/60.0, v, 1e-9)
}

func TestStaticYieldsOnceThenEOF(t *testing.T) {
	a := assert.New(t)
	s := NewStatic(coord.Location{LatRad: 0.6, LonRad: 2.4, Height: 50})
	_, err := s.Next()
	a.NoError(err)
	_, err = s.Next()
	a.ErrorIs(err, io.EOF)
}
