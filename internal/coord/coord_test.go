package coord

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLHRoundTrip(t *testing.T) {
	a := assert.New(t)
	lats := []float64{-88.0, -45.0, -1.0, 0.0, 1.0, 35.681298, 60.0, 88.0}
	lons := []float64{-179.0, -90.0, 0.0, 45.0, 139.766247, 179.0}
	heights := []float64{-10.0, 0.0, 10.0, 1000.0, 8000.0}

	for _, lat := range lats {
		for _, lon := range lons {
			for _, h := range heights {
				loc := Location{LatRad: lat * math.Pi / 180, LonRad: lon * math.Pi / 180, Height: h}
				e := LLHToECEF(loc)
				back := ECEFToLLH(e)
				a.InDelta(loc.LatRad, back.LatRad, 1e-8, "lat=%v lon=%v h=%v", lat, lon, h)
				a.InDelta(loc.LonRad, back.LonRad, 1e-8, "lat=%v lon=%v h=%v", lat, lon, h)
				a.InDelta(loc.Height, back.Height, 1e-3, "lat=%v lon=%v h=%v", lat, lon, h)
			}
		}
	}
}

func TestDegenerateEcef(t *testing.T) {
	a := assert.New(t)
	loc := ECEFToLLH(Ecef{0, 0, 0})
	a.Equal(0.0, loc.LatRad)
	a.Equal(0.0, loc.LonRad)
	a.InDelta(-SemiMajorAxis, loc.Height, 1e-9)
}

func TestNeuToAzElRoundTrip(t *testing.T) {
	a := assert.New(t)
	for elDeg := 0.1; elDeg < 90.0; elDeg += 7.0 {
		for azDeg := 0.0; azDeg < 360.0; azDeg += 17.0 {
			az := azDeg * math.Pi / 180
			el := elDeg * math.Pi / 180
			unit := AzElToUnit(Azel{Az: az, El: el})
			back := NeuToAzEl(unit)
			backUnit := AzElToUnit(back)
			dist := math.Sqrt(math.Pow(unit.N-backUnit.N, 2) + math.Pow(unit.E-backUnit.E, 2) + math.Pow(unit.U-backUnit.U, 2))
			a.Less(dist, 1e-10)
		}
	}
}

func TestAzNormalizedRange(t *testing.T) {
	a := assert.New(t)
	az := NeuToAzEl(Neu{N: -1, E: -1, U: 0}).Az
	a.True(az >= 0 && az < 2*math.Pi)
}
