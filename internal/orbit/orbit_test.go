package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
)

func TestSolveKeplerSatisfiesEquation(t *testing.T) {
	a := assert.New(t)
	for m := -math.Pi; m <= math.Pi; m += 0.1 {
		for e := 0.0; e <= 0.3; e += 0.03 {
			ek, _ := SolveKepler(m, e)
			residual := ek - e*math.Sin(ek) - m
			a.Less(math.Abs(residual), 1e-13)
		}
	}
}

func TestPropagateProducesFiniteState(t *testing.T) {
	a := assert.New(t)
	toe := gpstime.GpsTime{Week: 2190, Sec: 0}
	e := &ephstore.Ephemeris{
		Valid: true, Toc: toe, Toe: toe,
		Ecc: 0.01, SqrtA: 5153.79, M0: 1.0, Aop: 0.5,
		I0: 0.9, Omega0: 0.2, Omgdot: -8e-9, Idot: 1e-10,
		Af0: 1e-5, Af1: 1e-11, Af2: 0,
	}
	state := Propagate(fillDerived(e), toe)
	a.False(math.IsNaN(state.Pos.X))
	a.Greater(state.Pos.Norm(), 1.0e7) // GPS orbit radius ~26,600 km
}

func fillDerived(e *ephstore.Ephemeris) *ephstore.Ephemeris {
	const mu = 3.986005e14
	a := e.SqrtA * e.SqrtA
	e.A = a
	e.N = math.Sqrt(mu/(a*a*a)) + e.Deltan
	e.Sq1e2 = math.Sqrt(1.0 - e.Ecc*e.Ecc)
	e.OmgkDot = e.Omgdot - 7.2921151467e-5
	return e
}
