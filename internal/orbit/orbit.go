// Package orbit implements the Kepler-iteration orbit propagator:
// satellite position, velocity, clock bias, and clock drift from a
// broadcast ephemeris at a given time. Ported directly from
// original_source/src/process.rs's satpos(), which in turn matches
// FengXuebin-gnssgo/src/ephemeris.go's Eph2Pos GPS branch term for
// term (Kepler iteration, harmonic corrections, relativistic clock
// correction) — the Go idiom here (named return struct instead of
// out-parameters) follows the teacher's higher-level helper functions
// rather than Eph2Pos's own pointer-output C-derived signature.
package orbit

import (
	"math"

	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
)

const (
	omegaEarth          = 7.2921151467e-5
	relativisticFConst  = -4.442807633e-10
	keplerTolerance     = 1e-14
	keplerMaxIterations = 100
)

// State is the computed satellite position, velocity, and clock state
// at a given time.
type State struct {
	Pos         coord.Ecef
	Vel         coord.Ecef
	ClockBias   float64
	ClockDrift  float64
}

// SolveKepler solves E - e*sin(E) = M by Newton-Raphson iteration,
// terminating on |Ek - Ek-1| <= keplerTolerance (guaranteed since
// e<1). Returns the eccentric anomaly and 1-e*cos(E) for reuse by the
// caller.
func SolveKepler(m, ecc float64) (ek, oneMinusECosE float64) {
	ek = m
	for i := 0; i < keplerMaxIterations; i++ {
		ekOld := ek
		oneMinusECosE = 1.0 - ecc*math.Cos(ekOld)
		ek += (m - ekOld + ecc*math.Sin(ekOld)) / oneMinusECosE
		if math.Abs(ek-ekOld) <= keplerTolerance {
			break
		}
	}
	return ek, oneMinusECosE
}

// Propagate computes the satellite State from ephemeris e at time g.
func Propagate(e *ephstore.Ephemeris, g gpstime.GpsTime) State {
	tk := gpstime.UnwrapHalfWeek(gpstime.DiffSecs(g, e.Toe))

	mk := e.M0 + e.N*tk
	ek, oneMinusECosE := SolveKepler(mk, e.Ecc)

	sek, cek := math.Sin(ek), math.Cos(ek)
	ekDot := e.N / oneMinusECosE
	relativistic := relativisticFConst * e.Ecc * e.SqrtA * sek

	pk := math.Atan2(e.Sq1e2*sek, cek-e.Ecc) + e.Aop
	pkDot := e.Sq1e2 * ekDot / oneMinusECosE
	s2pk, c2pk := math.Sin(2*pk), math.Cos(2*pk)

	uk := pk + e.Cus*s2pk + e.Cuc*c2pk
	suk, cuk := math.Sin(uk), math.Cos(uk)
	ukDot := pkDot * (1.0 + 2.0*(e.Cus*c2pk-e.Cuc*s2pk))

	rk := e.A*oneMinusECosE + e.Crc*c2pk + e.Crs*s2pk
	rkDot := e.A*e.Ecc*sek*ekDot + 2.0*pkDot*(e.Crs*c2pk-e.Crc*s2pk)

	ik := e.I0 + e.Idot*tk + e.Cic*c2pk + e.Cis*s2pk
	sik, cik := math.Sin(ik), math.Cos(ik)
	ikDot := e.Idot + 2.0*pkDot*(e.Cis*c2pk-e.Cic*s2pk)

	xpk := rk * cuk
	ypk := rk * suk
	xpkDot := rkDot*cuk - ypk*ukDot
	ypkDot := rkDot*suk + xpk*ukDot

	ok := e.Omega0 + tk*e.OmgkDot - omegaEarth*e.Toe.Sec
	sok, cok := math.Sin(ok), math.Cos(ok)

	pos := coord.Ecef{
		X: xpk*cok - ypk*cik*sok,
		Y: xpk*sok + ypk*cik*cok,
		Z: ypk * sik,
	}

	tmp := ypkDot*cik - ypk*sik*ikDot
	vel := coord.Ecef{
		X: -e.OmgkDot*pos.Y + xpkDot*cok - tmp*sok,
		Y: e.OmgkDot*pos.X + xpkDot*sok + tmp*cok,
		Z: ypk*cik*ikDot + ypkDot*sik,
	}

	tc := gpstime.UnwrapHalfWeek(gpstime.DiffSecs(g, e.Toc))
	clockBias := e.Af0 + tc*(e.Af1+tc*e.Af2) + relativistic - e.Tgd
	clockDrift := e.Af1 + 2.0*tc*e.Af2

	return State{Pos: pos, Vel: vel, ClockBias: clockBias, ClockDrift: clockDrift}
}
