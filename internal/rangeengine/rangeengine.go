// Package rangeengine implements the light-time-iterated pseudorange,
// Doppler, and Klobuchar ionospheric delay computation (C5). The
// Klobuchar model is ported near-verbatim from
// FengXuebin-gnssgo/src/common.go's IonModel (which already matches
// spec.md §4.5's formula family term-for-term), cross-checked against
// original_source/src/process.rs's ionosphericDelay. The range
// computation follows original_source/src/process.rs's computeRange.
package rangeengine

import (
	"math"

	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
	"gpssim/internal/orbit"
)

const (
	speedOfLight = 2.99792458e8
	omegaEarth   = 7.2921151467e-5
)

// Range is the computed pseudorange tuple at a given reception time.
type Range struct {
	G          gpstime.GpsTime
	Pseudorange float64 // geometric range - c*clock_bias + iono delay
	Rate       float64 // range rate (unsigned by clock drift)
	Dist       float64 // geometric distance, before clock correction
	Azel       coord.Azel
	IonoDelay  float64
}

// Compute returns the Range tuple for ephemeris e observed from
// receiver position rxEcef at reception time g, per spec.md §4.5
// steps 1-7.
func Compute(e *ephstore.Ephemeris, ion ephstore.IonoUtc, rxEcef coord.Ecef, g gpstime.GpsTime) Range {
	st := orbit.Propagate(e, g)

	los := st.Pos.Sub(rxEcef)
	tau := los.Norm() / speedOfLight

	// Back-propagate SV position by velocity*tau, then rotate for
	// Earth's rotation during the light time.
	pos := coord.Ecef{
		X: st.Pos.X - st.Vel.X*tau,
		Y: st.Pos.Y - st.Vel.Y*tau,
		Z: st.Pos.Z - st.Vel.Z*tau,
	}
	rotated := coord.Ecef{
		X: pos.X + pos.Y*omegaEarth*tau,
		Y: pos.Y - pos.X*omegaEarth*tau,
		Z: pos.Z,
	}

	los = rotated.Sub(rxEcef)
	dist := los.Norm()
	pseudorange := dist - speedOfLight*st.ClockBias
	rate := (st.Vel.X*los.X + st.Vel.Y*los.Y + st.Vel.Z*los.Z) / dist

	loc := coord.ECEFToLLH(rxEcef)
	neu := coord.ECEFDeltaToNeu(loc, los)
	azel := coord.NeuToAzEl(neu)

	ionoDelay := Klobuchar(ion, g, loc, azel)
	pseudorange += ionoDelay

	return Range{
		G: g, Pseudorange: pseudorange, Rate: rate, Dist: dist,
		Azel: azel, IonoDelay: ionoDelay,
	}
}

// Klobuchar computes the single-frequency ionospheric delay in
// meters, operating in semicircles (angle/pi) per spec.md §4.5.
func Klobuchar(ion ephstore.IonoUtc, g gpstime.GpsTime, loc coord.Location, azel coord.Azel) float64 {
	if !ion.Enable {
		return 0
	}

	elSemi := azel.El / math.Pi
	f := 1.0 + 16.0*math.Pow(0.53-elSemi, 3.0)

	if !ion.Vflg {
		return f * 5e-9 * speedOfLight
	}

	phiU := loc.LatRad / math.Pi
	lamU := loc.LonRad / math.Pi

	psi := 0.0137/(elSemi+0.11) - 0.022
	phiI := phiU + psi*math.Cos(azel.Az)
	phiI = clamp(phiI, -0.416, 0.416)
	lamI := lamU + psi*math.Sin(azel.Az)/math.Cos(phiI*math.Pi)
	phiM := phiI + 0.064*math.Cos((lamI-1.617)*math.Pi)

	phiM2 := phiM * phiM
	phiM3 := phiM2 * phiM
	amp := ion.Alpha0 + ion.Alpha1*phiM + ion.Alpha2*phiM2 + ion.Alpha3*phiM3
	if amp < 0 {
		amp = 0
	}
	per := ion.Beta0 + ion.Beta1*phiM + ion.Beta2*phiM2 + ion.Beta3*phiM3
	if per < 72000.0 {
		per = 72000.0
	}

	t := 43200.0*lamI + g.Sec
	for t >= 86400.0 {
		t -= 86400.0
	}
	for t < 0 {
		t += 86400.0
	}

	x := 2 * math.Pi * (t - 50400.0) / per
	if math.Abs(x) < 1.57 {
		x2 := x * x
		x4 := x2 * x2
		return f * (5e-9 + amp*(1.0-x2/2.0+x4/24.0)) * speedOfLight
	}
	return f * 5e-9 * speedOfLight
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
