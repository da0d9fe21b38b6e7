// Package coord implements the WGS-84 coordinate kernel: LLH<->ECEF
// conversion, the ENU rotation, and NEU->Az/El, ported from the
// Pos2Ecef/Ecef2Pos/XYZ2Enu/Enu2Ecef/SatAzel family in
// FengXuebin-gnssgo/src/common.go and adapted to the Fukushima-style
// epsilon-convergence iteration spec.md §4.1 calls for.
package coord

import "math"

// WGS-84 ellipsoid constants.
const (
	SemiMajorAxis     = 6378137.0
	Eccentricity      = 0.0818191908426215 // e, not e^2
	flattening        = 1.0 / 298.257223563
	eccentricitySq    = Eccentricity * Eccentricity
	ecefDegenerateEps = 1e-8
	llhConvergeEps    = 1e-3 // meters, on the auxiliary delta-z term
)

// Ecef is an Earth-Centered, Earth-Fixed position in meters.
type Ecef struct{ X, Y, Z float64 }

// Location is a geodetic position: latitude/longitude in radians
// internally (degrees only at external boundaries), height in meters.
type Location struct{ LatRad, LonRad, Height float64 }

// Neu is a local-tangent-plane offset in meters (north, east, up).
type Neu struct{ N, E, U float64 }

// Azel is an azimuth/elevation pair: az in [0, 2pi), el in
// [-pi/2, pi/2].
type Azel struct{ Az, El float64 }

func sq(x float64) float64 { return x * x }

// LLHToECEF converts a geodetic Location to ECEF.
func LLHToECEF(loc Location) Ecef {
	sinLat, cosLat := math.Sin(loc.LatRad), math.Cos(loc.LatRad)
	sinLon, cosLon := math.Sin(loc.LonRad), math.Cos(loc.LonRad)
	n := SemiMajorAxis / math.Sqrt(1.0-eccentricitySq*sinLat*sinLat)
	return Ecef{
		X: (n + loc.Height) * cosLat * cosLon,
		Y: (n + loc.Height) * cosLat * sinLon,
		Z: (n*(1.0-eccentricitySq) + loc.Height) * sinLat,
	}
}

// ECEFToLLH converts ECEF to geodetic Location using the Fukushima-style
// iterative refinement, converging when the auxiliary delta-z term
// changes by less than llhConvergeEps meters. The degenerate input
// |ecef| < eps returns the sentinel Location (0,0,-a), which the core
// never dereferences further per spec.md §4.1.
func ECEFToLLH(e Ecef) Location {
	r := math.Sqrt(sq(e.X) + sq(e.Y) + sq(e.Z))
	if r < ecefDegenerateEps {
		return Location{LatRad: 0, LonRad: 0, Height: -SemiMajorAxis}
	}

	lon := math.Atan2(e.Y, e.X)
	p := math.Sqrt(sq(e.X) + sq(e.Y))

	var z0 float64
	lat := math.Atan2(e.Z, p*(1.0-eccentricitySq))
	for {
		sinLat := math.Sin(lat)
		n := SemiMajorAxis / math.Sqrt(1.0-eccentricitySq*sinLat*sinLat)
		z1 := n * eccentricitySq * sinLat
		newLat := math.Atan2(e.Z+z1, p)
		if math.Abs(z1-z0) < llhConvergeEps {
			lat = newLat
			sinLat = math.Sin(lat)
			n = SemiMajorAxis / math.Sqrt(1.0-eccentricitySq*sinLat*sinLat)
			var height float64
			if p > ecefDegenerateEps {
				height = p/math.Cos(lat) - n
			} else {
				height = math.Abs(e.Z) - SemiMajorAxis*math.Sqrt(1.0-eccentricitySq)
			}
			return Location{LatRad: lat, LonRad: lon, Height: height}
		}
		z0 = z1
		lat = newLat
	}
}

// EnuRotation returns the 3x3 rotation matrix (row-major, 9 entries)
// taking an ECEF delta vector into the local ENU frame at the given
// geodetic position: rows (-sin(lat)cos(lon), -sin(lat)sin(lon),
// cos(lat)), (-sin(lon), cos(lon), 0), (cos(lat)cos(lon),
// cos(lat)sin(lon), sin(lat)).
func EnuRotation(loc Location) [3][3]float64 {
	sinLat, cosLat := math.Sin(loc.LatRad), math.Cos(loc.LatRad)
	sinLon, cosLon := math.Sin(loc.LonRad), math.Cos(loc.LonRad)
	return [3][3]float64{
		{-sinLat * cosLon, -sinLat * sinLon, cosLat},
		{-sinLon, cosLon, 0},
		{cosLat * cosLon, cosLat * sinLon, sinLat},
	}
}

// ECEFDeltaToNeu rotates an ECEF delta vector into north/east/up at loc.
func ECEFDeltaToNeu(loc Location, d Ecef) Neu {
	r := EnuRotation(loc)
	north := r[0][0]*d.X + r[0][1]*d.Y + r[0][2]*d.Z
	east := r[1][0]*d.X + r[1][1]*d.Y + r[1][2]*d.Z
	up := r[2][0]*d.X + r[2][1]*d.Y + r[2][2]*d.Z
	return Neu{N: north, E: east, U: up}
}

// NeuToAzEl converts a north/east/up vector into azimuth/elevation. Az
// is normalized into [0, 2pi).
func NeuToAzEl(v Neu) Azel {
	horiz := math.Sqrt(sq(v.N) + sq(v.E))
	az := math.Atan2(v.E, v.N)
	if az < 0 {
		az += 2 * math.Pi
	}
	el := math.Atan2(v.U, horiz)
	return Azel{Az: az, El: el}
}

// AzElToUnit returns the ENU unit vector for a given az/el, the inverse
// used by the round-trip property test.
func AzElToUnit(a Azel) Neu {
	return Neu{
		N: math.Cos(a.El) * math.Cos(a.Az),
		E: math.Cos(a.El) * math.Sin(a.Az),
		U: math.Sin(a.El),
	}
}

// Sub returns a-b.
func (a Ecef) Sub(b Ecef) Ecef { return Ecef{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Norm returns the Euclidean length of the vector.
func (a Ecef) Norm() float64 { return math.Sqrt(sq(a.X) + sq(a.Y) + sq(a.Z)) }
