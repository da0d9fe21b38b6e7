// Package ephstore implements the hour-bucketed ephemeris store: the
// set-of-32-per-time-set table, current-set selection, and the
// time-override path. Field layout is grounded on
// original_source/src/eph.rs's ephem_t (closest match to spec.md's
// shape); the set-selection/advance/time-override logic follows
// original_source/src/process.rs's inline handling in process().
package ephstore

import (
	"math"

	"github.com/sirupsen/logrus"

	"gpssim/internal/gpslog"
	"gpssim/internal/gpssim"
	"gpssim/internal/gpstime"
)

var errNoCurrentEphemerides = gpssim.New(gpssim.NoCurrentEphemerides, "no ephemeris set covers the receiver start time")

// MaxSat is the highest valid GPS PRN.
const MaxSat = 32

// EphemArraySize bounds the number of time-sets retained.
const EphemArraySize = 15

const (
	muEarth    = 3.986005e14
	omegaEarth = 7.2921151467e-5
)

// Ephemeris is one broadcast ephemeris record for a single (time-set,
// PRN). Fields follow IS-GPS-200 naming via the original's ephem_t.
type Ephemeris struct {
	Valid bool

	Toc gpstime.GpsTime
	Toe gpstime.GpsTime

	Iode, Iodc int

	Deltan float64 // radians/sec
	Cuc    float64
	Cus    float64
	Cic    float64
	Cis    float64
	Crc    float64
	Crs    float64
	Ecc    float64
	SqrtA  float64
	M0     float64
	Omega0 float64
	I0     float64
	Aop    float64 // argument of perigee (omega)
	Omgdot float64
	Idot   float64

	Af0, Af1, Af2 float64
	Tgd           float64
	SvHealth      int
	CodeL2        int

	// Derived caches, computed once after load; time-override preserves
	// these since Deltan, M0, and the harmonics are unchanged by a
	// constant time shift.
	A       float64 // semi-major axis = sqrtA^2
	N       float64 // corrected mean motion
	Sq1e2   float64 // sqrt(1-e^2)
	OmgkDot float64 // Omegadot - omega_earth
}

// computeDerived fills the A/N/Sq1e2/OmgkDot caches from the loaded
// fields, mirroring the teacher's post-load derived-field pattern in
// renix.go's DecodeEph (A = SQR(sqrtA) there as well).
func (e *Ephemeris) computeDerived() {
	e.A = e.SqrtA * e.SqrtA
	e.N = math.Sqrt(muEarth/(e.A*e.A*e.A)) + e.Deltan
	e.Sq1e2 = math.Sqrt(1.0 - e.Ecc*e.Ecc)
	e.OmgkDot = e.Omgdot - omegaEarth
}

// IonoUtc carries the Klobuchar/UTC/leap-second broadcast parameters.
type IonoUtc struct {
	Enable bool
	Vflg   bool // true iff Tot is a multiple of 4096

	Alpha0, Alpha1, Alpha2, Alpha3 float64
	Beta0, Beta1, Beta2, Beta3     float64

	A0, A1 float64
	Tot    int
	Wnt    int

	Dtls  int
	Dtlsf int
	Dn    int
	Wnlsf int
	Leapen bool
}

// Table is the ordered array of at most EphemArraySize time-sets, each
// a fixed-size map PRN(1..32) -> Ephemeris.
type Table struct {
	Sets     [EphemArraySize][MaxSat + 1]Ephemeris // index 0 unused, PRN 1..32
	SetCount int
	Iono     IonoUtc

	log logrus.FieldLogger
}

// New builds an empty Table. log may be nil, in which case a
// discarding logger is used.
func New(log logrus.FieldLogger) *Table {
	if log == nil {
		log = gpslog.Discard()
	}
	return &Table{log: log}
}

// AddEphemeris joins a record into the first time-set whose reference
// TOC lies within 1 hour of the record's TOC, or starts a new set. The
// reference TOC is that of the set's lowest-numbered valid PRN, not
// necessarily the first record the set received. PRN 0 or >32 is
// dropped with a warning; sets beyond EphemArraySize are dropped with a
// warning, per spec.md §4.3.
func (t *Table) AddEphemeris(prn int, e Ephemeris) {
	if prn < 1 || prn > MaxSat {
		t.log.WithField("prn", prn).Warn("dropping ephemeris record: invalid PRN")
		return
	}
	e.computeDerived()

	for i := 0; i < t.SetCount; i++ {
		first := firstValidToc(&t.Sets[i])
		if first != nil && math.Abs(gpstime.DiffSecs(e.Toc, *first)) <= 3600.0 {
			t.Sets[i][prn] = e
			return
		}
	}
	if t.SetCount >= EphemArraySize {
		t.log.WithField("prn", prn).Warn("dropping ephemeris record: time-set table full")
		return
	}
	t.Sets[t.SetCount][prn] = e
	t.SetCount++
}

func firstValidToc(set *[MaxSat + 1]Ephemeris) *gpstime.GpsTime {
	for prn := 1; prn <= MaxSat; prn++ {
		if set[prn].Valid {
			toc := set[prn].Toc
			return &toc
		}
	}
	return nil
}

// SelectInitial returns the smallest set index holding some valid
// ephemeris whose TOC is within one hour of t0, or an error if none
// qualifies.
func (t *Table) SelectInitial(t0 gpstime.GpsTime) (int, error) {
	for i := 0; i < t.SetCount; i++ {
		for prn := 1; prn <= MaxSat; prn++ {
			e := &t.Sets[i][prn]
			if e.Valid && math.Abs(gpstime.DiffSecs(t0, e.Toc)) < 3600.0 {
				return i, nil
			}
		}
	}
	return -1, errNoCurrentEphemerides
}

// Advance returns the new current-set index, advancing by one if set
// i+1 exists and its earliest valid TOC is within one hour ahead of g.
func (t *Table) Advance(i int, g gpstime.GpsTime) int {
	if i+1 >= t.SetCount {
		return i
	}
	for prn := 1; prn <= MaxSat; prn++ {
		e := &t.Sets[i+1][prn]
		if e.Valid {
			dt := gpstime.DiffSecs(e.Toc, g)
			if dt < 3600.0 {
				return i + 1
			}
			break
		}
	}
	return i
}

// Earliest returns the earliest valid TOC across all sets, used to
// resolve the default receiver start time.
func (t *Table) Earliest() (gpstime.GpsTime, bool) {
	for i := 0; i < t.SetCount; i++ {
		if first := firstValidToc(&t.Sets[i]); first != nil {
			return *first, true
		}
	}
	return gpstime.GpsTime{}, false
}

// Latest returns the reference TOC of the last set that holds a valid
// ephemeris.
func (t *Table) Latest() (gpstime.GpsTime, bool) {
	for i := t.SetCount - 1; i >= 0; i-- {
		if first := firstValidToc(&t.Sets[i]); first != nil {
			return *first, true
		}
	}
	return gpstime.GpsTime{}, false
}

// ApplyTimeOverride shifts every valid ephemeris's TOC/TOE by Δs =
// t0rounded - TOC(first valid, set 0), and overwrites the UTC
// reference to the rounded start time, per spec.md §4.3 and
// original_source/src/process.rs's timeoverwrite branch.
func (t *Table) ApplyTimeOverride(t0 gpstime.GpsTime) gpstime.GpsTime {
	rounded := gpstime.GpsTime{
		Week: t0.Week,
		Sec:  math.Floor(t0.Sec/7200.0) * 7200.0,
	}
	first := firstValidToc(&t.Sets[0])
	if first == nil {
		return rounded
	}
	delta := gpstime.DiffSecs(rounded, *first)

	t.Iono.Wnt = int(rounded.Week)
	t.Iono.Tot = int(rounded.Sec)

	for i := 0; i < t.SetCount; i++ {
		for prn := 1; prn <= MaxSat; prn++ {
			e := &t.Sets[i][prn]
			if !e.Valid {
				continue
			}
			e.Toc = gpstime.AddSecs(e.Toc, delta)
			e.Toe = gpstime.AddSecs(e.Toe, delta)
		}
	}
	return rounded
}
