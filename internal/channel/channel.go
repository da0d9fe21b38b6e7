// Package channel implements the channel manager (C7): per-PRN
// visibility checking and allocation/eviction against a bounded pool of
// simultaneous channels. Grounded on original_source/src/process.rs's
// checkSatVisibility/allocateChannel, expressed with the teacher's
// FieldLogger-injection idiom (FengXuebin-gnssgo/src/rtkcmn.go logs
// through an injected logger rather than printf).
package channel

import (
	"math"

	"github.com/sirupsen/logrus"

	"gpssim/internal/coord"
	"gpssim/internal/ephstore"
	"gpssim/internal/gpslog"
	"gpssim/internal/gpstime"
	"gpssim/internal/navmsg"
	"gpssim/internal/rangeengine"
)

// MaxChan is the maximum number of simultaneously tracked channels.
const MaxChan = 16

// MaxSat is the highest GPS PRN this manager tracks.
const MaxSat = 32

// ElevationMask is the minimum elevation, in radians, for a satellite
// to be considered visible (0 degrees: all visible above horizon).
const ElevationMask = 0.0

// antennaPatternDB is a 37-entry boresight-angle-vs-gain table indexed
// by floor((90-elDeg)/5), 0..36, covering a 0-180 degree boresight
// sweep in 5-degree steps. Built from a cosine-power antenna model
// (a documented Open Question resolution — the original's literal
// ANT_PAT_DB table is a non-source data file absent from the pack).
var antennaPatternDB = buildAntennaPattern()

func buildAntennaPattern() [37]float64 {
	var tbl [37]float64
	for i := range tbl {
		theta := float64(i) * 5.0 * math.Pi / 180.0
		tbl[i] = -3.0 * (1.0 - math.Cos(theta))
	}
	return tbl
}

// Channel is one tracked satellite's transmit state.
type Channel struct {
	Allocated bool
	Prn       int
	Eph       *ephstore.Ephemeris
	Ca        [navmsg.CaSeqLen]int8
	Gen       *navmsg.Generator
	Dwrd      [navmsg.DwrdLen]uint32

	Rho0, Rho1 rangeengine.Range

	CarrierPhase uint32
	CodePhase    float64
	Word, Bit    int
	CodeCycle    int
	Gain         float64
}

// Manager owns the fixed channel pool and the PRN-to-slot index.
type Manager struct {
	Channels   [MaxChan]Channel
	AllocIndex [MaxSat + 1]int // AllocIndex[prn] = slot index, or -1
	FixedGain  float64         // >0 overrides the antenna-pattern gain model
	log        logrus.FieldLogger
}

// NewManager returns an empty manager with all PRNs unallocated.
func NewManager(log logrus.FieldLogger) *Manager {
	if log == nil {
		log = gpslog.Discard()
	}
	m := &Manager{log: log}
	for i := range m.AllocIndex {
		m.AllocIndex[i] = -1
	}
	return m
}

// Visibility is one PRN's geometric state relative to the receiver,
// used both to decide allocation and to seed a freshly allocated
// channel's range history.
type Visibility struct {
	Prn     int
	Visible bool
	Range   rangeengine.Range
}

// CheckVisibility evaluates every PRN with a valid ephemeris in set
// against rxEcef at time g, per spec.md §4.7.
func CheckVisibility(table *ephstore.Table, setIdx int, rxEcef coord.Ecef, g gpstime.GpsTime) []Visibility {
	out := make([]Visibility, 0, MaxSat)
	for prn := 1; prn <= MaxSat; prn++ {
		e := &table.Sets[setIdx][prn]
		if !e.Valid {
			continue
		}
		r := rangeengine.Compute(e, table.Iono, rxEcef, g)
		out = append(out, Visibility{Prn: prn, Visible: r.Azel.El >= ElevationMask, Range: r})
	}
	return out
}

// Refresh reruns visibility and updates allocation: newly visible PRNs
// take the lowest free channel slot (up to MaxChan), and allocated
// PRNs that drop below the mask are cleared. Called once at simulation
// start and every 30 seconds thereafter.
func (m *Manager) Refresh(table *ephstore.Table, setIdx int, rxEcef coord.Ecef, g gpstime.GpsTime) {
	vis := CheckVisibility(table, setIdx, rxEcef, g)
	visible := make(map[int]Visibility, len(vis))
	for _, v := range vis {
		if v.Visible {
			visible[v.Prn] = v
		}
	}

	for slot := range m.Channels {
		ch := &m.Channels[slot]
		if !ch.Allocated {
			continue
		}
		if _, ok := visible[ch.Prn]; !ok {
			m.log.WithFields(logrus.Fields{"prn": ch.Prn, "slot": slot}).Info("channel evicted")
			m.AllocIndex[ch.Prn] = -1
			*ch = Channel{}
		}
	}

	for prn, v := range visible {
		if m.AllocIndex[prn] != -1 {
			continue
		}
		slot := m.firstFreeSlot()
		if slot < 0 {
			m.log.WithField("prn", prn).Warn("no free channel slot, satellite dropped")
			continue
		}
		e := &table.Sets[setIdx][prn]
		m.allocate(slot, prn, e, table.Iono, v.Range, g)
		m.log.WithFields(logrus.Fields{
			"prn": prn, "slot": slot, "az": v.Range.Azel.Az, "el": v.Range.Azel.El,
			"dist": v.Range.Dist, "iono": v.Range.IonoDelay,
		}).Info("channel allocated")
	}
}

func (m *Manager) firstFreeSlot() int {
	for i := range m.Channels {
		if !m.Channels[i].Allocated {
			return i
		}
	}
	return -1
}

func (m *Manager) allocate(slot, prn int, e *ephstore.Ephemeris, ion ephstore.IonoUtc, r rangeengine.Range, g gpstime.GpsTime) {
	ch := &m.Channels[slot]
	*ch = Channel{
		Allocated: true,
		Prn:       prn,
		Eph:       e,
		Ca:        navmsg.GenerateCACode(prn),
		Rho0:      r,
		Rho1:      r,
		// Carrier phase is left at 0 on allocation: IS-GPS-200 does not
		// define an absolute carrier phase reference at acquisition.
		CarrierPhase: 0,
	}

	dataBitRef := subframe5Boundary(g)
	ch.Gen = navmsg.NewGenerator(e, ion, dataBitRef)
	ch.Dwrd = ch.Gen.NextSuperframe()
	m.AllocIndex[prn] = slot
}

// subframe5Boundary returns the start time of the current subframe-5
// data-bit reference, the 30-second boundary at or before g.
func subframe5Boundary(g gpstime.GpsTime) gpstime.GpsTime {
	sec := math.Floor(g.Sec/30.0) * 30.0
	return gpstime.GpsTime{Week: g.Week, Sec: sec}
}

// AntennaGainDB returns the boresight-table gain in dB for elevation
// elRad, via the 37-entry table indexed by 5-degree boresight bins.
func AntennaGainDB(elRad float64) float64 {
	elDeg := elRad * 180.0 / math.Pi
	bs := int(math.Floor((90.0 - elDeg) / 5.0))
	if bs < 0 {
		bs = 0
	}
	if bs > 36 {
		bs = 36
	}
	return antennaPatternDB[bs]
}

// GainFor computes the per-sample signal gain for a channel at
// distance d (meters) and elevation elRad, per spec.md §4.8 step 3.
func (m *Manager) GainFor(d, elRad float64) float64 {
	if m.FixedGain > 0 {
		return m.FixedGain
	}
	linear := math.Pow(10.0, AntennaGainDB(elRad)/20.0)
	return (20200000.0 / d) * linear * 128.0
}
