package navmsg

import (
	"math"

	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
)

// wnShift/wnWidth locate the 10-bit transmission week field BuildSubframes
// leaves zeroed in subframe 1 word 3 (words are frame-assembly concerns,
// not per-ephemeris-set concerns).
const (
	wnShift  = 20
	wnWidth  = 10
	towShift = 13
)

// NSbf is the number of subframes in one 30-second superframe.
const NSbf = 5

// NDwrdSbf is the number of 30-bit words in one subframe.
const NDwrdSbf = 10

// DwrdLen is the size of a channel's data-word buffer: a synthetic or
// carried-over "prev" subframe-5 tail (words 0-9) followed by the
// current cycle's 5 real subframes (words 10-59). Matches
// original_source/src/constants.rs's N_DWRD = (N_SBF+1)*N_DWRD_SBF.
const DwrdLen = (NSbf + 1) * NDwrdSbf

// Generator streams successive 60-word data buffers for one ephemeris
// set, following original_source/src/channel.rs's generate_nav_msg:
// the first call synthesizes a parity-valid "prev" subframe-5 tail
// seeded with the cycle's own (unincremented) TOW; every later call
// instead carries the previous cycle's real subframe 5 into that same
// slot, verbatim, so the D29*/D30* parity chain and TOW framing both
// continue unbroken across the 30-second boundary. TOW increments once
// per 6-second subframe, the week number is stamped into subframe 1,
// and each word's parity chains from the previous word's D29*/D30*.
type Generator struct {
	ephem *ephstore.Ephemeris
	ion   ephstore.IonoUtc
	g0    gpstime.GpsTime

	prev     uint32
	hasPrev  bool
	prevTail [NDwrdSbf]uint32
}

// NewGenerator starts a generator whose first superframe begins at the
// 30-second boundary at or before g (g rounded to the nearest second).
func NewGenerator(e *ephstore.Ephemeris, ion ephstore.IonoUtc, g gpstime.GpsTime) *Generator {
	return &Generator{ephem: e, ion: ion, g0: AlignToSuperframeBoundary(g)}
}

// AlignToSuperframeBoundary rounds g to the nearest whole second, then
// down to the 30-second mark at or before it, as
// generateNavMsg does before emitting subframe 1 of a new cycle.
func AlignToSuperframeBoundary(g gpstime.GpsTime) gpstime.GpsTime {
	sec := math.Floor(g.Sec + 0.5)
	sec = math.Floor(sec/30.0) * 30.0
	return gpstime.GpsTime{Week: g.Week, Sec: sec}
}

// Epoch returns the GPS time of the start of the superframe this
// generator will produce on the next call to NextSuperframe.
func (g *Generator) Epoch() gpstime.GpsTime { return g.g0 }

// NextSuperframe builds and parity-encodes the 60-word channel data
// buffer for the cycle starting at g.Epoch(): words 0-9 hold the prev
// subframe-5 tail (synthesized on the first call, carried over from
// the previous cycle's real subframe 5 thereafter), words 10-59 hold
// the 5 freshly encoded subframes of the current cycle. Then advances
// the epoch by 30s.
func (g *Generator) NextSuperframe() [DwrdLen]uint32 {
	raw := BuildSubframes(g.ephem, g.ion)

	wn := uint32(g.g0.Week % 1024)
	raw[0][2] = (raw[0][2] &^ (uint32(1<<wnWidth-1) << wnShift)) | ((wn & (1<<wnWidth - 1)) << wnShift)

	towBase := uint32(math.Floor(g.g0.Sec / 6.0))

	var out [DwrdLen]uint32

	if !g.hasPrev {
		g.prev = 0
		for w := 0; w < NDwrdSbf; w++ {
			word := raw[4][w]
			if w == 1 {
				word |= towBase << towShift
			}
			nib := w == 1 || w == 9
			checked := ComputeChecksum(word|(g.prev&0x3)<<30, nib)
			out[w] = checked
			g.prev = checked
		}
	} else {
		copy(out[0:NDwrdSbf], g.prevTail[:])
		g.prev = g.prevTail[NDwrdSbf-1]
	}

	for sf := 0; sf < NSbf; sf++ {
		tow := towBase + uint32(sf) + 1
		raw[sf][1] |= tow << towShift
		for w := 0; w < NDwrdSbf; w++ {
			word := raw[sf][w] | (g.prev&0x3)<<30
			nib := w == 1 || w == 9
			checked := ComputeChecksum(word, nib)
			out[(sf+1)*NDwrdSbf+w] = checked
			g.prev = checked
		}
	}

	copy(g.prevTail[:], out[NSbf*NDwrdSbf:(NSbf+1)*NDwrdSbf])
	g.hasPrev = true

	g.g0 = gpstime.AddSecs(g.g0, 30.0)
	return out
}
