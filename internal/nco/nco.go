// Package nco implements the signal NCO (C8): per-sample carrier and
// code phase accumulation, data-bit/word bookkeeping, and quantized
// I/Q sample synthesis. Grounded on
// original_source/src/process.rs's main per-0.1s sample loop.
package nco

import (
	"math"

	"gpssim/internal/channel"
	"gpssim/internal/gpstime"
	"gpssim/internal/navmsg"
)

// SpeedOfLight in meters/second.
const SpeedOfLight = 2.99792458e8

// LambdaL1 is the L1 carrier wavelength in meters.
const LambdaL1 = 0.190293672798365

// CodeFreqBase is the nominal C/A chipping rate in Hz.
const CodeFreqBase = 1.023e6

// CarrToCodeRatio converts a carrier Doppler to its code-frequency
// equivalent (code rate / carrier rate = 1/1540 for GPS L1).
const CarrToCodeRatio = 1.0 / 1540.0

var cosTable [512]int8
var sinTable [512]int8

func init() {
	for i := 0; i < 512; i++ {
		theta := 2.0 * math.Pi * float64(i) / 512.0
		cosTable[i] = int8(math.Round(127.0 * math.Cos(theta)))
		sinTable[i] = int8(math.Round(127.0 * math.Sin(theta)))
	}
}

// ChannelState is the free-running per-sample synthesis state for one
// active channel: carrier/code phase accumulators and the word they
// point into. Dwrd holds the channel's current 60-word data buffer
// (prev subframe-5 tail plus the current cycle's 5 subframes); the
// caller (internal/simulate) swaps it in via
// channel.Channel.Gen.NextSuperframe() every 30 simulated seconds.
type ChannelState struct {
	Dwrd [navmsg.DwrdLen]uint32
	Ca   [navmsg.CaSeqLen]int8

	CarrierStep int32
	CodeFreq    float64
	Gain        float64

	CarrierPhase uint32
	CodePhase    float64
	Word         int
	Bit          int
	CodeCycle    int
	DataBit      int8
	Chip         int8
}

// InitChannel derives the per-0.1s synthesis parameters for ch from
// its previous (Rho0) and current (Rho1) range solutions, plus the
// current data buffer and C/A code, per spec.md §4.8 steps 1-3.
//
// The word lookup is computed from Rho0 (the range solution in effect
// before this block's update), not Rho1, matching
// original_source/src/channel.rs's compute_code_phase: ms is derived
// from chan.rho0 before chan.rho0 is reassigned to the freshly
// computed range at the end of that function.
func InitChannel(ch *channel.Channel, fs float64, gainFn func(d, elRad float64) float64) ChannelState {
	delta := ch.Rho1.G.Sec - ch.Rho0.G.Sec
	if delta <= 0 {
		delta = 0.1
	}
	carrFreq := -(ch.Rho1.Dist - ch.Rho0.Dist) / delta / LambdaL1
	codeFreq := CodeFreqBase + carrFreq*CarrToCodeRatio
	step := int32(math.Round(512.0 * 65536.0 * carrFreq / fs))

	// Gen.Epoch() already points at the next cycle once NextSuperframe
	// has built ch.Dwrd; the buffer's own cycle began 30s earlier.
	cycleStart := gpstime.AddSecs(ch.Gen.Epoch(), -30.0)
	tocDelta := gpstime.DiffSecs(ch.Rho0.G, cycleStart)
	ms := (tocDelta + 6.0 - ch.Rho0.Dist/SpeedOfLight) * 1000.0

	// word is an absolute index into the 60-word buffer (ms/600, one
	// word every 600ms), not a mod-5/mod-10 wrap of a single 50-word
	// cycle: the +6s light-time offset routinely lands in the prev
	// subframe-5 tail (words 0-9) for the first ~60-90ms after every
	// 30-second superframe boundary.
	totalBit := int(ms) / 20 // one data bit spans 20ms
	word := totalBit / 30
	bit := totalBit % 30
	cycle := int(ms) % 20
	codePhase := frac(ms) * 1023.0

	word = clampWord(word)

	gain := gainFn(ch.Rho1.Dist, ch.Rho1.Azel.El)

	return ChannelState{
		Dwrd: ch.Dwrd, Ca: ch.Ca,
		CarrierStep: step, CodeFreq: codeFreq, Gain: gain,
		Word: word, Bit: bit, CodeCycle: cycle,
		CodePhase: codePhase,
	}
}

func clampWord(w int) int {
	if w < 0 {
		return 0
	}
	if w >= navmsg.DwrdLen {
		return navmsg.DwrdLen - 1
	}
	return w
}

func frac(v float64) float64 { return v - math.Floor(v) }

// Sample synthesizes one I/Q sample pair by accumulating every active
// channel's contribution, then advances each channel's phase state by
// one sample period. Per spec.md §4.8.
func Sample(states []*ChannelState, fs float64) (i16, q16 int16) {
	var iAcc, qAcc int32

	for _, st := range states {
		tableIndex := (st.CarrierPhase >> 16) & 0x1FF
		contribution := float64(st.DataBit) * float64(st.Chip) * st.Gain
		iAcc += int32(contribution) * int32(cosTable[tableIndex])
		qAcc += int32(contribution) * int32(sinTable[tableIndex])
		advance(st, fs)
	}

	return int16((iAcc + 64) >> 7), int16((qAcc + 64) >> 7)
}

// advance steps one channel's carrier phase, code phase, and word/bit
// counters forward by one sample period, refreshing the data bit and
// C/A chip when their boundaries are crossed. Word is a plain counter
// clamped to the 60-word buffer: InitChannel re-derives it from
// absolute elapsed time every 0.1s block, so it never runs far enough
// within one block to need wraparound (the original carries the same
// assumption — its overflow check is commented out).
func advance(st *ChannelState, fs float64) {
	st.CarrierPhase += uint32(st.CarrierStep)
	st.CodePhase += st.CodeFreq / fs

	if st.CodePhase >= 1023.0 {
		st.CodePhase -= 1023.0
		st.CodeCycle++
		if st.CodeCycle >= 20 {
			st.CodeCycle = 0
			st.Bit++
			if st.Bit >= 30 {
				st.Bit = 0
				st.Word = clampWord(st.Word + 1)
			}
		}
	}

	bitVal := (st.Dwrd[st.Word] >> uint(29-st.Bit)) & 1
	st.DataBit = int8(bitVal)*2 - 1

	idx := int(math.Floor(st.CodePhase))
	if idx < 0 {
		idx = 0
	}
	if idx >= navmsg.CaSeqLen {
		idx = navmsg.CaSeqLen - 1
	}
	st.Chip = st.Ca[idx]*2 - 1
}
