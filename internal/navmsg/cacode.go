// Package navmsg implements the GPS LNAV navigation encoder (C6): the
// C/A Gold-code generator, ephemeris-to-subframe bit packing, the
// six-mask parity computation, and frame assembly. Ported from
// original_source/src/process.rs's codegen/eph2sbf/computeChecksum/
// generateNavMsg, which has no equivalent in the teacher (RTKLIB-style
// repos correlate against received C/A code, they never synthesize
// it) — expressed here in the teacher's Go naming idiom.
package navmsg

// CaSeqLen is the length of the C/A Gold-code sequence.
const CaSeqLen = 1023

// prnDelay is the 32-entry PRN delay table for the G2 shift register,
// indexed by PRN-1.
var prnDelay = [32]int{
	5, 6, 7, 8, 17, 18, 139, 140, 141, 251,
	252, 254, 255, 256, 257, 258, 469, 470, 471, 472,
	473, 474, 509, 512, 513, 514, 515, 516, 859, 860,
	861, 862,
}

// GenerateCACode returns the 1023-chip C/A Gold sequence for prn
// (1..32), as 0/1 bits — the +-1 conversion happens at the point of
// use in the NCO's sample loop (spec.md §4.8: "chip from
// ca[floor(code_phase)]*2-1"). Two 10-bit LFSRs: G1 taps {3,10}, G2
// taps {2,3,6,8,9,10}, XORed with a PRN-dependent delay on G2.
func GenerateCACode(prn int) [CaSeqLen]int8 {
	var ca [CaSeqLen]int8
	if prn < 1 || prn > 32 {
		return ca
	}

	var g1, g2 [CaSeqLen]int
	var r1, r2 [10]int
	for i := range r1 {
		r1[i] = -1
		r2[i] = -1
	}

	for i := 0; i < CaSeqLen; i++ {
		g1[i] = r1[9]
		g2[i] = r2[9]
		c1 := r1[2] * r1[9]
		c2 := r2[1] * r2[2] * r2[5] * r2[7] * r2[8] * r2[9]
		for j := 9; j >= 1; j-- {
			r1[j] = r1[j-1]
			r2[j] = r2[j-1]
		}
		r1[0] = c1
		r2[0] = c2
	}

	j := CaSeqLen - prnDelay[prn-1]
	for i := 0; i < CaSeqLen; i++ {
		chip := (1 - g1[i]*g2[j%CaSeqLen]) / 2
		ca[i] = int8(chip)
		j++
	}
	return ca
}
