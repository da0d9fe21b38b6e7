package navmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/ephstore"
	"gpssim/internal/gpstime"
)

// TestGenerateCACodeAutocorrelationPeak checks the Gold-code signature
// property spec.md names: the zero-lag autocorrelation of a PRN's own
// code (mapped to +-1) equals its full length, and distinct PRNs are
// only weakly correlated against each other.
func TestGenerateCACodeAutocorrelationPeak(t *testing.T) {
	a := assert.New(t)
	ca1 := GenerateCACode(1)

	var auto int
	for i := 0; i < CaSeqLen; i++ {
		chip := int(ca1[i])*2 - 1
		auto += chip * chip
	}
	a.Equal(CaSeqLen, auto)

	ca2 := GenerateCACode(2)
	var cross int
	for i := 0; i < CaSeqLen; i++ {
		cross += (int(ca1[i])*2 - 1) * (int(ca2[i])*2 - 1)
	}
	a.Less(abs(cross), CaSeqLen/4)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestGenerateCACodeAllChipsAreBinary(t *testing.T) {
	a := assert.New(t)
	ca := GenerateCACode(5)
	for _, c := range ca {
		a.True(c == 0 || c == 1)
	}
}

func TestGenerateCACodeOutOfRangePrnIsZeroed(t *testing.T) {
	a := assert.New(t)
	ca := GenerateCACode(0)
	for _, c := range ca {
		a.Equal(int8(0), c)
	}
}

func TestComputeChecksumParityVerifies(t *testing.T) {
	a := assert.New(t)
	for _, source := range []uint32{0x00000000, 0x3FFFFFC0, 0x12345680, 0xABCDEF00} {
		for _, nib := range []bool{false, true} {
			word := ComputeChecksum(source&0x3FFFFFC0, nib)
			a.Zero(word &^ 0x3FFFFFFF)
			if verifyWordParity(word) == false {
				t.Fatalf("word %#x failed self-check parity for source %#x nib=%v", word, source, nib)
			}
		}
	}
}

// verifyWordParity recomputes the six parity bits from the data bits
// the word itself carries and checks they match the trailing 6 bits —
// a word is self-consistent when D29*/D30* are both taken as 0, since
// ComputeChecksum was invoked with source's top two bits already 0 in
// this test (no preceding word chained in).
func verifyWordParity(word uint32) bool {
	d := word & 0x3FFFFFC0
	var parity uint32
	for i := 0; i < 6; i++ {
		bit := popcountMod2(parityMasks[i]&d) % 2
		parity |= bit << uint(5-i)
	}
	return parity == word&0x3F
}

func sampleEphemeris() *ephstore.Ephemeris {
	e := &ephstore.Ephemeris{
		Valid:   true,
		Toc:     gpstime.GpsTime{Week: 2190, Sec: 14400},
		Toe:     gpstime.GpsTime{Week: 2190, Sec: 14400},
		Iode:    12, Iodc: 12,
		Deltan:  4.3e-9, Cuc: 1e-6, Cus: 9e-6, Cic: -1e-7, Cis: 5e-8,
		Crc: 200.0, Crs: -15.0, Ecc: 0.01, SqrtA: 5153.7,
		M0: 0.3, Omega0: -1.2, I0: 0.96, Aop: 0.5, Omgdot: -8e-9, Idot: 1e-10,
		Af0: 1e-5, Af1: 1e-12, Af2: 0, Tgd: -5e-9,
		SvHealth: 0, CodeL2: 1,
	}
	return e
}

func TestGeneratorProducesParityValidSuperframe(t *testing.T) {
	a := assert.New(t)
	e := sampleEphemeris()
	ion := ephstore.IonoUtc{Enable: true, Vflg: false}
	gen := NewGenerator(e, ion, gpstime.GpsTime{Week: 2190, Sec: 0})
	dwrd := gen.NextSuperframe()
	a.Len(dwrd, DwrdLen)
	for w := 0; w < DwrdLen; w++ {
		a.Zero(dwrd[w] &^ 0x3FFFFFFF)
	}
}

// TestGeneratorCarriesPrevTailAcrossCycles checks the 60-word buffer's
// prev/cur continuity: the second call's words 0-9 must equal the
// first call's real subframe 5 (words 50-59) verbatim, and the TOW
// fields must continue without a gap across the 30-second boundary.
func TestGeneratorCarriesPrevTailAcrossCycles(t *testing.T) {
	a := assert.New(t)
	e := sampleEphemeris()
	ion := ephstore.IonoUtc{Enable: true, Vflg: false}
	gen := NewGenerator(e, ion, gpstime.GpsTime{Week: 2190, Sec: 0})

	first := gen.NextSuperframe()
	second := gen.NextSuperframe()

	for w := 0; w < NDwrdSbf; w++ {
		a.Equal(first[NSbf*NDwrdSbf+w], second[w], "word %d of carried prev tail", w)
	}

	firstTow := (first[NSbf*NDwrdSbf+1] >> towShift) & 0x1FFFF
	secondFirstTow := (second[NDwrdSbf+1] >> towShift) & 0x1FFFF
	a.Equal(firstTow+1, secondFirstTow)
}

func TestAlignToSuperframeBoundary(t *testing.T) {
	a := assert.New(t)
	g := AlignToSuperframeBoundary(gpstime.GpsTime{Week: 1, Sec: 31.2})
	a.Equal(30.0, g.Sec)
	g = AlignToSuperframeBoundary(gpstime.GpsTime{Week: 1, Sec: 0.0})
	a.Equal(0.0, g.Sec)
}
