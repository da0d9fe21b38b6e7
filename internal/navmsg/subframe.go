package navmsg

import (
	"math"

	"gpssim/internal/ephstore"
)

// ICD power-of-two scale factors used to quantize ephemeris/iono
// fields into their broadcast fixed-point representations.
const (
	pow2M5  = 0.03125
	pow2M19 = 1.9073486328125e-6
	pow2M29 = 1.862645149230957e-9
	pow2M31 = 4.656612873077393e-10
	pow2M33 = 1.164153218269348e-10
	pow2M43 = 1.13686837721616e-13
	pow2M55 = 2.775557561562891e-17
	pow2M50 = 8.881784197001252e-16
	pow2M30 = 9.313225746154785e-10
	pow2M27 = 7.450580596923828e-9
	pow2M24 = 5.960464477539063e-8

	piConst = 3.1415926535898
)

// Subframe is the five 10-word, 24-bit-payload subframes built from
// one ephemeris set, before parity. Subframes 1-3 carry ephemeris,
// subframe 4 carries iono/UTC (page 18) or almanac page 25, subframe
// 5 carries almanac page 25.
type Subframe [5][10]uint32

// field is one (value, width, shift) tuple driving the single 30-bit
// packer below — the bit-packing DSL spec.md Design Note 9 calls for,
// avoiding per-subframe duplicated shift chains.
type field struct {
	value uint32
	width uint
	shift uint
}

func packWord(fields ...field) uint32 {
	var w uint32
	for _, f := range fields {
		mask := uint32(1)<<f.width - 1
		w |= (f.value & mask) << f.shift
	}
	return w
}

// scaleSigned truncates toward zero, matching eph2sbf's `as i32` casts
// for every ephemeris orbit/clock field (deltan through tgd below).
// roundSigned is reserved for the iono/UTC fields (alpha0-3, beta0-3,
// A0, A1), the only fields eph2sbf applies `.round()` to before
// truncating.
func scaleSigned(v float64, pow2 float64) int32    { return int32(v / pow2) }
func scaleUnsigned(v float64, pow2 float64) uint32 { return uint32(v / pow2) }
func roundSigned(v float64, pow2 float64) int32    { return int32(math.Round(v / pow2)) }

// BuildSubframes packs ephemeris e and iono/UTC parameters ion into
// the five raw (pre-parity) subframes, following
// original_source/src/process.rs's eph2sbf bit layout exactly.
func BuildSubframes(e *ephstore.Ephemeris, ion ephstore.IonoUtc) Subframe {
	const (
		ura             = uint32(0)
		dataID          = uint32(1)
		sbf4Page25SvID  = uint32(63)
		sbf5Page25SvID  = uint32(51)
		sbf4Page18SvID  = uint32(56)
		tlmPreamble     = uint32(0x8b0000)
	)

	wn := uint32(0) // transmission week overwritten by the caller if needed
	toe := uint32(e.Toe.Sec / 16.0)
	toc := uint32(e.Toc.Sec / 16.0)
	iode := uint32(e.Iode)
	iodc := uint32(e.Iodc)

	deltan := scaleSigned(e.Deltan/piConst, pow2M43)
	cuc := scaleSigned(e.Cuc, pow2M29)
	cus := scaleSigned(e.Cus, pow2M29)
	cic := scaleSigned(e.Cic, pow2M29)
	cis := scaleSigned(e.Cis, pow2M29)
	crc := scaleSigned(e.Crc, pow2M5)
	crs := scaleSigned(e.Crs, pow2M5)
	ecc := scaleUnsigned(e.Ecc, pow2M33)
	sqrta := scaleUnsigned(e.SqrtA, pow2M19)
	m0 := scaleSigned(e.M0/piConst, pow2M31)
	omg0 := scaleSigned(e.Omega0/piConst, pow2M31)
	inc0 := scaleSigned(e.I0/piConst, pow2M31)
	aop := scaleSigned(e.Aop/piConst, pow2M31)
	omgdot := scaleSigned(e.Omgdot/piConst, pow2M43)
	idot := scaleSigned(e.Idot/piConst, pow2M43)
	af0 := scaleSigned(e.Af0, pow2M31)
	af1 := scaleSigned(e.Af1, pow2M43)
	af2 := scaleSigned(e.Af2, pow2M55)
	tgd := scaleSigned(e.Tgd, pow2M31)
	svhlth := uint32(e.SvHealth)
	codeL2 := uint32(e.CodeL2)
	wna := uint32(int(e.Toe.Week) % 256)
	toa := uint32(e.Toe.Sec / 4096.0)

	alpha0 := roundSigned(ion.Alpha0, pow2M30)
	alpha1 := roundSigned(ion.Alpha1, pow2M27)
	alpha2 := roundSigned(ion.Alpha2, pow2M24)
	alpha3 := roundSigned(ion.Alpha3, pow2M24)
	beta0 := roundSigned(ion.Beta0, 2048.0)
	beta1 := roundSigned(ion.Beta1, 16384.0)
	beta2 := roundSigned(ion.Beta2, 65536.0)
	beta3 := roundSigned(ion.Beta3, 65536.0)
	a0 := roundSigned(ion.A0, pow2M30)
	a1 := roundSigned(ion.A1, pow2M50)
	dtls := uint32(ion.Dtls)
	tot := uint32(ion.Tot / 4096)
	wnt := uint32(ion.Wnt % 256)

	var wnlsf, dn, dtlsf uint32
	if ion.Leapen {
		wnlsf = uint32(ion.Wnlsf % 256)
		dn = uint32(ion.Dn)
		dtlsf = uint32(ion.Dtlsf)
	} else {
		wnlsf = uint32(1929 % 256)
		dn = 7
		dtlsf = 18
	}

	var sbf Subframe

	// Subframe 1: TLM, HOW, WN/codeL2/URA/health/IODC-hi, TGD, TOC, af2/af1, af0.
	sbf[0][0] = tlmPreamble << 6
	sbf[0][1] = 1 << 8
	sbf[0][2] = packWord(
		field{wn, 10, 20}, field{codeL2, 2, 18}, field{ura, 4, 14},
		field{svhlth, 6, 8}, field{iodc >> 8 & 0x3, 2, 6},
	)
	sbf[0][6] = packWord(field{uint32(tgd), 8, 6})
	sbf[0][7] = packWord(field{iodc, 8, 22}, field{toc, 16, 6})
	sbf[0][8] = packWord(field{uint32(af2), 8, 22}, field{uint32(af1), 16, 6})
	sbf[0][9] = packWord(field{uint32(af0), 22, 8})

	// Subframe 2: IODE/Crs, deltan/M0-hi, M0-lo, Cuc/ecc-hi, ecc-lo,
	// Cus/sqrtA-hi, sqrtA-lo, Toe.
	sbf[1][0] = tlmPreamble << 6
	sbf[1][1] = 2 << 8
	sbf[1][2] = packWord(field{iode, 8, 22}, field{uint32(crs), 16, 6})
	sbf[1][3] = packWord(field{uint32(deltan), 16, 14}, field{uint32(m0)>>24&0xff, 8, 6})
	sbf[1][4] = packWord(field{uint32(m0) & 0xffffff, 24, 6})
	sbf[1][5] = packWord(field{uint32(cuc), 16, 14}, field{ecc >> 24 & 0xff, 8, 6})
	sbf[1][6] = packWord(field{ecc & 0xffffff, 24, 6})
	sbf[1][7] = packWord(field{uint32(cus), 16, 14}, field{sqrta >> 24 & 0xff, 8, 6})
	sbf[1][8] = packWord(field{sqrta & 0xffffff, 24, 6})
	sbf[1][9] = packWord(field{toe, 16, 14})

	// Subframe 3: Cic/Omega0-hi, Omega0-lo, Cis/i0-hi, i0-lo, Crc/omega-hi,
	// omega-lo, Omegadot, IODE/IDOT.
	sbf[2][0] = tlmPreamble << 6
	sbf[2][1] = 3 << 8
	sbf[2][2] = packWord(field{uint32(cic), 16, 14}, field{uint32(omg0)>>24&0xff, 8, 6})
	sbf[2][3] = packWord(field{uint32(omg0) & 0xffffff, 24, 6})
	sbf[2][4] = packWord(field{uint32(cis), 16, 14}, field{uint32(inc0)>>24&0xff, 8, 6})
	sbf[2][5] = packWord(field{uint32(inc0) & 0xffffff, 24, 6})
	sbf[2][6] = packWord(field{uint32(crc), 16, 14}, field{uint32(aop)>>24&0xff, 8, 6})
	sbf[2][7] = packWord(field{uint32(aop) & 0xffffff, 24, 6})
	sbf[2][8] = packWord(field{uint32(omgdot) & 0xffffff, 24, 6})
	sbf[2][9] = packWord(field{iode, 8, 22}, field{uint32(idot), 14, 8})

	if ion.Vflg {
		sbf[3][0] = tlmPreamble << 6
		sbf[3][1] = 4 << 8
		sbf[3][2] = packWord(
			field{dataID, 2, 28}, field{sbf4Page18SvID, 6, 22},
			field{uint32(alpha0), 8, 14}, field{uint32(alpha1), 8, 6},
		)
		sbf[3][3] = packWord(
			field{uint32(alpha2), 8, 22}, field{uint32(alpha3), 8, 14}, field{uint32(beta0), 8, 6},
		)
		sbf[3][4] = packWord(
			field{uint32(beta1), 8, 22}, field{uint32(beta2), 8, 14}, field{uint32(beta3), 8, 6},
		)
		sbf[3][5] = packWord(field{uint32(a1), 24, 6})
		sbf[3][6] = packWord(field{uint32(a0)>>8&0xffffff, 24, 6})
		sbf[3][7] = packWord(field{uint32(a0)&0xff, 8, 22}, field{tot, 8, 14}, field{wnt, 8, 6})
		sbf[3][8] = packWord(field{dtls, 8, 22}, field{wnlsf, 8, 14}, field{dn, 8, 6})
		sbf[3][9] = packWord(field{dtlsf, 8, 22})
	} else {
		sbf[3][0] = tlmPreamble << 6
		sbf[3][1] = 4 << 8
		sbf[3][2] = packWord(field{dataID, 2, 28}, field{sbf4Page25SvID, 6, 22})
	}

	sbf[4][0] = tlmPreamble << 6
	sbf[4][1] = 5 << 8
	sbf[4][2] = packWord(
		field{dataID, 2, 28}, field{sbf5Page25SvID, 6, 22},
		field{toa, 8, 14}, field{wna, 8, 6},
	)

	return sbf
}
