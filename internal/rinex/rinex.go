// Package rinex implements a RINEX v2 GPS navigation message reader.
// Adapted directly from FengXuebin-gnssgo/src/renix.go's
// ReadRnxHeader/DecodeNavHeader/ReadRnxNavBody/DecodeEph — the
// teacher's own format, trimmed to ver.2/GPS-only (the GLONASS/SBAS/
// Galileo/BeiDou/IRNSS branches have no home in an L1 C/A simulator
// and are dropped per spec.md's GPS-only scope).
package rinex

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gpssim/internal/ephstore"
	"gpssim/internal/gpssim"
	"gpssim/internal/gpstime"
)

// strNum parses a fixed-column numeric field, tolerating RINEX's
// Fortran D-exponent notation, exactly as the teacher's Str2Num does.
func strNum(s string, i, n int) float64 {
	if i < 0 || len(s) < i {
		return 0.0
	}
	if i+n > len(s) {
		s = s[i:]
	} else {
		s = s[i : i+n]
	}
	nr := strings.NewReplacer("d", "E", "D", "E")
	str := strings.TrimSpace(nr.Replace(s))
	if str == "" {
		return 0.0
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// parseEpoch parses "yy mm dd hh mm ss.ssssssss" starting at column i,
// width n, following the teacher's Str2Time (Sscanf over 6 floats;
// a two-digit year is windowed into 1980-2079, as original's
// 80-cutoff rule: < 80 -> 2000s, else 1900s).
func parseEpoch(s string, i, n int) (gpstime.GpsTime, error) {
	if i < 0 || len(s) < i || i+n > len(s) {
		return gpstime.GpsTime{}, gpssim.New(gpssim.InputFormat, "rinex: malformed epoch field")
	}
	field := s[i : i+n]
	var y, mo, d, h, mi int
	var sec float64
	if _, err := fmt.Sscanf(field, "%d %d %d %d %d %f", &y, &mo, &d, &h, &mi, &sec); err != nil {
		return gpstime.GpsTime{}, gpssim.Wrap(gpssim.InputFormat, "rinex: malformed epoch field", err)
	}
	if y < 80 {
		y += 2000
	} else if y < 100 {
		y += 1900
	}
	c := gpstime.CivilTime{Year: y, Month: mo, Day: d, Hour: h, Min: mi, Sec: sec}
	return c.ToGps(), nil
}

// Header is the subset of RINEX nav header fields the simulator uses.
type Header struct {
	Version float64
	Iono    ephstore.IonoUtc
}

// ReadHeader consumes lines from r up to and including "END OF
// HEADER", extracting the RINEX version, ION ALPHA/BETA, and
// DELTA-UTC/LEAP SECONDS fields per DecodeNavHeader's ver.2 branches.
func ReadHeader(r *bufio.Reader) (Header, error) {
	var h Header
	for {
		line, err := r.ReadString('\n')
		if line == "" && err != nil {
			return h, gpssim.Wrap(gpssim.Io, "rinex: reading header", err)
		}
		if len(line) < 61 {
			if err == io.EOF {
				return h, gpssim.New(gpssim.InputFormat, "rinex: missing END OF HEADER")
			}
			continue
		}
		label := line[60:]

		switch {
		case strings.Contains(label, "RINEX VERSION"):
			h.Version = strNum(line, 0, 9)
		case strings.Contains(label, "ION ALPHA"):
			h.Iono.Alpha0 = strNum(line, 2, 12)
			h.Iono.Alpha1 = strNum(line, 14, 12)
			h.Iono.Alpha2 = strNum(line, 26, 12)
			h.Iono.Alpha3 = strNum(line, 38, 12)
		case strings.Contains(label, "ION BETA"):
			h.Iono.Beta0 = strNum(line, 2, 12)
			h.Iono.Beta1 = strNum(line, 14, 12)
			h.Iono.Beta2 = strNum(line, 26, 12)
			h.Iono.Beta3 = strNum(line, 38, 12)
			h.Iono.Enable = true
		case strings.Contains(label, "DELTA-UTC"):
			h.Iono.A0 = strNum(line, 3, 19)
			h.Iono.A1 = strNum(line, 22, 19)
			h.Iono.Tot = int(strNum(line, 41, 9))
			h.Iono.Wnt = int(strNum(line, 50, 9))
			h.Iono.Vflg = h.Iono.Tot%4096 == 0
		case strings.Contains(label, "LEAP SECONDS"):
			h.Iono.Dtls = int(strNum(line, 0, 6))
		case strings.Contains(label, "END OF HEADER"):
			return h, nil
		}
		if err == io.EOF {
			return h, gpssim.New(gpssim.InputFormat, "rinex: missing END OF HEADER")
		}
	}
}

// ReadBody reads successive 8-line GPS ephemeris records until EOF,
// calling add for each decoded record.
func ReadBody(r *bufio.Reader, add func(prn int, e ephstore.Ephemeris)) error {
	for {
		prn, toc, data, err := readRecord(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		add(prn, decodeEph(toc, data))
	}
}

// readRecord reads one 8-line fixed-column GPS nav record: PRN+epoch
// line (3 data fields), then 7 lines of 4 fields each (28 total),
// yielding 31 data values in RINEX2 broadcast order. Grounded on
// ReadRnxNavBody's ver<3 branch.
func readRecord(r *bufio.Reader) (prn int, toc gpstime.GpsTime, data [31]float64, err error) {
	line, rerr := r.ReadString('\n')
	if line == "" && rerr != nil {
		return 0, toc, data, io.EOF
	}
	if len(strings.TrimSpace(line)) == 0 {
		return 0, toc, data, io.EOF
	}

	prn = int(strNum(line, 0, 2))
	toc, err = parseEpoch(line, 3, 19)
	if err != nil {
		return 0, toc, data, err
	}
	for j, idx := 0, 22; j < 3; j, idx = j+1, idx+19 {
		data[j] = strNum(line, idx, 19)
	}

	n := 3
	for row := 0; row < 7; row++ {
		line, rerr = r.ReadString('\n')
		if line == "" && rerr != nil {
			return 0, toc, data, gpssim.New(gpssim.InputFormat, "rinex: truncated ephemeris record")
		}
		for j, idx := 0, 3; j < 4 && n < 31; j, idx = j+1, idx+19 {
			data[n] = strNum(line, idx, 19)
			n++
		}
	}
	return prn, toc, data, nil
}

// decodeEph maps the 31 RINEX2 GPS broadcast fields onto Ephemeris,
// following DecodeEph's SYS_GPS branch field-by-field.
func decodeEph(toc gpstime.GpsTime, data [31]float64) ephstore.Ephemeris {
	var e ephstore.Ephemeris
	e.Valid = true
	e.Toc = toc

	e.Af0, e.Af1, e.Af2 = data[0], data[1], data[2]

	e.Iode = int(data[3])
	e.Crs = data[4]
	e.Deltan = data[5]
	e.M0 = data[6]

	e.Cuc = data[7]
	e.Ecc = data[8]
	e.Cus = data[9]
	e.SqrtA = data[10]

	toes := data[11]
	e.Cic = data[12]
	e.Omega0 = data[13]
	e.Cis = data[14]

	e.I0 = data[15]
	e.Crc = data[16]
	e.Aop = data[17]
	e.Omgdot = data[18]

	e.Idot = data[19]
	e.CodeL2 = int(data[20])
	week := int(data[21])

	e.SvHealth = int(data[24])
	e.Tgd = data[25]
	e.Iodc = int(data[26])

	e.Toe = gpstime.GpsTime{Week: int32(week), Sec: toes}
	return e
}
