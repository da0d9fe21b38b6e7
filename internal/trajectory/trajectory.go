// Package trajectory implements the receiver-position source readers:
// a fixed static location, and lazy iterators over ECEF CSV, LLH CSV,
// and NMEA GGA rows at a fixed 0.1s spacing. NMEA sentence/checksum
// parsing is adapted from bramburn-gnssgo/pkg/gnssgo/nmea_parser.go's
// ParseNMEA/ParseGGA/CalculateNMEAChecksum — the one format parser in
// this module grounded on a pack repo other than the teacher, since
// the teacher's RTKLIB-derived readers are binary receiver protocols,
// never NMEA text.
package trajectory

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gpssim/internal/coord"
	"gpssim/internal/gpssim"
)

// SampleInterval is the fixed spacing between successive trajectory
// points, per spec.md §4.10.
const SampleInterval = 0.1

// Source yields successive receiver ECEF positions at SampleInterval
// spacing. Next returns io.EOF once the trajectory is exhausted.
type Source interface {
	Next() (coord.Ecef, error)
}

// Static is a fixed, unmoving receiver position.
type Static struct {
	pos  coord.Ecef
	done bool
}

// NewStatic wraps a single fixed receiver position.
func NewStatic(loc coord.Location) *Static {
	return &Static{pos: coord.LLHToECEF(loc)}
}

// Position returns the static ECEF position.
func (s *Static) Position() coord.Ecef { return s.pos }

func (s *Static) Next() (coord.Ecef, error) {
	if s.done {
		return coord.Ecef{}, io.EOF
	}
	s.done = true
	return s.pos, nil
}

// ecefCsvSource iterates "x,y,z" rows in meters.
type ecefCsvSource struct {
	r *csv.Reader
}

// NewEcefCsv returns a Source reading ECEF x,y,z rows from r.
func NewEcefCsv(r io.Reader) Source {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &ecefCsvSource{r: cr}
}

func (s *ecefCsvSource) Next() (coord.Ecef, error) {
	rec, err := s.r.Read()
	if err != nil {
		return coord.Ecef{}, err
	}
	if len(rec) < 3 {
		return coord.Ecef{}, gpssim.New(gpssim.InputFormat, "trajectory: ECEF CSV row needs 3 fields")
	}
	x, err1 := strconv.ParseFloat(rec[0], 64)
	y, err2 := strconv.ParseFloat(rec[1], 64)
	z, err3 := strconv.ParseFloat(rec[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return coord.Ecef{}, gpssim.New(gpssim.InputFormat, "trajectory: malformed ECEF CSV row")
	}
	return coord.Ecef{X: x, Y: y, Z: z}, nil
}

// llhCsvSource iterates "lat_deg,lon_deg,height_m" rows.
type llhCsvSource struct {
	r *csv.Reader
}

// NewLlhCsv returns a Source reading lat(deg),lon(deg),height(m) rows.
func NewLlhCsv(r io.Reader) Source {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &llhCsvSource{r: cr}
}

func (s *llhCsvSource) Next() (coord.Ecef, error) {
	rec, err := s.r.Read()
	if err != nil {
		return coord.Ecef{}, err
	}
	if len(rec) < 3 {
		return coord.Ecef{}, gpssim.New(gpssim.InputFormat, "trajectory: LLH CSV row needs 3 fields")
	}
	latDeg, err1 := strconv.ParseFloat(rec[0], 64)
	lonDeg, err2 := strconv.ParseFloat(rec[1], 64)
	h, err3 := strconv.ParseFloat(rec[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return coord.Ecef{}, gpssim.New(gpssim.InputFormat, "trajectory: malformed LLH CSV row")
	}
	const deg2rad = 3.14159265358979323846 / 180.0
	loc := coord.Location{LatRad: latDeg * deg2rad, LonRad: lonDeg * deg2rad, Height: h}
	return coord.LLHToECEF(loc), nil
}

// nmeaGgaSource iterates $..GGA sentences, one per line.
type nmeaGgaSource struct {
	br *bufio.Reader
}

// NewNmeaGga returns a Source reading one NMEA GGA sentence per line.
func NewNmeaGga(r io.Reader) Source {
	return &nmeaGgaSource{br: bufio.NewReader(r)}
}

func (s *nmeaGgaSource) Next() (coord.Ecef, error) {
	for {
		line, err := s.br.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err != nil {
			return coord.Ecef{}, err
		}
		if line == "" {
			if err != nil {
				return coord.Ecef{}, err
			}
			continue
		}
		sentence, perr := parseNMEA(line)
		if perr != nil || sentence.Type != "GGA" {
			if err == io.EOF {
				return coord.Ecef{}, io.EOF
			}
			continue
		}
		gga, gerr := parseGGA(sentence)
		if gerr != nil {
			if err == io.EOF {
				return coord.Ecef{}, io.EOF
			}
			continue
		}
		return coord.LLHToECEF(gga), nil
	}
}

type nmeaSentence struct {
	Type   string
	Fields []string
}

// parseNMEA splits and checksum-verifies one NMEA sentence line, per
// bramburn-gnssgo's ParseNMEA.
func parseNMEA(sentence string) (nmeaSentence, error) {
	var result nmeaSentence
	if len(sentence) < 6 || sentence[0] != '$' {
		return result, errors.New("trajectory: invalid NMEA sentence")
	}

	data := sentence
	if pos := strings.LastIndex(sentence, "*"); pos != -1 && pos < len(sentence)-2 {
		data = sentence[:pos]
		checksum := sentence[pos+1:]
		if !strings.EqualFold(checksum, nmeaChecksum(data[1:])) {
			return result, fmt.Errorf("trajectory: NMEA checksum mismatch")
		}
	}

	fields := strings.Split(data, ",")
	if len(fields) < 2 {
		return result, errors.New("trajectory: NMEA sentence has too few fields")
	}
	typeField := strings.TrimPrefix(fields[0], "$")
	if len(typeField) < 3 {
		return result, errors.New("trajectory: invalid NMEA sentence type")
	}
	result.Type = typeField[len(typeField)-3:]
	result.Fields = fields[1:]
	return result, nil
}

func nmeaChecksum(data string) string {
	var c byte
	for i := 0; i < len(data); i++ {
		c ^= data[i]
	}
	return fmt.Sprintf("%02X", c)
}

// parseGGA extracts a Location from a GGA sentence's lat/lon/altitude
// fields, per bramburn-gnssgo's ParseGGA.
func parseGGA(s nmeaSentence) (coord.Location, error) {
	if len(s.Fields) < 10 {
		return coord.Location{}, errors.New("trajectory: GGA sentence has too few fields")
	}
	lat, err := parseNmeaLatLon(s.Fields[1])
	if err != nil {
		return coord.Location{}, err
	}
	if s.Fields[2] == "S" {
		lat = -lat
	}
	lon, err := parseNmeaLatLon(s.Fields[3])
	if err != nil {
		return coord.Location{}, err
	}
	if s.Fields[4] == "W" {
		lon = -lon
	}
	alt, err := strconv.ParseFloat(s.Fields[8], 64)
	if err != nil {
		return coord.Location{}, fmt.Errorf("trajectory: malformed GGA altitude: %w", err)
	}
	const deg2rad = 3.14159265358979323846 / 180.0
	return coord.Location{LatRad: lat * deg2rad, LonRad: lon * deg2rad, Height: alt}, nil
}

// parseNmeaLatLon converts NMEA ddmm.mmmm / dddmm.mmmm to decimal degrees.
func parseNmeaLatLon(field string) (float64, error) {
	if field == "" {
		return 0, errors.New("trajectory: empty NMEA coordinate")
	}
	dotIdx := strings.IndexByte(field, '.')
	if dotIdx < 2 {
		return 0, errors.New("trajectory: malformed NMEA coordinate")
	}
	degWidth := dotIdx - 2
	deg, err1 := strconv.ParseFloat(field[:degWidth], 64)
	min, err2 := strconv.ParseFloat(field[degWidth:], 64)
	if err1 != nil || err2 != nil {
		return 0, errors.New("trajectory: malformed NMEA coordinate")
	}
	return deg + min/60.0, nil
}
