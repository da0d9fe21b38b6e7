package rinex

import (
	"bufio"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gpssim/internal/ephstore"
)

func TestStrNumHandlesFortranExponent(t *testing.T) {
	a := assert.New(t)
	a.InDelta(0.1676e-07, strNum("  0.1676D-07", 0, 12), 1e-14)
	a.InDelta(-0.1192e-05, strNum(" -0.1192e-05", 0, 12), 1e-14)
}

func TestStrNumBlankFieldIsZero(t *testing.T) {
	a := assert.New(t)
	a.Equal(0.0, strNum("                   ", 0, 19))
}

func TestParseEpochWindowsTwoDigitYear(t *testing.T) {
	a := assert.New(t)
	field := " 23  6 15 12 30  0.0000000"
	g, err := parseEpoch(field, 0, len(field))
	a.NoError(err)
	a.True(g.Week > 0)
}

func TestReadHeaderExtractsIonoAndUtc(t *testing.T) {
	a := assert.New(t)
	lines := []string{
		padLabel("     2", "RINEX VERSION / TYPE"),
		padLabel("  "+field12(0.1676e-07)+field12(0.2235e-07)+field12(-0.1192e-06)+field12(-0.1192e-06), "ION ALPHA"),
		padLabel("  "+field12(0.1208e+06)+field12(-0.1310e+06)+field12(-0.1966e+06)+field12(0.1966e+06), "ION BETA"),
		padLabel(fmt.Sprintf("%3s%19s%19s%9s%9s", "", field19(0.931322574615e-09), field19(0.177635683940e-14), "61440", "1929"), "DELTA-UTC: A0,A1,T,W"),
		padLabel("    17", "LEAP SECONDS"),
		padLabel("", "END OF HEADER"),
	}
	r := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	h, err := ReadHeader(r)
	a.NoError(err)
	a.InDelta(0.1676e-07, h.Iono.Alpha0, 1e-10)
	a.InDelta(1.966e+05, h.Iono.Beta3, 1e2)
	a.True(h.Iono.Enable)
	a.Equal(17, h.Iono.Dtls)
	a.Equal(61440, h.Iono.Tot)
	a.Equal(1929, h.Iono.Wnt)
}

func TestReadBodyDecodesOneGpsRecord(t *testing.T) {
	a := assert.New(t)
	line1 := fmt.Sprintf("%2d %19s%19s%19s%19s", 5, " 23  6 15  0  0 0.0", field19(1.0e-05), field19(2.0e-12), field19(0.0))
	line2 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(12), field19(-15.0), field19(4.3e-09), field19(0.3))
	line3 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(1e-06), field19(0.01), field19(9e-06), field19(5153.7))
	line4 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(14400), field19(-1e-07), field19(-1.2), field19(5e-08))
	line5 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(0.96), field19(200.0), field19(0.5), field19(-8e-09))
	line6 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(1e-10), field19(1), field19(2190), field19(0))
	line7 := fmt.Sprintf("%3s%19s%19s%19s%19s", "", field19(0), field19(0), field19(-5e-09), field19(12))
	line8 := fmt.Sprintf("%3s%19s%19s", "", field19(0), field19(4))

	raw := strings.Join([]string{line1, line2, line3, line4, line5, line6, line7, line8}, "\n") + "\n"
	r := bufio.NewReader(strings.NewReader(raw))

	var got []ephstore.Ephemeris
	var prns []int
	err := ReadBody(r, func(prn int, e ephstore.Ephemeris) {
		prns = append(prns, prn)
		got = append(got, e)
	})
	a.NoError(err)
	a.Len(got, 1)
	a.Equal(5, prns[0])
	a.Equal(12, got[0].Iode)
	a.Equal(12, got[0].Iodc)
	a.InDelta(5153.7, got[0].SqrtA, 1e-6)
	a.Equal(int32(2190), got[0].Toe.Week)
	a.InDelta(14400.0, got[0].Toe.Sec, 1e-6)
}

func field19(v float64) string { return fmt.Sprintf("%19.12E", v) }
func field12(v float64) string { return fmt.Sprintf("%12.4E", v) }

func padLabel(data, label string) string {
	if len(data) > 60 {
		data = data[:60]
	}
	for len(data) < 60 {
		data += " "
	}
	return data + label
}
