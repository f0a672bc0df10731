// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rnxHeader(content, label string) string {
	return fmt.Sprintf("%-60s%s\n", content, label)
}

// Observation data line, zero values are left blank
func rnxObsLine(sat string, vals []float64, llis []int) string {
	var sb strings.Builder
	sb.WriteString(sat)
	for i, v := range vals {
		if v == 0 {
			sb.WriteString(strings.Repeat(" ", 16))
			continue
		}
		lli := " "
		if i < len(llis) && llis[i] != 0 {
			lli = fmt.Sprintf("%d", llis[i])
		}
		sb.WriteString(fmt.Sprintf("%14.3f%s ", v, lli))
	}
	return strings.TrimRight(sb.String(), " ") + "\n"
}

func rnxObs() string {
	var sb strings.Builder
	sb.WriteString(rnxHeader(fmt.Sprintf("%9.2f%11s%-20s%-20s", 3.04, "", "OBSERVATION DATA", "M"), "RINEX VERSION / TYPE"))
	sb.WriteString(rnxHeader("G    4 C1C L1C C2W L2W", "SYS / # / OBS TYPES"))
	sb.WriteString(rnxHeader("E   16 C1C L1C D1C S1C C5Q L5Q D5Q S5Q C7Q L7Q D7Q S7Q C8Q", "SYS / # / OBS TYPES"))
	sb.WriteString(rnxHeader("       L8Q D8Q S8Q", "SYS / # / OBS TYPES"))
	sb.WriteString(rnxHeader("", "END OF HEADER"))

	e := make([]float64, 16)
	e[0], e[1], e[3], e[4], e[5] = 23456789.123, 123266666.456, 45.25, 23456790.5, 92300000.789

	// Second epoch first, then the first one twice
	sb.WriteString("> 2025 03 01 00 00  1.0000000  0  2\n")
	sb.WriteString(rnxObsLine("G01", []float64{21000000.111, 110356000.222, 21000002.333, 85992000.444}, []int{0, 1}))
	sb.WriteString(rnxObsLine("E05", e, nil))
	sb.WriteString("> 2025 03 01 00 00  0.0000000  0  1\n")
	sb.WriteString(rnxObsLine("G01", []float64{1, 2, 3, 4}, nil))
	sb.WriteString("> 2025 03 01 00 00  0.5000000  3  1\n")
	sb.WriteString(rnxHeader("  event comment", "COMMENT"))
	sb.WriteString("> 2025 03 01 00 00  0.0000000  0  2\n")
	sb.WriteString(rnxObsLine("G01", []float64{21000000.0, 110356000.0, 0, 85992000.0}, nil))
	sb.WriteString(rnxObsLine("S20", []float64{1, 2}, nil))
	return sb.String()
}

func Test_readObs(t *testing.T) {
	assert := assert.New(t)
	epochs, err := ReadObs(strings.NewReader(rnxObs()))
	require.NoError(t, err)
	require.Len(t, epochs, 2)

	t0 := NewGTime(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t0, epochs[0].Time)
	assert.Equal(t0.Add(1), epochs[1].Time)

	// Last occurrence of the duplicated epoch, SBAS without codes dropped
	require.Len(t, epochs[0].Sats, 1)
	g := epochs[0].Sats[0]
	assert.Equal(SatType("G01"), g.Sat)
	require.Len(t, g.Obs, 2)
	assert.Equal(CodeType("1C"), g.Obs[0].Attr)
	assert.Equal(21000000.0, g.Obs[0].Code)
	assert.True(g.Obs[0].CodeValid)
	assert.Equal(110356000.0, g.Obs[0].Phase)
	assert.Equal(CodeType("2W"), g.Obs[1].Attr)
	assert.False(g.Obs[1].CodeValid)
	assert.True(g.Obs[1].PhaseValid)
	assert.Equal(-1, g.Obs[1].BiasJumpCounter)

	// Loss of lock on L1C
	require.Len(t, epochs[1].Sats, 2)
	g = epochs[1].Sats[0]
	assert.True(g.Obs[0].Slip)
	assert.False(g.Obs[1].Slip)
	assert.Equal(1, g.Obs[0].SlipCounter)
	assert.Equal(0, g.Obs[1].SlipCounter)

	// Galileo codes continued on the next header line
	e := epochs[1].Sats[1]
	assert.Equal(SatType("E05"), e.Sat)
	require.Len(t, e.Obs, 2)
	assert.Equal(CodeType("1C"), e.Obs[0].Attr)
	assert.Equal(45.25, e.Obs[0].Snr)
	assert.Equal(CodeType("5Q"), e.Obs[1].Attr)
	assert.Equal(23456790.5, e.Obs[1].Code)
	assert.Equal(92300000.789, e.Obs[1].Phase)
}

func Test_readObsErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := ReadObs(strings.NewReader(rnxHeader(fmt.Sprintf("%9.2f%11s%-20s%-20s", 2.11, "", "OBSERVATION DATA", "G"), "RINEX VERSION / TYPE")))
	assert.Error(err)

	_, err = ReadObs(strings.NewReader(rnxHeader(fmt.Sprintf("%9.2f%11s%-20s%-20s", 3.04, "", "NAVIGATION DATA", "M"), "RINEX VERSION / TYPE")))
	assert.Error(err)

	_, err = ReadObs(strings.NewReader(rnxHeader("G    4 C1C L1C C2W L2W", "SYS / # / OBS TYPES")))
	assert.Error(err)
}

func rnxNavLine(head string, vals ...float64) string {
	var sb strings.Builder
	sb.WriteString(head)
	for _, v := range vals {
		sb.WriteString(strings.Replace(fmt.Sprintf("%19.12E", v), "E", "D", 1))
	}
	return sb.String() + "\n"
}

func rnxNav() string {
	var sb strings.Builder
	sb.WriteString(rnxHeader(fmt.Sprintf("%9.2f%11s%-20s%-20s", 3.04, "", "N: GNSS NAV DATA", "M"), "RINEX VERSION / TYPE"))
	sb.WriteString(rnxHeader("", "END OF HEADER"))

	sb.WriteString(rnxNavLine("G05 2025 03 01 02 00 00", 1.5e-4, -2.5e-12, 0))
	sb.WriteString(rnxNavLine("    ", 45, 12.5, 4.5e-9, 1.25))
	sb.WriteString(rnxNavLine("    ", 1e-6, 0.0125, 8e-6, 5153.65))
	sb.WriteString(rnxNavLine("    ", 525600, 1e-7, -2.5, -1e-7))
	sb.WriteString(rnxNavLine("    ", 0.95, 250.5, 0.75, -8e-9))
	sb.WriteString(rnxNavLine("    ", 1e-10, 1, 2355, 0))
	sb.WriteString(rnxNavLine("    ", 2, 0, -1e-8, 45))
	sb.WriteString(rnxNavLine("    ", 518410, 4))

	sb.WriteString(rnxNavLine("R07 2025 03 01 00 15 00", 1e-5, 1e-12, 86382))
	sb.WriteString(rnxNavLine("    ", 1.2e4, 1.5, 0, 0))
	sb.WriteString(rnxNavLine("    ", -2e4, -0.5, 0, -3))
	sb.WriteString(rnxNavLine("    ", 1e4, 3.0, 1e-6, 0))

	sb.WriteString(rnxNavLine("S27 2025 03 01 00 00 00", 0, 0, 0))
	sb.WriteString(rnxNavLine("    ", 1, 2, 3, 4))
	sb.WriteString(rnxNavLine("    ", 1, 2, 3, 4))
	sb.WriteString(rnxNavLine("    ", 1, 2, 3, 4))
	return sb.String()
}

func Test_readNav(t *testing.T) {
	assert := assert.New(t)
	nav, err := ReadNav(strings.NewReader(rnxNav()))
	require.NoError(t, err)
	require.Len(t, nav, 2)

	t0 := NewGTime(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	// Glonass first by transmission time
	r := nav[0]
	assert.Equal(SatType("R07"), r.Sat())
	assert.Equal(-1e-5, r.TauN)
	assert.Equal(1e-12, r.GammaN)
	assert.Equal(t0.Add(900+LS), r.Toe)
	assert.Equal(t0.Add(-18+LS), r.Tot)
	assert.Equal(1.2e7, r.PosX)
	assert.Equal(-3, r.FreqN)
	assert.Equal(-3, r.Channel())
	assert.Equal(3000.0, r.VecZ)
	assert.Equal(13, r.IOD())

	g := nav[1]
	assert.Equal(SatType("G05"), g.Sat())
	assert.Equal(t0.Add(7200), g.TOC())
	assert.Equal(1.5e-4, g.Af0)
	assert.Equal(-2.5e-12, g.Af1)
	assert.Equal(45, g.IOD())
	assert.Equal(5153.65, g.SqrtA)
	assert.Equal(GTime{Week: t0.Week, Sec: 525600}, g.Toe)
	assert.Equal(2355, g.Week)
	assert.Equal(0, g.Svh)
	assert.Equal(GTime{Week: t0.Week, Sec: 518410}, g.Tot)
	assert.Equal(4.0, g.Fit)
	assert.Equal(Unchecked, g.CheckState())
}

func Test_getObsTime(t *testing.T) {
	assert := assert.New(t)
	gt, flag, ns, err := getObsTime("> 2025 03 01 12 34 56.1250000  0 27")
	require.NoError(t, err)
	assert.Equal(NewGTime(time.Date(2025, 3, 1, 12, 34, 56, 125000000, time.UTC)), gt)
	assert.Equal(0, flag)
	assert.Equal(27, ns)

	_, _, _, err = getObsTime("> 2025 03 01 12 34")
	assert.Error(err)
}

func Test_adjWeek(t *testing.T) {
	assert := assert.New(t)
	ref := GTime{Week: 2355, Sec: 600000}
	assert.Equal(GTime{Week: 2356, Sec: 100}, adjWeek(GTime{Week: 2355, Sec: 100}, ref))
	assert.Equal(GTime{Week: 2355, Sec: 500000}, adjWeek(GTime{Week: 2355, Sec: 500000}, ref))
	ref = GTime{Week: 2355, Sec: 100}
	assert.Equal(GTime{Week: 2354, Sec: 600000}, adjWeek(GTime{Week: 2355, Sec: 600000}, ref))
}
