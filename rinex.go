// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// RINEX 3.04 specification
// https://files.igs.org/pub/data/format/rinex304.pdf
//

var (
	navTimeRe  = regexp.MustCompile(`^([GJERCS])([0-9 ][0-9]) (\d{4}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2})`)
	navValueRe = regexp.MustCompile(`[- +\d]{2}\.\d{12}[DE][-+]\d{2}`)
)

// Extract HEADER LABEL string from observation data file header line
func getHeaderLabel(l string) string {
	if len(l) < 60 {
		return ""
	}
	return strings.TrimSpace(l[60:])
}

// Check version and file type of the RINEX VERSION / TYPE line
func checkVersion(l string, typ byte) (string, error) {
	if len(l) < 21 {
		return "", fmt.Errorf("invalid RINEX VERSION / TYPE line: %s", l)
	}
	ver := l[5:9]
	switch ver {
	case "3.02", "3.03", "3.04", "3.05":
	default:
		return ver, fmt.Errorf("unsupported RINEX version %s, must be 3.02 to 3.05", ver)
	}
	if l[20] != typ {
		return ver, fmt.Errorf("not a RINEX %c file (typ=%c)", typ, l[20])
	}
	return ver, nil
}

// Fix Beidou B1 observation codes in RINEX 3.02
func fixRnx302BeidouCode(la []string) []string {
	la2 := make([]string, 0, len(la))
	for _, a := range la {
		if a[1:3] == "1I" || a[1:3] == "1Q" || a[1:3] == "1X" {
			// In RINEX 3.04, B1(1561.098 MHz) observation codes {C|L|D|S}1{I|Q|X} have been changed to {C|L|D|S}2{I|Q|X}. Match 3.04.
			la2 = append(la2, a[:1]+"2"+a[2:3])
		} else {
			la2 = append(la2, a)
		}
	}
	return la2
}

func atoiFields(la []string) ([]int, error) {
	v := make([]int, len(la))
	for i, a := range la {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, err
		}
		v[i] = n
	}
	return v, nil
}

// Read date, time, epoch flag and number of satellites from an epoch line
func getObsTime(l string) (gt GTime, flag, ns int, err error) {
	la := strings.Fields(l)
	if len(la) < 9 {
		return gt, 0, 0, fmt.Errorf("not enough fields in epoch line: %s (%d)", l, len(la))
	}
	v, err := atoiFields(la[1:6])
	if err != nil {
		return gt, 0, 0, err
	}
	la2 := strings.Split(la[6], ".")
	if len(la2) != 2 {
		return gt, 0, 0, fmt.Errorf("invalid format in epoch line: %s (%s)", l, la[6])
	}
	v2, err := atoiFields([]string{la2[0], la2[1], la[7], la[8]})
	if err != nil {
		return gt, 0, 0, err
	}
	nsec := v2[1] * int(math.Pow10(9-len(la2[1])))
	gt = NewGTime(time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v2[0], nsec, time.UTC))
	return gt, v2[2], v2[3], nil
}

// Signal state of the reader, per satellite and attribute
type slipTracker map[SatType]map[CodeType]int

// Cumulative loss-of-lock counter, incremented when lli bit 0 is set
func (s slipTracker) count(sat SatType, attr CodeType, slip bool) int {
	m, ok := s[sat]
	if !ok {
		m = map[CodeType]int{}
		s[sat] = m
	}
	if slip {
		m[attr]++
	}
	return m[attr]
}

// Read each observation value from observation data line
func getObsData(l string, t GTime, oc map[SysType][]CodeType, slips slipTracker) (*RawObs, error) {
	if len(l) < 3 {
		return nil, fmt.Errorf("can't read data, the line is too short: \"%s\"", l)
	}
	num, err := strconv.Atoi(strings.TrimSpace(l[1:3]))
	if err != nil {
		return nil, fmt.Errorf("invalid satellite number \"%s\"", l[:3])
	}
	sat := NewSatType(SysType(l[0]), num, 0)
	codes, ok := oc[sat.Sys()]
	if !ok || !sat.Sys().IsValid() {
		return nil, fmt.Errorf("unknown satellite system, '%c'", sat.Sys())
	}
	n := len(codes)
	if len(l) < n*16+3 { // Fill in blanks if omitted to end of line
		l = l + strings.Repeat(" ", n*16+3-len(l))
	}

	raw := &RawObs{Sat: sat, Time: t}
	frq := map[CodeType]*FrqObs{}
	lliOf := map[CodeType]byte{}
	for i, code := range codes {
		j := 3 + 16*i
		v, err := strconv.ParseFloat(strings.TrimSpace(l[j:j+14]), 64)
		if err != nil || v == 0 {
			continue
		}
		attr := code.NA()
		fo, ok := frq[attr]
		if !ok {
			fo = &FrqObs{Attr: attr, BiasJumpCounter: -1}
			frq[attr] = fo
			raw.Obs = append(raw.Obs, fo)
		}
		switch code.T() {
		case 'C':
			fo.Code, fo.CodeValid = v, true
		case 'L':
			fo.Phase, fo.PhaseValid = v, true
			if lli, err := strconv.ParseUint(strings.TrimSpace(l[j+14:j+15]), 10, 8); err == nil {
				lliOf[attr] |= byte(lli)
			}
		case 'D':
			fo.Doppler = v
		case 'S':
			fo.Snr = v
		}
	}
	for _, fo := range raw.Obs {
		fo.Slip = lliOf[fo.Attr]&1 != 0
		fo.SlipCounter = slips.count(sat, fo.Attr, fo.Slip)
	}
	return raw, nil
}

// Read observation data. Epochs are returned in time order, duplicates
// keep the last occurrence
func ReadObs(r io.Reader) ([]*ObsEpoch, error) {

	// Flag indicating header reading is complete
	headerDone := false

	// RINEX version
	var ver string

	// List of observation codes in header
	oc := map[SysType][]CodeType{}
	for sys := range sysOrder {
		oc[sys] = []CodeType{}
	}

	// Satellite data of the epoch being read
	var epo *ObsEpoch

	// Temporarily store all epoch data in map to eliminate duplicates
	me := map[GTime]*ObsEpoch{}

	slips := slipTracker{}
	readCodes := func(line string, sys SysType) {
		la := strings.Fields(line[6:min(60, len(line))])
		if ver == "3.02" && sys == 'C' {
			la = fixRnx302BeidouCode(la)
		}
		for _, code := range la {
			oc[sys] = append(oc[sys], CodeType(code))
		}
	}

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if len(line) == 0 {
			continue
		}

		// Header lines
		if !headerDone {
			switch getHeaderLabel(line) {
			case "RINEX VERSION / TYPE":
				v, err := checkVersion(line, 'O')
				if err != nil {
					return nil, fmt.Errorf("ReadObs() failed, err=%w", err)
				}
				ver = v
			case "SYS / # / OBS TYPES":
				sys := SysType(line[0])
				if _, ok := oc[sys]; !ok {
					continue
				}
				readCodes(line, sys)
				nc, err := strconv.Atoi(strings.TrimSpace(line[1:6]))
				for err == nil && len(oc[sys]) < nc && s.Scan() { // Codes continued on next lines
					readCodes(s.Text(), sys)
				}
			case "END OF HEADER":
				headerDone = true
			}
			continue
		}

		// Observation data lines
		if line[0] == '>' {
			if epo != nil && len(epo.Sats) > 0 {
				me[epo.Time] = epo
			}
			epo = nil
			t, flag, ns, err := getObsTime(line)
			if err != nil {
				L().Debug("getObsTime() failed", zap.Error(err))
				continue
			}
			if flag > 1 { // Event records are skipped with their lines
				for i := 0; i < ns && s.Scan(); i++ {
				}
				continue
			}
			epo = &ObsEpoch{Time: t, Sats: make([]*RawObs, 0, ns)}
			continue
		}
		if epo == nil {
			continue
		}
		raw, err := getObsData(line, epo.Time, oc, slips)
		if err != nil {
			L().Debug("getObsData() failed", zap.Error(err))
			continue
		}
		if len(raw.Obs) == 0 {
			continue
		}
		epo.Sats = append(epo.Sats, raw)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("ReadObs() failed, err=%w", err)
	}
	if !headerDone {
		return nil, fmt.Errorf("ReadObs() failed, err=no END OF HEADER")
	}
	if epo != nil && len(epo.Sats) > 0 {
		me[epo.Time] = epo
	}

	// Sort data by date and time
	epochs := make([]*ObsEpoch, 0, len(me))
	for _, e := range me {
		epochs = append(epochs, e)
	}
	slices.SortFunc(epochs, func(a, b *ObsEpoch) int {
		if d := a.Time.Diff(b.Time); d < 0 {
			return -1
		} else if d > 0 {
			return 1
		}
		return 0
	})
	return epochs, nil
}

// Read satellite name and ToC from navigation data epoch line
func getNavTime(l string) (gt GTime, sat SatType, err error) {
	ms := navTimeRe.FindStringSubmatch(l)
	if ms == nil {
		return gt, sat, fmt.Errorf("regexp match failed. l=%s", l)
	}
	v, err := atoiFields(ms[2:])
	if err != nil {
		return gt, sat, err
	}
	sys := SysType(ms[1][0])
	sat = NewSatType(sys, v[0], 0)
	sec := v[6]
	if sys == 'C' {
		sec += 14 // BDT -> GPST
	}
	gt = NewGTime(time.Date(v[1], time.Month(v[2]), v[3], v[4], v[5], sec, 0, time.UTC))
	return gt, sat, nil
}

// Keep t within half a week of ref
func adjWeek(t, ref GTime) GTime {
	if d := t.Diff(ref); d < -302400 {
		t = t.Add(604800)
	} else if d > 302400 {
		t = t.Add(-604800)
	}
	return t
}

// Read navigation data. Ephemerides are returned in order of transmission time.
// SBAS records are skipped
func ReadNav(r io.Reader) ([]*BroadcastEphe, error) {

	// Flag indicating header reading is complete
	headerDone := false

	nav := []*BroadcastEphe{}

	// Ephemeris being read, nil when the record is skipped
	var eph *BroadcastEphe
	var sys SysType

	// Current line number being read, counted from satellite name and ToC line
	lineCount := 0

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()

		// Header lines
		if !headerDone {
			switch getHeaderLabel(line) {
			case "RINEX VERSION / TYPE":
				if _, err := checkVersion(line, 'N'); err != nil {
					return nil, fmt.Errorf("ReadNav() failed, err=%w", err)
				}
			case "END OF HEADER":
				headerDone = true
			}
			continue
		}

		// Navigation message lines
		if !navValueRe.MatchString(line) {
			continue
		}
		if line[0] != ' ' {
			eph = nil
			sys = SysType(line[0])
			if sys == 'S' || !sys.IsValid() || len(line) < 80 {
				continue
			}
			toc, sat, err := getNavTime(line)
			if err != nil {
				return nil, fmt.Errorf("ReadNav() failed to read time of clock, err=%w", err)
			}
			eph = &BroadcastEphe{SatName: sat, Toc: toc}
			switch sys {
			case 'G', 'J', 'E', 'C':
				eph.Af0 = parseFloat(line[23:42])
				eph.Af1 = parseFloat(line[42:61])
				eph.Af2 = parseFloat(line[61:80])
			case 'R':
				eph.TauN = -parseFloat(line[23:42])
				eph.GammaN = parseFloat(line[42:61])
				toc15 := GTime{Week: toc.Week, Sec: math.Floor((toc.Sec+450)/900) * 900}
				dow := math.Floor(toc.Sec / 86400.0)
				tod := math.Mod(parseFloat(line[61:80]), 86400)
				tot := GTime{Week: toc.Week, Sec: tod + dow*86400}
				if tot.Sec-toc15.Sec < -43200 {
					tot.Sec += 86400
				} else if tot.Sec-toc15.Sec > 43200 {
					tot.Sec -= 86400
				}
				// Glonass is in UTC. Toe is the ToC rounded to 15 minutes, as RTKLIB does
				eph.Toe = toc15.Add(LS)
				eph.Tot = tot.Add(LS)
				eph.Iode = int(math.Mod(toc.Sec+10800.0, 86400.0)/900.0 + 0.5)
			}
			lineCount = 0
			continue
		}
		if eph == nil {
			continue
		}

		if len(line) < 80 {
			line = line + strings.Repeat(" ", 80-len(line))
		}
		v0 := parseFloat(line[4:23])
		v1 := parseFloat(line[23:42])
		v2 := parseFloat(line[42:61])
		v3 := parseFloat(line[61:80])
		lineCount++
		switch sys {
		case 'G', 'J', 'E', 'C':
			switch lineCount {
			case 1:
				eph.Iode = int(v0)
				eph.Crs = v1
				eph.DeltaN = v2
				eph.M0 = v3
			case 2:
				eph.Cuc = v0
				eph.Ecc = v1
				eph.Cus = v2
				eph.SqrtA = v3
			case 3:
				// Week is read later, temporarily filled
				if sys == 'C' {
					eph.Toe = GTime{Week: eph.Toc.Week, Sec: v0 + 14}
				} else {
					eph.Toe = GTime{Week: eph.Toc.Week, Sec: v0}
				}
				eph.Cic = v1
				eph.Omega0 = v2
				eph.Cis = v3
			case 4:
				eph.I0 = v0
				eph.Crc = v1
				eph.Omega = v2
				eph.OmegaD = v3
			case 5:
				eph.Idot = v0
				eph.Code = int(v1)
				eph.Week = int(v2)
				if sys == 'C' {
					eph.Week += 1356 // BDT Week -> GPS Week
				}
				eph.Toe = adjWeek(GTime{Week: eph.Week, Sec: eph.Toe.Sec}, eph.Toc)
				eph.Flag = int(v3)
			case 6:
				if sys != 'E' {
					eph.Sva = getURAIndex(v0)
				} else {
					eph.Sva = getSISAIndex(v0)
				}
				eph.Svh = int(v1)
				eph.Tgd = v2
				eph.Iodc = int(v3)
				eph.Tgd2 = v3
			case 7:
				if sys == 'C' {
					eph.Tot = GTime{Week: eph.Week, Sec: v0 + 14}
				} else {
					eph.Tot = GTime{Week: eph.Week, Sec: v0}
				}
				eph.Tot = adjWeek(eph.Tot, eph.Toc)
				switch sys {
				case 'G':
					eph.Fit = v1
				case 'J':
					if v1 == 0.0 {
						eph.Fit = 1
					} else {
						eph.Fit = 2
					}
				case 'C':
					eph.Iodc = int(v1)
				}
				nav = append(nav, eph)
				eph = nil
			}
		case 'R':
			switch lineCount {
			case 1:
				eph.PosX = v0 * 1000
				eph.VecX = v1 * 1000
				eph.AccX = v2 * 1000
				eph.Svh = int(v3)
			case 2:
				eph.PosY = v0 * 1000
				eph.VecY = v1 * 1000
				eph.AccY = v2 * 1000
				eph.FreqN = int(v3)
				if eph.FreqN > 128 {
					eph.FreqN -= 256
				}
			case 3:
				eph.PosZ = v0 * 1000
				eph.VecZ = v1 * 1000
				eph.AccZ = v2 * 1000
				eph.Age = int(v3)
				nav = append(nav, eph)
				eph = nil
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("ReadNav() failed, err=%w", err)
	}

	// Sort by transmission time
	slices.SortStableFunc(nav, func(a, b *BroadcastEphe) int {
		if a.Tot.Less(b.Tot, false) {
			return -1
		} else if b.Tot.Less(a.Tot, false) {
			return 1
		}
		return 0
	})
	return nav, nil
}

// Read real values by absorbing variations in exponential notation within RINEX files
func parseFloat(str string) float64 {
	s := strings.TrimSpace(str)
	if strings.ContainsAny(s, "Dd") {
		s = strings.Replace(s, "D", "E", 1)
		s = strings.Replace(s, "d", "e", 1)
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// Return URA index for specified value
func getURAIndex(x float64) int {
	if x > 0 && x <= 2.4 {
		return 0
	} else if x > 2.4 && x <= 3.4 {
		return 1
	} else if x > 3.4 && x <= 4.85 {
		return 2
	} else if x > 4.85 && x <= 6.85 {
		return 3
	} else if x > 6.85 && x <= 9.65 {
		return 4
	} else if x > 9.65 && x <= 13.65 {
		return 5
	} else if x > 13.65 && x <= 24.0 {
		return 6
	} else if x > 24.0 && x <= 48.0 {
		return 7
	} else if x > 48.0 && x <= 96.0 {
		return 8
	} else if x > 96.0 && x <= 192.0 {
		return 9
	} else if x > 192.0 && x <= 384.0 {
		return 10
	} else if x > 384.0 && x <= 768.0 {
		return 11
	} else if x > 768.0 && x <= 1536.0 {
		return 12
	} else if x > 1536.0 && x <= 3072.0 {
		return 13
	} else if x > 3072.0 && x <= 6144.0 {
		return 14
	} else {
		return 15
	}
}

// Return Galileo SISA index for specified value
func getSISAIndex(x float64) int {
	if x >= 0 && x <= 0.5 {
		return int(x / 0.01)
	} else if x > 0.5 && x <= 1.0 {
		return int((x-0.5)/0.02) + 50
	} else if x > 1.0 && x <= 2.0 {
		return int((x-1.0)/0.04) + 75
	} else if x > 2.0 && x <= 6.0 {
		return int((x-2.0)/0.16) + 100
	} else {
		return 255
	}
}
