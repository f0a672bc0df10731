// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Type representing satellite name like "G10", optionally with a
// signal/navigation type flag like "E11.1"
type SatType string

// Type representing satellite system like 'G'
type SysType byte

// Order of satellite systems in lists and in processing
var sysOrder = map[SysType]int{'G': 0, 'J': 1, 'E': 2, 'R': 3, 'C': 4, 'S': 5}

// Build a satellite name
func NewSatType(sys SysType, num int, flag int) SatType {
	if flag == 0 {
		return SatType(fmt.Sprintf("%c%02d", sys, num))
	}
	return SatType(fmt.Sprintf("%c%02d.%d", sys, num, flag))
}

// Parse and validate a satellite name
func ParseSatType(s string) (SatType, error) {
	sat := SatType(strings.TrimSpace(s))
	if len(sat) < 3 || !sat.Sys().IsValid() || sat.Num() <= 0 {
		return "", fmt.Errorf("invalid satellite \"%s\"", s)
	}
	return sat, nil
}

// Extract satellite system from satellite name
func (p SatType) Sys() SysType {
	if len(p) == 0 {
		return 0
	}
	return SysType(p[0])
}

// Extract satellite number from satellite name
func (p SatType) Num() int {
	if len(p) < 3 {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(string(p[1:3])))
	if err != nil {
		return 0
	}
	return i
}

// Signal/navigation type flag (0 if none)
func (p SatType) Flag() int {
	i := strings.IndexByte(string(p), '.')
	if i < 0 {
		return 0
	}
	f, err := strconv.Atoi(string(p[i+1:]))
	if err != nil {
		return 0
	}
	return f
}

// Satellite name without flag
func (p SatType) Base() SatType {
	if i := strings.IndexByte(string(p), '.'); i >= 0 {
		return p[:i]
	}
	return p
}

// Check validity of satellite system
func (p SysType) IsValid() bool {
	_, ok := sysOrder[p]
	return ok
}

func (p SysType) String() string {
	return string(rune(p))
}

// Ordering of satellites: system order, then number, then flag
func satCompare(a, b SatType) int {
	if a.Sys() != b.Sys() {
		return sysOrder[a.Sys()] - sysOrder[b.Sys()]
	}
	if a.Num() != b.Num() {
		return a.Num() - b.Num()
	}
	return a.Flag() - b.Flag()
}

// Sort the list of satellite names
func Sorted(s []SatType) []SatType {
	s2 := slices.Clone(s)
	slices.SortFunc(s2, satCompare)
	return s2
}
