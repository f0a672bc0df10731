// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.20
//

package goppp

import "fmt"

// Type representing observation codes like C1C (3 or 2 characters)
type CodeType string

// Returns observation type (C,L,D,S)
func (p CodeType) T() byte {
	return p[0]
}

// Returns frequency band and attributes of observation (1C,2P,5I etc.)
func (p CodeType) NA() CodeType {
	return p[1:]
}

// Frequency band number of a band+attribute code like "1C"
func (p CodeType) Band() byte {
	return p[0]
}

// Tracking attribute of a band+attribute code like "1C"
func (p CodeType) Attr() byte {
	if len(p) < 2 {
		return ' '
	}
	return p[1]
}

// Type representing a frequency of a system like "G1", "E5"
type FreqType string

func NewFreqType(sys SysType, band byte) FreqType {
	return FreqType([]byte{byte(sys), band})
}

func (f FreqType) Sys() SysType {
	return SysType(f[0])
}

func (f FreqType) Band() byte {
	return f[1]
}

// Carrier frequencies per system and band [Hz]
var bandFreqs = map[SysType]map[byte]float64{
	'G': {'1': L1, '2': L2, '5': L5},
	'J': {'1': L1, '2': L2, '5': L5, '6': L6},
	'E': {'1': E1, '5': L5, '6': L6, '7': B2b, '8': E5},
	'R': {'1': G1, '2': G2, '3': G3},
	'C': {'1': B1C, '2': B1, '5': B2a, '6': B3, '7': B2b},
	'S': {'1': L1, '5': L5},
}

// Carrier frequency of a band. The channel is the Glonass FDMA slot
func Frequency(f FreqType, channel int) (float64, error) {
	bands, ok := bandFreqs[f.Sys()]
	if !ok {
		return 0, fmt.Errorf("unknown system %c", f.Sys())
	}
	fr, ok := bands[f.Band()]
	if !ok {
		return 0, fmt.Errorf("unknown band %s", f)
	}
	if f.Sys() == 'R' {
		switch f.Band() {
		case '1':
			fr += float64(channel) * G1d
		case '2':
			fr += float64(channel) * G2d
		}
	}
	return fr, nil
}
