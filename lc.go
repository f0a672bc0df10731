// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import "fmt"

// Linear combination of observations
type LC string

const (
	LCP1  LC = "P1"  // Code on the first frequency
	LCP2  LC = "P2"  // Code on the second frequency
	LCL1  LC = "L1"  // Phase on the first frequency
	LCL2  LC = "L2"  // Phase on the second frequency
	LCP3  LC = "P3"  // Ionosphere-free code
	LCL3  LC = "L3"  // Ionosphere-free phase
	LCMW  LC = "MW"  // Melbourne-Wubbena
	LCCL  LC = "CL"  // Half sum of code and phase on the first frequency
	LCGIM LC = "GIM" // Ionosphere pseudo-observation
)

// Order of combinations in the parameter list
var lcOrder = map[LC]int{
	"": 0, LCP1: 1, LCP2: 2, LCL1: 3, LCL2: 4, LCP3: 5, LCL3: 6, LCMW: 7, LCCL: 8, LCGIM: 9,
}

func ParseLC(s string) (LC, error) {
	lc := LC(s)
	if _, ok := lcOrder[lc]; !ok || lc == "" {
		return "", fmt.Errorf("unknown linear combination \"%s\"", s)
	}
	return lc, nil
}

func (lc LC) IncludesCode() bool {
	switch lc {
	case LCP1, LCP2, LCP3, LCMW, LCCL:
		return true
	}
	return false
}

func (lc LC) IncludesPhase() bool {
	switch lc {
	case LCL1, LCL2, LCL3, LCMW, LCCL:
		return true
	}
	return false
}

func (lc LC) IsIonoFree() bool {
	return lc == LCP3 || lc == LCL3
}

// Frequency slot of a single frequency combination, -1 otherwise
func (lc LC) slot() int {
	switch lc {
	case LCP1, LCL1:
		return 0
	case LCP2, LCL2:
		return 1
	}
	return -1
}

// Whether the combination needs the second frequency
func (lc LC) needs2() bool {
	switch lc {
	case LCP2, LCL2, LCP3, LCL3, LCMW:
		return true
	}
	return false
}

// Coefficients of a combination on the two frequency slots
type lcCoeffs struct {
	code  [2]float64
	phase [2]float64
	iono  [2]float64 // Ionospheric delay relative to the slant delay on L1 of GPS
}

// Coefficients of a combination for the frequencies f1, f2 [Hz]
func lcCoefficients(lc LC, f1, f2 float64) lcCoeffs {
	var c lcCoeffs
	switch lc {
	case LCP1:
		c.code[0] = 1
	case LCP2:
		c.code[1] = 1
	case LCL1:
		c.phase[0] = 1
	case LCL2:
		c.phase[1] = 1
	case LCP3:
		c.code[0] = f1 * f1 / (f1*f1 - f2*f2)
		c.code[1] = -f2 * f2 / (f1*f1 - f2*f2)
	case LCL3:
		c.phase[0] = f1 * f1 / (f1*f1 - f2*f2)
		c.phase[1] = -f2 * f2 / (f1*f1 - f2*f2)
	case LCMW:
		c.phase[0] = f1 / (f1 - f2)
		c.phase[1] = -f2 / (f1 - f2)
		c.code[0] = -f1 / (f1 + f2)
		c.code[1] = -f2 / (f1 + f2)
	case LCCL:
		c.code[0] = 0.5
		c.phase[0] = 0.5
	}
	for i, f := range [2]float64{f1, f2} {
		if f > 0 {
			c.iono[i] = (c.code[i] - c.phase[i]) * L1 * L1 / (f * f)
		}
	}
	return c
}

// Wavelength of a combination [m]
func lcLambda(lc LC, f1, f2 float64) float64 {
	switch lc {
	case LCL1:
		return C / f1
	case LCL2:
		return C / f2
	case LCL3:
		return C / (f1 + f2)
	case LCMW:
		return C / (f1 - f2)
	case LCCL:
		return C / f1 / 2
	}
	return 0
}
