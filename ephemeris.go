// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import "fmt"

// Result of the plausibility check of an ephemeris
type CheckState int

const (
	Unchecked CheckState = iota
	CheckOK
	CheckBad
	Outdated
	Unhealthy
)

func (s CheckState) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case CheckOK:
		return "ok"
	case CheckBad:
		return "bad"
	case Outdated:
		return "outdated"
	case Unhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Orbit and clock source of one satellite
type Ephemeris interface {
	Sat() SatType
	IOD() int
	TOC() GTime
	CheckState() CheckState
	Channel() int
	// Position, clock [s] and velocity at time t (GPS time of transmission)
	Position(t GTime) (xc [4]float64, vv [3]float64, err error)
}

// Orbit correction in the radial/along-track/cross-track frame
type OrbCorr struct {
	Sat       SatType
	IOD       int
	Time      GTime
	UpdateInt float64    // Update interval [s]
	Rao       [3]float64 // Radial, along-track, cross-track offset [m]
	DotRao    [3]float64 // Rates of the above [m/s]
}

// Clock correction polynomial
type ClkCorr struct {
	Sat        SatType
	IOD        int
	Time       GTime
	UpdateInt  float64 // Update interval [s]
	DClk       float64 // [s]
	DotDClk    float64 // [s/s]
	DotDotDClk float64 // [s/s^2]
}

// Rotate a vector from the RSW frame of a satellite to XYZ
func rsw2xyz(rs, vs, rsw PosXYZ) PosXYZ {
	along := vs.Unit()
	cross := rs.Cross(vs).Unit()
	radial := along.Cross(cross)
	return radial.Scale(rsw.X).Add(along.Scale(rsw.Y)).Add(cross.Scale(rsw.Z))
}
