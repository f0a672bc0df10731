// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

// Code biases of one satellite, keyed by band and attribute like "1C" [m]
type SatCodeBias struct {
	Sat  SatType
	Time GTime
	Bias map[CodeType]float64
}

// Phase biases of one satellite [m] with the yaw attitude of the satellite
type SatPhaseBias struct {
	Sat         SatType
	Time        GTime
	Yaw         float64 // [rad]
	YawRate     float64 // [rad/s]
	HasYaw      bool
	JumpCounter int // Discontinuity indicator of the biases
	Bias        map[CodeType]float64
}

// Yaw angle extrapolated to t
func (b *SatPhaseBias) YawAt(t GTime) float64 {
	return b.Yaw + b.YawRate*t.Diff(b.Time)
}
