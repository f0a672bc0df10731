// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import (
	"math"
	"time"
)

// Solid earth tide displacement of a station [m] (degree 2, Love numbers only)
func SolidEarthTide(t GTime, rr PosXYZ) PosXYZ {
	const (
		gmWGS = 398.6005e12  // Earth
		gms   = 1.3271250e20 // Sun
		gmm   = 4.9027890e12 // Moon
		H2    = 0.6078       // Love's numbers
		L2    = 0.0847
	)
	rRec := rr.Norm()
	if rRec == 0 {
		return PosXYZ{}
	}
	xyzUnit := rr.Scale(1 / rRec)
	dx := PosXYZ{}
	for _, b := range []struct {
		pos PosXYZ
		gm  float64
	}{
		{SunPosition(t), gms},
		{MoonPosition(t), gmm},
	} {
		rb := b.pos.Norm()
		u := b.pos.Scale(1 / rb)
		scal := xyzUnit.Dot(u)
		p2 := 3.0*(H2/2.0-L2)*scal*scal - H2/2.0
		x2 := 3.0 * L2 * scal
		fac := b.gm / gmWGS * (rRec * rRec * rRec * rRec) / (rb * rb * rb)
		dx = dx.Add(u.Scale(fac * x2)).Add(xyzUnit.Scale(fac * p2))
	}
	return dx
}

// Ocean loading coefficients of a station, in BLQ order: amplitudes [m] of
// radial, west and south, then phases [deg] of the same, for the constituents
// M2 S2 N2 K2 K1 O1 P1 Q1 Mf Mm Ssa
type OceanLoading [6][11]float64

// Ocean loading displacement in the local frame [m]
func (ol *OceanLoading) Displacement(t GTime) PosENU {
	args := [11][5]float64{
		{1.40519e-4, 2.0, -2.0, 0.0, 0.00},  // M2
		{1.45444e-4, 0.0, 0.0, 0.0, 0.00},   // S2
		{1.37880e-4, 2.0, -3.0, 1.0, 0.00},  // N2
		{1.45842e-4, 2.0, 0.0, 0.0, 0.00},   // K2
		{0.72921e-4, 1.0, 0.0, 0.0, 0.25},   // K1
		{0.67598e-4, 1.0, -2.0, 0.0, -0.25}, // O1
		{0.72523e-4, -1.0, 0.0, 0.0, -0.25}, // P1
		{0.64959e-4, 1.0, -3.0, 1.0, -0.25}, // Q1
		{0.53234e-5, 0.0, 2.0, 0.0, 0.00},   // Mf
		{0.26392e-5, 0.0, 1.0, -1.0, 0.00},  // Mm
		{0.03982e-5, 2.0, 0.0, 0.0, 0.00},   // Ssa
	}

	// Angular arguments
	ut := t.ToTime().UTC().Add(-LS * time.Second)
	day := time.Date(ut.Year(), ut.Month(), ut.Day(), 0, 0, 0, 0, time.UTC)
	fday := ut.Sub(day).Seconds()
	days := day.Sub(time.Date(1975, 1, 1, 0, 0, 0, 0, time.UTC)).Hours()/24 + 1.0
	tc := (27392.500528 + 1.000000035*days) / 36525.0
	t2 := tc * tc
	t3 := t2 * tc
	var a [5]float64
	a[0] = fday
	a[1] = ToRad(279.69668 + 36000.768930485*tc + 3.03e-4*t2)               // H0
	a[2] = ToRad(270.434358 + 481267.88314137*tc - 0.001133*t2 + 1.9e-6*t3) // S0
	a[3] = ToRad(334.329653 + 4069.0340329577*tc - 0.010325*t2 - 1.2e-5*t3) // P0
	a[4] = 2.0 * PI

	// Displacements by 11 constituents
	var dp [3]float64
	for i := 0; i < 11; i++ {
		ang := 0.0
		for j := 0; j < 5; j++ {
			ang += a[j] * args[i][j]
		}
		for j := 0; j < 3; j++ {
			dp[j] += ol[j][i] * math.Cos(ang-ToRad(ol[j+3][i]))
		}
	}
	return PosENU{E: -dp[1], N: -dp[2], U: dp[0]}
}
