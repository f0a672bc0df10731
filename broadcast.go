// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.20
//

package goppp

import (
	"fmt"
	"math"
	"strings"
)

// Broadcast ephemeris (navigation data for one satellite, one issue)
type BroadcastEphe struct {

	// Common for G,J,E,C,R
	SatName SatType
	Toc     GTime // Reference time for satellite clock error correction
	Toe     GTime // Reference time for satellite orbit calculation
	Tot     GTime // Transmission time
	Iode    int
	State   CheckState

	// for GPS, QZSS, GALILEO, BEIDOU
	Af0    float64
	Af1    float64
	Af2    float64
	Crs    float64
	DeltaN float64
	M0     float64
	Cuc    float64
	Ecc    float64
	Cus    float64
	SqrtA  float64
	Cic    float64
	Omega0 float64
	Cis    float64
	I0     float64
	Crc    float64
	Omega  float64
	OmegaD float64
	Idot   float64
	Code   int
	Week   int
	Flag   int
	Sva    int
	Svh    int
	Tgd    float64 // GPS, QZS, GAL(E5a/E1), BDS(B1/B3)
	Tgd2   float64 // GAL(E5b/E1), BDS(B2/B3)
	Iodc   int     // GPS, QZS, BDS
	Fit    float64 // GPS, QZS

	// for GLONASS
	TauN   float64
	GammaN float64
	PosX   float64
	VecX   float64
	AccX   float64
	PosY   float64
	VecY   float64
	AccY   float64
	FreqN  int
	PosZ   float64
	VecZ   float64
	AccZ   float64
	Age    int
}

func (e *BroadcastEphe) Sat() SatType           { return e.SatName }
func (e *BroadcastEphe) IOD() int               { return e.Iode }
func (e *BroadcastEphe) TOC() GTime             { return e.Toc }
func (e *BroadcastEphe) CheckState() CheckState { return e.State }

func (e *BroadcastEphe) Channel() int {
	if e.SatName.Sys() == 'R' {
		return e.FreqN
	}
	return 0
}

// Max distance between evaluation time and Toe [s]
func (e *BroadcastEphe) maxAge() float64 {
	switch e.SatName.Sys() {
	case 'E':
		return 14400 // Following RTKLIB's MAXDTOE_GAL
	case 'C':
		return 21601 // Following RTKLIB's MAXDTOE_CMP
	case 'R':
		return 1801
	default:
		return 7201
	}
}

// Plausibility check at time t
func (e *BroadcastEphe) Check(t GTime) CheckState {
	switch {
	case e.Svh != 0:
		e.State = Unhealthy
	case e.SatName.Sys() != 'R' && (e.SqrtA < 1000 || e.Ecc < 0 || e.Ecc >= 1):
		e.State = CheckBad
	case e.SatName.Sys() == 'R' && math.Sqrt(SQ(e.PosX)+SQ(e.PosY)+SQ(e.PosZ)) < 1e7:
		e.State = CheckBad
	case math.Abs(t.Diff(e.Toe)) > e.maxAge():
		e.State = Outdated
	default:
		e.State = CheckOK
	}
	return e.State
}

// Position, clock and velocity at time of transmission t
func (e *BroadcastEphe) Position(t GTime) (xc [4]float64, vv [3]float64, err error) {
	if math.Abs(t.Diff(e.Toe)) > e.maxAge() {
		return xc, vv, fmt.Errorf("ephemeris of %s is too old, toe=%s, t=%s", e.SatName, e.Toe, t)
	}
	switch e.SatName.Sys() {
	case 'G', 'J', 'E', 'C':
		const dt = 0.5
		pos := e.keplerPos(t)
		pm := e.keplerPos(t.Add(-dt))
		pp := e.keplerPos(t.Add(dt))
		v := pp.Sub(pm).Scale(1 / (2 * dt))
		xc = [4]float64{pos.X, pos.Y, pos.Z, e.keplerClk(t)}
		vv = [3]float64{v.X, v.Y, v.Z}
	case 'R':
		x := e.gloState(t)
		tk := t.Diff(e.Toe) // GLONASS uses Toe
		xc = [4]float64{x[0], x[1], x[2], -e.TauN + e.GammaN*tk}
		vv = [3]float64{x[3], x[4], x[5]}
	default:
		return xc, vv, fmt.Errorf("unsupported system %c", e.SatName.Sys())
	}
	return xc, vv, nil
}

func (e *BroadcastEphe) constants() (dOMGe, Mue float64) {
	dOMGe = 7.2921151467e-5 // Earth rotation angular velocity [rad/s]
	Mue = 3.986005e14       // Earth gravitational constant [m^3/s^2]
	switch e.SatName.Sys() {
	case 'E':
		Mue = 3.986004418e14
	case 'C':
		dOMGe = 7.292115e-5
		Mue = 3.986004418e14
	}
	return
}

// Eccentric anomaly at t
func (e *BroadcastEphe) eccAnomaly(tk float64) float64 {
	_, Mue := e.constants()
	n := math.Sqrt(Mue)/e.SqrtA/e.SqrtA/e.SqrtA + e.DeltaN
	mk := e.M0 + n*tk
	ek := mk
	for i := 0; i < 30; i++ {
		en := mk + e.Ecc*math.Sin(ek)
		if math.Abs(en-ek) < 1e-14 {
			ek = en
			break
		}
		ek = en
	}
	return ek
}

// Satellite position in the earth-fixed frame at time t (no Sagnac rotation)
func (e *BroadcastEphe) keplerPos(t GTime) (xyz PosXYZ) {
	dOMGe, _ := e.constants()
	tk := t.Diff(e.Toe)
	ek := e.eccAnomaly(tk)
	rk := e.SqrtA * e.SqrtA * (1 - e.Ecc*math.Cos(ek))
	vk := math.Atan2(math.Sqrt(1-e.Ecc*e.Ecc)*math.Sin(ek), math.Cos(ek)-e.Ecc)
	pk := vk + e.Omega
	d_uk := e.Cus*math.Sin(2*pk) + e.Cuc*math.Cos(2*pk)
	d_rk := e.Crs*math.Sin(2*pk) + e.Crc*math.Cos(2*pk)
	d_ik := e.Cis*math.Sin(2*pk) + e.Cic*math.Cos(2*pk)
	uk := pk + d_uk
	rk = rk + d_rk
	ik := e.I0 + d_ik + e.Idot*tk
	xk := rk * math.Cos(uk)
	yk := rk * math.Sin(uk)
	toe := e.Toe.Sec
	if e.SatName.Sys() == 'C' {
		toe -= 14 // BDT
	}
	if e.SatName.Sys() == 'C' && (e.SatName.Num() <= 5 || e.SatName.Num() >= 59) { // Beidou geostationary
		omk := e.Omega0 + e.OmegaD*tk - dOMGe*toe
		xg := xk*math.Cos(omk) - yk*math.Sin(omk)*math.Cos(ik)
		yg := xk*math.Sin(omk) + yk*math.Cos(omk)*math.Cos(ik)
		zg := yk * math.Sin(ik)
		sino := math.Sin(dOMGe * tk)
		coso := math.Cos(dOMGe * tk)
		cos5 := math.Cos(-5 * math.Pi / 180.0)
		sin5 := math.Sin(-5 * math.Pi / 180.0)
		xyz.X = xg*coso + yg*sino*cos5 + zg*sino*sin5
		xyz.Y = -xg*sino + yg*coso*cos5 + zg*coso*sin5
		xyz.Z = -yg*sin5 + zg*cos5
		return
	}
	omk := e.Omega0 + (e.OmegaD-dOMGe)*tk - dOMGe*toe
	xyz.X = xk*math.Cos(omk) - yk*math.Sin(omk)*math.Cos(ik)
	xyz.Y = xk*math.Sin(omk) + yk*math.Cos(omk)*math.Cos(ik)
	xyz.Z = yk * math.Sin(ik)
	return
}

// Satellite clock including the relativistic correction, excluding group delay
func (e *BroadcastEphe) keplerClk(t GTime) float64 {
	_, Mue := e.constants()
	ek := e.eccAnomaly(t.Diff(e.Toe))
	tr := -2 * math.Sqrt(Mue) / C / C * e.Ecc * e.SqrtA * math.Sin(ek)
	tk := t.Diff(e.Toc)
	return tr + e.Af0 + e.Af1*tk + e.Af2*tk*tk
}

// Integrate the GLONASS state vector from Toe to t
func (e *BroadcastEphe) gloState(t GTime) [6]float64 {
	tk := t.Diff(e.Toe)
	var x [6]float64
	x[0], x[1], x[2] = e.PosX, e.PosY, e.PosZ
	x[3], x[4], x[5] = e.VecX, e.VecY, e.VecZ
	var acc [3]float64
	acc[0], acc[1], acc[2] = e.AccX, e.AccY, e.AccZ
	const TSTEP = 60.0
	tt := TSTEP
	if tk < 0 {
		tt = -TSTEP
	}
	for math.Abs(tk) > 1e-9 {
		if math.Abs(tk) < TSTEP {
			tt = tk
		}
		glorbit(tt, &x, acc)
		tk -= tt
	}
	return x
}

// Function used when calculating GLONASS satellite position (1)
func deq(x [6]float64, xdot *[6]float64, acc [3]float64) {
	const dOMGeR = 7.292115e-5 // Earth rotation angular velocity [rad/s] for GLONASS
	const OMG2 = dOMGeR * dOMGeR
	const J2_GLO = 1.0826257e-3
	const MU_GLO = 3.9860044e14
	const RE_GLO = 6378136.0

	r2 := x[0]*x[0] + x[1]*x[1] + x[2]*x[2]
	r3 := r2 * math.Sqrt(r2)
	if r2 <= 0 {
		xdot[0], xdot[1], xdot[2], xdot[3], xdot[4], xdot[5] = 0, 0, 0, 0, 0, 0
		return
	}
	a := 1.5 * J2_GLO * MU_GLO * (RE_GLO * RE_GLO) / r2 / r3
	b := 5.0 * x[2] * x[2] / r2
	c := -MU_GLO/r3 - a*(1.0-b)
	xdot[0] = x[3]
	xdot[1] = x[4]
	xdot[2] = x[5]
	xdot[3] = (c+OMG2)*x[0] + 2.0*dOMGeR*x[4] + acc[0]
	xdot[4] = (c+OMG2)*x[1] - 2.0*dOMGeR*x[3] + acc[1]
	xdot[5] = (c-2.0*a)*x[2] + acc[2]
}

// Function used when calculating GLONASS satellite position (2)
func glorbit(t float64, x *[6]float64, acc [3]float64) {
	var k1, k2, k3, k4, w [6]float64
	deq(*x, &k1, acc)
	for i := 0; i < 6; i++ {
		w[i] = x[i] + k1[i]*t/2.0
	}
	deq(w, &k2, acc)
	for i := 0; i < 6; i++ {
		w[i] = x[i] + k2[i]*t/2.0
	}
	deq(w, &k3, acc)
	for i := 0; i < 6; i++ {
		w[i] = x[i] + k3[i]*t
	}
	deq(w, &k4, acc)
	for i := 0; i < 6; i++ {
		x[i] += (k1[i] + 2.0*k2[i] + 2.0*k3[i] + k4[i]) * t / 6.0
	}
}

func (e *BroadcastEphe) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("### Nav. for %s (%c, %d)\n", e.SatName, e.SatName.Sys(), e.SatName.Num()))
	sb.WriteString(fmt.Sprintf("    Toc: %v\n", e.Toc))
	sb.WriteString(fmt.Sprintf("    Toe: %v\n", e.Toe))
	sb.WriteString(fmt.Sprintf("    Tot: %v\n", e.Tot))
	sb.WriteString(fmt.Sprintf("   Iode: %v\n", e.Iode))
	sb.WriteString(fmt.Sprintf("  State: %v\n", e.State))
	if e.SatName.Sys() == 'R' {
		sb.WriteString(fmt.Sprintf("   TauN: %v\n", e.TauN))
		sb.WriteString(fmt.Sprintf(" GammaN: %v\n", e.GammaN))
		sb.WriteString(fmt.Sprintf("    Pos: %v %v %v\n", e.PosX, e.PosY, e.PosZ))
		sb.WriteString(fmt.Sprintf("    Vec: %v %v %v\n", e.VecX, e.VecY, e.VecZ))
		sb.WriteString(fmt.Sprintf("    Acc: %v %v %v\n", e.AccX, e.AccY, e.AccZ))
		sb.WriteString(fmt.Sprintf("  FreqN: %v\n", e.FreqN))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("    Af0: %v\n", e.Af0))
	sb.WriteString(fmt.Sprintf("    Af1: %v\n", e.Af1))
	sb.WriteString(fmt.Sprintf("    Af2: %v\n", e.Af2))
	sb.WriteString(fmt.Sprintf("  SqrtA: %v\n", e.SqrtA))
	sb.WriteString(fmt.Sprintf("    Ecc: %v\n", e.Ecc))
	sb.WriteString(fmt.Sprintf("     I0: %v\n", e.I0))
	sb.WriteString(fmt.Sprintf(" Omega0: %v\n", e.Omega0))
	sb.WriteString(fmt.Sprintf("  Omega: %v\n", e.Omega))
	sb.WriteString(fmt.Sprintf("     M0: %v\n", e.M0))
	sb.WriteString(fmt.Sprintf("    Svh: %v\n", e.Svh))
	return sb.String()
}
