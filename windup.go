// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import "math"

// Body frame of a satellite: sx, sy, sz unit vectors in XYZ
type satAxes struct {
	sx, sy, sz PosXYZ
}

// Nominal attitude: sz toward the earth center, sy perpendicular to the sun
func nominalAxes(rs, sun PosXYZ) satAxes {
	sz := rs.Scale(-1).Unit()
	sy := sz.Cross(sun.Unit()).Unit()
	sx := sy.Cross(sz)
	return satAxes{sx: sx, sy: sy, sz: sz}
}

// Attitude from a yaw angle measured from the along-track direction
func yawAxes(rs, vs PosXYZ, yaw float64) satAxes {
	sz := rs.Scale(-1).Unit()
	ey := rs.Cross(vs).Unit().Scale(-1)
	ex := ey.Cross(sz)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	sx := ex.Scale(cy).Add(ey.Scale(sy))
	return satAxes{sx: sx, sy: sz.Cross(sx), sz: sz}
}

// Express a vector in the body frame
func (ax satAxes) body(v PosXYZ) PosXYZ {
	return PosXYZ{X: ax.sx.Dot(v), Y: ax.sy.Dot(v), Z: ax.sz.Dot(v)}
}

// Carrier phase wind-up [cycle], continuous per satellite
type WindUp struct {
	sum  map[SatType]float64
	last map[SatType]GTime
}

func NewWindUp() *WindUp {
	return &WindUp{sum: map[SatType]float64{}, last: map[SatType]GTime{}}
}

func (w *WindUp) Value(t GTime, rr PosXYZ, sat SatType, rs PosXYZ, ax satAxes) float64 {
	if last, ok := w.last[sat]; ok && last == t {
		return w.sum[sat]
	}

	// Unit vector satellite -> receiver
	rho := rr.Sub(rs).Unit()

	// Effective dipole of the satellite antenna
	dipSat := ax.sx.Sub(rho.Scale(rho.Dot(ax.sx))).Sub(rho.Cross(ax.sy))

	// Receiver unit vectors: north and west
	llh := rr.ToLLH()
	rx := PosENU{N: 1}.Global(llh)
	ry := PosENU{E: -1}.Global(llh)

	// Effective dipole of the receiver antenna
	dipRec := rx.Sub(rho.Scale(rho.Dot(rx))).Add(rho.Cross(ry))

	alpha := dipSat.Dot(dipRec) / (dipSat.Norm() * dipRec.Norm())
	alpha = math.Max(-1, math.Min(1, alpha))
	dphi := math.Acos(alpha) / 2 / math.Pi
	if rho.Dot(dipSat.Cross(dipRec)) < 0 {
		dphi = -dphi
	}
	if _, ok := w.last[sat]; !ok {
		w.sum[sat] = dphi
	} else {
		w.sum[sat] = math.Round(w.sum[sat]-dphi) + dphi
	}
	w.last[sat] = t
	return w.sum[sat]
}

// Forget the history of a satellite
func (w *WindUp) Reset(sat SatType) {
	delete(w.sum, sat)
	delete(w.last, sat)
}
