// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//-------------------------------------------------------------------
// PosLLH
//-------------------------------------------------------------------

type PosLLH struct {
	Lat float64
	Lon float64
	Hei float64
}

func (llh PosLLH) ToXYZ() PosXYZ {
	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	// Conversion to Cartesian coordinates
	n := a / math.Sqrt(1-e*e*math.Sin(llh.Lat)*math.Sin(llh.Lat))
	return PosXYZ{
		X: (n + llh.Hei) * math.Cos(llh.Lat) * math.Cos(llh.Lon),
		Y: (n + llh.Hei) * math.Cos(llh.Lat) * math.Sin(llh.Lon),
		Z: (n*(1-e*e) + llh.Hei) * math.Sin(llh.Lat),
	}
}

// Read from string "lat[deg] lon[deg] hei[m]"
func (llh *PosLLH) Set(s string) error {
	f := strings.Fields(s)
	if len(f) != 3 {
		return fmt.Errorf("invalid position \"%s\"", s)
	}
	var err error
	if llh.Lat, err = strconv.ParseFloat(f[0], 64); err != nil {
		return err
	}
	if llh.Lon, err = strconv.ParseFloat(f[1], 64); err != nil {
		return err
	}
	if llh.Hei, err = strconv.ParseFloat(f[2], 64); err != nil {
		return err
	}
	llh.Lat *= math.Pi / 180
	llh.Lon *= math.Pi / 180
	return nil
}

// Convert to string
func (llh PosLLH) String() string {
	return fmt.Sprintf("%.8f %.8f %.4f", ToDeg(llh.Lat), ToDeg(llh.Lon), llh.Hei)
}

//-------------------------------------------------------------------
// PosXYZ
//-------------------------------------------------------------------

type PosXYZ struct {
	X float64
	Y float64
	Z float64
}

func NewPosXYZ(v []float64) PosXYZ {
	return PosXYZ{X: v[0], Y: v[1], Z: v[2]}
}

func (pos PosXYZ) ToLLH() PosLLH {
	// In case of origin
	if pos.X == 0 && pos.Y == 0 && pos.Z == 0 {
		return PosLLH{Lat: 0, Lon: 0, Hei: -Re}
	}

	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	b := a * (1 - f)            // Semi-minor axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	// Parameters for coordinate transformation
	h := a*a - b*b
	p := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	t := math.Atan2(pos.Z*a, p*b)
	sint := math.Sin(t)
	cost := math.Cos(t)

	// Conversion to latitude and longitude
	lat := math.Atan2(pos.Z+h/b*sint*sint*sint, p-h/a*cost*cost*cost)
	lon := math.Atan2(pos.Y, pos.X)
	n := a / math.Sqrt(1-e*e*math.Sin(lat)*math.Sin(lat)) // Radius of curvature in the prime vertical
	hei := p/math.Cos(lat) - n
	return PosLLH{Lat: lat, Lon: lon, Hei: hei}
}

func (pos PosXYZ) ToENU(base PosXYZ) PosENU {
	// Relative position from the reference location, rotated to ENU
	return pos.Sub(base).Local(base.ToLLH())
}

// Rotate a vector (not a position) to the local frame at llh
func (pos PosXYZ) Local(llh PosLLH) PosENU {
	s1 := math.Sin(llh.Lon)
	c1 := math.Cos(llh.Lon)
	s2 := math.Sin(llh.Lat)
	c2 := math.Cos(llh.Lat)
	return PosENU{
		E: -pos.X*s1 + pos.Y*c1,
		N: -pos.X*c1*s2 - pos.Y*s1*s2 + pos.Z*c2,
		U: pos.X*c1*c2 + pos.Y*s1*c2 + pos.Z*s2,
	}
}

func (usr PosXYZ) Elevation(sat PosXYZ) float64 {
	enu := sat.ToENU(usr)
	return enu.Elevation()
}

func (usr PosXYZ) Azimuth(sat PosXYZ) float64 {
	enu := sat.ToENU(usr)
	return enu.Azimuth()
}

// Vector operations

func (a PosXYZ) Add(b PosXYZ) PosXYZ {
	return PosXYZ{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func (a PosXYZ) Sub(b PosXYZ) PosXYZ {
	return PosXYZ{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func (a PosXYZ) Scale(s float64) PosXYZ {
	return PosXYZ{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func (a PosXYZ) Dot(b PosXYZ) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a PosXYZ) Cross(b PosXYZ) PosXYZ {
	return PosXYZ{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a PosXYZ) Norm() float64 {
	return math.Sqrt(a.Dot(a))
}

// Unit vector (zero vector stays zero)
func (a PosXYZ) Unit() PosXYZ {
	n := a.Norm()
	if n == 0 {
		return a
	}
	return a.Scale(1 / n)
}

func (a PosXYZ) Slice() []float64 {
	return []float64{a.X, a.Y, a.Z}
}

func (a PosXYZ) String() string {
	return fmt.Sprintf("%.4f %.4f %.4f", a.X, a.Y, a.Z)
}

//-------------------------------------------------------------------
// PosENU
//-------------------------------------------------------------------

type PosENU struct {
	E float64
	N float64
	U float64
}

func (enu PosENU) ToXYZ(base PosXYZ) PosXYZ {
	return base.Add(enu.Global(base.ToLLH()))
}

// Rotate a local vector to the global frame at llh
func (enu PosENU) Global(llh PosLLH) PosXYZ {
	s1 := math.Sin(llh.Lon)
	c1 := math.Cos(llh.Lon)
	s2 := math.Sin(llh.Lat)
	c2 := math.Cos(llh.Lat)
	return PosXYZ{
		X: -enu.E*s1 - enu.N*c1*s2 + enu.U*c1*c2,
		Y: enu.E*c1 - enu.N*s1*s2 + enu.U*s1*c2,
		Z: enu.N*c2 + enu.U*s2,
	}
}

func (enu PosENU) Elevation() float64 {
	return math.Atan2(enu.U, math.Sqrt(enu.E*enu.E+enu.N*enu.N))
}

func (enu PosENU) Azimuth() float64 {
	return math.Atan2(enu.E, enu.N)
}

//-------------------------------------------------------------------
// Frame rotation
//-------------------------------------------------------------------

// Rotation matrix from XYZ to NEU at llh (rows: north, east, up)
func neuRotation(llh PosLLH) *mat.Dense {
	s1 := math.Sin(llh.Lon)
	c1 := math.Cos(llh.Lon)
	s2 := math.Sin(llh.Lat)
	c2 := math.Cos(llh.Lat)
	return mat.NewDense(3, 3, []float64{
		-c1 * s2, -s1 * s2, c2,
		-s1, c1, 0,
		c1 * c2, s1 * c2, s2,
	})
}

// NEU covariance to XYZ: R^T Q R
func covNEU2XYZ(llh PosLLH, qNEU mat.Matrix) *mat.SymDense {
	R := neuRotation(llh)
	var tmp, q mat.Dense
	tmp.Mul(R.T(), qNEU)
	q.Mul(&tmp, R)
	return symmetrize(&q)
}

// XYZ covariance to NEU: R Q R^T
func covXYZ2NEU(llh PosLLH, qXYZ mat.Matrix) *mat.SymDense {
	R := neuRotation(llh)
	var tmp, q mat.Dense
	tmp.Mul(R, qXYZ)
	q.Mul(&tmp, R.T())
	return symmetrize(&q)
}

// Make a square matrix exactly symmetric
func symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}
