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

	"gonum.org/v1/gonum/mat"
)

const (
	reIono = 6370000.0 // Earth radius for the ionospheric single layer [m]
	tecuL1 = 40.3e16 / (L1 * L1)
)

// One layer of a spherical harmonic VTEC expansion
type VTecLayer struct {
	Height float64    // Layer height [m]
	C      *mat.Dense // Cosine coefficients, (degree+1) x (order+1) [TECU]
	S      *mat.Dense // Sine coefficients [TECU]
}

// Global ionosphere model
type VTec struct {
	Time      GTime
	UpdateInt float64
	Layers    []VTecLayer
}

// Slant TEC [TECU] between a receiver and a satellite at azimuth/elevation
func (v *VTec) STEC(t GTime, llh PosLLH, az, el float64) (float64, error) {
	if len(v.Layers) == 0 {
		return 0, fmt.Errorf("vtec model has no layer")
	}
	if el <= 0 {
		return 0, fmt.Errorf("satellite below horizon, el=%.3f", el)
	}
	stec := 0.0
	for _, layer := range v.Layers {
		pp, mapf := piercePoint(llh, az, el, layer.Height)
		lonS := math.Mod(pp.Lon+(t.DaySec()-50400)*math.Pi/43200, 2*math.Pi)
		stec += layer.vtec(pp.Lat, lonS) * mapf
	}
	return stec, nil
}

// Vertical TEC of a layer at the sun-fixed latitude/longitude
func (l *VTecLayer) vtec(lat, lonS float64) float64 {
	nmax, mmax := l.C.Dims()
	sinLat := math.Sin(lat)
	v := 0.0
	for n := 0; n < nmax; n++ {
		for m := 0; m <= n && m < mmax; m++ {
			pnm := legendre(n, m, sinLat) * legendreNorm(n, m)
			v += (l.C.At(n, m)*math.Cos(float64(m)*lonS) + l.S.At(n, m)*math.Sin(float64(m)*lonS)) * pnm
		}
	}
	return v
}

// Ionospheric pierce point and single layer mapping function
func piercePoint(llh PosLLH, az, el, hion float64) (PosLLH, float64) {
	rp := reIono / (reIono + hion) * math.Cos(el)
	ap := math.Pi/2 - el - math.Asin(rp)
	sinap := math.Sin(ap)
	tanap := math.Tan(ap)
	cosaz := math.Cos(az)
	lat := math.Asin(math.Sin(llh.Lat)*math.Cos(ap) + math.Cos(llh.Lat)*sinap*cosaz)
	var lon float64
	if (llh.Lat > 70*math.Pi/180 && tanap*cosaz > math.Tan(math.Pi/2-llh.Lat)) ||
		(llh.Lat < -70*math.Pi/180 && -tanap*cosaz > math.Tan(math.Pi/2+llh.Lat)) {
		lon = llh.Lon + math.Pi - math.Asin(sinap*math.Sin(az)/math.Cos(lat))
	} else {
		lon = llh.Lon + math.Asin(sinap*math.Sin(az)/math.Cos(lat))
	}
	return PosLLH{Lat: lat, Lon: lon, Hei: hion}, 1 / math.Sqrt(1-rp*rp)
}

// Associated Legendre function P(n,m) at t (explicit sum)
func legendre(n, m int, t float64) float64 {
	sum := 0.0
	r := (n - m) / 2
	for k := 0; k <= r; k++ {
		s := factorial(2*n-2*k) / (factorial(k) * factorial(n-k) * factorial(n-m-2*k)) * math.Pow(t, float64(n-m-2*k))
		if k%2 == 1 {
			s = -s
		}
		sum += s
	}
	return sum * math.Pow(2, float64(-n)) * math.Pow(1-t*t, float64(m)/2)
}

// Normalization of the associated Legendre function
func legendreNorm(n, m int) float64 {
	if m == 0 {
		return math.Sqrt(float64(2*n + 1))
	}
	return math.Sqrt(2 * float64(2*n+1) * factorial(n-m) / factorial(n+m))
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
