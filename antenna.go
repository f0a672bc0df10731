// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import "math"

// Name of a receiver antenna without calibration
const NullAntenna = "NULLANTENNA"

// Phase center of an antenna on one frequency
type AntFreq struct {
	Offset [3]float64 // NEU for receivers, satellite body frame XYZ for satellites [m]
	PCV    []float64  // Variations on the zenith (nadir) grid [m]
	Zen1   float64    // First grid angle [deg]
	DZen   float64    // Grid step [deg]
}

// Variation at zenith (nadir) angle zen [rad], linearly interpolated
func (af *AntFreq) pcv(zen float64) float64 {
	if len(af.PCV) == 0 || af.DZen <= 0 {
		return 0
	}
	x := (ToDeg(zen) - af.Zen1) / af.DZen
	i := int(math.Floor(x))
	if i < 0 {
		return af.PCV[0]
	}
	if i >= len(af.PCV)-1 {
		return af.PCV[len(af.PCV)-1]
	}
	return af.PCV[i] + (af.PCV[i+1]-af.PCV[i])*(x-float64(i))
}

// Calibration of one antenna
type Antenna struct {
	Name  string // Antenna type for receivers, satellite name for satellites
	Freqs map[FreqType]*AntFreq
}

// Antenna calibrations kept in memory
type Antex struct {
	antennas map[string]*Antenna
}

func NewAntex() *Antex {
	return &Antex{antennas: map[string]*Antenna{}}
}

func (a *Antex) Add(ant *Antenna) {
	a.antennas[ant.Name] = ant
}

// Reference frequency of the satellite antenna phase center for each system
var apcRefFreq = map[SysType]FreqType{
	'G': "G1", 'J': "J1", 'E': "E1", 'R': "R1", 'C': "C2", 'S': "S1",
}

// Receiver antenna correction [m] toward a satellite at elevation/azimuth
func (a *Antex) RcvCorr(name string, f FreqType, el, az float64) (float64, bool) {
	if name == NullAntenna {
		return 0, true
	}
	ant, ok := a.antennas[name]
	if !ok {
		return 0, false
	}
	af, ok := ant.Freqs[f]
	if !ok {
		return 0, false
	}
	e := [3]float64{math.Cos(el) * math.Cos(az), math.Cos(el) * math.Sin(az), math.Sin(el)} // NEU
	off := af.Offset[0]*e[0] + af.Offset[1]*e[1] + af.Offset[2]*e[2]
	return af.pcv(math.Pi/2-el) - off, true
}

// Satellite antenna correction [m]. u is the unit vector from the satellite
// to the receiver in the satellite body frame. With apc, the correction is
// reduced to the reference frequency of the system.
func (a *Antex) SatCorr(sat SatType, f FreqType, u PosXYZ, apc bool) (float64, bool) {
	ant, ok := a.antennas[string(sat.Base())]
	if !ok {
		return 0, false
	}
	corr := func(f FreqType) (float64, bool) {
		af, ok := ant.Freqs[f]
		if !ok {
			return 0, false
		}
		nadir := math.Acos(math.Max(-1, math.Min(1, u.Z)))
		return af.pcv(nadir) - (af.Offset[0]*u.X + af.Offset[1]*u.Y + af.Offset[2]*u.Z), true
	}
	c, ok := corr(f)
	if !ok {
		return 0, false
	}
	if apc {
		if ref, ok := apcRefFreq[sat.Sys()]; ok {
			if cr, ok := corr(ref); ok {
				c -= cr
			}
		}
	}
	return c, true
}
