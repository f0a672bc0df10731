// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"math"
	"time"
)

// Start of the simulated data
var simT0 = NewGTime(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

// Receiver position of the simulation
var simLLH = PosLLH{Lat: ToRad(35.71), Lon: ToRad(139.74), Hei: 80}

// Satellite on a circular orbit with a linear clock, exact at any time
type simEph struct {
	sat    SatType
	iod    int
	toc    GTime
	radius float64
	u, v   PosXYZ // Orbit plane, inertial axes aligned with XYZ at toc
	clk    [2]float64
	state  CheckState
}

func (e *simEph) Sat() SatType { return e.sat }
func (e *simEph) IOD() int     { return e.iod }
func (e *simEph) TOC() GTime   { return e.toc }
func (e *simEph) Channel() int { return 0 }

func (e *simEph) CheckState() CheckState {
	if e.state == Unchecked {
		return CheckOK
	}
	return e.state
}

func (e *simEph) pos(t GTime) PosXYZ {
	dt := t.Diff(e.toc)
	n := math.Sqrt(GM / (e.radius * e.radius * e.radius))
	s, c := math.Sincos(n * dt)
	p := e.u.Scale(e.radius * c).Add(e.v.Scale(e.radius * s))
	x, y := rotateSat(p.X, p.Y, dt)
	return PosXYZ{X: x, Y: y, Z: p.Z}
}

func (e *simEph) Position(t GTime) (xc [4]float64, vv [3]float64, err error) {
	p := e.pos(t)
	v := e.pos(t.Add(0.5)).Sub(e.pos(t.Add(-0.5)))
	clk := e.clk[0] + e.clk[1]*t.Diff(e.toc)
	return [4]float64{p.X, p.Y, p.Z, clk}, [3]float64{v.X, v.Y, v.Z}, nil
}

// Satellite seen from rr at azimuth/elevation [rad] at simT0
func newSimEph(sat SatType, rr PosXYZ, az, el, radius float64, k int) *simEph {
	dir := PosENU{
		E: math.Cos(el) * math.Sin(az),
		N: math.Cos(el) * math.Cos(az),
		U: math.Sin(el),
	}.Global(rr.ToLLH())
	b := rr.Dot(dir)
	d := -b + math.Sqrt(b*b-rr.Dot(rr)+radius*radius)
	u := rr.Add(dir.Scale(d)).Unit()

	tilt := ToRad(20 + 15*float64(k%5))
	pole := PosXYZ{X: math.Sin(tilt) * math.Cos(float64(k)), Y: math.Sin(tilt) * math.Sin(float64(k)), Z: math.Cos(tilt)}
	if u.Cross(pole).Norm() < 0.2 {
		pole = PosXYZ{X: 1}
	}
	nrm := u.Cross(pole).Unit()
	return &simEph{
		sat:    sat,
		iod:    1,
		toc:    simT0,
		radius: radius,
		u:      u,
		v:      nrm.Cross(u),
		clk:    [2]float64{1e-4 * math.Sin(float64(k)), 1e-11},
	}
}

// Generator of observations of a static receiver
type simulator struct {
	rr      PosXYZ
	dtr     float64 // Receiver clock at simT0 [s]
	drift   float64 // [s/s]
	stec    float64 // Slant ionospheric delay on L1 [m]
	noise   float64 // Amplitude of the code errors [m]
	ephs    []*simEph
	amb     map[SatType][2]float64 // [cycle]
	slips   map[SatType]int
	codeErr map[SatType]float64 // Added to both codes [m]
	skip    map[SatType]bool
	epoch   int
}

var simElevations = []float64{18, 32, 47, 61, 76, 86}

func newSimulator(nG, nE int) *simulator {
	s := &simulator{
		rr:      simLLH.ToXYZ(),
		dtr:     1e-4,
		drift:   1e-9,
		stec:    5,
		amb:     map[SatType][2]float64{},
		slips:   map[SatType]int{},
		codeErr: map[SatType]float64{},
		skip:    map[SatType]bool{},
	}
	add := func(sys SysType, n int, radius, azOff float64) {
		for i := 0; i < n; i++ {
			k := len(s.ephs)
			az := ToRad(azOff + 360*float64(i)/float64(n))
			el := ToRad(simElevations[i%len(simElevations)])
			sat := NewSatType(sys, i+1, 0)
			s.ephs = append(s.ephs, newSimEph(sat, s.rr, az, el, radius, k))
			s.amb[sat] = [2]float64{float64(1000 + 37*k), float64(-500 + 23*k)}
		}
	}
	add('G', nG, 26559.7e3, 0)
	add('E', nE, 29600.0e3, 17)
	return s
}

// Signals of the simulated systems
func simSignals(sys SysType) ([2]CodeType, [2]float64) {
	if sys == 'E' {
		return [2]CodeType{"1C", "5Q"}, [2]float64{E1, L5}
	}
	return [2]CodeType{"1C", "2W"}, [2]float64{L1, L2}
}

func (s *simulator) feed(c *Client) {
	for _, e := range s.ephs {
		c.PutEphemeris(e)
	}
}

// Receiver clock at t [s]
func (s *simulator) clock(t GTime) float64 {
	return s.dtr + s.drift*t.Diff(simT0)
}

// Observations with receiver time tag t
func (s *simulator) observe(t GTime) []*RawObs {
	raws := []*RawObs{}
	dtr := s.clock(t)
	tr := t.Add(-dtr)
	for k, e := range s.ephs {
		if s.skip[e.sat] {
			continue
		}
		var xc [4]float64
		var rho, geom float64
		tau := 0.075
		for i := 0; i < 10; i++ {
			xc, _, _ = e.Position(tr.Add(-tau))
			rho = PosXYZ{X: xc[0], Y: xc[1], Z: xc[2]}.Sub(s.rr).Norm()
			x, y := rotateSat(xc[0], xc[1], rho/C)
			geom = PosXYZ{X: x, Y: y, Z: xc[2]}.Sub(s.rr).Norm()
			tau = geom / C
		}
		a := PosXYZ{X: xc[0], Y: xc[1], Z: xc[2]}.Norm() + s.rr.Norm()
		rel := 2 * GM / C / C * math.Log((a+rho)/(a-rho))
		base := geom + C*dtr - C*xc[3] + rel

		attrs, fr := simSignals(e.sat.Sys())
		raw := &RawObs{Sat: e.sat, Time: t}
		for i := 0; i < 2; i++ {
			ion := s.stec * (L1 / fr[i]) * (L1 / fr[i])
			code := base + ion + s.codeErr[e.sat] + s.noise*math.Sin(float64(7919*k+104729*s.epoch+31*i))
			phase := (base-ion)/(C/fr[i]) + s.amb[e.sat][i]
			raw.Obs = append(raw.Obs, &FrqObs{
				Attr:            attrs[i],
				Code:            code,
				CodeValid:       true,
				Phase:           phase,
				PhaseValid:      true,
				SlipCounter:     s.slips[e.sat],
				BiasJumpCounter: -1,
			})
		}
		raws = append(raws, raw)
	}
	s.epoch++
	return raws
}

// Options matching the simulation: no troposphere, tides or wind-up
func simConfig() *Config {
	cfg := NewConfig()
	cfg.TropoModel = TropoNone
	cfg.EstTropo = false
	cfg.Tides = false
	cfg.WindUp = false
	return cfg
}

// Options with the ionosphere-free code only
func simCodeConfig() *Config {
	cfg := simConfig()
	cfg.Systems = []*SystemConfig{
		{Sys: "G", Bands: []string{"1", "2"}, Priority: "CWPSLX", LCs: []LC{LCP3}},
	}
	return cfg
}
