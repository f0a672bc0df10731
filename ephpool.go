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
)

// Ephemeris with the corrections attached to it
type ephEntry struct {
	eph Ephemeris
	orb *OrbCorr
	clk *ClkCorr
}

// Apply attached corrections to a broadcast position/clock at t
func (en *ephEntry) apply(t GTime, xc *[4]float64, vv *[3]float64) {
	if en.orb != nil {
		dt := t.Diff(en.orb.Time) - 0.5*en.orb.UpdateInt
		dx := PosXYZ{
			X: en.orb.Rao[0] + en.orb.DotRao[0]*dt,
			Y: en.orb.Rao[1] + en.orb.DotRao[1]*dt,
			Z: en.orb.Rao[2] + en.orb.DotRao[2]*dt,
		}
		rs := PosXYZ{X: xc[0], Y: xc[1], Z: xc[2]}
		vs := PosXYZ{X: vv[0], Y: vv[1], Z: vv[2]}
		d := rsw2xyz(rs, vs, dx)
		dv := rsw2xyz(rs, vs, PosXYZ{X: en.orb.DotRao[0], Y: en.orb.DotRao[1], Z: en.orb.DotRao[2]})
		xc[0] -= d.X
		xc[1] -= d.Y
		xc[2] -= d.Z
		vv[0] -= dv.X
		vv[1] -= dv.Y
		vv[2] -= dv.Z
	}
	if en.clk != nil {
		dt := t.Diff(en.clk.Time) - 0.5*en.clk.UpdateInt
		xc[3] += en.clk.DClk + en.clk.DotDClk*dt + en.clk.DotDotDClk*dt*dt
	}
}

// Per-satellite history of ephemerides (newest first) with correction overlays
type EphemerisPool struct {
	maxQueue     int
	maxCorrAge   float64 // [s], 0: unlimited
	corrRequired bool
	sats         map[SatType][]*ephEntry
}

func NewEphemerisPool(maxQueue int, maxCorrAge float64, corrRequired bool) *EphemerisPool {
	if maxQueue <= 0 {
		maxQueue = 3
	}
	return &EphemerisPool{
		maxQueue:     maxQueue,
		maxCorrAge:   maxCorrAge,
		corrRequired: corrRequired,
		sats:         map[SatType][]*ephEntry{},
	}
}

// Store an ephemeris if it passes the check and is newer than the stored ones
func (p *EphemerisPool) PutEphemeris(eph Ephemeris) bool {
	switch eph.CheckState() {
	case CheckBad, Outdated, Unhealthy:
		return false
	}
	sat := eph.Sat()
	q := p.sats[sat]
	if len(q) > 0 && !q[0].eph.TOC().Less(eph.TOC(), false) {
		return false
	}
	q = append([]*ephEntry{{eph: eph}}, q...)
	if len(q) > p.maxQueue {
		q = q[:p.maxQueue]
	}
	p.sats[sat] = q
	return true
}

// Attach an orbit correction to the ephemeris with the same issue of data
func (p *EphemerisPool) PutOrbCorrection(corr *OrbCorr) bool {
	for _, en := range p.sats[corr.Sat] {
		if en.eph.IOD() == corr.IOD {
			en.orb = corr
			return true
		}
	}
	return false
}

// Attach a clock correction to the ephemeris with the same issue of data
func (p *EphemerisPool) PutClkCorrection(corr *ClkCorr) bool {
	for _, en := range p.sats[corr.Sat] {
		if en.eph.IOD() == corr.IOD {
			en.clk = corr
			return true
		}
	}
	return false
}

// Newest ephemeris of a satellite, nil if none
func (p *EphemerisPool) Last(sat SatType) Ephemeris {
	if q := p.sats[sat]; len(q) > 0 {
		return q[0].eph
	}
	return nil
}

// Position, clock [s] and velocity of a satellite at time t
func (p *EphemerisPool) GetCrd(sat SatType, t GTime) (xc [4]float64, vv [3]float64, err error) {
	q, ok := p.sats[sat]
	if !ok || len(q) == 0 {
		return xc, vv, fmt.Errorf("no ephemeris for %s", sat)
	}
	for _, en := range q {
		if p.corrRequired && (en.orb == nil || en.clk == nil) {
			continue
		}
		if p.maxCorrAge > 0 {
			if en.orb != nil && t.Diff(en.orb.Time) > p.maxCorrAge {
				continue
			}
			if en.clk != nil && t.Diff(en.clk.Time) > p.maxCorrAge {
				continue
			}
		}
		if sat.Sys() == 'R' && math.Abs(t.Diff(en.eph.TOC())) > 3600 {
			continue
		}
		var e error
		xc, vv, e = en.eph.Position(t)
		if e != nil {
			err = e
			continue
		}
		en.apply(t, &xc, &vv)
		return xc, vv, nil
	}
	if err == nil {
		err = fmt.Errorf("no usable ephemeris for %s at %s", sat, t)
	}
	return xc, vv, err
}

// Frequency channel of a satellite (Glonass), 0 if unknown
func (p *EphemerisPool) GetChannel(sat SatType) int {
	if eph := p.Last(sat); eph != nil {
		return eph.Channel()
	}
	return 0
}
