// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"
	"math"
)

// Model terms of one satellite observation [m] unless noted
type satModel struct {
	set       bool
	rRec      PosXYZ  // Receiver position the model refers to
	rho       float64 // Geometric range
	eleSat    float64 // Elevation at the receiver [rad]
	azSat     float64 // Azimuth at the receiver [rad]
	elTx      float64 // Elevation of the receiver seen from the satellite body frame [rad]
	azTx      float64 // Azimuth of the receiver in the satellite body frame [rad]
	recClkM   float64
	satClkM   float64
	sagnac    float64
	antEcc    float64
	tropo     float64
	tideEarth float64
	tideOcean float64
	rel       float64
	windUp    float64 // [cycle]
	antPCO    [2]float64
	codeBias  [2]float64
	phaseBias [2]float64
	stec      float64 // Slant ionospheric delay on L1 of GPS
	stecSet   bool
}

// Common inputs of the models of one epoch
type modelContext struct {
	cfg     *Config
	obsPool *ObservationPool
	antex   *Antex
	sun     PosXYZ
}

// Compute the model of an observation for the station state
func (o *SatObs) computeModel(st *Station, mc *modelContext) error {
	if !o.valid {
		return fmt.Errorf("computeModel() failed, err=invalid observation %s", o.sat)
	}
	o.model = satModel{}
	m := &o.model
	cfg := mc.cfg

	rs := o.satPos()
	rr := st.XyzApr()
	rhoV := rs.Sub(rr)
	m.rRec = rr
	m.rho = rhoV.Norm()
	if m.rho == 0 {
		return fmt.Errorf("computeModel() failed, err=zero range %s", o.sat)
	}

	// Topocentric direction
	neu := rhoV.Local(st.LlhApr())
	m.eleSat = neu.Elevation()
	m.azSat = neu.Azimuth()

	m.satClkM = o.xc[3] * C
	m.recClkM = st.DClk() * C

	// Earth rotation during the propagation
	tau := m.rho / C
	th := OMGE * tau
	rsRot := PosXYZ{
		X: math.Cos(th)*rs.X + math.Sin(th)*rs.Y,
		Y: -math.Sin(th)*rs.X + math.Cos(th)*rs.Y,
		Z: rs.Z,
	}
	m.sagnac = rsRot.Sub(rr).Norm() - m.rho

	// Eccentricity and tides projected on the line of sight
	m.antEcc = -st.XyzEcc().Dot(rhoV) / m.rho
	m.tideEarth = -st.TideEarth().Dot(rhoV) / m.rho
	m.tideOcean = -st.TideOcean().Dot(rhoV) / m.rho

	// Gravitational delay
	a := rs.Norm() + rr.Norm()
	m.rel = 2 * GM / C / C * math.Log((a+m.rho)/(a-m.rho))

	if cfg.TropoModel != TropoNone {
		m.tropo = TropDelay(o.time, st.LlhApr(), m.eleSat)
	}

	// Satellite attitude
	ax := nominalAxes(rs, mc.sun)
	pb := mc.obsPool.PhaseBias(o.sat)
	if cfg.UseYaw && pb != nil && pb.HasYaw {
		ax = yawAxes(rs, o.satVel(), pb.YawAt(o.time))
	}
	u := ax.body(rr.Sub(rs).Unit())
	m.elTx = math.Pi/2 - math.Acos(math.Max(-1, math.Min(1, u.Z)))
	m.azTx = math.Atan2(u.Y, u.X)

	for i := 0; i < 2; i++ {
		if o.obs[i] == nil || o.fType[i] == "" {
			continue
		}
		if mc.antex != nil {
			if c, ok := mc.antex.RcvCorr(st.AntName(), o.fType[i], m.eleSat, m.azSat); ok {
				m.antPCO[i] += c
			}
			if c, ok := mc.antex.SatCorr(o.sat, o.fType[i], u, cfg.IsAPC); ok {
				m.antPCO[i] += c
			}
		}
		if cb := mc.obsPool.CodeBias(o.sat); cb != nil {
			m.codeBias[i] = cb.Bias[o.obs[i].Attr]
		}
		if pb != nil {
			m.phaseBias[i] = pb.Bias[o.obs[i].Attr]
		}
	}
	if pb != nil {
		o.biasJumpCounter = pb.JumpCounter
	}

	if cfg.WindUp {
		m.windUp = st.WindUp(o.sat, rs, ax)
	}

	if v := mc.obsPool.VTec(); v != nil && m.eleSat > 0 {
		if tecu, err := st.STEC(v, m.azSat, m.eleSat); err == nil {
			m.stec = tecu * tecuL1
			m.stecSet = true
		}
	}

	m.set = true
	return nil
}
