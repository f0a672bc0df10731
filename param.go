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

// Type of an estimated parameter. The order is the order in the state vector
type ParType int

const (
	CrdX ParType = iota
	CrdY
	CrdZ
	RClk
	Trp
	Ion
	Amb
	CodeBias
	PhaseBias
)

func (t ParType) String() string {
	switch t {
	case CrdX:
		return "CRD_X"
	case CrdY:
		return "CRD_Y"
	case CrdZ:
		return "CRD_Z"
	case RClk:
		return "REC_CLK"
	case Trp:
		return "TRP"
	case Ion:
		return "ION"
	case Amb:
		return "AMB"
	case CodeBias:
		return "CBIAS"
	case PhaseBias:
		return "PBIAS"
	}
	return "UNKNOWN"
}

// One entry of the state vector
type Param struct {
	id       int
	typ      ParType
	sat      SatType  // Ion, Amb
	sys      SysType  // RClk, CodeBias, PhaseBias
	lc       LC       // Amb
	freq     FreqType // CodeBias, PhaseBias
	epoSpec  bool     // Reset every epoch
	sigma0   float64  // A-priori sigma
	noise    float64  // Process noise [unit/sqrt(s)]
	x0       float64  // Linearization point of the epoch
	initial  float64  // Value at creation or reset
	indexOld int      // Index in the previous epoch, -1 if new
	indexNew int
	firstObs GTime
	lastObs  GTime
}

// Parameter of the kind given by the arguments, values from the config
func newParam(typ ParType, sat SatType, sys SysType, lc LC, freq FreqType, cfg *Config) *Param {
	p := &Param{typ: typ, sat: sat, sys: sys, lc: lc, freq: freq, indexOld: -1, indexNew: -1}
	switch typ {
	case CrdX, CrdY, CrdZ:
		p.sigma0 = max(cfg.AprSigCrd[0], cfg.AprSigCrd[1], cfg.AprSigCrd[2])
	case RClk:
		p.epoSpec = true
		p.sigma0 = cfg.AprSigClk
	case Trp:
		p.sigma0 = cfg.AprSigTrp
		p.noise = cfg.NoiseTrp
	case Ion:
		p.sigma0 = cfg.AprSigIon
		p.noise = cfg.NoiseIon
	case Amb:
		p.sigma0 = cfg.AprSigAmb
	case CodeBias:
		p.sigma0 = cfg.AprSigCodeBias
		p.noise = cfg.NoiseCodeBias
	case PhaseBias:
		p.sigma0 = cfg.AprSigPhaseBias
		p.noise = cfg.NoisePhaseBias
	}
	return p
}

func (p *Param) ID() int             { return p.id }
func (p *Param) Type() ParType       { return p.typ }
func (p *Param) Sat() SatType        { return p.sat }
func (p *Param) Sys() SysType        { return p.sys }
func (p *Param) LC() LC              { return p.lc }
func (p *Param) Freq() FreqType      { return p.freq }
func (p *Param) EpoSpec() bool       { return p.epoSpec }
func (p *Param) Sigma0() float64     { return p.sigma0 }
func (p *Param) X0() float64         { return p.x0 }
func (p *Param) IndexOld() int       { return p.indexOld }
func (p *Param) IndexNew() int       { return p.indexNew }
func (p *Param) FirstObsTime() GTime { return p.firstObs }
func (p *Param) LastObsTime() GTime  { return p.lastObs }
func (p *Param) isCrd() bool         { return p.typ == CrdX || p.typ == CrdY || p.typ == CrdZ }
func (p *Param) isSatSpecific() bool { return p.typ == Ion || p.typ == Amb }
func (p *Param) isSysSpecific() bool { return p.typ == RClk || p.typ == CodeBias || p.typ == PhaseBias }
func (p *Param) isRemovable() bool   { return p.isCrd() || p.typ == Ion || p.typ == Amb || p.isBias() }
func (p *Param) isBias() bool        { return p.typ == CodeBias || p.typ == PhaseBias }
func (p *Param) sameKind(q *Param) bool {
	return p.typ == q.typ && p.sat == q.sat && p.sys == q.sys && p.lc == q.lc && p.freq == q.freq
}

// Whether a slot frequency of an observation matches the bias frequency
func (p *Param) freqSlot(o *SatObs) int {
	for i := 0; i < 2; i++ {
		if o.fType[i] != "" && o.fType[i] == p.freq {
			return i
		}
	}
	return -1
}

// Partial derivative of a combination of an observation with respect to the parameter
func (p *Param) Partial(o *SatObs, lc LC) float64 {
	m := &o.model
	switch p.typ {
	case CrdX:
		if lc == LCGIM || m.rho == 0 {
			return 0
		}
		return (m.rRec.X - o.xc[0]) / m.rho
	case CrdY:
		if lc == LCGIM || m.rho == 0 {
			return 0
		}
		return (m.rRec.Y - o.xc[1]) / m.rho
	case CrdZ:
		if lc == LCGIM || m.rho == 0 {
			return 0
		}
		return (m.rRec.Z - o.xc[2]) / m.rho
	case RClk:
		if lc != LCGIM && o.sat.Sys() == p.sys {
			return 1
		}
	case Trp:
		if lc != LCGIM && m.eleSat > 0 {
			return 1 / math.Sin(m.eleSat)
		}
	case Ion:
		if o.sat != p.sat {
			return 0
		}
		if lc == LCGIM {
			return 1
		}
		c := o.coeffs(lc)
		return c.iono[0] + c.iono[1]
	case Amb:
		if o.sat != p.sat || !lc.IncludesPhase() {
			return 0
		}
		if lc == p.lc {
			return o.lambda(lc)
		}
		if lc == LCL3 && p.lc == LCMW {
			return o.lambda(LCL3) * o.lambda(LCMW) / o.lambdaSlot(1)
		}
		if s := p.lc.slot(); s >= 0 && (p.lc == LCL1 || p.lc == LCL2) {
			return o.lambdaSlot(s) * o.coeffs(lc).phase[s]
		}
	case CodeBias:
		if o.sat.Sys() == p.sys && lc != LCGIM {
			if s := p.freqSlot(o); s >= 0 {
				return o.coeffs(lc).code[s]
			}
		}
	case PhaseBias:
		if o.sat.Sys() == p.sys && lc != LCGIM {
			if s := p.freqSlot(o); s >= 0 {
				return o.coeffs(lc).phase[s]
			}
		}
	}
	return 0
}

func (p *Param) String() string {
	switch {
	case p.isSatSpecific():
		if p.lc != "" {
			return fmt.Sprintf("%s %s %s", p.typ, p.sat, p.lc)
		}
		return fmt.Sprintf("%s %s", p.typ, p.sat)
	case p.typ == RClk:
		return fmt.Sprintf("%s %s", p.typ, p.sys)
	case p.isBias():
		return fmt.Sprintf("%s %s", p.typ, p.freq)
	}
	return p.typ.String()
}
