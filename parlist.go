// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Active parameters of the filter, re-derived every epoch
type ParameterList struct {
	cfg    *Config
	params []*Param
	nextID int
}

func NewParameterList(cfg *Config) *ParameterList {
	return &ParameterList{cfg: cfg}
}

func (pl *ParameterList) Params() []*Param { return pl.params }
func (pl *ParameterList) Len() int         { return len(pl.params) }

// Parameter by kind, nil if not active
func (pl *ParameterList) Find(typ ParType, sat SatType, lc LC) *Param {
	for _, p := range pl.params {
		if p.typ == typ && p.sat == sat && p.lc == lc {
			return p
		}
	}
	return nil
}

// Deep copy used to restore the list after a failed epoch
func (pl *ParameterList) clone() *ParameterList {
	c := &ParameterList{cfg: pl.cfg, nextID: pl.nextID, params: make([]*Param, len(pl.params))}
	for i, p := range pl.params {
		q := *p
		c.params[i] = &q
	}
	return c
}

// Ordering of parameters in the state vector
func parCompare(a, b *Param) int {
	if a.typ != b.typ {
		return int(a.typ) - int(b.typ)
	}
	if a.lc != b.lc {
		return lcOrder[a.lc] - lcOrder[b.lc]
	}
	if a.sat != b.sat {
		return satCompare(a.sat, b.sat)
	}
	if a.sys != b.sys {
		return sysOrder[a.sys] - sysOrder[b.sys]
	}
	return strings.Compare(string(a.freq), string(b.freq))
}

// Set the parameters for an epoch: remove unobserved ones, add the required
// ones, sort them and set the linearization points
func (pl *ParameterList) Set(t GTime, obs []*SatObs, st *Station) {
	cfg := pl.cfg

	// Remove epoch specific and long unobserved parameters
	kept := make([]*Param, 0, len(pl.params))
	for _, p := range pl.params {
		if p.epoSpec {
			continue
		}
		if p.isRemovable() && !p.lastObs.IsZero() && t.Diff(p.lastObs) > MaxUnobserved {
			continue
		}
		kept = append(kept, p)
	}

	// Systems and satellites observed in this epoch
	systems := []SysType{}
	sats := map[SatType]bool{}
	for _, o := range obs {
		sats[o.sat] = true
		if !slices.Contains(systems, o.sat.Sys()) {
			systems = append(systems, o.sat.Sys())
		}
	}
	slices.SortFunc(systems, func(a, b SysType) int { return sysOrder[a] - sysOrder[b] })

	stamp := func(p *Param) {
		if p.firstObs.IsZero() {
			p.firstObs = t
		}
		p.lastObs = t
	}
	for _, p := range kept {
		switch {
		case p.isSatSpecific():
			if sats[p.sat] {
				stamp(p)
			}
		case p.isSysSpecific():
			if slices.Contains(systems, p.sys) {
				stamp(p)
			}
		default:
			if len(obs) > 0 {
				stamp(p)
			}
		}
	}

	// Required parameters
	required := []*Param{
		newParam(CrdX, "", 0, "", "", cfg),
		newParam(CrdY, "", 0, "", "", cfg),
		newParam(CrdZ, "", 0, "", "", cfg),
	}
	for _, sys := range systems {
		required = append(required, newParam(RClk, "", sys, "", "", cfg))
	}
	if cfg.EstTropo {
		required = append(required, newParam(Trp, "", 0, "", "", cfg))
	}
	for _, o := range obs {
		if cfg.IonoMode == IonoEst && !o.sc.hasIonoFree() {
			required = append(required, newParam(Ion, o.sat, 0, "", "", cfg))
		}
		for _, lc := range o.sc.ambLCs() {
			if !o.IsValid(lc) {
				continue
			}
			p := newParam(Amb, o.sat, 0, lc, "", cfg)
			p.initial = o.ambSeed(lc)
			required = append(required, p)
		}
	}
	if cfg.EstBias {
		for _, sys := range systems {
			sc := cfg.system(sys)
			for _, b := range sc.CodeBiasBands {
				required = append(required, newParam(CodeBias, "", sys, "", NewFreqType(sys, b[0]), cfg))
			}
			for _, b := range sc.PhaseBiasBands {
				required = append(required, newParam(PhaseBias, "", sys, "", NewFreqType(sys, b[0]), cfg))
			}
		}
	}

	// Merge
	for _, r := range required {
		found := false
		for _, p := range kept {
			if p.sameKind(r) {
				found = true
				break
			}
		}
		if found {
			continue
		}
		r.id = pl.nextID
		pl.nextID++
		r.firstObs = t
		r.lastObs = t
		kept = append(kept, r)
	}

	// Sort and index
	slices.SortStableFunc(kept, parCompare)
	for i, p := range kept {
		p.indexOld = p.indexNew
		p.indexNew = i
	}

	// Linearization points
	xyz := st.XyzApr()
	for _, p := range kept {
		switch p.typ {
		case CrdX:
			p.x0 = xyz.X
		case CrdY:
			p.x0 = xyz.Y
		case CrdZ:
			p.x0 = xyz.Z
		case RClk:
			p.x0 = st.DClk() * C
		default:
			p.x0 = 0
		}
		if p.isCrd() || p.typ == RClk {
			p.initial = p.x0
		}
	}
	pl.params = kept
}

// Text listing of the parameters for debug logs
func (pl *ParameterList) String() string {
	var sb strings.Builder
	for _, p := range pl.params {
		sb.WriteString(p.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
