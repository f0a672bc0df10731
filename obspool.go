// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

// Number of epochs kept in the observation pool
const obsPoolDepth = 2

// Prepared observations of one processed epoch
type Epoch struct {
	Time          GTime
	Obs           []*SatObs
	PseudoObsIono bool
}

// Rolling buffer of processed epochs, satellite biases and the ionosphere model
type ObservationPool struct {
	epochs    []*Epoch
	codeBias  map[SatType]*SatCodeBias
	phaseBias map[SatType]*SatPhaseBias
	vtec      *VTec
}

func NewObservationPool() *ObservationPool {
	return &ObservationPool{
		codeBias:  map[SatType]*SatCodeBias{},
		phaseBias: map[SatType]*SatPhaseBias{},
	}
}

func (p *ObservationPool) PutEpoch(t GTime, obs []*SatObs, pseudoObsIono bool) {
	p.epochs = append(p.epochs, &Epoch{Time: t, Obs: obs, PseudoObsIono: pseudoObsIono})
	if len(p.epochs) > obsPoolDepth {
		p.epochs = p.epochs[len(p.epochs)-obsPoolDepth:]
	}
}

// Most recent epoch, nil if none
func (p *ObservationPool) LastEpoch() *Epoch {
	if len(p.epochs) == 0 {
		return nil
	}
	return p.epochs[len(p.epochs)-1]
}

func (p *ObservationPool) PutCodeBias(b *SatCodeBias) {
	p.codeBias[b.Sat] = b
}

func (p *ObservationPool) PutPhaseBias(b *SatPhaseBias) {
	p.phaseBias[b.Sat] = b
}

func (p *ObservationPool) PutTec(v *VTec) {
	p.vtec = v
}

func (p *ObservationPool) CodeBias(sat SatType) *SatCodeBias {
	return p.codeBias[sat]
}

func (p *ObservationPool) PhaseBias(sat SatType) *SatPhaseBias {
	return p.phaseBias[sat]
}

func (p *ObservationPool) VTec() *VTec {
	return p.vtec
}
