// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Modelled observations of the simulator at t
func simModelObs(t *testing.T, c *Client, s *simulator, tt GTime) []*SatObs {
	_, obs, err := c.prepareObservations(s.observe(tt))
	require.NoError(t, err)
	xyz, dClk, obs, err := c.initialPosition(context.Background(), obs, zap.NewNop())
	require.NoError(t, err)
	return c.cmpModel(tt, xyz, dClk, obs, zap.NewNop())
}

func Test_parameterListSet(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(5, 3)
	cfg := simConfig()
	cfg.EstTropo = true
	c := newSimClient(t, cfg, s)
	obs := simModelObs(t, c, s, simT0)
	require.Len(t, obs, 8)

	pl := NewParameterList(cfg)
	pl.Set(simT0, obs, c.station)
	assert.Equal(3+2+1+8, pl.Len())

	// Order: coordinates, clocks per system, troposphere, ambiguities
	types := []ParType{CrdX, CrdY, CrdZ, RClk, RClk, Trp}
	for i, typ := range types {
		assert.Equal(typ, pl.Params()[i].Type(), i)
	}
	assert.Equal(SysType('G'), pl.Params()[3].Sys())
	assert.Equal(SysType('E'), pl.Params()[4].Sys())
	ids := map[int]bool{}
	for i, p := range pl.Params() {
		assert.Equal(i, p.IndexNew())
		assert.Equal(-1, p.IndexOld())
		assert.Equal(simT0, p.FirstObsTime())
		ids[p.ID()] = true
		if i >= len(types) {
			assert.Equal(Amb, p.Type())
			assert.Equal(LCL3, p.LC())
			assert.Zero(p.X0())
		}
	}
	assert.Len(ids, pl.Len())
	for i := 7; i < pl.Len(); i++ {
		assert.Negative(satCompare(pl.Params()[i-1].Sat(), pl.Params()[i].Sat()))
	}

	// Linearization points
	xyz := c.station.XyzApr()
	assert.Equal(xyz.X, pl.Params()[0].X0())
	assert.Equal(xyz.Y, pl.Params()[1].X0())
	assert.Equal(xyz.Z, pl.Params()[2].X0())
	assert.Equal(c.station.DClk()*C, pl.Params()[3].X0())
	assert.True(pl.Params()[3].EpoSpec())
	assert.Equal(cfg.AprSigClk, pl.Params()[3].Sigma0())
	assert.Equal(cfg.AprSigAmb, pl.Params()[7].Sigma0())

	// Next epoch: clocks are new, the others carried over
	crdID := pl.Find(CrdX, "", "").ID()
	clkID := pl.Params()[3].ID()
	ambG1 := pl.Find(Amb, NewSatType('G', 1, 0), LCL3)
	ambIndex := ambG1.IndexNew()
	t1 := simT0.Add(30)
	obs1 := simModelObs(t, c, s, t1)
	pl.Set(t1, obs1, c.station)
	assert.Equal(crdID, pl.Find(CrdX, "", "").ID())
	assert.NotEqual(clkID, pl.Params()[3].ID())
	assert.Equal(-1, pl.Params()[3].IndexOld())
	assert.Equal(ambIndex, ambG1.IndexOld())
	assert.Equal(t1, ambG1.LastObsTime())
	assert.Equal(simT0, ambG1.FirstObsTime())
}

func Test_parameterListRemoval(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(6, 0)
	cfg := simConfig()
	c := newSimClient(t, cfg, s)
	sat := NewSatType('G', 2, 0)

	pl := NewParameterList(cfg)
	pl.Set(simT0, simModelObs(t, c, s, simT0), c.station)
	require.NotNil(t, pl.Find(Amb, sat, LCL3))

	s.skip[sat] = true
	pl.Set(simT0.Add(60), simModelObs(t, c, s, simT0.Add(60)), c.station)
	p := pl.Find(Amb, sat, LCL3)
	require.NotNil(t, p)
	assert.Equal(simT0, p.LastObsTime())

	pl.Set(simT0.Add(61), simModelObs(t, c, s, simT0.Add(61)), c.station)
	assert.Nil(pl.Find(Amb, sat, LCL3))
	assert.Equal(3+1+5, pl.Len())

	// Back again with a new identity
	s.skip[sat] = false
	pl.Set(simT0.Add(62), simModelObs(t, c, s, simT0.Add(62)), c.station)
	p2 := pl.Find(Amb, sat, LCL3)
	require.NotNil(t, p2)
	assert.NotEqual(p.ID(), p2.ID())
	assert.Equal(simT0.Add(62), p2.FirstObsTime())
}

// Uncombined processing with estimated ionosphere and receiver biases
func Test_parameterListIonoBias(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(5, 0)
	cfg := simConfig()
	cfg.IonoMode = IonoEst
	cfg.EstBias = true
	cfg.Systems = []*SystemConfig{
		{Sys: "G", Bands: []string{"1", "2"}, Priority: "CWPSLX", LCs: []LC{LCP1, LCP2, LCL1, LCL2}, CodeBiasBands: []string{"2"}},
	}
	c := newSimClient(t, cfg, s)
	obs := simModelObs(t, c, s, simT0)

	pl := NewParameterList(cfg)
	pl.Set(simT0, obs, c.station)
	assert.Equal(3+1+5+10+1, pl.Len())

	sat := NewSatType('G', 3, 0)
	o := findObs(obs, sat)
	require.NotNil(t, o)
	ion := pl.Find(Ion, sat, "")
	require.NotNil(t, ion)
	assert.InDelta(1.0, ion.Partial(o, LCP1), 1e-12)
	assert.InDelta(L1*L1/(L2*L2), ion.Partial(o, LCP2), 1e-12)
	assert.InDelta(-1.0, ion.Partial(o, LCL1), 1e-12)

	amb := pl.Find(Amb, sat, LCL2)
	require.NotNil(t, amb)
	assert.InDelta(C/L2, amb.Partial(o, LCL2), 1e-12)
	assert.Zero(amb.Partial(o, LCL1))
	assert.Zero(amb.Partial(o, LCP2))

	var cb *Param
	for _, p := range pl.Params() {
		if p.Type() == CodeBias {
			cb = p
		}
	}
	require.NotNil(t, cb)
	assert.Equal(FreqType("G2"), cb.Freq())
	assert.Equal(1.0, cb.Partial(o, LCP2))
	assert.Zero(cb.Partial(o, LCP1))
	assert.Zero(cb.Partial(o, LCL2))
}

func Test_paramPartial(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(5, 2)
	cfg := simConfig()
	c := newSimClient(t, cfg, s)
	obs := simModelObs(t, c, s, simT0)
	og := findObs(obs, NewSatType('G', 1, 0))
	oe := findObs(obs, NewSatType('E', 1, 0))
	require.NotNil(t, og)
	require.NotNil(t, oe)

	u := og.satPos().Sub(og.model.rRec).Unit()
	assert.InDelta(-u.X, newParam(CrdX, "", 0, "", "", cfg).Partial(og, LCP3), 1e-12)
	assert.InDelta(-u.Y, newParam(CrdY, "", 0, "", "", cfg).Partial(og, LCL3), 1e-12)
	assert.InDelta(-u.Z, newParam(CrdZ, "", 0, "", "", cfg).Partial(og, LCP3), 1e-12)

	clkG := newParam(RClk, "", 'G', "", "", cfg)
	assert.Equal(1.0, clkG.Partial(og, LCP3))
	assert.Zero(clkG.Partial(oe, LCP3))
	assert.Zero(clkG.Partial(og, LCGIM))

	trp := newParam(Trp, "", 0, "", "", cfg)
	assert.InDelta(1/math.Sin(og.model.eleSat), trp.Partial(og, LCL3), 1e-12)

	amb := newParam(Amb, og.sat, 0, LCL3, "", cfg)
	assert.InDelta(C/(L1+L2), amb.Partial(og, LCL3), 1e-12)
	assert.Zero(amb.Partial(og, LCP3))
	assert.Zero(amb.Partial(oe, LCL3))
}
