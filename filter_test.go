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
)

// Observation with only the geometry set, as used by cmpDOP
func dopObs(rr, rs PosXYZ) *SatObs {
	return &SatObs{
		valid: true,
		xc:    [4]float64{rs.X, rs.Y, rs.Z, 0},
		model: satModel{set: true, rRec: rr, rho: rs.Sub(rr).Norm()},
	}
}

func Test_cmpDOP(t *testing.T) {
	assert := assert.New(t)
	f := NewFilter(NewConfig())

	// Zenith and three satellites on the horizon, 120 deg apart
	rr := PosXYZ{X: Re}
	d := 2.0e7
	obs := []*SatObs{dopObs(rr, PosXYZ{X: Re + d})}
	for _, az := range []float64{0, 120, 240} {
		s, c := math.Sincos(ToRad(az))
		obs = append(obs, dopObs(rr, PosXYZ{X: Re, Y: d * s, Z: d * c}))
	}
	f.cmpDOP(obs)
	assert.Equal(4, f.NumSat())
	dop := f.DOP()
	assert.InDelta(math.Sqrt(3), dop.G, 1e-9)
	assert.InDelta(math.Sqrt(8.0/3), dop.P, 1e-9)
	assert.InDelta(math.Sqrt(4.0/3), dop.H, 1e-9)
	assert.InDelta(math.Sqrt(4.0/3), dop.V, 1e-9)
	assert.InDelta(math.Sqrt(1.0/3), dop.T, 1e-9)

	// Outliers and invalid observations do not count
	obs[1].outlier = true
	f.cmpDOP(obs)
	assert.Equal(3, f.NumSat())
	assert.Equal(DOP{}, f.DOP())
}

// Components of the DOP are consistent for a realistic geometry
func Test_cmpDOPGeometry(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(9, 5)
	f := NewFilter(NewConfig())
	obs := []*SatObs{}
	for _, e := range s.ephs {
		obs = append(obs, dopObs(s.rr, e.pos(simT0)))
	}
	f.cmpDOP(obs)
	dop := f.DOP()
	assert.Equal(14, f.NumSat())
	assert.InDelta(dop.G*dop.G, dop.P*dop.P+dop.T*dop.T, 1e-9)
	assert.InDelta(dop.P*dop.P, dop.H*dop.H+dop.V*dop.V, 1e-9)
	assert.Less(dop.P, 3.0)

	// One more satellite never degrades the geometry
	obs = obs[:len(obs)-1]
	f.cmpDOP(obs)
	assert.GreaterOrEqual(f.DOP().G, dop.G)
}

// Phase jump below the slip threshold: the ambiguity is reset instead of
// rejecting the observation
func Test_processSystemResetsAmbiguity(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(12, 0)
	c := newSimClient(t, simConfig(), s)
	sat := NewSatType('G', 6, 0)

	_, err := c.ProcessEpoch(context.Background(), s.observe(simT0))
	require.NoError(t, err)
	id := c.filter.ParameterList().Find(Amb, sat, LCL3).ID()

	a := s.amb[sat]
	s.amb[sat] = [2]float64{a[0] + 1.5, a[1]}
	t1 := simT0.Add(1)
	out, err := c.ProcessEpoch(context.Background(), s.observe(t1))
	require.NoError(t, err)
	assert.Equal(12, out.NumSat)

	p := c.filter.ParameterList().Find(Amb, sat, LCL3)
	require.NotNil(t, p)
	assert.NotEqual(id, p.ID())
	assert.Equal(t1, p.FirstObsTime())
	o := findObs(c.obsPool.LastEpoch().Obs, sat)
	require.NotNil(t, o)
	assert.False(o.outlier)
	res, ok := o.Res(LCL3)
	assert.True(ok)
	assert.Less(math.Abs(res), o.maxRes(LCL3))
}

// A loss-of-lock flag resets the ambiguity even without a jump
func Test_detectCycleSlipsFlag(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(8, 0)
	c := newSimClient(t, simConfig(), s)
	sat := NewSatType('G', 2, 0)

	_, err := c.ProcessEpoch(context.Background(), s.observe(simT0))
	require.NoError(t, err)
	id := c.filter.ParameterList().Find(Amb, sat, LCL3).ID()

	raws := s.observe(simT0.Add(1))
	for _, raw := range raws {
		if raw.Sat == sat {
			raw.Obs[0].Slip = true
		}
	}
	_, err = c.ProcessEpoch(context.Background(), raws)
	require.NoError(t, err)
	assert.NotEqual(id, c.filter.ParameterList().Find(Amb, sat, LCL3).ID())

	// Unchanged in the next epoch
	id = c.filter.ParameterList().Find(Amb, sat, LCL3).ID()
	_, err = c.ProcessEpoch(context.Background(), s.observe(simT0.Add(2)))
	require.NoError(t, err)
	assert.Equal(id, c.filter.ParameterList().Find(Amb, sat, LCL3).ID())
}

// Troposphere estimated on top of the a-priori model
func Test_filterTropo(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(10, 6)
	cfg := simConfig()
	cfg.EstTropo = true
	c := newSimClient(t, cfg, s)

	out, err := c.ProcessEpoch(context.Background(), s.observe(simT0))
	require.NoError(t, err)
	assert.Zero(out.TropoApr)
	assert.Less(math.Abs(out.Tropo), 0.05)
	assert.InDelta(cfg.AprSigTrp, out.TropoSigma, cfg.AprSigTrp)

	p := c.filter.ParameterList().Find(Trp, "", "")
	require.NotNil(t, p)
	assert.False(p.EpoSpec())
	assert.Zero(p.X0())
}
