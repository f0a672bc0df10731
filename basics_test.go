// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_satType(t *testing.T) {
	assert := assert.New(t)
	s := NewSatType('E', 5, 2)
	assert.Equal(SatType("E05.2"), s)
	assert.Equal(SysType('E'), s.Sys())
	assert.Equal(5, s.Num())
	assert.Equal(2, s.Flag())
	assert.Equal(SatType("E05"), s.Base())

	_, err := ParseSatType("X01")
	assert.Error(err)
	_, err = ParseSatType("G")
	assert.Error(err)
	sat, err := ParseSatType(" R24 ")
	require.NoError(t, err)
	assert.Equal(SatType("R24"), sat)

	assert.Equal([]SatType{"G02", "G10", "E01", "E01.1", "C03", "S27"},
		Sorted([]SatType{"S27", "E01.1", "G10", "C03", "E01", "G02"}))
}

func Test_frequency(t *testing.T) {
	assert := assert.New(t)
	f, err := Frequency("G2", 0)
	require.NoError(t, err)
	assert.Equal(L2, f)
	f, err = Frequency("R1", -7)
	require.NoError(t, err)
	assert.Equal(G1-7*G1d, f)
	f, err = Frequency("R2", 6)
	require.NoError(t, err)
	assert.Equal(G2+6*G2d, f)
	_, err = Frequency("G7", 0)
	assert.Error(err)
	_, err = Frequency("X1", 0)
	assert.Error(err)

	assert.Equal(FreqType("E5"), NewFreqType('E', '5'))
	assert.Equal(byte('C'), CodeType("C1C").T())
	assert.Equal(CodeType("1C"), CodeType("C1C").NA())
	assert.Equal(byte('5'), CodeType("5Q").Band())
	assert.Equal(byte('Q'), CodeType("5Q").Attr())
}

func Test_lcCoefficients(t *testing.T) {
	assert := assert.New(t)

	// Ionosphere-free combinations cancel the first order delay
	for _, lc := range []LC{LCP3, LCL3} {
		c := lcCoefficients(lc, L1, L2)
		assert.InDelta(0, c.iono[0]+c.iono[1], 1e-12, lc)
		assert.InDelta(1, c.code[0]+c.code[1]+c.phase[0]+c.phase[1], 1e-12, lc)
	}
	c := lcCoefficients(LCL1, L1, L2)
	assert.Equal(-1.0, c.iono[0])
	c = lcCoefficients(LCP2, E1, L5)
	assert.InDelta(L1*L1/(L5*L5), c.iono[1], 1e-12)

	// Melbourne-Wubbena is free of geometry and ionosphere
	c = lcCoefficients(LCMW, L1, L2)
	assert.InDelta(0, c.code[0]+c.code[1]+c.phase[0]+c.phase[1], 1e-12)
	assert.InDelta(0, c.iono[0]+c.iono[1], 1e-12)

	assert.InDelta(C/(L1+L2), lcLambda(LCL3, L1, L2), 1e-12)
	assert.InDelta(C/(L1-L2), lcLambda(LCMW, L1, L2), 1e-12)
	assert.InDelta(C/L2, lcLambda(LCL2, L1, L2), 1e-12)
	assert.Zero(lcLambda(LCP3, L1, L2))

	assert.True(LCMW.IncludesCode())
	assert.True(LCMW.IncludesPhase())
	assert.False(LCP3.IncludesPhase())
	assert.True(LCL3.IsIonoFree())
	_, err := ParseLC("L4")
	assert.Error(err)
	_, err = ParseLC("")
	assert.Error(err)
}

func Test_gtime(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(GTime{Week: 2355, Sec: 518400}, simT0)
	assert.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), simT0.ToTime().UTC())

	t1 := simT0.Add(100000)
	assert.Equal(GTime{Week: 2356, Sec: 13600}, t1)
	assert.Equal(100000.0, t1.Diff(simT0))
	assert.Equal(simT0, t1.Add(-100000))
	assert.True(simT0.Less(t1, false))
	assert.False(t1.Less(simT0, false))
	assert.True(simT0.Add(0.4).LessOrEqual(simT0, true))
	assert.False(simT0.Add(0.4).LessOrEqual(simT0, false))
	assert.True(simT0.Divisible(30))
	assert.False(simT0.Add(10).Divisible(30))
	assert.Equal(0.0, simT0.DaySec())
	assert.True(GTime{}.IsZero())
	assert.Equal("-", GTime{}.String())
}

func Test_pos(t *testing.T) {
	assert := assert.New(t)
	xyz := simLLH.ToXYZ()
	llh := xyz.ToLLH()
	assert.InDelta(simLLH.Lat, llh.Lat, 1e-11)
	assert.InDelta(simLLH.Lon, llh.Lon, 1e-11)
	assert.InDelta(simLLH.Hei, llh.Hei, 1e-4)

	var p PosLLH
	require.NoError(t, p.Set("35.71 139.74 80"))
	assert.InDelta(simLLH.Lat, p.Lat, 1e-15)
	assert.Equal("35.71000000 139.74000000 80.0000", p.String())
	assert.Error(p.Set("35.71 139.74"))

	// Local frame round trip
	enu := PosENU{E: 1, N: 2, U: 3}
	back := enu.ToXYZ(xyz).ToENU(xyz)
	assert.InDelta(1, back.E, 1e-6)
	assert.InDelta(2, back.N, 1e-6)
	assert.InDelta(3, back.U, 1e-6)

	up := xyz.Add(PosENU{U: 1e7}.Global(simLLH))
	assert.InDelta(math.Pi/2, xyz.Elevation(up), 1e-9)
	east := xyz.Add(PosENU{E: 1e7, U: 1}.Global(simLLH))
	assert.InDelta(math.Pi/2, xyz.Azimuth(east), 1e-6)
}

func Test_sysVar(t *testing.T) {
	assert := assert.New(t)
	var s SysVar
	require.NoError(t, s.Set("G, E,"))
	assert.Equal("G,E", s.String())
	assert.True(s.Contains('E'))
	assert.False(s.Contains('R'))
	assert.Error(s.Set("G,X"))

	cfg := NewConfig()
	n := len(cfg.Systems)
	cfg.SelectSystems(nil)
	assert.Len(cfg.Systems, n)
	cfg.SelectSystems(SysVar{'E'})
	require.Len(t, cfg.Systems, 1)
	assert.Equal("E", cfg.Systems[0].Sys)

	var ts TimeStr
	require.NoError(t, ts.UnmarshalText([]byte("2025/03/01 00:00:00")))
	assert.Equal(simT0, NewGTime(time.Time(ts)))
	txt, err := NewTimeStr(time.Time(ts)).MarshalText()
	require.NoError(t, err)
	assert.Equal("2025/03/01 00:00:00", string(txt))
	assert.Error(ts.UnmarshalText([]byte("2025-03-01")))
}
