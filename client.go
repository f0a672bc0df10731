// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result of one epoch
type Output struct {
	Time       GTime
	Pos        PosXYZ        // Estimated position
	LLH        PosLLH        // Estimated position
	NEU        PosENU        // Estimated position relative to the a-priori position of the epoch
	CovXYZ     [3][3]float64 // [m^2]
	CovNEU     [3][3]float64 // [m^2], rows/columns N, E, U
	TropoApr   float64       // A-priori zenith delay [m]
	Tropo      float64       // Estimated zenith delay [m]
	TropoSigma float64       // [m]
	NumSat     int
	DOP        DOP
	Error      bool
	Step       Step  // Failed step
	Err        error // *EpochError on failure
	Log        string
}

// Processing client of one receiver
type Client struct {
	cfg      *Config
	ephPool  *EphemerisPool
	obsPool  *ObservationPool
	antex    *Antex
	station  *Station
	filter   *Filter
	log      *zap.Logger
	metrics  *Metrics
	lastTime GTime
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Antenna calibrations of the receiver and the satellites
func WithAntex(a *Antex) Option {
	return func(c *Client) { c.antex = a }
}

func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewClient() failed, err=%w", err)
	}
	c := &Client{
		cfg:     cfg,
		ephPool: NewEphemerisPool(cfg.MaxEphQueue, cfg.MaxCorrAge, cfg.CorrRequired),
		obsPool: NewObservationPool(),
		filter:  NewFilter(cfg),
		log:     L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	st := NewStation(cfg.Station.Name, cfg.Station.AntName)
	if len(cfg.Station.NeuEcc) == 3 {
		st.SetNeuEcc(cfg.Station.NeuEcc[0], cfg.Station.NeuEcc[1], cfg.Station.NeuEcc[2])
	}
	st.SetOceanLoading(cfg.oceanLoading())
	st.EnableTides(cfg.Tides)
	c.station = st
	return c, nil
}

func (c *Client) Config() *Config                   { return c.cfg }
func (c *Client) Station() *Station                 { return c.station }
func (c *Client) Filter() *Filter                   { return c.filter }
func (c *Client) EphemerisPool() *EphemerisPool     { return c.ephPool }
func (c *Client) ObservationPool() *ObservationPool { return c.obsPool }

// Input of ephemerides and corrections

func (c *Client) PutEphemeris(eph Ephemeris) bool {
	ok := c.ephPool.PutEphemeris(eph)
	if !ok {
		c.log.Debug("ephemeris rejected", zap.String("sat", string(eph.Sat())), zap.Stringer("state", eph.CheckState()))
	}
	return ok
}

func (c *Client) PutOrbCorrections(corrs []*OrbCorr) {
	for _, corr := range corrs {
		if !c.ephPool.PutOrbCorrection(corr) {
			c.log.Debug("orbit correction without ephemeris", zap.String("sat", string(corr.Sat)), zap.Int("iod", corr.IOD))
		}
	}
}

func (c *Client) PutClkCorrections(corrs []*ClkCorr) {
	for _, corr := range corrs {
		if !c.ephPool.PutClkCorrection(corr) {
			c.log.Debug("clock correction without ephemeris", zap.String("sat", string(corr.Sat)), zap.Int("iod", corr.IOD))
		}
	}
}

func (c *Client) PutCodeBiases(biases []*SatCodeBias) {
	for _, b := range biases {
		c.obsPool.PutCodeBias(b)
	}
}

func (c *Client) PutPhaseBiases(biases []*SatPhaseBias) {
	for _, b := range biases {
		c.obsPool.PutPhaseBias(b)
	}
}

func (c *Client) PutTec(v *VTec) {
	c.obsPool.PutTec(v)
}

// Build the observations of an epoch and check their synchronization
func (c *Client) prepareObservations(raws []*RawObs) (GTime, []*SatObs, error) {
	var epoTime GTime
	obs := []*SatObs{}
	var tMin, tMax GTime
	nRaw := 0
	for _, raw := range raws {
		if raw == nil || c.cfg.system(raw.Sat.Sys()) == nil {
			continue
		}
		nRaw++
		if tMin.IsZero() || raw.Time.Less(tMin, false) {
			tMin = raw.Time
		}
		if tMax.IsZero() || tMax.Less(raw.Time, false) {
			tMax = raw.Time
		}
		if o := newSatObs(raw, c.cfg, c.ephPool); o != nil && o.valid {
			obs = append(obs, o)
		}
	}
	if !tMin.IsZero() && tMax.Diff(tMin) > MaxSyncDiff {
		return epoTime, nil, fmt.Errorf("%w: time offset %.3f s", ErrSynchronization, tMax.Diff(tMin))
	}
	if nRaw == 0 {
		return epoTime, nil, fmt.Errorf("%w: no observation", ErrInsufficientObs)
	}
	if len(obs) == 0 {
		return epoTime, nil, fmt.Errorf("%w: no valid observation of %d satellites", ErrModel, nRaw)
	}

	epoTime = obs[0].time
	meanDt := 0.0
	for _, o := range obs[1:] {
		meanDt += o.time.Diff(obs[0].time)
	}
	epoTime = epoTime.Add(meanDt / float64(len(obs)))
	if !c.lastTime.IsZero() && epoTime.Diff(c.lastTime) < 0 {
		return epoTime, nil, fmt.Errorf("%w: epoch %s before %s", ErrSynchronization, epoTime, c.lastTime)
	}
	return epoTime, obs, nil
}

// Update the station and compute the models, keeping the observations
// above the elevation mask
func (c *Client) cmpModel(t GTime, xyz PosXYZ, dClk float64, obs []*SatObs, log *zap.Logger) []*SatObs {
	if len(c.cfg.Station.XyzApr) == 3 {
		xyz = NewPosXYZ(c.cfg.Station.XyzApr)
	}
	c.station.Update(t, xyz, dClk)
	mc := &modelContext{cfg: c.cfg, obsPool: c.obsPool, antex: c.antex, sun: SunPosition(t)}
	minEle := ToRad(c.cfg.ElevMask)
	kept := make([]*SatObs, 0, len(obs))
	for _, o := range obs {
		if err := o.computeModel(c.station, mc); err != nil {
			log.Debug("model", zap.Error(err))
			continue
		}
		if o.model.eleSat < minEle {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// Process one epoch of observations
func (c *Client) ProcessEpoch(ctx context.Context, raws []*RawObs) (out *Output, err error) {
	start := time.Now()
	var t GTime
	for _, raw := range raws {
		if raw != nil {
			t = raw.Time
			break
		}
	}
	elog := newEpochLogger(c.log, t)
	step := StepPrepare

	defer func() {
		if r := recover(); r != nil {
			elog.Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
			out, err = c.fail(elog, t, step, fmt.Errorf("%w: %v", ErrInternal, r))
		}
		c.metrics.observe(out, time.Since(start))
	}()

	epoTime, obs, err := c.prepareObservations(raws)
	if err != nil {
		return c.fail(elog, t, step, err)
	}
	t = epoTime
	c.lastTime = epoTime

	// Initial position and model, twice
	var xyz PosXYZ
	var dClk float64
	for pass := 1; pass <= 2; pass++ {
		step = StepInitialPosition
		xyz, dClk, obs, err = c.initialPosition(ctx, obs, elog.Logger)
		if err != nil {
			return c.fail(elog, t, step, err)
		}
		step = StepModel
		obs = c.cmpModel(epoTime, xyz, dClk, obs, elog.Logger)
		if len(obs) == 0 {
			return c.fail(elog, t, step, fmt.Errorf("%w: no observation left", ErrModel))
		}
	}
	if len(obs) < c.cfg.MinObs {
		return c.fail(elog, t, step, fmt.Errorf("%w: %d < %d", ErrInsufficientObs, len(obs), c.cfg.MinObs))
	}

	// Filter
	step = StepFilter
	c.obsPool.PutEpoch(epoTime, obs, c.obsPool.VTec() != nil && c.cfg.useGIM())
	if err := c.filter.ProcessEpoch(ctx, c.obsPool.LastEpoch(), c.station, elog.Logger); err != nil {
		return c.fail(elog, t, step, err)
	}

	out = c.output(epoTime)
	elog.Info("epoch", zap.Stringer("pos", out.Pos), zap.Int("nsat", out.NumSat))
	out.Log = elog.Text()
	return out, nil
}

// Output of a failed epoch
func (c *Client) fail(elog *epochLogger, t GTime, step Step, err error) (*Output, error) {
	e := &EpochError{Step: step, Err: err}
	elog.Warn("epoch failed", zap.Int("step", int(step)), zap.Error(err))
	return &Output{Time: t, Error: true, Step: step, Err: e, Log: elog.Text()}, e
}

// Output of a successful epoch
func (c *Client) output(t GTime) *Output {
	f := c.filter
	pos, qXYZ := f.Crd()
	llhApr := c.station.LlhApr()
	qNEU := covXYZ2NEU(llhApr, qXYZ)
	out := &Output{
		Time:   t,
		Pos:    pos,
		LLH:    pos.ToLLH(),
		NEU:    pos.Sub(c.station.XyzApr()).Local(llhApr),
		NumSat: f.NumSat(),
		DOP:    f.DOP(),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.CovXYZ[i][j] = qXYZ.At(i, j)
			out.CovNEU[i][j] = qNEU.At(i, j)
		}
	}
	if c.cfg.TropoModel != TropoNone {
		out.TropoApr = TropZenith(llhApr)
	}
	out.Tropo = out.TropoApr
	if v, sig, ok := f.Value(Trp, "", ""); ok {
		out.Tropo += v
		out.TropoSigma = sig
	}
	return out
}
