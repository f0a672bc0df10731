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
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// Dilution of precision
type DOP struct {
	G, P, H, V, T float64
}

// Remembered slip indicators of a satellite
type slipState struct {
	slipCounter     int
	biasJumpCounter int
}

// Sequential estimator of the receiver state
type Filter struct {
	cfg       *Config
	parlist   *ParameterList
	x         *mat.VecDense // State (absolute values)
	P         *mat.SymDense // Covariance of the state
	x0        []float64     // Linearization points of the epoch
	time      GTime         // Current epoch
	lastTime  GTime         // Last processed epoch
	lastOK    GTime         // Last successful epoch
	firstTime GTime         // Start of the seeding period
	slips     map[SatType]*slipState
	dop       DOP
	numSat    int
	log       *zap.Logger
}

func NewFilter(cfg *Config) *Filter {
	return &Filter{
		cfg:     cfg,
		parlist: NewParameterList(cfg),
		slips:   map[SatType]*slipState{},
		log:     zap.NewNop(),
	}
}

// Filter state saved before an epoch
type filterState struct {
	parlist   *ParameterList
	x         *mat.VecDense
	P         *mat.SymDense
	lastTime  GTime
	firstTime GTime
	slips     map[SatType]slipState
}

func (f *Filter) save() *filterState {
	s := &filterState{
		parlist:   f.parlist.clone(),
		lastTime:  f.lastTime,
		firstTime: f.firstTime,
		slips:     map[SatType]slipState{},
	}
	if f.x != nil {
		s.x = mat.VecDenseCopyOf(f.x)
		s.P = mat.NewSymDense(f.P.SymmetricDim(), nil)
		s.P.CopySym(f.P)
	}
	for sat, sl := range f.slips {
		s.slips[sat] = *sl
	}
	return s
}

func (f *Filter) restore(s *filterState) {
	f.parlist = s.parlist
	f.x = s.x
	f.P = s.P
	f.lastTime = s.lastTime
	f.firstTime = s.firstTime
	f.slips = map[SatType]*slipState{}
	for sat, sl := range s.slips {
		v := sl
		f.slips[sat] = &v
	}
}

// Accessors

func (f *Filter) Params() []*Param               { return f.parlist.Params() }
func (f *Filter) ParameterList() *ParameterList { return f.parlist }
func (f *Filter) DOP() DOP                      { return f.dop }
func (f *Filter) NumSat() int                   { return f.numSat }

// State vector (copy), nil before the first epoch
func (f *Filter) X() *mat.VecDense {
	if f.x == nil {
		return nil
	}
	return mat.VecDenseCopyOf(f.x)
}

// Covariance matrix (copy), nil before the first epoch
func (f *Filter) Cov() *mat.SymDense {
	if f.P == nil {
		return nil
	}
	c := mat.NewSymDense(f.P.SymmetricDim(), nil)
	c.CopySym(f.P)
	return c
}

// Value and sigma of a parameter
func (f *Filter) Value(typ ParType, sat SatType, lc LC) (float64, float64, bool) {
	p := f.parlist.Find(typ, sat, lc)
	if p == nil || f.x == nil {
		return 0, 0, false
	}
	i := p.indexNew
	return f.x.AtVec(i), math.Sqrt(f.P.At(i, i)), true
}

// Estimated coordinates and their covariance
func (f *Filter) Crd() (PosXYZ, *mat.SymDense) {
	q := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			q.SetSym(i, j, f.P.At(i, j))
		}
	}
	return PosXYZ{X: f.x.AtVec(0), Y: f.x.AtVec(1), Z: f.x.AtVec(2)}, q
}

// Process one epoch. On failure the state before the epoch is restored
func (f *Filter) ProcessEpoch(ctx context.Context, ep *Epoch, st *Station, log *zap.Logger) (err error) {
	if log != nil {
		f.log = log
	}
	saved := f.save()
	defer func() {
		if r := recover(); r != nil {
			f.restore(saved)
			panic(r)
		}
		if err != nil {
			f.restore(saved)
		}
	}()

	f.time = ep.Time
	if f.firstTime.IsZero() || f.x == nil {
		f.firstTime = f.time
	} else if !f.lastOK.IsZero() && f.time.Diff(f.lastOK) > f.cfg.MaxSolGap {
		f.log.Info("solution gap, restart seeding", zap.Float64("gap", f.time.Diff(f.lastOK)))
		f.firstTime = f.time
	}

	// Parameters
	f.parlist.Set(f.time, ep.Obs, st)
	f.predict(st)
	f.log.Debug("parameters", zap.Int("n", f.parlist.Len()))

	// Each system separately
	systems := []SysType{}
	for _, o := range ep.Obs {
		if !slices.Contains(systems, o.sat.Sys()) {
			systems = append(systems, o.sat.Sys())
		}
	}
	slices.SortFunc(systems, func(a, b SysType) int { return sysOrder[a] - sysOrder[b] })
	for _, sys := range systems {
		obsSys := []*SatObs{}
		for _, o := range ep.Obs {
			if o.sat.Sys() == sys {
				obsSys = append(obsSys, o)
			}
		}
		sc := f.cfg.system(sys)
		f.detectCycleSlips(sc.LCs, obsSys)
		if err := f.processSystem(ctx, sc.LCs, obsSys, ep.PseudoObsIono); err != nil {
			return fmt.Errorf("processSystem() failed, sys=%s, err=%w", sys, err)
		}
	}

	f.cmpDOP(ep.Obs)
	if f.numSat < f.cfg.MinObs {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientObs, f.numSat, f.cfg.MinObs)
	}

	f.lastTime = f.time
	f.lastOK = f.time
	return nil
}

// Rebuild the state and its covariance for the new parameter list
func (f *Filter) predict(st *Station) {
	params := f.parlist.Params()
	n := len(params)
	xOld, pOld := f.x, f.P
	dt := 0.0
	if !f.lastTime.IsZero() {
		dt = math.Abs(f.time.Diff(f.lastTime))
	}

	x := mat.NewVecDense(n, nil)
	P := mat.NewSymDense(n, nil)
	f.x0 = make([]float64, n)
	for i, p := range params {
		f.x0[i] = p.x0
		if xOld == nil || p.indexOld < 0 || p.indexOld >= xOld.Len() {
			p.indexOld = -1
			x.SetVec(i, p.initial)
			P.SetSym(i, i, p.sigma0*p.sigma0)
			continue
		}
		x.SetVec(i, xOld.AtVec(p.indexOld))
		P.SetSym(i, i, pOld.At(p.indexOld, p.indexOld)+p.noise*p.noise*dt)
		for j := 0; j < i; j++ {
			q := params[j]
			if q.indexOld >= 0 && q.indexOld < xOld.Len() {
				P.SetSym(i, j, pOld.At(p.indexOld, q.indexOld))
			}
		}
	}

	// Coordinates: noise defined in the local frame
	first := params[0].indexOld < 0
	qNEU := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		if first {
			qNEU.SetSym(i, i, SQ(f.cfg.AprSigCrd[i]))
		} else {
			qNEU.SetSym(i, i, SQ(f.cfg.NoiseCrd[i])*dt)
		}
	}
	qXYZ := covNEU2XYZ(st.LlhApr(), qNEU)
	for i := 0; i < 3; i++ {
		for j := 0; j <= i; j++ {
			switch {
			case first:
				P.SetSym(i, j, qXYZ.At(i, j))
			case f.time.Diff(f.firstTime) < f.cfg.SeedingTime:
				P.SetSym(i, j, pOld.At(params[i].indexOld, params[j].indexOld))
			default:
				P.SetSym(i, j, pOld.At(params[i].indexOld, params[j].indexOld)+qXYZ.At(i, j))
			}
		}
	}
	if first {
		for i := 0; i < 3; i++ {
			for j := 3; j < n; j++ {
				P.SetSym(i, j, 0)
			}
		}
	}

	f.x = x
	f.P = P
}

// Design row of an observation
func (f *Filter) designRow(o *SatObs, lc LC) []float64 {
	params := f.parlist.Params()
	a := make([]float64, len(params))
	for i, p := range params {
		a[i] = p.Partial(o, lc)
	}
	return a
}

// Observed minus computed including the linearization point
func (f *Filter) omc(o *SatObs, lc LC, a []float64) float64 {
	y := o.obsValue(lc) - o.cmpValue(lc)
	for i, ai := range a {
		y += ai * f.x0[i]
	}
	return y
}

func dotX(a []float64, x *mat.VecDense) float64 {
	v := 0.0
	for i, ai := range a {
		v += ai * x.AtVec(i)
	}
	return v
}

// Detect cycle slips by the indicators and by the pre-fit residuals
func (f *Filter) detectCycleSlips(lcs []LC, obs []*SatObs) {
	for _, lc := range lcs {
		if !lc.IncludesPhase() {
			continue
		}
		for _, o := range obs {
			sl, ok := f.slips[o.sat]
			if !ok {
				sl = &slipState{slipCounter: -1, biasJumpCounter: -1}
				f.slips[o.sat] = sl
			}
			slip := false
			if o.slip {
				f.log.Debug("cycle slip set (obs)", zap.String("sat", string(o.sat)))
				slip = true
			}
			if sl.slipCounter != -1 && sl.slipCounter != o.slipCounter {
				f.log.Debug("cycle slip set (obsSlipCounter)", zap.String("sat", string(o.sat)))
				slip = true
			}
			sl.slipCounter = o.slipCounter
			if sl.biasJumpCounter != -1 && sl.biasJumpCounter != o.biasJumpCounter {
				f.log.Debug("cycle slip set (biasJumpCounter)", zap.String("sat", string(o.sat)))
				slip = true
			}
			sl.biasJumpCounter = o.biasJumpCounter

			if slip {
				f.resetAmb(o.sat, obs, nil)
				continue
			}
			a := f.designRow(o, lc)
			vv := dotX(a, f.x) - f.omc(o, lc, a)
			if math.Abs(vv) > f.cfg.SlipThreshold {
				f.log.Debug("cycle slip detected", zap.String("sat", string(o.sat)), zap.String("lc", string(lc)), zap.Float64("res", vv))
				f.resetAmb(o.sat, obs, nil)
			}
		}
	}
}

// Reset the ambiguities of a satellite, in the saved state too if given
func (f *Filter) resetAmb(sat SatType, obs []*SatObs, saved *filterState) bool {
	var o *SatObs
	for _, ob := range obs {
		if ob.sat == sat {
			o = ob
		}
	}
	done := false
	n := f.parlist.Len()
	for _, p := range f.parlist.Params() {
		if p.typ != Amb || p.sat != sat {
			continue
		}
		f.log.Debug("reset", zap.Stringer("par", p))
		i := p.indexNew
		if o != nil {
			p.initial = o.ambSeed(p.lc)
		}
		p.id = f.parlist.nextID
		f.parlist.nextID++
		p.firstObs = f.time
		p.lastObs = f.time
		for _, ps := range []*mat.SymDense{f.P, savedP(saved)} {
			if ps == nil {
				continue
			}
			for j := 0; j < n; j++ {
				ps.SetSym(i, j, 0)
			}
			ps.SetSym(i, i, p.sigma0*p.sigma0)
		}
		f.x.SetVec(i, p.initial)
		if saved != nil && saved.x != nil {
			saved.x.SetVec(i, p.initial)
		}
		f.x0[i] = p.x0
		done = true
	}
	return done
}

func savedP(s *filterState) *mat.SymDense {
	if s == nil {
		return nil
	}
	return s.P
}

// Robust update with the observations of one system
func (f *Filter) processSystem(ctx context.Context, lcs []LC, obs []*SatObs, pseudoObsIono bool) error {
	params := f.parlist.Params()
	nPar := len(params)

	usedLCs := []LC{}
	for _, lc := range lcs {
		if lc == LCGIM && !pseudoObsIono {
			continue
		}
		usedLCs = append(usedLCs, lc)
	}
	maxObs := len(obs) * len(usedLCs)

	// Pre-update state restored before every retry
	sav := &filterState{x: mat.VecDenseCopyOf(f.x), P: mat.NewSymDense(nPar, nil)}
	sav.P.CopySym(f.P)

	for iter := 0; iter < maxObs; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if iter > 0 {
			f.x = mat.VecDenseCopyOf(sav.x)
			f.P = mat.NewSymDense(nPar, nil)
			f.P.CopySym(sav.P)
		}

		// Design matrix, observed minus computed, weights
		type usedObs struct {
			o  *SatObs
			lc LC
		}
		used := []usedObs{}
		rows := [][]float64{}
		ys := []float64{}
		ws := []float64{}
		for _, o := range obs {
			if o.outlier {
				continue
			}
			for _, lc := range usedLCs {
				if !o.IsValid(lc) {
					continue
				}
				a := f.designRow(o, lc)
				rows = append(rows, a)
				ys = append(ys, f.omc(o, lc, a))
				ws = append(ws, SQ(o.sigma(lc)))
				used = append(used, usedObs{o: o, lc: lc})
			}
		}
		if len(used) == 0 {
			return fmt.Errorf("%w: no usable observation", ErrEstimation)
		}

		nObs := len(used)
		H := mat.NewDense(nObs, nPar, nil)
		R := mat.NewDiagDense(nObs, ws)
		dy := mat.NewVecDense(nObs, nil)
		for i := range used {
			H.SetRow(i, rows[i])
			dy.SetVec(i, ys[i]-dotX(rows[i], f.x))
		}

		// Kalman update
		K, err := makeK(f.P, H, R)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEstimation, err)
		}
		f.x = updateX(f.x, K, dy)
		f.P = updateP(K, H, f.P, R)
		if ce := f.log.Check(zap.DebugLevel, "state"); ce != nil {
			ce.Write(zap.Int("iter", iter), zap.String("x", FormatMat(f.x.T())))
		}

		// Post-fit residuals
		maxRes := 0.0
		maxIdx := -1
		vv := make([]float64, nObs)
		for i, u := range used {
			vv[i] = dotX(rows[i], f.x) - ys[i]
			res := math.Abs(vv[i])
			if res > u.o.maxRes(u.lc) && res > math.Abs(maxRes) {
				maxRes = vv[i]
				maxIdx = i
			}
		}

		if maxIdx < 0 {
			for i, u := range used {
				u.o.res[u.lc] = vv[i]
				f.log.Debug("res", zap.String("sat", string(u.o.sat)), zap.String("lc", string(u.lc)),
					zap.Float64("v", vv[i]), zap.Float64("sig", u.o.sigma(u.lc)), zap.Float64("max", u.o.maxRes(u.lc)))
			}
			return nil
		}

		// Worst residual: reset its ambiguity or mark the observation as outlier
		u := used[maxIdx]
		f.log.Debug("outlier", zap.String("sat", string(u.o.sat)), zap.String("lc", string(u.lc)), zap.Float64("res", maxRes))
		if amb := f.parlist.Find(Amb, u.o.sat, u.lc); amb != nil && amb.firstObs != f.time {
			f.resetAmb(u.o.sat, obs, sav)
		} else {
			u.o.outlier = true
		}
	}
	return fmt.Errorf("%w: outlier rejection not converged", ErrEstimation)
}

// Dilution of precision of the used observations
func (f *Filter) cmpDOP(obs []*SatObs) {
	f.dop = DOP{}
	f.numSat = 0
	rows := [][]float64{}
	var llh PosLLH
	for _, o := range obs {
		if !o.valid || o.outlier {
			continue
		}
		m := &o.model
		if m.rho == 0 {
			continue
		}
		llh = m.rRec.ToLLH()
		rows = append(rows, []float64{
			(m.rRec.X - o.xc[0]) / m.rho,
			(m.rRec.Y - o.xc[1]) / m.rho,
			(m.rRec.Z - o.xc[2]) / m.rho,
			1,
		})
	}
	f.numSat = len(rows)
	if f.numSat < 4 {
		return
	}
	A := mat.NewDense(len(rows), 4, nil)
	for i, r := range rows {
		A.SetRow(i, r)
	}
	var N mat.SymDense
	N.SymOuterK(1, A.T())
	var Q mat.Dense
	if err := Q.Inverse(&N); err != nil {
		f.log.Debug("dop not computable", zap.Error(err))
		return
	}
	qNEU := covXYZ2NEU(llh, Q.Slice(0, 3, 0, 3))
	f.dop.P = math.Sqrt(Q.At(0, 0) + Q.At(1, 1) + Q.At(2, 2))
	f.dop.T = math.Sqrt(Q.At(3, 3))
	f.dop.G = math.Sqrt(Q.At(0, 0) + Q.At(1, 1) + Q.At(2, 2) + Q.At(3, 3))
	f.dop.H = math.Sqrt(qNEU.At(0, 0) + qNEU.At(1, 1))
	f.dop.V = math.Sqrt(qNEU.At(2, 2))
}
