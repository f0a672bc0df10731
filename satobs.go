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
	"strings"
)

// Observation of one satellite in one epoch with its model
type SatObs struct {
	sat             SatType
	time            GTime
	cfg             *Config
	sc              *SystemConfig
	fType           [2]FreqType // Frequencies in use ("" if none)
	freq            [2]float64  // [Hz]
	obs             [2]*FrqObs  // Selected signals
	channel         int
	valid           bool
	outlier         bool
	slip            bool
	slipCounter     int
	biasJumpCounter int
	xc              [4]float64 // Satellite position and clock [s] at transmission
	vv              [3]float64
	model           satModel
	res             map[LC]float64
}

// Build an observation from raw data, nil if the system is not processed
func newSatObs(raw *RawObs, cfg *Config, ephPool *EphemerisPool) *SatObs {
	sc := cfg.system(raw.Sat.Sys())
	if sc == nil {
		return nil
	}
	o := &SatObs{
		sat:             raw.Sat,
		time:            raw.Time,
		cfg:             cfg,
		sc:              sc,
		channel:         ephPool.GetChannel(raw.Sat),
		slipCounter:     -1,
		biasJumpCounter: -1,
		res:             map[LC]float64{},
	}

	// Signal selection: the first attribute by priority having code and phase
	for i, band := range sc.Bands {
		if i > 1 {
			break
		}
		o.fType[i] = sc.freqType(i)
		f, err := Frequency(o.fType[i], o.channel)
		if err != nil {
			continue
		}
		o.freq[i] = f
		for _, attr := range []byte(sc.Priority) {
			for _, fo := range raw.Obs {
				if len(fo.Attr) < 2 || fo.Attr.Band() != band[0] || fo.Attr.Attr() != attr {
					continue
				}
				if fo.CodeValid && fo.Code != 0 && fo.PhaseValid && fo.Phase != 0 {
					o.obs[i] = fo
					break
				}
			}
			if o.obs[i] != nil {
				break
			}
		}
	}
	for _, fo := range o.obs {
		if fo == nil {
			continue
		}
		o.slip = o.slip || fo.Slip
		o.slipCounter = max(o.slipCounter, fo.SlipCounter)
		o.biasJumpCounter = max(o.biasJumpCounter, fo.BiasJumpCounter)
	}

	o.valid = true
	for _, lc := range sc.LCs {
		if lc != LCGIM && !o.IsValid(lc) {
			o.valid = false
			return o
		}
	}
	if err := o.cmpSatPosition(ephPool); err != nil {
		o.valid = false
	}
	return o
}

func (o *SatObs) Sat() SatType       { return o.sat }
func (o *SatObs) Time() GTime        { return o.time }
func (o *SatObs) Valid() bool        { return o.valid }
func (o *SatObs) Outlier() bool      { return o.outlier }
func (o *SatObs) Elevation() float64 { return o.model.eleSat }
func (o *SatObs) Azimuth() float64   { return o.model.azSat }

// Post-fit residual of a combination
func (o *SatObs) Res(lc LC) (float64, bool) {
	v, ok := o.res[lc]
	return v, ok
}

func (o *SatObs) coeffs(lc LC) lcCoeffs {
	return lcCoefficients(lc, o.freq[0], o.freq[1])
}

// Wavelength of a combination [m]
func (o *SatObs) lambda(lc LC) float64 {
	return lcLambda(lc, o.freq[0], o.freq[1])
}

// Wavelength on a frequency slot [m]
func (o *SatObs) lambdaSlot(i int) float64 {
	if o.freq[i] == 0 {
		return 0
	}
	return C / o.freq[i]
}

// Whether all observations the combination needs are available
func (o *SatObs) IsValid(lc LC) bool {
	if lc == LCGIM {
		return o.model.stecSet
	}
	if _, ok := lcOrder[lc]; !ok || lc == "" {
		return false
	}
	if o.obs[0] == nil || o.freq[0] == 0 {
		if lc != LCP2 && lc != LCL2 {
			return false
		}
	}
	if lc.needs2() && (o.obs[1] == nil || o.freq[1] == 0) {
		return false
	}
	return true
}

// Observed value of a combination [m]
func (o *SatObs) obsValue(lc LC) float64 {
	if !o.IsValid(lc) {
		return 0
	}
	if lc == LCGIM {
		return o.model.stec
	}
	c := o.coeffs(lc)
	v := 0.0
	for i := 0; i < 2; i++ {
		if o.obs[i] == nil {
			continue
		}
		v += c.code[i]*o.obs[i].Code + c.phase[i]*o.obs[i].Phase*o.lambdaSlot(i)
	}
	return v
}

// Computed value of a combination [m]
func (o *SatObs) cmpValue(lc LC) float64 {
	if !o.IsValid(lc) || lc == LCGIM {
		return 0
	}
	m := &o.model
	nonDisp := m.rho + m.recClkM - m.satClkM + m.sagnac + m.antEcc + m.tropo +
		m.tideEarth + m.tideOcean + m.rel
	c := o.coeffs(lc)
	disp := 0.0
	for i := 0; i < 2; i++ {
		disp += c.code[i] * (m.antPCO[i] - m.codeBias[i])
		disp += c.phase[i] * (m.antPCO[i] - m.phaseBias[i] + m.windUp*o.lambdaSlot(i))
		if o.cfg.IonoMode == IonoModel && m.stecSet {
			disp += c.iono[i] * m.stec
		}
	}
	return nonDisp + disp
}

// Computed value without geometry, Sagnac and receiver clock [m]
func (o *SatObs) cmpValueForBanc(lc LC) float64 {
	if !o.model.set {
		return -o.xc[3] * C
	}
	return o.cmpValue(lc) - o.model.rho - o.model.sagnac - o.model.recClkM
}

// Elevation dependent weight factor
func (o *SatObs) eleFactor(lc LC) float64 {
	if (o.cfg.EleWgtCode && lc.IncludesCode()) || (o.cfg.EleWgtPhase && lc.IncludesPhase()) {
		hlp := math.Abs(90.0 - ToDeg(o.model.eleSat))
		return 1.0 + hlp*hlp*hlp*0.000004
	}
	return 1.0
}

// Standard deviation of a combination [m]
func (o *SatObs) sigma(lc LC) float64 {
	if lc == LCGIM {
		return o.cfg.SigmaGIM
	}
	sigC := o.cfg.SigmaCode
	if o.sat.Sys() == 'R' {
		sigC *= 5.0
	}
	c := o.coeffs(lc)
	s2 := 0.0
	for i := 0; i < 2; i++ {
		s2 += SQ(c.code[i]*sigC) + SQ(c.phase[i]*o.cfg.SigmaPhase)
	}
	return o.eleFactor(lc) * math.Sqrt(s2)
}

// Threshold of the post-fit residual of a combination [m]
func (o *SatObs) maxRes(lc LC) float64 {
	if lc == LCGIM {
		return o.cfg.MaxResGIM
	}
	c := o.coeffs(lc)
	s2 := 0.0
	for i := 0; i < 2; i++ {
		s2 += SQ(c.code[i]*o.cfg.MaxResCode) + SQ(c.phase[i]*o.cfg.MaxResPhase)
	}
	return o.eleFactor(lc) * math.Sqrt(s2)
}

// Initial value of the ambiguity of a combination [cycle]: phase minus code
func (o *SatObs) ambSeed(lc LC) float64 {
	lam := o.lambda(lc)
	if lam == 0 || !o.IsValid(lc) {
		return 0
	}
	c := o.coeffs(lc)
	v := 0.0
	for i := 0; i < 2; i++ {
		if o.obs[i] == nil {
			continue
		}
		v += c.phase[i] * (o.obs[i].Phase*o.lambdaSlot(i) - o.obs[i].Code)
	}
	return v / lam
}

// Code combination used for the transmission time and the initial position
func (o *SatObs) codeLC() LC {
	for _, lc := range []LC{LCP3, LCP1, LCP2} {
		if o.IsValid(lc) {
			return lc
		}
	}
	return ""
}

// Satellite position at the transmission time by fixed-point iteration
func (o *SatObs) cmpSatPosition(ephPool *EphemerisPool) error {
	lc := o.codeLC()
	if lc == "" {
		return fmt.Errorf("no code observation for %s", o.sat)
	}
	prange := o.obsValue(lc)
	for i := 0; i < MaxLightIter; i++ {
		tot := o.time.Add(-prange/C - o.xc[3])
		xc, vv, err := ephPool.GetCrd(o.sat, tot)
		if err != nil {
			return err
		}
		diff := math.Sqrt(SQ(xc[0]-o.xc[0]) + SQ(xc[1]-o.xc[1]) + SQ(xc[2]-o.xc[2]) + SQ(C*(xc[3]-o.xc[3])))
		o.xc = xc
		o.vv = vv
		if diff < 1e-4 {
			return nil
		}
	}
	return fmt.Errorf("transmission time of %s not converged", o.sat)
}

func (o *SatObs) satPos() PosXYZ {
	return PosXYZ{X: o.xc[0], Y: o.xc[1], Z: o.xc[2]}
}

func (o *SatObs) satVel() PosXYZ {
	return PosXYZ{X: o.vv[0], Y: o.vv[1], Z: o.vv[2]}
}

func (o *SatObs) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s/%s", o.sat, o.fType[0], o.fType[1]))
	if o.model.set {
		sb.WriteString(fmt.Sprintf(" el=%.2f az=%.2f", ToDeg(o.model.eleSat), ToDeg(o.model.azSat)))
	}
	if o.outlier {
		sb.WriteString(" outlier")
	}
	return sb.String()
}
