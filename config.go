// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
)

// Observation settings of one satellite system
type SystemConfig struct {
	Sys            string   `yaml:"sys"`              // System letter (G,R,E,C,J)
	Bands          []string `yaml:"bands"`            // Frequency bands in use, e.g. ["1", "2"]
	Priority       string   `yaml:"priority"`         // Tracking attributes by priority, e.g. "CWPSLX"
	LCs            []LC     `yaml:"lcs"`              // Linear combinations processed
	AmbLCs         []LC     `yaml:"amb_lcs"`          // Combinations carrying an ambiguity (default: phase combinations of LCs)
	CodeBiasBands  []string `yaml:"code_bias_bands"`  // Bands with an estimated code bias
	PhaseBiasBands []string `yaml:"phase_bias_bands"` // Bands with an estimated phase bias
}

func (s *SystemConfig) SysType() SysType {
	return SysType(s.Sys[0])
}

// Frequency of the i-th band in use, "" if not configured
func (s *SystemConfig) freqType(i int) FreqType {
	if i >= len(s.Bands) {
		return ""
	}
	return NewFreqType(s.SysType(), s.Bands[i][0])
}

func (s *SystemConfig) ambLCs() []LC {
	if len(s.AmbLCs) > 0 {
		return s.AmbLCs
	}
	lcs := []LC{}
	for _, lc := range s.LCs {
		if lc.IncludesPhase() {
			lcs = append(lcs, lc)
		}
	}
	return lcs
}

func (s *SystemConfig) hasIonoFree() bool {
	return slices.Contains(s.LCs, LCP3) || slices.Contains(s.LCs, LCL3)
}

// Station settings
type StationConfig struct {
	Name         string      `yaml:"name"`
	AntName      string      `yaml:"ant_name"`
	XyzApr       []float64   `yaml:"xyz_apr"`       // A-priori coordinates; empty: derived each epoch
	NeuEcc       []float64   `yaml:"neu_ecc"`       // Antenna eccentricity N, E, U [m]
	OceanLoading [][]float64 `yaml:"ocean_loading"` // BLQ coefficients, 6 rows of 11
}

// Processing options
type Config struct {
	Systems []*SystemConfig `yaml:"systems"`
	Station StationConfig   `yaml:"station"`

	ElevMask float64 `yaml:"elev_mask"` // Elevation mask [deg]
	MinObs   int     `yaml:"min_obs"`   // Minimum number of satellites

	SigmaCode   float64 `yaml:"sigma_code"`    // [m]
	SigmaPhase  float64 `yaml:"sigma_phase"`   // [m]
	SigmaGIM    float64 `yaml:"sigma_gim"`     // [m]
	MaxResCode  float64 `yaml:"max_res_code"`  // [m]
	MaxResPhase float64 `yaml:"max_res_phase"` // [m]
	MaxResGIM   float64 `yaml:"max_res_gim"`   // [m]
	EleWgtCode  bool    `yaml:"ele_wgt_code"`
	EleWgtPhase bool    `yaml:"ele_wgt_phase"`

	AprSigCrd       []float64 `yaml:"apr_sig_crd"` // N, E, U [m]
	NoiseCrd        []float64 `yaml:"noise_crd"`   // N, E, U [m/sqrt(s)]
	AprSigClk       float64   `yaml:"apr_sig_clk"` // [m]
	EstTropo        bool      `yaml:"est_tropo"`
	TropoModel      string    `yaml:"tropo_model"` // saastamoinen, none
	AprSigTrp       float64   `yaml:"apr_sig_trp"` // [m]
	NoiseTrp        float64   `yaml:"noise_trp"`   // [m/sqrt(s)]
	IonoMode        string    `yaml:"iono_mode"`   // none, model, est
	AprSigIon       float64   `yaml:"apr_sig_ion"` // [m]
	NoiseIon        float64   `yaml:"noise_ion"`   // [m/sqrt(s)]
	EstBias         bool      `yaml:"est_bias"`
	AprSigCodeBias  float64   `yaml:"apr_sig_code_bias"`  // [m]
	AprSigPhaseBias float64   `yaml:"apr_sig_phase_bias"` // [m]
	NoiseCodeBias   float64   `yaml:"noise_code_bias"`    // [m/sqrt(s)]
	NoisePhaseBias  float64   `yaml:"noise_phase_bias"`   // [m/sqrt(s)]
	AprSigAmb       float64   `yaml:"apr_sig_amb"`        // [cycle]

	SeedingTime   float64 `yaml:"seeding_time"`   // Coordinates are held for this period after start [s]
	MaxSolGap     float64 `yaml:"max_sol_gap"`    // Gap after which the seeding restarts [s]
	SlipThreshold float64 `yaml:"slip_threshold"` // Pre-fit residual treated as a cycle slip [m]

	MaxEphQueue  int     `yaml:"max_eph_queue"`
	MaxCorrAge   float64 `yaml:"max_corr_age"` // [s], 0: unlimited
	CorrRequired bool    `yaml:"corr_required"`

	Tides  bool `yaml:"tides"`
	WindUp bool `yaml:"wind_up"`
	IsAPC  bool `yaml:"is_apc"`  // Orbits refer to the antenna phase center
	UseYaw bool `yaml:"use_yaw"` // Attitude from the phase bias stream
}

// Ionosphere handling
const (
	IonoNone  = "none"
	IonoModel = "model"
	IonoEst   = "est"
)

// Troposphere a-priori model
const (
	TropoSaastamoinen = "saastamoinen"
	TropoNone         = "none"
)

// Constructor with default values
func NewConfig() *Config {
	return &Config{
		Systems: []*SystemConfig{
			{Sys: "G", Bands: []string{"1", "2"}, Priority: "CWPSLX", LCs: []LC{LCP3, LCL3}},
			{Sys: "E", Bands: []string{"1", "5"}, Priority: "CBXQI", LCs: []LC{LCP3, LCL3}},
		},
		ElevMask:        7.0,
		MinObs:          4,
		SigmaCode:       2.0,
		SigmaPhase:      0.01,
		SigmaGIM:        5.0,
		MaxResCode:      10.0,
		MaxResPhase:     0.05,
		MaxResGIM:       10.0,
		AprSigCrd:       []float64{100, 100, 100},
		NoiseCrd:        []float64{0, 0, 0},
		AprSigClk:       1000.0,
		EstTropo:        true,
		TropoModel:      TropoSaastamoinen,
		AprSigTrp:       0.1,
		NoiseTrp:        1e-4,
		IonoMode:        IonoNone,
		AprSigIon:       100.0,
		NoiseIon:        0.1,
		AprSigCodeBias:  1000.0,
		AprSigPhaseBias: 100.0,
		NoiseCodeBias:   0.0,
		NoisePhaseBias:  0.0,
		AprSigAmb:       1000.0,
		MaxSolGap:       60.0,
		SlipThreshold:   20.0,
		MaxEphQueue:     3,
		Tides:           true,
		WindUp:          true,
	}
}

// Decode YAML over the default values
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadConfig() failed, err=%w", err)
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig() failed, err=%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadConfigFile() failed, err=%w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// Keep only the systems contained in sys; an empty list keeps all
func (cfg *Config) SelectSystems(sys SysVar) {
	if len(sys) == 0 {
		return
	}
	cfg.Systems = slices.DeleteFunc(cfg.Systems, func(sc *SystemConfig) bool {
		return len(sc.Sys) == 0 || !sys.Contains(sc.SysType())
	})
}

// Check consistency of the options
func (cfg *Config) Validate() error {
	var errs []error
	if len(cfg.Systems) == 0 {
		errs = append(errs, errors.New("no satellite system"))
	}
	for _, sc := range cfg.Systems {
		if len(sc.Sys) != 1 || !SysType(sc.Sys[0]).IsValid() {
			errs = append(errs, fmt.Errorf("invalid system \"%s\"", sc.Sys))
			continue
		}
		if len(sc.Bands) < 1 || len(sc.Bands) > 2 {
			errs = append(errs, fmt.Errorf("%s: one or two bands required", sc.Sys))
		}
		for _, b := range sc.Bands {
			if len(b) != 1 {
				errs = append(errs, fmt.Errorf("%s: invalid band \"%s\"", sc.Sys, b))
				continue
			}
			if _, err := Frequency(NewFreqType(sc.SysType(), b[0]), 0); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sc.Sys, err))
			}
		}
		if sc.Priority == "" {
			errs = append(errs, fmt.Errorf("%s: no tracking attribute", sc.Sys))
		}
		if len(sc.LCs) == 0 {
			errs = append(errs, fmt.Errorf("%s: no linear combination", sc.Sys))
		}
		for _, lc := range append(slices.Clone(sc.LCs), sc.AmbLCs...) {
			if _, err := ParseLC(string(lc)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sc.Sys, err))
				continue
			}
			if lc.needs2() && len(sc.Bands) < 2 {
				errs = append(errs, fmt.Errorf("%s: %s needs two bands", sc.Sys, lc))
			}
		}
		for _, lc := range sc.AmbLCs {
			if !lc.IncludesPhase() {
				errs = append(errs, fmt.Errorf("%s: %s has no ambiguity", sc.Sys, lc))
			}
		}
	}
	if cfg.MinObs < 4 {
		errs = append(errs, fmt.Errorf("min_obs must be 4 or more, got %d", cfg.MinObs))
	}
	if len(cfg.AprSigCrd) != 3 || len(cfg.NoiseCrd) != 3 {
		errs = append(errs, errors.New("apr_sig_crd and noise_crd need 3 values"))
	}
	if n := len(cfg.Station.XyzApr); n != 0 && n != 3 {
		errs = append(errs, errors.New("station.xyz_apr needs 3 values"))
	}
	if n := len(cfg.Station.NeuEcc); n != 0 && n != 3 {
		errs = append(errs, errors.New("station.neu_ecc needs 3 values"))
	}
	if n := len(cfg.Station.OceanLoading); n != 0 {
		if n != 6 {
			errs = append(errs, errors.New("station.ocean_loading needs 6 rows"))
		}
		for _, row := range cfg.Station.OceanLoading {
			if len(row) != 11 {
				errs = append(errs, errors.New("station.ocean_loading needs 11 columns"))
				break
			}
		}
	}
	if !slices.Contains([]string{IonoNone, IonoModel, IonoEst}, cfg.IonoMode) {
		errs = append(errs, fmt.Errorf("invalid iono_mode \"%s\"", cfg.IonoMode))
	}
	if !slices.Contains([]string{TropoSaastamoinen, TropoNone}, cfg.TropoModel) {
		errs = append(errs, fmt.Errorf("invalid tropo_model \"%s\"", cfg.TropoModel))
	}
	if cfg.MaxEphQueue < 1 {
		errs = append(errs, errors.New("max_eph_queue must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Settings of a system, nil if not processed
func (cfg *Config) system(sys SysType) *SystemConfig {
	for _, sc := range cfg.Systems {
		if sc.SysType() == sys {
			return sc
		}
	}
	return nil
}

// Whether any system processes the ionosphere pseudo-observation
func (cfg *Config) useGIM() bool {
	for _, sc := range cfg.Systems {
		if slices.Contains(sc.LCs, LCGIM) {
			return true
		}
	}
	return false
}

// Ocean loading of the station, nil if not given
func (cfg *Config) oceanLoading() *OceanLoading {
	if len(cfg.Station.OceanLoading) != 6 {
		return nil
	}
	ol := &OceanLoading{}
	for i := 0; i < 6; i++ {
		copy(ol[i][:], cfg.Station.OceanLoading[i])
	}
	return ol
}
