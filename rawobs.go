// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"
	"strings"
)

// Observation of one tracked signal
type FrqObs struct {
	Attr            CodeType // Band and tracking attribute (1C,2W,5Q etc.)
	Code            float64  // Pseudorange [m]
	CodeValid       bool     // Pseudorange is available
	Phase           float64  // Carrier phase [cycle]
	PhaseValid      bool     // Carrier phase is available
	Doppler         float64  // Doppler frequency [Hz]
	Snr             float64  // Signal strength [dB-Hz]
	Slip            bool     // Loss-of-lock in this epoch
	SlipCounter     int      // Cumulative loss-of-lock counter (-1: unknown)
	BiasJumpCounter int      // Phase bias discontinuity counter (-1: unknown)
}

// Observation data of one satellite for one epoch as received
type RawObs struct {
	Sat  SatType
	Time GTime
	Obs  []*FrqObs
}

func (p *RawObs) String() string {
	var sb strings.Builder
	for _, o := range p.Obs {
		sb.WriteString(fmt.Sprintf(" %s:%.3f/%.3f", o.Attr, o.Code, o.Phase))
	}
	return fmt.Sprintf("%s %s%s", p.Sat, p.Time, sb.String())
}

// Observations of all satellites at one receiver epoch
type ObsEpoch struct {
	Time GTime
	Sats []*RawObs
}
