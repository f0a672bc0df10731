// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

// Receiver context of one epoch shared by the observation models
type Station struct {
	name      string
	antName   string
	time      GTime
	xyzApr    PosXYZ
	llhApr    PosLLH
	neuEcc    PosENU // Antenna eccentricity (E,N,U) [m]
	xyzEcc    PosXYZ
	dClk      float64 // Receiver clock [s]
	tides     bool
	oload     *OceanLoading
	tideEarth PosXYZ
	tideOcean PosXYZ
	windUp    *WindUp
}

func NewStation(name, antName string) *Station {
	if antName == "" {
		antName = NullAntenna
	}
	return &Station{name: name, antName: antName, windUp: NewWindUp()}
}

func (s *Station) Name() string    { return s.name }
func (s *Station) AntName() string { return s.antName }
func (s *Station) Time() GTime     { return s.time }
func (s *Station) XyzApr() PosXYZ  { return s.xyzApr }
func (s *Station) LlhApr() PosLLH  { return s.llhApr }
func (s *Station) XyzEcc() PosXYZ  { return s.xyzEcc }
func (s *Station) DClk() float64   { return s.dClk }

func (s *Station) SetNeuEcc(north, east, up float64) {
	s.neuEcc = PosENU{E: east, N: north, U: up}
	if s.llhApr != (PosLLH{}) {
		s.xyzEcc = s.neuEcc.Global(s.llhApr)
	}
}

func (s *Station) SetOceanLoading(ol *OceanLoading) {
	s.oload = ol
}

func (s *Station) EnableTides(on bool) {
	s.tides = on
}

// Set the a-priori position, the clock and the epoch; the dependent
// quantities (eccentricity, tides) follow
func (s *Station) Update(t GTime, xyz PosXYZ, dClk float64) {
	s.time = t
	s.xyzApr = xyz
	s.llhApr = xyz.ToLLH()
	s.dClk = dClk
	s.xyzEcc = s.neuEcc.Global(s.llhApr)
	s.tideEarth = PosXYZ{}
	s.tideOcean = PosXYZ{}
	if s.tides {
		s.tideEarth = SolidEarthTide(t, xyz)
		if s.oload != nil {
			s.tideOcean = s.oload.Displacement(t).Global(s.llhApr)
		}
	}
}

func (s *Station) TideEarth() PosXYZ { return s.tideEarth }
func (s *Station) TideOcean() PosXYZ { return s.tideOcean }

// Wind-up toward a satellite [cycle]
func (s *Station) WindUp(sat SatType, rs PosXYZ, ax satAxes) float64 {
	return s.windUp.Value(s.time, s.xyzApr, sat, rs, ax)
}

// Slant TEC toward a satellite [TECU]
func (s *Station) STEC(v *VTec, az, el float64) (float64, error) {
	return v.STEC(s.time, s.llhApr, az, el)
}
