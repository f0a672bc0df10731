// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

const (
	PI   = 3.1415926535897932  // Pi
	C    = 2.99792458e8        // Speed of light [m/s]
	Re   = 6378137.0           // Earth's radius [m]
	Fe   = 1.0 / 298.257223563 // Earth's flattening
	OMGE = 7.2921151467e-5     // Earth's angular velocity [rad/s]
	GM   = 3.986004418e14      // Earth's gravitational constant [m^3/s^2]
	AU   = 149597870700.0      // Astronomical unit [m]
	LS   = 18                  // Leap seconds
	L1   = 1575420000.0        // L1 frequency of G/J [Hz]
	L2   = 1227600000.0        // L2 frequency of G/J [Hz]
	L5   = 1176450000.0        // L5 frequency of G/J, E5a of Galileo [Hz]
	L6   = 1278750000.0        // L6 frequency of J, E6 of Galileo [Hz]
	B1   = 1561098000.0        // B1 frequency of Beidou [Hz]
	B1C  = 1575420000.0        // B1C frequency of Beidou [Hz]
	B2a  = 1176450000.0        // B2a frequency of Beidou [Hz]
	B2b  = 1207140000.0        // B2b frequency of Beidou, E5b of Galileo [Hz]
	B3   = 1268520000.0        // B3 frequency of Beidou [Hz]
	E1   = 1575420000.0        // E1 frequency of Galileo [Hz]
	E5   = 1191795000.0        // E5 (AltBOC) frequency of Galileo [Hz]
	G1   = 1602000000.0        // G1 frequency of Glonass
	G1d  = 562500.0            // Frequency division step of Glonass G1 [Hz]
	G2   = 1246000000.0        // G2 frequency of Glonass
	G2d  = 437500.0            // Frequency division step of Glonass G2 [Hz]
	G3   = 1202025000.0        // G3 frequency of Glonass [Hz]

	// Processing limits
	MaxSyncDiff   = 0.05   // Allowed time offset among observations of one epoch [s]
	MaxUnobserved = 60.0   // Seconds after which an unobserved parameter is removed [s]
	MaxBancRes    = 1500.0 // Residual limit of the initial position solver [m]
	MaxLightIter  = 10     // Max iterations of the signal transmission time
)
