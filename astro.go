// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.21
//

package goppp

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

// GPS time minus TT [s]
const ttMinusGPS = 51.184

// Julian days of a GPS time (UT approximated by UTC) and of its terrestrial time
func julianDays(t GTime) (jd, jde float64) {
	gps := t.ToTime().UTC()
	jd = julian.TimeToJD(gps.Add(-LS * time.Second))
	jde = julian.TimeToJD(gps) + ttMinusGPS/86400
	return
}

// Rotate an equatorial (true of date) vector to the earth-fixed frame
func equatorialToECEF(jd float64, ra unit.RA, dec unit.Angle, r float64) PosXYZ {
	gmst := sidereal.Mean(jd).Rad()
	sd, cd := math.Sincos(dec.Rad())
	sa, ca := math.Sincos(ra.Rad())
	x := r * cd * ca
	y := r * cd * sa
	z := r * sd
	return PosXYZ{
		X: math.Cos(gmst)*x + math.Sin(gmst)*y,
		Y: -math.Sin(gmst)*x + math.Cos(gmst)*y,
		Z: z,
	}
}

// Sun position in the earth-fixed frame [m]
func SunPosition(t GTime) PosXYZ {
	jd, jde := julianDays(t)
	ra, dec := solar.ApparentEquatorial(jde)

	// Distance from the mean anomaly and the equation of center
	T := (jde - 2451545.0) / 36525.0
	M := ToRad(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	c := math.Sin(M)*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(2*M)*(0.019993-T*0.000101) +
		math.Sin(3*M)*0.000289
	nu := M + ToRad(c)
	r := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(nu)) * AU

	return equatorialToECEF(jd, ra, dec, r)
}

// Moon position in the earth-fixed frame [m]
func MoonPosition(t GTime) PosXYZ {
	jd, jde := julianDays(t)
	lon, lat, dist := moonposition.Position(jde)
	eps := nutation.MeanObliquity(jde).Rad()

	// Ecliptic to equatorial
	sl, cl := math.Sincos(lon.Rad())
	sb, cb := math.Sincos(lat.Rad())
	se, ce := math.Sincos(eps)
	ra := unit.RAFromRad(math.Atan2(sl*ce-sb/cb*se, cl))
	dec := unit.Angle(math.Asin(sb*ce + cb*se*sl))

	return equatorialToECEF(jd, ra, dec, dist*1000)
}
