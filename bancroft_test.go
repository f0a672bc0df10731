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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Pseudoranges with the earth rotation of the signal travel time
func bancroftRows(rr PosXYZ, clk float64, sats []PosXYZ) [][4]float64 {
	rows := [][4]float64{}
	for _, rs := range sats {
		tau := rs.Sub(rr).Norm() / C
		x, y := rotateSat(rs.X, rs.Y, tau)
		rows = append(rows, [4]float64{rs.X, rs.Y, rs.Z, PosXYZ{X: x, Y: y, Z: rs.Z}.Sub(rr).Norm() + clk})
	}
	return rows
}

func Test_bancroft(t *testing.T) {
	assert := assert.New(t)
	s := newSimulator(7, 0)
	sats := []PosXYZ{}
	for _, e := range s.ephs {
		sats = append(sats, e.pos(simT0))
	}

	for _, clk := range []float64{0, 3e4, -1.5e5} {
		pos, err := bancroft(bancroftRows(s.rr, clk, sats))
		require.NoError(t, err)
		assert.Less(PosXYZ{X: pos[0], Y: pos[1], Z: pos[2]}.Sub(s.rr).Norm(), 1e-2, clk)
		assert.InDelta(clk, pos[3], 1e-2)
	}

	// Minimum number of satellites
	pos, err := bancroft(bancroftRows(s.rr, 100, sats[:4]))
	require.NoError(t, err)
	assert.Less(PosXYZ{X: pos[0], Y: pos[1], Z: pos[2]}.Sub(s.rr).Norm(), 1e-2)

	_, err = bancroft(bancroftRows(s.rr, 100, sats[:3]))
	assert.Error(err)
}

func Test_rotateSat(t *testing.T) {
	assert := assert.New(t)
	x, y := rotateSat(Re, 0, 0)
	assert.Equal(Re, x)
	assert.Equal(0.0, y)

	// Quarter turn of the earth
	x, y = rotateSat(Re, 0, math.Pi/2/OMGE)
	assert.InDelta(0, x, 1e-6)
	assert.InDelta(-Re, y, 1e-6)

	// Length is kept
	x, y = rotateSat(2e7, 1e7, 0.075)
	assert.InDelta(math.Hypot(2e7, 1e7), math.Hypot(x, y), 1e-6)
}
