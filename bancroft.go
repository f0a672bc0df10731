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
	"gonum.org/v1/gonum/mat"
)

// Lorentz inner product
func lorentz(a, b mat.Vector) float64 {
	return a.AtVec(0)*b.AtVec(0) + a.AtVec(1)*b.AtVec(1) + a.AtVec(2)*b.AtVec(2) - a.AtVec(3)*b.AtVec(3)
}

// Rotate a satellite position by the earth rotation during the travel time
func rotateSat(x, y, traveltime float64) (float64, float64) {
	a := traveltime * OMGE
	return math.Cos(a)*x + math.Sin(a)*y, -math.Sin(a)*x + math.Cos(a)*y
}

// Closed-form receiver position and clock [m] from rows of satellite
// position and corrected pseudorange (x, y, z, P)
func bancroft(rows [][4]float64) (pos [4]float64, err error) {
	m := len(rows)
	if m < 4 {
		return pos, fmt.Errorf("bancroft() failed, err=%d rows", m)
	}
	W := eye(m)
	ee := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		ee.SetVec(i, 1)
	}

	for iter := 1; iter <= 2; iter++ {
		B := mat.NewDense(m, 4, nil)
		for i, r := range rows {
			traveltime := 0.072
			if iter > 1 {
				traveltime = math.Sqrt(SQ(r[0]-pos[0])+SQ(r[1]-pos[1])+SQ(r[2]-pos[2])) / C
			}
			x, y := rotateSat(r[0], r[1], traveltime)
			B.SetRow(i, []float64{x, y, r[2], r[3]})
		}
		alpha := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			row := B.RowView(i)
			alpha.SetVec(i, lorentz(row, row)/2)
		}

		// Generalized inverse applied to e and alpha
		be, _, err := SolveLS(B, ee, W)
		if err != nil {
			return pos, fmt.Errorf("bancroft() failed, err=%w", err)
		}
		ba, _, err := SolveLS(B, alpha, W)
		if err != nil {
			return pos, fmt.Errorf("bancroft() failed, err=%w", err)
		}

		aa := lorentz(be, be)
		bb := lorentz(be, ba) - 1
		cc := lorentz(ba, ba)
		disc := bb*bb - aa*cc
		if aa == 0 || disc < 0 {
			return pos, fmt.Errorf("bancroft() failed, err=no real solution")
		}
		root := math.Sqrt(disc)

		// Two candidates; the one consistent with the first row is taken
		var cand [2][4]float64
		var omc [2]float64
		for k, lam := range [2]float64{(-bb - root) / aa, (-bb + root) / aa} {
			for j := 0; j < 4; j++ {
				cand[k][j] = lam*be.AtVec(j) + ba.AtVec(j)
			}
			cand[k][3] = -cand[k][3]
			omc[k] = B.At(0, 3) - math.Sqrt(SQ(B.At(0, 0)-cand[k][0])+SQ(B.At(0, 1)-cand[k][1])+SQ(B.At(0, 2)-cand[k][2])) - cand[k][3]
		}
		if math.Abs(omc[0]) > math.Abs(omc[1]) {
			pos = cand[1]
		} else {
			pos = cand[0]
		}
	}
	return pos, nil
}

// Initial receiver position and clock [s] by Bancroft. Satellites whose
// residual exceeds MaxBancRes are removed one by one. Returns the remaining
// observations
func (c *Client) initialPosition(ctx context.Context, obs []*SatObs, log *zap.Logger) (PosXYZ, float64, []*SatObs, error) {
	// Code combination common to the epoch
	var lc LC
	for _, o := range obs {
		if lc = o.codeLC(); lc != "" {
			break
		}
	}
	if lc == "" {
		return PosXYZ{}, 0, obs, fmt.Errorf("%w: no code observation", ErrGeometry)
	}
	minEle := ToRad(c.cfg.ElevMask)

	for {
		if err := ctx.Err(); err != nil {
			return PosXYZ{}, 0, obs, err
		}
		used := []*SatObs{}
		rows := [][4]float64{}
		for _, o := range obs {
			if !o.IsValid(lc) || (o.model.set && o.model.eleSat < minEle) {
				continue
			}
			used = append(used, o)
			rows = append(rows, [4]float64{o.xc[0], o.xc[1], o.xc[2], o.obsValue(lc) - o.cmpValueForBanc(lc)})
		}
		if len(rows) < max(c.cfg.MinObs, 4) {
			return PosXYZ{}, 0, obs, fmt.Errorf("%w: %d satellites", ErrGeometry, len(rows))
		}
		pos, err := bancroft(rows)
		if err != nil {
			return PosXYZ{}, 0, obs, fmt.Errorf("%w: %w", ErrGeometry, err)
		}
		rr := PosXYZ{X: pos[0], Y: pos[1], Z: pos[2]}

		// Blunders
		maxRes := 0.0
		var worst *SatObs
		for i, o := range used {
			r := rows[i]
			tau := math.Sqrt(SQ(r[0]-rr.X)+SQ(r[1]-rr.Y)+SQ(r[2]-rr.Z)) / C
			x, y := rotateSat(r[0], r[1], tau)
			res := r[3] - PosXYZ{X: x, Y: y, Z: r[2]}.Sub(rr).Norm() - pos[3]
			if math.Abs(res) > maxRes {
				maxRes = math.Abs(res)
				worst = o
			}
		}
		if maxRes < MaxBancRes {
			log.Debug("bancroft", zap.Stringer("pos", rr), zap.Float64("clk", pos[3]), zap.Int("nsat", len(used)))
			return rr, pos[3] / C, obs, nil
		}
		log.Debug("bancroft blunder", zap.String("sat", string(worst.sat)), zap.Float64("res", maxRes))
		kept := make([]*SatObs, 0, len(obs)-1)
		for _, o := range obs {
			if o != worst {
				kept = append(kept, o)
			}
		}
		obs = kept
	}
}
