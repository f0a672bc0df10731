// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solve the observation equation using weighted least squares
// - dx = (G^t W G)^-1 G^t W dr
// - Return the error covariance matrix (G^t W G)^-1 as cov
func SolveLS(G mat.Matrix, dr mat.Vector, W mat.Matrix) (dx *mat.VecDense, cov *mat.Dense, err error) {

	n1, m1 := G.Dims()
	n2, m2 := W.Dims()
	if n1 != n2 {
		return nil, nil, fmt.Errorf("invalid matrix size. G^T(%d x %d), W(%d x %d)", m1, n1, n2, m2)
	}
	l1 := dr.Len()
	if l1 != m2 {
		return nil, nil, fmt.Errorf("invalid matrix size. W(%d x %d), dr(%d x 1)", n2, m2, l1)
	}

	// A (G^t W G)
	var WG mat.Dense
	WG.Mul(W, G)
	var A mat.Dense
	A.Mul(G.T(), &WG)

	// b (G^t W dr)
	var GtW mat.Dense
	GtW.Mul(G.T(), W)
	var b mat.VecDense
	b.MulVec(&GtW, dr)

	// Set (G^T W G)^-1 as the covariance matrix
	var c mat.Dense
	if err = c.Inverse(&A); err != nil {
		return nil, nil, err
	}
	cov = &c

	var x mat.VecDense
	x.MulVec(&c, &b)
	dx = &x
	return
}

// Identity matrix of size n
func eye(n int) *mat.Dense {
	I := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		I.Set(j, j, 1)
	}
	return I
}

// makeK calculates the Kalman gain K = P H^t (H P H^t + R)^-1
func makeK(P mat.Symmetric, H, R mat.Matrix) (*mat.Dense, error) {
	var A, B, C, Ci, D, K mat.Dense
	A.Mul(H, P)
	B.Mul(&A, H.T())
	C.Add(&B, R)
	if err := Ci.Inverse(&C); err != nil {
		return nil, fmt.Errorf("innovation covariance is singular: %w", err)
	}
	D.Mul(P, H.T())
	K.Mul(&D, &Ci)
	return &K, nil
}

// updateX calculates x' = x + K dy
func updateX(x *mat.VecDense, K *mat.Dense, dy *mat.VecDense) *mat.VecDense {
	var dx, x2 mat.VecDense
	dx.MulVec(K, dy)
	x2.AddVec(x, &dx)
	return &x2
}

// updateP calculates P' = (I - K H) P (I - K H)^t + K R K^t (Joseph form)
func updateP(K, H *mat.Dense, P mat.Symmetric, R mat.Matrix) *mat.SymDense {
	nx, _ := K.Dims()
	var A, B, C, D, E, F mat.Dense
	A.Mul(K, H)
	B.Sub(eye(nx), &A)
	C.Mul(&B, P)
	D.Mul(&C, B.T())
	E.Mul(K, R)
	F.Mul(&E, K.T())
	D.Add(&D, &F)
	return symmetrize(&D)
}
