package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveDamped solves (JᵀJ + λI)Δ = -Jᵀr for Δ. Cholesky is tried first; an
// LU solve is the fallback for matrices that lose definiteness numerically.
// ok is false when neither produces a finite step.
func solveDamped(jac *mat.Dense, r []float64, lambda float64) (step []float64, ok bool) {
	rows, cols := jac.Dims()
	if rows == 0 || cols == 0 || len(r) != rows {
		return nil, false
	}

	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())
	for i := 0; i < cols; i++ {
		jtj.SetSym(i, i, jtj.At(i, i)+lambda)
	}

	g := mat.NewVecDense(cols, nil)
	g.MulVec(jac.T(), mat.NewVecDense(rows, r))
	g.ScaleVec(-1, g)

	dx := mat.NewVecDense(cols, nil)

	var chol mat.Cholesky
	if chol.Factorize(&jtj) {
		if err := chol.SolveVecTo(dx, g); acceptable(err) && finite(dx) {
			return dx.RawVector().Data, true
		}
	}

	if err := dx.SolveVec(mat.DenseCopyOf(&jtj), g); acceptable(err) && finite(dx) {
		return dx.RawVector().Data, true
	}
	return nil, false
}

// acceptable treats an ill-conditioning warning as a usable solution.
func acceptable(err error) bool {
	if err == nil {
		return true
	}
	var cond mat.Condition
	return errors.As(err, &cond)
}

func finite(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
