// Package solver positions the components of an assembly so that their
// constraints hold, or hold as closely as possible in the least-squares
// sense when they conflict.
//
// Only translations are solved. Each iteration linearises the weighted
// residual vector and takes a Levenberg-Marquardt step; the damping grows
// while steps fail to reduce the error and shrinks when they succeed.
//
// Basic usage:
//
//	res, err := solver.Solve(asm, asm.Positions(), nil)
//	if err != nil {
//		return err // invalid configuration
//	}
//	if !res.Success {
//		log.Warn(res.Message)
//	}
//	checks := solver.CheckConstraints(asm, res.Positions)
package solver
