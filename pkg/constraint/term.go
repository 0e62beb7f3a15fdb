package constraint

import (
	"fmt"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// Term is the residual function of a single constraint.
type Term interface {
	// Size is the number of residual rows, fixed per kind.
	Size() int
	// Residual evaluates the rows at the frame's positions. A term whose
	// elements do not resolve returns Size() zeros.
	Residual(f *Frame) []float64
	// Components lists the components the residual depends on.
	Components(f *Frame) []assembly.ComponentID
}

// Partial holds the derivative of one residual row with respect to the
// position of each component it depends on.
type Partial map[assembly.ComponentID]assembly.Vec3

func (p Partial) add(id assembly.ComponentID, v assembly.Vec3) {
	p[id] = p[id].Add(v)
}

// Differentiable is implemented by terms with an analytic gradient. Other
// terms are differentiated numerically by the solver.
type Differentiable interface {
	Term
	Partials(f *Frame) []Partial
}

// New returns the residual term for a constraint.
func New(c assembly.Constraint) (Term, error) {
	switch d := c.Data.(type) {
	case assembly.Fixed:
		return fixedTerm{d}, nil
	case assembly.Distance:
		return distanceTerm{d}, nil
	case assembly.Coincident:
		return coincidentTerm{d}, nil
	case assembly.Parallel:
		return parallelTerm{pair{d.A, d.B, d.Axis}}, nil
	case assembly.Perpendicular:
		return perpendicularTerm{pair{d.A, d.B, d.Axis}}, nil
	case assembly.Angle:
		return angleTerm{pair{d.A, d.B, d.Axis}, d.Degrees}, nil
	case assembly.Tangent:
		return tangentTerm{d}, nil
	case assembly.Symmetric:
		return symmetricTerm{d}, nil
	case nil:
		return nil, fmt.Errorf("constraint %q has no data", c.ID)
	default:
		return nil, fmt.Errorf("constraint %q: unsupported data %T", c.ID, d)
	}
}

// owners returns the distinct components carrying the given elements.
func owners(f *Frame, elems ...assembly.ElementID) []assembly.ComponentID {
	var ids []assembly.ComponentID
	for _, e := range elems {
		id, _, ok := f.Index().Resolve(e)
		if !ok {
			continue
		}
		dup := false
		for _, have := range ids {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			ids = append(ids, id)
		}
	}
	return ids
}
