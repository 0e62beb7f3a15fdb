package constraint

import (
	"math"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// nearZero is the separation below which two points have no direction.
const nearZero = 1e-9

var unitX = assembly.Vec3{X: 1}

func basis(i int) assembly.Vec3 {
	return assembly.Vec3{}.WithComponent(i, 1)
}

// ---------------------------------------------------------------------------
// FIXED: p(A) - p0, three rows
// ---------------------------------------------------------------------------

type fixedTerm struct{ d assembly.Fixed }

func (fixedTerm) Size() int { return 3 }

func (t fixedTerm) target(f *Frame) (assembly.Vec3, bool) {
	if t.d.At != nil {
		return *t.d.At, true
	}
	return f.SeedPoint(t.d.A)
}

func (t fixedTerm) Residual(f *Frame) []float64 {
	p, _, ok := f.Point(t.d.A)
	p0, ok0 := t.target(f)
	if !ok || !ok0 {
		return make([]float64, 3)
	}
	d := p.Sub(p0)
	return []float64{d.X, d.Y, d.Z}
}

func (t fixedTerm) Partials(f *Frame) []Partial {
	rows := []Partial{{}, {}, {}}
	_, id, ok := f.Point(t.d.A)
	if _, ok0 := t.target(f); !ok || !ok0 {
		return rows
	}
	for i := range rows {
		rows[i].add(id, basis(i))
	}
	return rows
}

func (t fixedTerm) Components(f *Frame) []assembly.ComponentID {
	return owners(f, t.d.A)
}

// ---------------------------------------------------------------------------
// DISTANCE: |p(B) - p(A)| - value
// ---------------------------------------------------------------------------

type distanceTerm struct{ d assembly.Distance }

func (distanceTerm) Size() int { return 1 }

func (t distanceTerm) Residual(f *Frame) []float64 {
	a, _, okA := f.Point(t.d.A)
	b, _, okB := f.Point(t.d.B)
	if !okA || !okB {
		return []float64{0}
	}
	return []float64{b.Sub(a).Norm() - t.d.Value}
}

// Partials uses the unit separation. Coincident points have no direction,
// so +X is used to let them separate.
func (t distanceTerm) Partials(f *Frame) []Partial {
	row := Partial{}
	a, idA, okA := f.Point(t.d.A)
	b, idB, okB := f.Point(t.d.B)
	if !okA || !okB {
		return []Partial{row}
	}
	u := b.Sub(a).Unit()
	if u.IsZero() {
		u = unitX
	}
	row.add(idB, u)
	row.add(idA, u.Scale(-1))
	return []Partial{row}
}

func (t distanceTerm) Components(f *Frame) []assembly.ComponentID {
	return owners(f, t.d.A, t.d.B)
}

// ---------------------------------------------------------------------------
// COINCIDENT: p(A) - p(B), three rows
// ---------------------------------------------------------------------------

type coincidentTerm struct{ d assembly.Coincident }

func (coincidentTerm) Size() int { return 3 }

func (t coincidentTerm) Residual(f *Frame) []float64 {
	a, _, okA := f.Point(t.d.A)
	b, _, okB := f.Point(t.d.B)
	if !okA || !okB {
		return make([]float64, 3)
	}
	d := a.Sub(b)
	return []float64{d.X, d.Y, d.Z}
}

func (t coincidentTerm) Partials(f *Frame) []Partial {
	rows := []Partial{{}, {}, {}}
	_, idA, okA := f.Point(t.d.A)
	_, idB, okB := f.Point(t.d.B)
	if !okA || !okB {
		return rows
	}
	for i := range rows {
		rows[i].add(idA, basis(i))
		rows[i].add(idB, basis(i).Scale(-1))
	}
	return rows
}

func (t coincidentTerm) Components(f *Frame) []assembly.ComponentID {
	return owners(f, t.d.A, t.d.B)
}

// ---------------------------------------------------------------------------
// Directional proxies
//
// Orientation is not solved. PARALLEL, PERPENDICULAR and ANGLE compare the
// unit direction from A to B with a reference axis u: the declared axis, or
// A's rotated +X axis when none is declared.
// ---------------------------------------------------------------------------

type pair struct {
	a, b assembly.ElementID
	axis assembly.Vec3
}

// direction returns the unit direction A->B and the reference axis. ok is
// false when either is undefined, in which case the residual is zero.
func (p pair) direction(f *Frame) (dir, u assembly.Vec3, ok bool) {
	a, idA, okA := f.Point(p.a)
	b, _, okB := f.Point(p.b)
	if !okA || !okB {
		return dir, u, false
	}
	dir = b.Sub(a)
	if dir.Norm() < nearZero {
		return dir, u, false
	}
	dir = dir.Unit()

	u = p.axis.Unit()
	if u.IsZero() {
		if c, found := f.Component(idA); found {
			u = c.Axis().Unit()
		}
	}
	if u.IsZero() || dir.IsZero() {
		return dir, u, false
	}
	return dir, u, true
}

func (p pair) components(f *Frame) []assembly.ComponentID {
	return owners(f, p.a, p.b)
}

type parallelTerm struct{ pair }

func (parallelTerm) Size() int { return 1 }

func (t parallelTerm) Residual(f *Frame) []float64 {
	dir, u, ok := t.direction(f)
	if !ok {
		return []float64{0}
	}
	return []float64{dir.Cross(u).Norm()}
}

func (t parallelTerm) Components(f *Frame) []assembly.ComponentID {
	return t.components(f)
}

type perpendicularTerm struct{ pair }

func (perpendicularTerm) Size() int { return 1 }

func (t perpendicularTerm) Residual(f *Frame) []float64 {
	dir, u, ok := t.direction(f)
	if !ok {
		return []float64{0}
	}
	return []float64{dir.Dot(u)}
}

func (t perpendicularTerm) Components(f *Frame) []assembly.ComponentID {
	return t.components(f)
}

type angleTerm struct {
	pair
	degrees float64
}

func (angleTerm) Size() int { return 1 }

func (t angleTerm) Residual(f *Frame) []float64 {
	dir, u, ok := t.direction(f)
	if !ok {
		return []float64{0}
	}
	theta := math.Atan2(dir.Cross(u).Norm(), dir.Dot(u))
	return []float64{theta - t.degrees*math.Pi/180}
}

func (t angleTerm) Components(f *Frame) []assembly.ComponentID {
	return t.components(f)
}

// ---------------------------------------------------------------------------
// TANGENT: bounding-sphere contact, |p(B) - p(A)| - (rA + rB)
// ---------------------------------------------------------------------------

type tangentTerm struct{ d assembly.Tangent }

func (tangentTerm) Size() int { return 1 }

func (t tangentTerm) Residual(f *Frame) []float64 {
	a, idA, okA := f.Point(t.d.A)
	b, idB, okB := f.Point(t.d.B)
	if !okA || !okB {
		return []float64{0}
	}
	return []float64{b.Sub(a).Norm() - (radius(f, idA) + radius(f, idB))}
}

func (t tangentTerm) Components(f *Frame) []assembly.ComponentID {
	return owners(f, t.d.A, t.d.B)
}

func radius(f *Frame, id assembly.ComponentID) float64 {
	c, ok := f.Component(id)
	if !ok {
		return 0
	}
	return c.BoundingRadius()
}

// ---------------------------------------------------------------------------
// SYMMETRIC: signed distance of the midpoint of A and B from the plane
// ---------------------------------------------------------------------------

type symmetricTerm struct{ d assembly.Symmetric }

func (symmetricTerm) Size() int { return 1 }

func (t symmetricTerm) Residual(f *Frame) []float64 {
	a, _, okA := f.Point(t.d.A)
	b, _, okB := f.Point(t.d.B)
	if !okA || !okB {
		return []float64{0}
	}
	n := t.d.Plane.Normal.Unit()
	if n.IsZero() {
		n = unitX
	}
	mid := a.Add(b).Scale(0.5)
	return []float64{mid.Sub(t.d.Plane.Origin).Dot(n)}
}

func (t symmetricTerm) Components(f *Frame) []assembly.ComponentID {
	return owners(f, t.d.A, t.d.B)
}
