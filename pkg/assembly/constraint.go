package assembly

import (
	"fmt"
	"math"
)

// DefaultWeight is the weight of a constraint that does not set one.
const DefaultWeight = 1.0

// ConstraintKind enumerates the geometric relationships the solver knows.
type ConstraintKind int

const (
	KindFixed ConstraintKind = iota
	KindDistance
	KindCoincident
	KindParallel
	KindPerpendicular
	KindAngle
	KindTangent
	KindSymmetric
)

// KindInvalid is the kind of a constraint without a payload. It grounds
// nothing and consumes no degrees of freedom.
const KindInvalid ConstraintKind = -1

func (k ConstraintKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindDistance:
		return "distance"
	case KindCoincident:
		return "coincident"
	case KindParallel:
		return "parallel"
	case KindPerpendicular:
		return "perpendicular"
	case KindAngle:
		return "angle"
	case KindTangent:
		return "tangent"
	case KindSymmetric:
		return "symmetric"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

// DOF returns the number of translational degrees of freedom a constraint
// of this kind is counted as consuming. The table is a naive count: it does
// not recognise redundant constraints.
func (k ConstraintKind) DOF() int {
	switch k {
	case KindFixed, KindCoincident:
		return 3
	case KindInvalid:
		return 0
	default:
		return 1
	}
}

// Constraint is a declared relationship between one or two elements.
// Satisfied, Error and Checked are only populated by a post-solve check.
type Constraint struct {
	ID        string         `json:"id"`
	Weight    float64        `json:"weight"`
	Tolerance float64        `json:"tolerance,omitempty"` // 0 = checker default
	Data      ConstraintData `json:"data"`

	Satisfied bool    `json:"satisfied"`
	Error     float64 `json:"error"`
	Checked   bool    `json:"checked"`
}

// Kind returns the kind of the constraint's payload, or KindInvalid when
// Data is nil.
func (c Constraint) Kind() ConstraintKind {
	if c.Data == nil {
		return KindInvalid
	}
	return c.Data.Kind()
}

// Elements returns the elements the constraint refers to, A first.
func (c Constraint) Elements() []ElementID {
	if c.Data == nil {
		return nil
	}
	return c.Data.Elements()
}

// EffectiveWeight returns Weight, or DefaultWeight when Weight is not a
// strictly positive finite number.
func (c Constraint) EffectiveWeight() float64 {
	if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
		return DefaultWeight
	}
	return c.Weight
}

// ConstraintData is the kind-specific payload of a constraint. Each kind
// carries exactly the elements and values meaningful for it.
type ConstraintData interface {
	Kind() ConstraintKind
	Elements() []ElementID
	constraintData() // marker method restricting implementations to this package
}

// ---------------------------------------------------------------------------
// Grounding
// ---------------------------------------------------------------------------

// Fixed anchors A at a known position: At when set, otherwise the position
// A had when the solve started.
type Fixed struct {
	A  ElementID `json:"a"`
	At *Vec3     `json:"at,omitempty"`
}

func (Fixed) constraintData()         {}
func (Fixed) Kind() ConstraintKind    { return KindFixed }
func (d Fixed) Elements() []ElementID { return []ElementID{d.A} }

// ---------------------------------------------------------------------------
// Positional relationships
// ---------------------------------------------------------------------------

// Distance keeps A and B Value millimetres apart.
type Distance struct {
	A     ElementID `json:"a"`
	B     ElementID `json:"b"`
	Value float64   `json:"value"`
}

func (Distance) constraintData()         {}
func (Distance) Kind() ConstraintKind    { return KindDistance }
func (d Distance) Elements() []ElementID { return []ElementID{d.A, d.B} }

// Coincident places A and B at the same point.
type Coincident struct {
	A ElementID `json:"a"`
	B ElementID `json:"b"`
}

func (Coincident) constraintData()         {}
func (Coincident) Kind() ConstraintKind    { return KindCoincident }
func (d Coincident) Elements() []ElementID { return []ElementID{d.A, d.B} }

// Tangent places B in contact with A, treating both as bounding spheres.
type Tangent struct {
	A ElementID `json:"a"`
	B ElementID `json:"b"`
}

func (Tangent) constraintData()         {}
func (Tangent) Kind() ConstraintKind    { return KindTangent }
func (d Tangent) Elements() []ElementID { return []ElementID{d.A, d.B} }

// Plane is an infinite plane given by a point and a normal.
type Plane struct {
	Origin Vec3 `json:"origin"`
	Normal Vec3 `json:"normal"`
}

// Symmetric mirrors A and B about Plane. Only the midpoint condition is
// enforced. A zero Plane means the plane x = 0.
type Symmetric struct {
	A     ElementID `json:"a"`
	B     ElementID `json:"b"`
	Plane Plane     `json:"plane"`
}

func (Symmetric) constraintData()         {}
func (Symmetric) Kind() ConstraintKind    { return KindSymmetric }
func (d Symmetric) Elements() []ElementID { return []ElementID{d.A, d.B} }

// ---------------------------------------------------------------------------
// Directional relationships
//
// Orientation is not solved, so these compare the direction from A to B with
// a reference axis: Axis when non-zero, otherwise A's rotated +X axis.
// ---------------------------------------------------------------------------

// Parallel keeps the direction A->B parallel to the reference axis.
type Parallel struct {
	A    ElementID `json:"a"`
	B    ElementID `json:"b"`
	Axis Vec3      `json:"axis"`
}

func (Parallel) constraintData()         {}
func (Parallel) Kind() ConstraintKind    { return KindParallel }
func (d Parallel) Elements() []ElementID { return []ElementID{d.A, d.B} }

// Perpendicular keeps the direction A->B perpendicular to the reference axis.
type Perpendicular struct {
	A    ElementID `json:"a"`
	B    ElementID `json:"b"`
	Axis Vec3      `json:"axis"`
}

func (Perpendicular) constraintData()         {}
func (Perpendicular) Kind() ConstraintKind    { return KindPerpendicular }
func (d Perpendicular) Elements() []ElementID { return []ElementID{d.A, d.B} }

// Angle keeps the direction A->B at Degrees from the reference axis.
type Angle struct {
	A       ElementID `json:"a"`
	B       ElementID `json:"b"`
	Degrees float64   `json:"degrees"`
	Axis    Vec3      `json:"axis"`
}

func (Angle) constraintData()         {}
func (Angle) Kind() ConstraintKind    { return KindAngle }
func (d Angle) Elements() []ElementID { return []ElementID{d.A, d.B} }
