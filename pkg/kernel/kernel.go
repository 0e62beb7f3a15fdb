// Package kernel defines the abstract geometry kernel interface and the
// geometric diagnostics built on it: component solids, anchor-point
// generation and interference detection between solved components.
// The kernel abstraction allows swapping backends without changing the
// rest of the system.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Evaluate returns the signed distance from p to the surface,
	// negative inside the solid.
	Evaluate(p [3]float64) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box returns a box with its minimum corner at the origin.
	Box(x, y, z float64) (Solid, error)

	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, X then Y then Z
}
