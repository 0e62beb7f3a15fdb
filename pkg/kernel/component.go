package kernel

import (
	"fmt"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// Extent returns the component's box dimensions (Size scaled by Scale),
// or false when the component has no usable size.
func Extent(c *assembly.Component) (assembly.Vec3, bool) {
	if c == nil || c.Size == nil {
		return assembly.Vec3{}, false
	}
	e := *c.Size
	if c.Scale != nil {
		e = assembly.Vec3{X: e.X * c.Scale.X, Y: e.Y * c.Scale.Y, Z: e.Z * c.Scale.Z}
	}
	if !e.IsFinite() || e.X <= 0 || e.Y <= 0 || e.Z <= 0 {
		return assembly.Vec3{}, false
	}
	return e, true
}

// ComponentSolid builds the component's box centered on at and rotated by
// the component's Rotation. It returns nil without error for components
// that have no size.
func ComponentSolid(k Kernel, c *assembly.Component, at assembly.Vec3) (Solid, error) {
	e, ok := Extent(c)
	if !ok {
		return nil, nil
	}
	box, err := k.Box(e.X, e.Y, e.Z)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", c.ID, err)
	}
	s := k.Translate(box, -e.X/2, -e.Y/2, -e.Z/2)
	if !c.Rotation.IsZero() {
		s = k.Rotate(s, c.Rotation.X, c.Rotation.Y, c.Rotation.Z)
	}
	return k.Translate(s, at.X, at.Y, at.Z), nil
}

func point(v assembly.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
