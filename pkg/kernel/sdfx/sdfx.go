// Package sdfx implements kernel.Kernel on top of the signed distance
// functions of github.com/deadsy/sdfx.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lignin-solve/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// solid adapts an sdf.SDF3 to kernel.Solid.
type solid struct {
	sdf.SDF3
}

func (s solid) BoundingBox() (min, max [3]float64) {
	bb := s.SDF3.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
}

func (s solid) Evaluate(p [3]float64) float64 {
	return s.SDF3.Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

func sdf3(s kernel.Solid) sdf.SDF3 {
	return s.(solid).SDF3
}

// Kernel builds component solids with sdfx. The zero value is ready to use.
type Kernel struct{}

// New returns an sdfx-backed kernel.
func New() *Kernel {
	return &Kernel{}
}

// Box returns an x by y by z box whose minimum corner sits at the origin.
// Non-positive or non-finite dimensions are an error.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	b, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx box %gx%gx%g: %w", x, y, z, err)
	}
	// Box3D is centered on the origin.
	return solid{sdf.Transform3D(b, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2}))}, nil
}

// Intersection returns the volume shared by a and b.
func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return solid{sdf.Intersect3D(sdf3(a), sdf3(b))}
}

// Translate moves s by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return solid{sdf.Transform3D(sdf3(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))}
}

// Rotate turns s about the origin by Euler angles in degrees, applied X
// first, then Y, then Z.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	if x == 0 && y == 0 && z == 0 {
		return s
	}
	m := sdf.RotateZ(radians(z)).Mul(sdf.RotateY(radians(y))).Mul(sdf.RotateX(radians(x)))
	return solid{sdf.Transform3D(sdf3(s), m)}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
