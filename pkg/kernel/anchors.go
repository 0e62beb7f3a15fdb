package kernel

import (
	"fmt"
	"math"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// surfaceTolerance is the relative distance an anchor may sit off the
// solid's surface.
const surfaceTolerance = 1e-6

// Anchors derives the box features of a component as anchor points in
// world space: 8 vertices, 12 edge centers and 6 face centers, the latter
// carrying outward normals. Vertices and edges are numbered
// ("<component>.v0", "<component>.e0"); faces are named after the local
// side they cover ("<component>.xmin" ... "<component>.zmax"). Each point is checked against the component's
// solid so that anchors and interference geometry agree.
func Anchors(k Kernel, c *assembly.Component) ([]assembly.AnchorPoint, error) {
	e, ok := Extent(c)
	if !ok {
		return nil, fmt.Errorf("component %q has no size", idOf(c))
	}
	solid, err := ComponentSolid(k, c, c.Position)
	if err != nil {
		return nil, err
	}

	half := e.Scale(0.5)
	var out []assembly.AnchorPoint
	counts := map[assembly.AnchorKind]int{}
	add := func(kind assembly.AnchorKind, name string, local assembly.Vec3, normal *assembly.Vec3) {
		if name == "" {
			prefix := "v"
			if kind == assembly.AnchorEdgeCenter {
				prefix = "e"
			}
			name = fmt.Sprintf("%s%d", prefix, counts[kind])
		}
		counts[kind]++
		ap := assembly.AnchorPoint{
			ID:          assembly.ElementID(fmt.Sprintf("%s.%s", c.ID, name)),
			Kind:        kind,
			Position:    c.Position.Add(local.Rotate(c.Rotation)),
			ComponentID: c.ID,
		}
		if normal != nil {
			w := normal.Rotate(c.Rotation)
			ap.Normal = &w
		}
		out = append(out, ap)
	}

	// Each local coordinate is -1, 0 or +1 times the half extent. The number
	// of zero coordinates selects the feature: none for a vertex, one for an
	// edge center, two for a face center.
	signs := []float64{-1, 0, 1}
	for _, zeros := range []int{0, 1, 2} {
		for _, sx := range signs {
			for _, sy := range signs {
				for _, sz := range signs {
					if countZero(sx, sy, sz) != zeros {
						continue
					}
					local := assembly.Vec3{X: sx * half.X, Y: sy * half.Y, Z: sz * half.Z}
					switch zeros {
					case 0:
						add(assembly.AnchorVertex, "", local, nil)
					case 1:
						add(assembly.AnchorEdgeCenter, "", local, nil)
					case 2:
						n := assembly.Vec3{X: sx, Y: sy, Z: sz}
						add(assembly.AnchorFaceCenter, faceName(n), local, &n)
					}
				}
			}
		}
	}

	tol := surfaceTolerance * math.Max(1, e.Norm())
	for _, ap := range out {
		if d := solid.Evaluate(point(ap.Position)); math.Abs(d) > tol {
			return nil, fmt.Errorf("anchor %q is %g off the surface of %q", ap.ID, d, c.ID)
		}
	}
	return out, nil
}

// faceName names the box side whose outward normal is n.
func faceName(n assembly.Vec3) string {
	side := "max"
	if n.X+n.Y+n.Z < 0 {
		side = "min"
	}
	switch {
	case n.X != 0:
		return "x" + side
	case n.Y != 0:
		return "y" + side
	default:
		return "z" + side
	}
}

func countZero(v ...float64) int {
	n := 0
	for _, f := range v {
		if f == 0 {
			n++
		}
	}
	return n
}

func idOf(c *assembly.Component) assembly.ComponentID {
	if c == nil {
		return ""
	}
	return c.ID
}
