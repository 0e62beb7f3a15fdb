package assembly

import "math"

// nearZero is the length below which a vector has no usable direction.
const nearZero = 1e-12

// Vec3 is a point or vector in 3D space, in millimetres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean length of v. It does not overflow for
// components near the float64 range.
func (v Vec3) Norm() float64 {
	return math.Hypot(math.Hypot(v.X, v.Y), v.Z)
}

// Unit returns v scaled to length 1, or the zero vector when v is too short
// to have a direction.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n < nearZero || math.IsInf(n, 0) || math.IsNaN(n) {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Component returns the i-th coordinate (0=X, 1=Y, 2=Z).
func (v Vec3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the i-th coordinate replaced.
func (v Vec3) WithComponent(i int, f float64) Vec3 {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// Rotate rotates v by Euler angles given in degrees. The X rotation is
// applied first, then Y, then Z, matching the geometry kernel.
func (v Vec3) Rotate(euler Vec3) Vec3 {
	if euler.IsZero() {
		return v
	}
	x, y, z := euler.X*math.Pi/180, euler.Y*math.Pi/180, euler.Z*math.Pi/180

	// about X
	sx, cx := math.Sincos(x)
	v = Vec3{v.X, v.Y*cx - v.Z*sx, v.Y*sx + v.Z*cx}
	// about Y
	sy, cy := math.Sincos(y)
	v = Vec3{v.X*cy + v.Z*sy, v.Y, -v.X*sy + v.Z*cy}
	// about Z
	sz, cz := math.Sincos(z)
	return Vec3{v.X*cz - v.Y*sz, v.X*sz + v.Y*cz, v.Z}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
