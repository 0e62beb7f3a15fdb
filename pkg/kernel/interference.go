package kernel

import (
	"math"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// ContactTolerance is the overlap depth, in model units, below which two
// solids are considered touching rather than interfering.
const ContactTolerance = 1e-3

// interferenceSamples is the number of probe points per axis inside the
// overlap of two bounding boxes.
const interferenceSamples = 6

// Interference reports two components whose solids overlap.
type Interference struct {
	A     assembly.ComponentID `json:"a"`
	B     assembly.ComponentID `json:"b"`
	Depth float64              `json:"depth"` // deepest probe inside both solids
}

type placed struct {
	id       assembly.ComponentID
	solid    Solid
	min, max [3]float64
}

// Interferences reports pairs of leaf components whose solids overlap at
// the given positions. Components missing from positions use their
// declared position; components without a size are ignored. Faces that
// touch, or overlap by no more than ContactTolerance, are not reported.
//
// Candidate pairs come from bounding box overlap; each candidate is
// confirmed by probing the intersection solid on a grid.
func Interferences(k Kernel, a *assembly.Assembly, positions map[assembly.ComponentID]assembly.Vec3) ([]Interference, error) {
	ix := assembly.NewIndex(a)

	var solids []placed
	for _, id := range ix.IDs() {
		c, _ := ix.Component(id)
		if len(c.SubComponents) > 0 {
			continue
		}
		at, ok := positions[id]
		if !ok {
			at = c.Position
		}
		s, err := ComponentSolid(k, c, at)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		min, max := s.BoundingBox()
		solids = append(solids, placed{id: id, solid: s, min: min, max: max})
	}

	var out []Interference
	for i := 0; i < len(solids); i++ {
		for j := i + 1; j < len(solids); j++ {
			p, q := solids[i], solids[j]
			lo, hi, ok := overlap(p, q)
			if !ok {
				continue
			}
			if depth, hit := probe(k.Intersection(p.solid, q.solid), lo, hi); hit {
				out = append(out, Interference{A: p.id, B: q.id, Depth: depth})
			}
		}
	}
	return out, nil
}

// overlap returns the intersection of two bounding boxes, or false if it
// is no thicker than ContactTolerance along some axis.
func overlap(p, q placed) (lo, hi [3]float64, ok bool) {
	for i := 0; i < 3; i++ {
		lo[i] = math.Max(p.min[i], q.min[i])
		hi[i] = math.Min(p.max[i], q.max[i])
		if hi[i]-lo[i] <= ContactTolerance {
			return lo, hi, false
		}
	}
	return lo, hi, true
}

// probe samples s at cell centers of the box [lo, hi] and returns the
// deepest penetration found.
func probe(s Solid, lo, hi [3]float64) (float64, bool) {
	var step [3]float64
	for i := range step {
		step[i] = (hi[i] - lo[i]) / interferenceSamples
	}
	// Probes closer than this to the surface count as touching.
	eps := 1e-9 * math.Max(1, math.Max(math.Abs(hi[0]), math.Max(math.Abs(hi[1]), math.Abs(hi[2]))))

	depth, hit := 0.0, false
	for i := 0; i < interferenceSamples; i++ {
		for j := 0; j < interferenceSamples; j++ {
			for k := 0; k < interferenceSamples; k++ {
				p := [3]float64{
					lo[0] + (float64(i)+0.5)*step[0],
					lo[1] + (float64(j)+0.5)*step[1],
					lo[2] + (float64(k)+0.5)*step[2],
				}
				if d := s.Evaluate(p); d < -eps {
					hit = true
					depth = math.Max(depth, -d)
				}
			}
		}
	}
	return depth, hit
}
