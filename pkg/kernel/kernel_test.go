package kernel

import (
	"math"
	"testing"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// --- Axis-aligned stub kernel ---

// stubSolid is an axis-aligned box with an exact signed distance.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func (s *stubSolid) Evaluate(p [3]float64) float64 {
	var outside, inside float64
	inside = math.Inf(-1)
	for i := 0; i < 3; i++ {
		c := (s.minBB[i] + s.maxBB[i]) / 2
		h := (s.maxBB[i] - s.minBB[i]) / 2
		q := math.Abs(p[i]-c) - h
		outside += math.Max(q, 0) * math.Max(q, 0)
		inside = math.Max(inside, q)
	}
	return math.Sqrt(outside) + math.Min(inside, 0)
}

// stubIntersection evaluates as the max of its operands.
type stubIntersection struct {
	a, b Solid
}

func (s *stubIntersection) BoundingBox() (min, max [3]float64) {
	amin, amax := s.a.BoundingBox()
	bmin, bmax := s.b.BoundingBox()
	for i := 0; i < 3; i++ {
		min[i] = math.Max(amin[i], bmin[i])
		max[i] = math.Min(amax[i], bmax[i])
	}
	return min, max
}

func (s *stubIntersection) Evaluate(p [3]float64) float64 {
	return math.Max(s.a.Evaluate(p), s.b.Evaluate(p))
}

// stubKernel ignores rotation; it only serves axis-aligned tests.
type stubKernel struct {
	boxes int
}

func (k *stubKernel) Box(x, y, z float64) (Solid, error) {
	k.boxes++
	return &stubSolid{maxBB: [3]float64{x, y, z}}, nil
}

func (k *stubKernel) Intersection(a, b Solid) Solid {
	return &stubIntersection{a: a, b: b}
}

func (k *stubKernel) Translate(s Solid, x, y, z float64) Solid {
	b := s.(*stubSolid)
	d := [3]float64{x, y, z}
	out := &stubSolid{}
	for i := 0; i < 3; i++ {
		out.minBB[i] = b.minBB[i] + d[i]
		out.maxBB[i] = b.maxBB[i] + d[i]
	}
	return out
}

func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid { return s }

var _ Kernel = (*stubKernel)(nil)

func vec(x, y, z float64) *assembly.Vec3 {
	return &assembly.Vec3{X: x, Y: y, Z: z}
}

// --- Extent / ComponentSolid ---

func TestExtent(t *testing.T) {
	tests := []struct {
		name string
		c    *assembly.Component
		want assembly.Vec3
		ok   bool
	}{
		{"nil component", nil, assembly.Vec3{}, false},
		{"no size", &assembly.Component{ID: "a"}, assembly.Vec3{}, false},
		{"size", &assembly.Component{Size: vec(1, 2, 3)}, assembly.Vec3{X: 1, Y: 2, Z: 3}, true},
		{"scaled", &assembly.Component{Size: vec(1, 2, 3), Scale: vec(2, 2, 0.5)}, assembly.Vec3{X: 2, Y: 4, Z: 1.5}, true},
		{"flat", &assembly.Component{Size: vec(1, 0, 3)}, assembly.Vec3{}, false},
		{"non-finite", &assembly.Component{Size: vec(1, math.NaN(), 3)}, assembly.Vec3{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extent(tt.c)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Extent() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestComponentSolidCentered(t *testing.T) {
	k := &stubKernel{}
	c := &assembly.Component{ID: "a", Size: vec(10, 20, 30)}
	s, err := ComponentSolid(k, c, assembly.Vec3{X: 100})
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{95, -10, -15} || max != [3]float64{105, 10, 15} {
		t.Errorf("bounds = %v %v", min, max)
	}

	none, err := ComponentSolid(k, &assembly.Component{ID: "b"}, assembly.Vec3{})
	if err != nil || none != nil {
		t.Errorf("unsized component: got %v, %v", none, err)
	}
}

// --- Anchors ---

func TestAnchors(t *testing.T) {
	c := &assembly.Component{ID: "side", Position: assembly.Vec3{X: 1, Y: 2, Z: 3}, Size: vec(2, 4, 6)}
	aps, err := Anchors(&stubKernel{}, c)
	if err != nil {
		t.Fatalf("Anchors: %v", err)
	}

	counts := map[assembly.AnchorKind]int{}
	ids := map[assembly.ElementID]bool{}
	for _, ap := range aps {
		counts[ap.Kind]++
		ids[ap.ID] = true
		if ap.ComponentID != "side" {
			t.Errorf("%s owner = %q", ap.ID, ap.ComponentID)
		}
		if (ap.Kind == assembly.AnchorFaceCenter) != (ap.Normal != nil) {
			t.Errorf("%s: normal presence does not match kind %s", ap.ID, ap.Kind)
		}
	}
	if counts[assembly.AnchorVertex] != 8 || counts[assembly.AnchorEdgeCenter] != 12 || counts[assembly.AnchorFaceCenter] != 6 {
		t.Errorf("counts = %v", counts)
	}
	if len(ids) != len(aps) {
		t.Errorf("anchor ids are not unique")
	}

	// The first vertex is the minimum corner.
	if aps[0].ID != "side.v0" || aps[0].Position != (assembly.Vec3{X: 0, Y: 0, Z: 0}) {
		t.Errorf("first anchor = %+v", aps[0])
	}
	// Face normals point away from the center.
	for _, ap := range aps {
		if ap.Normal == nil {
			continue
		}
		out := ap.Position.Sub(c.Position)
		if out.Dot(*ap.Normal) <= 0 {
			t.Errorf("%s normal %+v points inward", ap.ID, *ap.Normal)
		}
	}
}

func TestAnchorsResolveThroughIndex(t *testing.T) {
	c := &assembly.Component{ID: "side", Position: assembly.Vec3{X: 10}, Size: vec(2, 2, 2)}
	aps, err := Anchors(&stubKernel{}, c)
	if err != nil {
		t.Fatal(err)
	}
	c.AnchorPoints = aps

	a := assembly.New("t")
	a.Components = []*assembly.Component{c}
	ix := assembly.NewIndex(a)
	owner, off, ok := ix.Resolve(aps[0].ID)
	if !ok || owner != "side" {
		t.Fatalf("resolve = %q, %v", owner, ok)
	}
	if off != (assembly.Vec3{X: -1, Y: -1, Z: -1}) {
		t.Errorf("offset = %+v", off)
	}
}

func TestAnchorsNoSize(t *testing.T) {
	if _, err := Anchors(&stubKernel{}, &assembly.Component{ID: "x"}); err == nil {
		t.Error("expected error for component without size")
	}
}

// --- Interferences ---

func TestInterferences(t *testing.T) {
	a := assembly.New("t")
	a.Components = []*assembly.Component{
		{ID: "a", Size: vec(10, 10, 10)},
		{ID: "b", Position: assembly.Vec3{X: 8}, Size: vec(10, 10, 10)},
		{ID: "c", Position: assembly.Vec3{X: 30}, Size: vec(10, 10, 10)},
		{ID: "ghost"},
	}

	got, err := Interferences(&stubKernel{}, a, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].A != "a" || got[0].B != "b" {
		t.Fatalf("interferences = %+v, want a/b", got)
	}
	if got[0].Depth <= 0 || got[0].Depth > 1 {
		t.Errorf("depth = %f, want in (0, 1]", got[0].Depth)
	}

	// Moving b to touch a face clears the overlap.
	got, err = Interferences(&stubKernel{}, a, map[assembly.ComponentID]assembly.Vec3{"b": {X: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("touching faces reported as interference: %+v", got)
	}

	// Overlaps within ContactTolerance count as touching.
	got, err = Interferences(&stubKernel{}, a, map[assembly.ComponentID]assembly.Vec3{"b": {X: 10 - ContactTolerance/2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("contact within tolerance reported as interference: %+v", got)
	}
}

func TestInterferencesSkipsContainers(t *testing.T) {
	inner := &assembly.Component{ID: "inner", Size: vec(5, 5, 5), ParentID: "outer"}
	outer := &assembly.Component{ID: "outer", Size: vec(10, 10, 10), SubComponents: []*assembly.Component{inner}}
	a := assembly.New("t")
	a.Components = []*assembly.Component{outer}

	got, err := Interferences(&stubKernel{}, a, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("container overlapping its child was reported: %+v", got)
	}
}

func TestInterferencesEmpty(t *testing.T) {
	got, err := Interferences(&stubKernel{}, nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("nil assembly: %v, %v", got, err)
	}
}

func TestAnchorFaceNames(t *testing.T) {
	c := &assembly.Component{ID: "top", Size: vec(10, 10, 2)}
	aps, err := Anchors(&stubKernel{}, c)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[assembly.ElementID]assembly.AnchorPoint{}
	for _, ap := range aps {
		byID[ap.ID] = ap
	}
	want := map[assembly.ElementID]assembly.Vec3{
		"top.xmin": {X: -5},
		"top.xmax": {X: 5},
		"top.ymin": {Y: -5},
		"top.ymax": {Y: 5},
		"top.zmin": {Z: -1},
		"top.zmax": {Z: 1},
	}
	for id, pos := range want {
		ap, ok := byID[id]
		if !ok {
			t.Errorf("missing face anchor %s", id)
			continue
		}
		if ap.Position != pos {
			t.Errorf("%s position = %+v, want %+v", id, ap.Position, pos)
		}
	}
	if _, ok := byID["top.v7"]; !ok {
		t.Error("missing vertex top.v7")
	}
	if _, ok := byID["top.e11"]; !ok {
		t.Error("missing edge top.e11")
	}
}
