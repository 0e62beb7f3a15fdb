package constraint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

func pairAssembly(t *testing.T, a, b assembly.Vec3, cs ...assembly.Constraint) *assembly.Assembly {
	t.Helper()
	bld := assembly.NewBuilder("terms").Part("A", a).Part("B", b)
	for _, c := range cs {
		bld.Constrain(c)
	}
	asm, err := bld.Build()
	require.NoError(t, err)
	return asm
}

func residual(t *testing.T, asm *assembly.Assembly, i int) []float64 {
	t.Helper()
	ev := Compile(asm)
	f := ev.Frame(nil, nil)
	ent := ev.Entries()[i]
	require.NotNil(t, ent.Term)
	return ent.Term.Residual(f)
}

func TestFixedResidual(t *testing.T) {
	at := assembly.Vec3{X: 1, Y: 2, Z: 3}
	asm := pairAssembly(t, assembly.Vec3{X: 4, Y: 2, Z: 3}, assembly.Vec3{},
		assembly.Constraint{Data: assembly.Fixed{A: "A", At: &at}},
		assembly.Constraint{Data: assembly.Fixed{A: "B"}},
	)

	assert.Equal(t, []float64{3, 0, 0}, residual(t, asm, 0))

	// Without a target the seed is the reference, so the declared position
	// satisfies it exactly.
	assert.Equal(t, []float64{0, 0, 0}, residual(t, asm, 1))

	ev := Compile(asm)
	f := ev.Frame(Positions{"B": {Y: 5}}, nil)
	assert.Equal(t, []float64{0, 5, 0}, ev.Entries()[1].Term.Residual(f))
}

func TestDistanceResidual(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{}, assembly.Vec3{X: 3, Y: 4},
		assembly.Constraint{Data: assembly.Distance{A: "A", B: "B", Value: 10}},
	)
	r := residual(t, asm, 0)
	require.Len(t, r, 1)
	assert.InDelta(t, -5, r[0], 1e-12)
}

func TestCoincidentResidual(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{X: 1}, assembly.Vec3{Y: 1},
		assembly.Constraint{Data: assembly.Coincident{A: "A", B: "B"}},
	)
	assert.Equal(t, []float64{1, -1, 0}, residual(t, asm, 0))
}

func TestDirectionalResiduals(t *testing.T) {
	x := assembly.Vec3{X: 1}
	tests := []struct {
		name string
		b    assembly.Vec3
		data assembly.ConstraintData
		want float64
	}{
		{"parallel satisfied", assembly.Vec3{X: 10}, assembly.Parallel{A: "A", B: "B", Axis: x}, 0},
		{"parallel orthogonal", assembly.Vec3{Y: 10}, assembly.Parallel{A: "A", B: "B", Axis: x}, 1},
		{"parallel antiparallel", assembly.Vec3{X: -10}, assembly.Parallel{A: "A", B: "B", Axis: x}, 0},
		{"parallel default axis", assembly.Vec3{X: 5}, assembly.Parallel{A: "A", B: "B"}, 0},
		{"perpendicular satisfied", assembly.Vec3{Z: 7}, assembly.Perpendicular{A: "A", B: "B", Axis: x}, 0},
		{"perpendicular along axis", assembly.Vec3{X: 7}, assembly.Perpendicular{A: "A", B: "B", Axis: x}, 1},
		{"angle 45", assembly.Vec3{X: 1, Y: 1}, assembly.Angle{A: "A", B: "B", Degrees: 45, Axis: x}, 0},
		{"angle off by 45", assembly.Vec3{Y: 1}, assembly.Angle{A: "A", B: "B", Degrees: 45, Axis: x}, math.Pi / 4},
		{"coincident points", assembly.Vec3{}, assembly.Parallel{A: "A", B: "B", Axis: x}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := pairAssembly(t, assembly.Vec3{}, tt.b, assembly.Constraint{Data: tt.data})
			r := residual(t, asm, 0)
			require.Len(t, r, 1)
			assert.InDelta(t, tt.want, r[0], 1e-12)
		})
	}
}

func TestDirectionalDefaultAxisFollowsRotation(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{}, assembly.Vec3{Y: 10},
		assembly.Constraint{Data: assembly.Parallel{A: "A", B: "B"}},
	)
	asm.Components[0].Rotation = assembly.Vec3{Z: 90}
	r := residual(t, asm, 0)
	assert.InDelta(t, 0, r[0], 1e-12)
}

func TestTangentResidual(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{}, assembly.Vec3{X: 20},
		assembly.Constraint{Data: assembly.Tangent{A: "A", B: "B"}},
	)
	asm.Components[0].Size = &assembly.Vec3{X: 6, Y: 8}   // radius 5
	asm.Components[1].Size = &assembly.Vec3{X: 12, Y: 16} // radius 10
	r := residual(t, asm, 0)
	assert.InDelta(t, 5, r[0], 1e-12)
}

func TestSymmetricResidual(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{X: -10}, assembly.Vec3{X: 14},
		assembly.Constraint{Data: assembly.Symmetric{A: "A", B: "B"}},
		assembly.Constraint{Data: assembly.Symmetric{A: "A", B: "B", Plane: assembly.Plane{
			Origin: assembly.Vec3{X: 2},
			Normal: assembly.Vec3{X: 3},
		}}},
	)
	assert.InDelta(t, 2, residual(t, asm, 0)[0], 1e-12)
	assert.InDelta(t, 0, residual(t, asm, 1)[0], 1e-12)
}

func TestMissingReferenceGivesZeros(t *testing.T) {
	datas := []assembly.ConstraintData{
		assembly.Fixed{A: "ghost"},
		assembly.Distance{A: "A", B: "ghost", Value: 3},
		assembly.Coincident{A: "ghost", B: "B"},
		assembly.Parallel{A: "A", B: "ghost"},
		assembly.Perpendicular{A: "ghost", B: "B"},
		assembly.Angle{A: "A", B: "ghost", Degrees: 30},
		assembly.Tangent{A: "ghost", B: "B"},
		assembly.Symmetric{A: "A", B: "ghost"},
	}
	for _, d := range datas {
		t.Run(d.Kind().String(), func(t *testing.T) {
			asm := pairAssembly(t, assembly.Vec3{X: 1}, assembly.Vec3{Y: 1}, assembly.Constraint{Data: d})
			term, err := New(asm.Constraints[0])
			require.NoError(t, err)
			r := residual(t, asm, 0)
			assert.Len(t, r, term.Size())
			for _, v := range r {
				assert.Zero(t, v)
			}
		})
	}
}

func TestAnchorResidual(t *testing.T) {
	asm, err := assembly.NewBuilder("anchor").
		Part("A", assembly.Vec3{}).
		Part("B", assembly.Vec3{X: 100}).
		Anchor("B", assembly.AnchorPoint{ID: "B.left", Position: assembly.Vec3{X: 90}}).
		Coincident("A", "B.left").
		Build()
	require.NoError(t, err)

	ev := Compile(asm)
	f := ev.Frame(Positions{"B": {X: 10}}, nil)
	assert.Equal(t, []float64{0, 0, 0}, ev.Entries()[0].Term.Residual(f))
	assert.Equal(t, []assembly.ComponentID{"A", "B"}, ev.Entries()[0].Term.Components(f))
}

func TestNewRejectsMissingData(t *testing.T) {
	_, err := New(assembly.Constraint{ID: "empty"})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Analytic gradients agree with central differences
// ---------------------------------------------------------------------------

func numericPartials(f *Frame, term Term, ids []assembly.ComponentID) []Partial {
	const h = 1e-6
	rows := make([]Partial, term.Size())
	for i := range rows {
		rows[i] = Partial{}
	}
	for _, id := range ids {
		p0, _ := f.Position(id)
		for k := 0; k < 3; k++ {
			f.Set(id, p0.WithComponent(k, p0.Component(k)+h))
			plus := term.Residual(f)
			f.Set(id, p0.WithComponent(k, p0.Component(k)-h))
			minus := term.Residual(f)
			f.Set(id, p0)
			for i := range rows {
				rows[i][id] = rows[i][id].WithComponent(k, (plus[i]-minus[i])/(2*h))
			}
		}
	}
	return rows
}

func TestPartialsMatchFiniteDifferences(t *testing.T) {
	datas := []assembly.ConstraintData{
		assembly.Fixed{A: "A"},
		assembly.Distance{A: "A", B: "B", Value: 40},
		assembly.Coincident{A: "A", B: "B"},
	}
	for _, d := range datas {
		t.Run(d.Kind().String(), func(t *testing.T) {
			asm := pairAssembly(t, assembly.Vec3{X: 1, Y: 2, Z: 3}, assembly.Vec3{X: 20, Y: -7, Z: 11},
				assembly.Constraint{Data: d})
			ev := Compile(asm)
			f := ev.Frame(Positions{"A": {X: 2, Y: 1, Z: 3}, "B": {X: 20, Y: -7, Z: 11}}, nil)

			term := ev.Entries()[0].Term
			diff, ok := term.(Differentiable)
			require.True(t, ok, "%s should be differentiable", d.Kind())

			analytic := diff.Partials(f)
			numeric := numericPartials(f, term, []assembly.ComponentID{"A", "B"})
			require.Len(t, analytic, term.Size())
			for i := range analytic {
				for _, id := range []assembly.ComponentID{"A", "B"} {
					a, n := analytic[i][id], numeric[i][id]
					assert.InDelta(t, n.X, a.X, 1e-6, "row %d %s x", i, id)
					assert.InDelta(t, n.Y, a.Y, 1e-6, "row %d %s y", i, id)
					assert.InDelta(t, n.Z, a.Z, 1e-6, "row %d %s z", i, id)
				}
			}
		})
	}
}

func TestDistancePartialsAtCoincidentPoints(t *testing.T) {
	asm := pairAssembly(t, assembly.Vec3{}, assembly.Vec3{},
		assembly.Constraint{Data: assembly.Distance{A: "A", B: "B", Value: 10}})
	ev := Compile(asm)
	rows := ev.Entries()[0].Term.(Differentiable).Partials(ev.Frame(nil, nil))
	assert.Equal(t, assembly.Vec3{X: 1}, rows[0]["B"])
	assert.Equal(t, assembly.Vec3{X: -1}, rows[0]["A"])
}

func TestDirectionalTermsAreNumeric(t *testing.T) {
	for _, d := range []assembly.ConstraintData{
		assembly.Parallel{A: "A", B: "B"},
		assembly.Perpendicular{A: "A", B: "B"},
		assembly.Angle{A: "A", B: "B"},
		assembly.Tangent{A: "A", B: "B"},
		assembly.Symmetric{A: "A", B: "B"},
	} {
		term, err := New(assembly.Constraint{Data: d})
		require.NoError(t, err)
		_, ok := term.(Differentiable)
		assert.False(t, ok, "%s", d.Kind())
	}
}
