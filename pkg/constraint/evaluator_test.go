package constraint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

func TestCompileAlignment(t *testing.T) {
	asm, err := assembly.NewBuilder("frame").
		Part("A", assembly.Vec3{}).
		Part("B", assembly.Vec3{X: 50}).
		Fixed("A").
		Distance("A", "B", 100).
		Build()
	require.NoError(t, err)
	asm.Components[1].Constraints = []assembly.Constraint{
		{ID: "local", Weight: 4, Data: assembly.Coincident{A: "B", B: "A"}},
	}

	ev := Compile(asm)
	require.Equal(t, 3, ev.Len())
	assert.Equal(t, 7, ev.Rows())

	offsets := []int{0, 3, 4}
	for i, ent := range ev.Entries() {
		assert.Equal(t, offsets[i], ent.Offset)
	}
	assert.Equal(t, "local", ev.Entries()[2].Constraint.ID)

	f := ev.Frame(nil, nil)
	r := ev.Residuals(f)
	require.Len(t, r, 7)
	assert.InDelta(t, -50, r[3], 1e-12)
	// weight 4 scales rows by 2
	assert.InDelta(t, 100, r[4], 1e-12)

	v := ev.Violations(f)
	require.Len(t, v, 3)
	assert.InDelta(t, 0, v[0], 1e-12)
	assert.InDelta(t, 50, v[1], 1e-12)
	assert.InDelta(t, 50, v[2], 1e-12)

	assert.Equal(t, []assembly.ComponentID{"A", "B"}, ev.Components(f))
}

func TestCompileNilAndEmpty(t *testing.T) {
	ev := Compile(nil)
	assert.Zero(t, ev.Len())
	assert.Zero(t, ev.Rows())

	asm := assembly.New("empty")
	asm.Constraints = []assembly.Constraint{{ID: "no-data"}}
	ev = Compile(asm)
	assert.Equal(t, 1, ev.Len())
	assert.Zero(t, ev.Rows())
	assert.Equal(t, []float64{0}, ev.Violations(ev.Frame(nil, nil)))
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.Zero(t, RMS([]float64{0, 0}))
	assert.InDelta(t, math.Sqrt(12.5), RMS([]float64{3, 4}), 1e-12)

	big := RMS([]float64{1e300, 1e300})
	assert.False(t, math.IsInf(big, 0))
	assert.InDelta(t, 1e300, big, 1e288)

	assert.True(t, math.IsInf(RMS([]float64{math.NaN()}), 1))
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5, Magnitude([]float64{3, 4}), 1e-12)
	assert.Zero(t, Magnitude(nil))
}
