package constraint

import (
	"math"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// Entry is a compiled constraint: its residual term, the row offset of the
// term in the stacked residual vector, and its effective weight.
type Entry struct {
	Constraint assembly.Constraint
	Term       Term // nil when the constraint carries no data
	Offset     int
	Weight     float64
}

// Evaluator holds the compiled terms of an assembly, aligned with
// Assembly.AllConstraints.
type Evaluator struct {
	index   *assembly.Index
	entries []Entry
	rows    int
}

// Compile builds an evaluator for every constraint of a. Constraints
// without data compile to an empty entry that contributes no rows.
func Compile(a *assembly.Assembly) *Evaluator {
	e := &Evaluator{index: assembly.NewIndex(a)}
	if a == nil {
		return e
	}
	for _, c := range a.AllConstraints() {
		ent := Entry{Constraint: c, Offset: e.rows, Weight: c.EffectiveWeight()}
		if t, err := New(c); err == nil {
			ent.Term = t
			e.rows += t.Size()
		}
		e.entries = append(e.entries, ent)
	}
	return e
}

// Index returns the component index the evaluator was compiled against.
func (e *Evaluator) Index() *assembly.Index {
	return e.index
}

// Entries returns the compiled constraints in order.
func (e *Evaluator) Entries() []Entry {
	return e.entries
}

// Len returns the number of constraints.
func (e *Evaluator) Len() int {
	return len(e.entries)
}

// Rows returns the length of the stacked residual vector.
func (e *Evaluator) Rows() int {
	return e.rows
}

// Frame creates an evaluation frame over the evaluator's index.
func (e *Evaluator) Frame(positions, seeds Positions) *Frame {
	return NewFrame(e.index, positions, seeds)
}

// Residuals evaluates the stacked residual vector, each row scaled by the
// square root of its constraint's weight.
func (e *Evaluator) Residuals(f *Frame) []float64 {
	r := make([]float64, e.rows)
	for _, ent := range e.entries {
		if ent.Term == nil {
			continue
		}
		s := math.Sqrt(ent.Weight)
		for i, v := range ent.Term.Residual(f) {
			r[ent.Offset+i] = v * s
		}
	}
	return r
}

// Violations returns the unweighted residual magnitude of each constraint,
// aligned with Assembly.AllConstraints.
func (e *Evaluator) Violations(f *Frame) []float64 {
	out := make([]float64, len(e.entries))
	for i, ent := range e.entries {
		if ent.Term == nil {
			continue
		}
		out[i] = Magnitude(ent.Term.Residual(f))
	}
	return out
}

// Components returns every component some term depends on, in order of
// first reference.
func (e *Evaluator) Components(f *Frame) []assembly.ComponentID {
	seen := make(map[assembly.ComponentID]bool)
	var ids []assembly.ComponentID
	for _, ent := range e.entries {
		if ent.Term == nil {
			continue
		}
		for _, id := range ent.Term.Components(f) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Magnitude returns the Euclidean norm of r without intermediate overflow.
func Magnitude(r []float64) float64 {
	n := 0.0
	for _, v := range r {
		n = math.Hypot(n, v)
	}
	return n
}

// RMS returns the root mean square of r, scaling by the largest magnitude
// so that huge residuals do not overflow. NaN entries yield +Inf.
func RMS(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	scale := 0.0
	for _, v := range r {
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		return 0
	}
	if math.IsInf(scale, 0) {
		return math.Inf(1)
	}
	sum := 0.0
	for _, v := range r {
		q := v / scale
		sum += q * q
	}
	return scale * math.Sqrt(sum/float64(len(r)))
}
