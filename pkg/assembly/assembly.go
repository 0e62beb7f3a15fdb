package assembly

import (
	"time"

	"github.com/google/uuid"
)

// Metadata describes an assembly's provenance.
type Metadata struct {
	Version     string    `json:"version"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Assembly is the top-level aggregate handed to the validator and solver.
// Dirty and Valid are advisory flags maintained by callers.
type Assembly struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Components  []*Component `json:"components"`
	Constraints []Constraint `json:"constraints"`
	Metadata    Metadata     `json:"metadata"`
	Dirty       bool         `json:"dirty"`
	Valid       bool         `json:"valid"`
}

// New creates an empty assembly with a generated ID.
func New(name string) *Assembly {
	now := time.Now().UTC()
	return &Assembly{
		ID:   NewID(),
		Name: name,
		Metadata: Metadata{
			Version:  "1",
			Created:  now,
			Modified: now,
		},
	}
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// Walk visits every component depth-first, parents before children. The
// parent argument is nil for top-level components. Returning false from fn
// skips the component's children.
func (a *Assembly) Walk(fn func(c, parent *Component) bool) {
	var visit func(c, parent *Component)
	visit = func(c, parent *Component) {
		if c == nil {
			return
		}
		if !fn(c, parent) {
			return
		}
		for _, sub := range c.SubComponents {
			visit(sub, c)
		}
	}
	for _, c := range a.Components {
		visit(c, nil)
	}
}

// ComponentCount returns the number of components including nested ones.
func (a *Assembly) ComponentCount() int {
	n := 0
	a.Walk(func(*Component, *Component) bool {
		n++
		return true
	})
	return n
}

// AllConstraints returns the global constraints followed by every
// component-local constraint in depth-first component order. Solver
// residuals and checker results are aligned with this slice.
func (a *Assembly) AllConstraints() []Constraint {
	all := make([]Constraint, 0, len(a.Constraints))
	all = append(all, a.Constraints...)
	a.Walk(func(c, _ *Component) bool {
		all = append(all, c.Constraints...)
		return true
	})
	return all
}

// Positions returns the current position of every component.
func (a *Assembly) Positions() map[ComponentID]Vec3 {
	pos := make(map[ComponentID]Vec3)
	a.Walk(func(c, _ *Component) bool {
		pos[c.ID] = c.Position
		return true
	})
	return pos
}

// ApplyPositions writes solved positions back onto the components they
// name, shifting their anchor points by the same amount, marks the assembly
// dirty, and returns how many components moved. IDs that do not name a
// component are ignored.
func (a *Assembly) ApplyPositions(pos map[ComponentID]Vec3) int {
	delta := map[ComponentID]Vec3{}
	a.Walk(func(c, _ *Component) bool {
		if p, ok := pos[c.ID]; ok && p != c.Position {
			delta[c.ID] = p.Sub(c.Position)
			c.Position = p
		}
		return true
	})
	if len(delta) == 0 {
		return 0
	}

	// Anchors travel with their owning component.
	a.Walk(func(c, _ *Component) bool {
		for i := range c.AnchorPoints {
			owner := c.AnchorPoints[i].ComponentID
			if owner == "" {
				owner = c.ID
			}
			if d, ok := delta[owner]; ok {
				c.AnchorPoints[i].Position = c.AnchorPoints[i].Position.Add(d)
			}
		}
		return true
	})

	a.Dirty = true
	a.Metadata.Modified = time.Now().UTC()
	return len(delta)
}

// setConstraint updates the i-th entry of AllConstraints in place.
func (a *Assembly) setConstraint(i int, fn func(*Constraint)) bool {
	if i < len(a.Constraints) {
		fn(&a.Constraints[i])
		return true
	}
	i -= len(a.Constraints)
	found := false
	a.Walk(func(c, _ *Component) bool {
		if found {
			return false
		}
		if i < len(c.Constraints) {
			fn(&c.Constraints[i])
			found = true
			return false
		}
		i -= len(c.Constraints)
		return true
	})
	return found
}

// RecordCheck stores a post-solve check result on the i-th entry of
// AllConstraints. It reports false when i is out of range.
func (a *Assembly) RecordCheck(i int, satisfied bool, err float64) bool {
	return a.setConstraint(i, func(c *Constraint) {
		c.Satisfied = satisfied
		c.Error = err
		c.Checked = true
	})
}
