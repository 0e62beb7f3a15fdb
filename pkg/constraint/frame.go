package constraint

import "github.com/chazu/lignin-solve/pkg/assembly"

// Positions maps component IDs to candidate positions.
type Positions = map[assembly.ComponentID]assembly.Vec3

// Frame is the evaluation context for residual terms: the component index
// plus a set of candidate positions and the seed positions FIXED terms
// ground against. Components missing from either map fall back to their
// declared Position in the assembly.
//
// A Frame is not safe for concurrent use; Set mutates it in place.
type Frame struct {
	index     *assembly.Index
	positions Positions
	seeds     Positions
}

// NewFrame creates a frame over positions. The maps are used directly, not
// copied; seeds may be nil.
func NewFrame(index *assembly.Index, positions, seeds Positions) *Frame {
	if positions == nil {
		positions = make(Positions)
	}
	return &Frame{index: index, positions: positions, seeds: seeds}
}

// Index returns the component index backing the frame.
func (f *Frame) Index() *assembly.Index {
	return f.index
}

// Position returns the candidate position of a component.
func (f *Frame) Position(id assembly.ComponentID) (assembly.Vec3, bool) {
	if p, ok := f.positions[id]; ok {
		return p, true
	}
	if c, ok := f.index.Component(id); ok {
		return c.Position, true
	}
	return assembly.Vec3{}, false
}

// Set replaces the candidate position of a component.
func (f *Frame) Set(id assembly.ComponentID, p assembly.Vec3) {
	f.positions[id] = p
}

// Point resolves an element (component or anchor) to a world-space point
// and the component that carries it.
func (f *Frame) Point(e assembly.ElementID) (assembly.Vec3, assembly.ComponentID, bool) {
	id, offset, ok := f.index.Resolve(e)
	if !ok {
		return assembly.Vec3{}, "", false
	}
	p, ok := f.Position(id)
	if !ok {
		return assembly.Vec3{}, "", false
	}
	return p.Add(offset), id, true
}

// SeedPoint resolves an element against the seed positions.
func (f *Frame) SeedPoint(e assembly.ElementID) (assembly.Vec3, bool) {
	id, offset, ok := f.index.Resolve(e)
	if !ok {
		return assembly.Vec3{}, false
	}
	if p, ok := f.seeds[id]; ok {
		return p.Add(offset), true
	}
	c, ok := f.index.Component(id)
	if !ok {
		return assembly.Vec3{}, false
	}
	return c.Position.Add(offset), true
}

// Component returns the component with the given ID.
func (f *Frame) Component(id assembly.ComponentID) (*assembly.Component, bool) {
	return f.index.Component(id)
}
