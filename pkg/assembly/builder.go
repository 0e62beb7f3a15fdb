package assembly

import "fmt"

// Builder provides a fluent API for building assemblies. The first error
// encountered is kept and returned by Build; later calls become no-ops.
type Builder struct {
	asm  *Assembly
	byID map[ComponentID]*Component
	err  error
}

// NewBuilder starts a new assembly with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		asm:  New(name),
		byID: make(map[ComponentID]*Component),
	}
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// Lookup returns a component added to the builder, at any depth.
func (b *Builder) Lookup(id ComponentID) *Component {
	return b.byID[id]
}

// Component adds c as a top-level component. An empty ID is replaced with a
// generated one; a duplicate ID is an error.
func (b *Builder) Component(c *Component) *Builder {
	if b.err != nil {
		return b
	}
	if c == nil {
		return b.fail("component is nil")
	}
	if c.ID == "" {
		c.ID = ComponentID(NewID())
	}
	if _, exists := b.byID[c.ID]; exists {
		return b.fail("component %q already defined", c.ID)
	}
	b.byID[c.ID] = c
	for _, sub := range c.SubComponents {
		b.register(sub, c.ID)
	}
	b.asm.Components = append(b.asm.Components, c)
	return b
}

func (b *Builder) register(c *Component, parent ComponentID) {
	if c == nil || b.err != nil {
		return
	}
	if _, exists := b.byID[c.ID]; exists {
		b.fail("component %q already defined", c.ID)
		return
	}
	c.ParentID = parent
	b.byID[c.ID] = c
	for _, sub := range c.SubComponents {
		b.register(sub, c.ID)
	}
}

// Part adds a top-level part at the given position.
func (b *Builder) Part(id ComponentID, at Vec3) *Builder {
	return b.Component(&Component{ID: id, Name: string(id), Type: TypePart, Position: at})
}

// Nest moves top-level components under parent, transferring ownership.
func (b *Builder) Nest(parent ComponentID, children ...ComponentID) *Builder {
	if b.err != nil {
		return b
	}
	p := b.byID[parent]
	if p == nil {
		return b.fail("nest: no component %q", parent)
	}
	for _, cid := range children {
		child := b.byID[cid]
		if child == nil {
			return b.fail("nest: no component %q", cid)
		}
		if cid == parent || contains(child, parent) {
			return b.fail("nest: %q under %q would create a cycle", cid, parent)
		}
		idx := -1
		for i, top := range b.asm.Components {
			if top == child {
				idx = i
				break
			}
		}
		if idx < 0 {
			return b.fail("nest: %q is already owned by %q", cid, child.ParentID)
		}
		b.asm.Components = append(b.asm.Components[:idx], b.asm.Components[idx+1:]...)
		child.ParentID = parent
		p.SubComponents = append(p.SubComponents, child)
	}
	return b
}

// contains reports whether id appears in c's subtree (excluding c).
func contains(c *Component, id ComponentID) bool {
	for _, sub := range c.SubComponents {
		if sub.ID == id || contains(sub, id) {
			return true
		}
	}
	return false
}

// Anchor attaches an anchor point to a component.
func (b *Builder) Anchor(component ComponentID, ap AnchorPoint) *Builder {
	if b.err != nil {
		return b
	}
	c := b.byID[component]
	if c == nil {
		return b.fail("anchor %q: no component %q", ap.ID, component)
	}
	if ap.ID == "" {
		return b.fail("anchor on %q has no id", component)
	}
	ap.ComponentID = component
	c.AnchorPoints = append(c.AnchorPoints, ap)
	return b
}

// Constrain appends a global constraint. An empty ID is generated and a
// zero Weight becomes DefaultWeight.
func (b *Builder) Constrain(c Constraint) *Builder {
	if b.err != nil {
		return b
	}
	if !b.normalize(&c) {
		return b
	}
	b.asm.Constraints = append(b.asm.Constraints, c)
	return b
}

// ConstrainOn appends a constraint local to the owner component.
func (b *Builder) ConstrainOn(owner ComponentID, c Constraint) *Builder {
	if b.err != nil {
		return b
	}
	o := b.byID[owner]
	if o == nil {
		return b.fail("constraint %q: no owner component %q", c.ID, owner)
	}
	if !b.normalize(&c) {
		return b
	}
	o.Constraints = append(o.Constraints, c)
	return b
}

func (b *Builder) normalize(c *Constraint) bool {
	if c.Data == nil {
		b.fail("constraint %q has no data", c.ID)
		return false
	}
	if c.ID == "" {
		c.ID = c.Kind().String() + "-" + NewID()
	}
	if c.Weight == 0 {
		c.Weight = DefaultWeight
	}
	return true
}

// Fixed grounds a at its starting position.
func (b *Builder) Fixed(a ElementID) *Builder {
	return b.Constrain(Constraint{Data: Fixed{A: a}})
}

// Distance keeps a and b value millimetres apart.
func (b *Builder) Distance(a, bb ElementID, value float64) *Builder {
	return b.Constrain(Constraint{Data: Distance{A: a, B: bb, Value: value}})
}

// Coincident places a and b at the same point.
func (b *Builder) Coincident(a, bb ElementID) *Builder {
	return b.Constrain(Constraint{Data: Coincident{A: a, B: bb}})
}

// Parallel keeps a->b parallel to axis (zero: a's own axis).
func (b *Builder) Parallel(a, bb ElementID, axis Vec3) *Builder {
	return b.Constrain(Constraint{Data: Parallel{A: a, B: bb, Axis: axis}})
}

// Perpendicular keeps a->b perpendicular to axis (zero: a's own axis).
func (b *Builder) Perpendicular(a, bb ElementID, axis Vec3) *Builder {
	return b.Constrain(Constraint{Data: Perpendicular{A: a, B: bb, Axis: axis}})
}

// Angle keeps a->b at degrees from axis (zero: a's own axis).
func (b *Builder) Angle(a, bb ElementID, degrees float64, axis Vec3) *Builder {
	return b.Constrain(Constraint{Data: Angle{A: a, B: bb, Degrees: degrees, Axis: axis}})
}

// Tangent places b in contact with a.
func (b *Builder) Tangent(a, bb ElementID) *Builder {
	return b.Constrain(Constraint{Data: Tangent{A: a, B: bb}})
}

// Symmetric mirrors a and b about plane.
func (b *Builder) Symmetric(a, bb ElementID, plane Plane) *Builder {
	return b.Constrain(Constraint{Data: Symmetric{A: a, B: bb, Plane: plane}})
}

// Named sets the assembly name.
func (b *Builder) Named(name string) *Builder {
	b.asm.Name = name
	return b
}

// Describe sets the author and description metadata.
func (b *Builder) Describe(author, description string) *Builder {
	b.asm.Metadata.Author = author
	b.asm.Metadata.Description = description
	return b
}

// Build returns the assembly, or the first error recorded.
func (b *Builder) Build() (*Assembly, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.asm, nil
}
