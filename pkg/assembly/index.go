package assembly

// AnchorRef is a resolved anchor: the owning component and the constant
// offset from the component's position to the anchor.
type AnchorRef struct {
	Anchor    AnchorPoint
	Component ComponentID
	Offset    Vec3
}

// Index is a read-only lookup table over an assembly's component tree. It
// is built once per validation or solve; later edits to the assembly are
// not reflected.
type Index struct {
	components map[ComponentID]*Component
	parents    map[ComponentID]ComponentID
	anchors    map[ElementID]AnchorRef
	order      []ComponentID
	duplicates []ComponentID
}

// NewIndex walks the assembly and indexes every component and anchor. When
// two components share an ID the first one wins and the ID is recorded in
// Duplicates.
func NewIndex(a *Assembly) *Index {
	ix := &Index{
		components: make(map[ComponentID]*Component),
		parents:    make(map[ComponentID]ComponentID),
		anchors:    make(map[ElementID]AnchorRef),
	}
	if a == nil {
		return ix
	}

	a.Walk(func(c, parent *Component) bool {
		if _, seen := ix.components[c.ID]; seen {
			ix.duplicates = append(ix.duplicates, c.ID)
			return true
		}
		ix.components[c.ID] = c
		ix.order = append(ix.order, c.ID)
		if parent != nil {
			ix.parents[c.ID] = parent.ID
		}
		return true
	})

	for _, id := range ix.order {
		c := ix.components[id]
		for _, ap := range c.AnchorPoints {
			owner := c
			if ap.ComponentID != "" {
				if o, ok := ix.components[ap.ComponentID]; ok {
					owner = o
				}
			}
			if _, seen := ix.anchors[ap.ID]; seen {
				continue
			}
			ix.anchors[ap.ID] = AnchorRef{
				Anchor:    ap,
				Component: owner.ID,
				Offset:    ap.Position.Sub(owner.Position),
			}
		}
	}

	return ix
}

// Component returns the component with the given ID.
func (ix *Index) Component(id ComponentID) (*Component, bool) {
	c, ok := ix.components[id]
	return c, ok
}

// Parent returns the component that owns id, or false for top-level
// components and unknown IDs.
func (ix *Index) Parent(id ComponentID) (*Component, bool) {
	pid, ok := ix.parents[id]
	if !ok {
		return nil, false
	}
	return ix.Component(pid)
}

// Anchor returns the anchor with the given ID.
func (ix *Index) Anchor(id ElementID) (AnchorRef, bool) {
	ref, ok := ix.anchors[id]
	return ref, ok
}

// Resolve maps a constraint element to the component it moves with and the
// offset of the element from that component's position. Component IDs take
// precedence over anchor IDs.
func (ix *Index) Resolve(e ElementID) (ComponentID, Vec3, bool) {
	if _, ok := ix.components[ComponentID(e)]; ok {
		return ComponentID(e), Vec3{}, true
	}
	if ref, ok := ix.anchors[e]; ok {
		return ref.Component, ref.Offset, true
	}
	return "", Vec3{}, false
}

// IDs returns component IDs in depth-first order.
func (ix *Index) IDs() []ComponentID {
	return append([]ComponentID(nil), ix.order...)
}

// Len returns the number of distinct components.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Duplicates returns IDs that appeared more than once in the tree.
func (ix *Index) Duplicates() []ComponentID {
	return append([]ComponentID(nil), ix.duplicates...)
}
