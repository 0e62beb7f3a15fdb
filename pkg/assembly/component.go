package assembly

import "fmt"

// ComponentID is the unique, stable identifier of a component.
type ComponentID string

// ElementID addresses a constraint target: either a ComponentID or the ID
// of an AnchorPoint owned by a component.
type ElementID string

// ---------------------------------------------------------------------------
// Material
// ---------------------------------------------------------------------------

// MaterialSpec describes the intended material. Advisory only.
type MaterialSpec struct {
	Species   string  `json:"species,omitempty"`   // e.g. "white-oak", "walnut"
	Thickness float64 `json:"thickness,omitempty"` // nominal thickness in mm
	Grade     string  `json:"grade,omitempty"`     // e.g. "FAS", "select"
	Notes     string  `json:"notes,omitempty"`
}

// ---------------------------------------------------------------------------
// Component
// ---------------------------------------------------------------------------

// ComponentType distinguishes leaf parts from grouping components.
type ComponentType int

const (
	TypePart        ComponentType = iota // a single panel or piece
	TypeAssembly                         // a top-level grouping
	TypeSubAssembly                      // a nested grouping (drawer, door)
)

func (t ComponentType) String() string {
	switch t {
	case TypePart:
		return "part"
	case TypeAssembly:
		return "assembly"
	case TypeSubAssembly:
		return "subassembly"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(t))
	}
}

// ParseComponentType maps a name produced by String back to a ComponentType.
func ParseComponentType(s string) (ComponentType, error) {
	switch s {
	case "part":
		return TypePart, nil
	case "assembly":
		return TypeAssembly, nil
	case "subassembly":
		return TypeSubAssembly, nil
	}
	return 0, fmt.Errorf("invalid component type %q, expected part, assembly or subassembly", s)
}

// Component is a positioned entity. A component exclusively owns its
// SubComponents; ParentID is a lookup key only and is resolved through an
// Index, never followed as a pointer.
type Component struct {
	ID            ComponentID    `json:"id"`
	Name          string         `json:"name,omitempty"`
	Type          ComponentType  `json:"type"`
	Position      Vec3           `json:"position"`
	Rotation      Vec3           `json:"rotation"` // Euler angles in degrees, not solved
	Scale         *Vec3          `json:"scale,omitempty"`
	Size          *Vec3          `json:"size,omitempty"` // nominal extent in mm
	Material      MaterialSpec   `json:"material"`
	Properties    map[string]any `json:"properties,omitempty"`
	SubComponents []*Component   `json:"sub_components,omitempty"`
	AnchorPoints  []AnchorPoint  `json:"anchor_points,omitempty"`
	Constraints   []Constraint   `json:"constraints,omitempty"` // component-local
	ParentID      ComponentID    `json:"parent_id,omitempty"`
}

// Axis returns the component's local +X axis in world space, derived from
// its (unsolved) rotation.
func (c *Component) Axis() Vec3 {
	return Vec3{X: 1}.Rotate(c.Rotation)
}

// BoundingRadius returns half the diagonal of the component's Size, or 0
// when the size is unknown.
func (c *Component) BoundingRadius() float64 {
	if c.Size == nil {
		return 0
	}
	return c.Size.Norm() / 2
}

// ---------------------------------------------------------------------------
// Anchor points
// ---------------------------------------------------------------------------

// AnchorKind describes what feature of a component an anchor marks.
type AnchorKind int

const (
	AnchorVertex AnchorKind = iota
	AnchorEdgeCenter
	AnchorFaceCenter
	AnchorAxis
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorVertex:
		return "vertex"
	case AnchorEdgeCenter:
		return "edge-center"
	case AnchorFaceCenter:
		return "face-center"
	case AnchorAxis:
		return "axis"
	default:
		return fmt.Sprintf("AnchorKind(%d)", int(k))
	}
}

// ParseAnchorKind maps a name produced by String back to an AnchorKind.
func ParseAnchorKind(s string) (AnchorKind, error) {
	switch s {
	case "vertex":
		return AnchorVertex, nil
	case "edge-center":
		return AnchorEdgeCenter, nil
	case "face-center":
		return AnchorFaceCenter, nil
	case "axis":
		return AnchorAxis, nil
	}
	return 0, fmt.Errorf("invalid anchor kind %q, expected vertex, edge-center, face-center or axis", s)
}

// AnchorPoint is a named reference point on a component. Position is in
// world space at the time the anchor was defined; constraints that target an
// anchor move it rigidly with its component.
type AnchorPoint struct {
	ID          ElementID   `json:"id"`
	Kind        AnchorKind  `json:"kind"`
	Position    Vec3        `json:"position"`
	ComponentID ComponentID `json:"component_id"`
	Normal      *Vec3       `json:"normal,omitempty"` // face and axis anchors
}
