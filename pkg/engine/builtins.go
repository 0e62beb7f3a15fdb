package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/lignin-solve/pkg/assembly"
	"github.com/chazu/lignin-solve/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms assembly script source before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: side-panel -> side_panel
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //, the zygomys comment syntax.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMaterial wraps an assembly.MaterialSpec so it can be passed between
// builtins.
type sexpMaterial struct {
	spec assembly.MaterialSpec
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material :species %q)", m.spec.Species)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpElement is a reference to a component or anchor, returned by the
// builtins that declare them and accepted wherever an element is expected.
type sexpElement struct {
	id     assembly.ElementID
	anchor bool
}

func (e *sexpElement) SexpString(ps *zygo.PrintState) string {
	if e.anchor {
		return fmt.Sprintf("(anchor %q)", e.id)
	}
	return fmt.Sprintf("(component %q)", e.id)
}
func (e *sexpElement) Type() *zygo.RegisteredType { return nil }

// sexpConstraint is the value of a constraint declaration.
type sexpConstraint struct {
	id   string
	kind assembly.ConstraintKind
}

func (c *sexpConstraint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", c.kind, c.id)
}
func (c *sexpConstraint) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an assembly.Vec3.
type sexpVec3 struct {
	vec assembly.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A trailing keyword with no value is recorded with SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toElement accepts a component or anchor reference, or its ID as a string.
func toElement(s zygo.Sexp) (assembly.ElementID, error) {
	switch v := s.(type) {
	case *sexpElement:
		return v.id, nil
	case *zygo.SexpStr:
		if strings.HasPrefix(v.S, kwPrefix) {
			return "", fmt.Errorf("expected element, got keyword :%s", v.S[len(kwPrefix):])
		}
		if v.S == "" {
			return "", fmt.Errorf("element id is empty")
		}
		return assembly.ElementID(v.S), nil
	}
	return "", fmt.Errorf("expected component or anchor, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (assembly.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return assembly.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toMaterial extracts a MaterialSpec from a sexpMaterial.
func toMaterial(s zygo.Sexp) (assembly.MaterialSpec, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.spec, nil
	}
	return assembly.MaterialSpec{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// kwFloat reads an optional numeric keyword into dst.
func kwFloat(pa kwArgs, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// kwVec3 reads an optional vec3 keyword into dst and reports whether it
// was present.
func kwVec3(pa kwArgs, key string, dst *assembly.Vec3) (bool, error) {
	v, ok := pa.kw[key]
	if !ok {
		return false, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	*dst = vec
	return true, nil
}

// kwString reads an optional string keyword into dst.
func kwString(pa kwArgs, key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = s
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is the signature shared by all DSL functions.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the assembly DSL into a zygomys environment.
// The builtins populate b during evaluation; the first builder error aborts
// the script.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *assembly.Builder, k kernel.Kernel) {
	// builderErr surfaces a sticky builder failure as a script error.
	builderErr := func(fn string) error {
		if err := b.Err(); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		return nil
	}

	// -----------------------------------------------------------------------
	// (material :species "white-oak" :thickness 19 :grade "FAS")
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := assembly.MaterialSpec{}

		if err := kwString(pa, "species", &spec.Species); err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		if err := kwFloat(pa, "thickness", &spec.Thickness); err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		if err := kwString(pa, "grade", &spec.Grade); err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		if err := kwString(pa, "notes", &spec.Notes); err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}

		return &sexpMaterial{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var xyz [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			xyz[i] = f
		}

		return &sexpVec3{vec: assembly.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "cabinet" :author "me" :description "base unit")
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}

		asmName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		var author, description string
		if err := kwString(pa, "author", &author); err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: %w", err)
		}
		if err := kwString(pa, "description", &description); err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: %w", err)
		}

		b.Named(asmName).Describe(author, description)
		return &zygo.SexpStr{S: asmName}, nil
	})

	// -----------------------------------------------------------------------
	// (component "shelf" :at (vec3 0 0 300) :size (vec3 600 300 19)
	//            :rotation (vec3 0 0 90) :material oak :type :part)
	// -----------------------------------------------------------------------
	component := func(defaultType assembly.ComponentType) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires an id argument", name)
			}

			id, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: id: %w", name, err)
			}

			c, err := parseComponent(pa, assembly.ComponentID(id), defaultType)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", name, id, err)
			}

			// Remaining positional arguments are children to nest.
			var children []assembly.ComponentID
			for i, arg := range pa.positional[1:] {
				ref, ok := arg.(*sexpElement)
				if !ok || ref.anchor {
					return zygo.SexpNull, fmt.Errorf("%s %q: child %d: expected component, got %s", name, id, i+1, arg.SexpString(nil))
				}
				children = append(children, assembly.ComponentID(ref.id))
			}

			b.Component(c)
			if len(children) > 0 {
				b.Nest(c.ID, children...)
			}
			if err := builderErr(name); err != nil {
				return zygo.SexpNull, err
			}
			return &sexpElement{id: assembly.ElementID(c.ID)}, nil
		}
	}
	env.AddFunction("component", component(assembly.TypePart))
	env.AddFunction("subassembly", component(assembly.TypeSubAssembly))

	// -----------------------------------------------------------------------
	// (part "shelf") looks up a previously declared component.
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires an id argument")
		}
		id, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: id: %w", err)
		}
		if b.Lookup(assembly.ComponentID(id)) == nil {
			return zygo.SexpNull, fmt.Errorf("part: no component named %q", id)
		}
		return &sexpElement{id: assembly.ElementID(id)}, nil
	})

	// -----------------------------------------------------------------------
	// (anchor shelf "shelf.left" :kind :face-center :at (vec3 0 150 300)
	//         :normal (vec3 -1 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("anchor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("anchor requires a component and an anchor id")
		}

		owner, err := toElement(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("anchor: component: %w", err)
		}
		id, err := toString(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("anchor: id: %w", err)
		}

		ap := assembly.AnchorPoint{ID: assembly.ElementID(id), Kind: assembly.AnchorVertex}
		if v, ok := pa.kw["kind"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: kind: %w", err)
			}
			if ap.Kind, err = assembly.ParseAnchorKind(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("anchor: %w", err)
			}
		}
		if _, err := kwVec3(pa, "at", &ap.Position); err != nil {
			return zygo.SexpNull, fmt.Errorf("anchor: %w", err)
		}
		var normal assembly.Vec3
		if ok, err := kwVec3(pa, "normal", &normal); err != nil {
			return zygo.SexpNull, fmt.Errorf("anchor: %w", err)
		} else if ok {
			ap.Normal = &normal
		}

		b.Anchor(assembly.ComponentID(owner), ap)
		if err := builderErr(name); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpElement{id: ap.ID, anchor: true}, nil
	})

	// -----------------------------------------------------------------------
	// (box-anchors shelf) attaches the vertices, edge centers and face
	// centers of a sized component ("shelf.v0", "shelf.e0", "shelf.zmax").
	// -----------------------------------------------------------------------
	env.AddFunction("box_anchors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("box-anchors requires exactly 1 argument, got %d", len(args))
		}
		id, err := toElement(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box-anchors: %w", err)
		}
		c := b.Lookup(assembly.ComponentID(id))
		if c == nil {
			return zygo.SexpNull, fmt.Errorf("box-anchors: no component named %q", id)
		}
		aps, err := kernel.Anchors(k, c)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box-anchors: %w", err)
		}
		for _, ap := range aps {
			b.Anchor(c.ID, ap)
		}
		if err := builderErr("box-anchors"); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpInt{Val: int64(len(aps))}, nil
	})

	// -----------------------------------------------------------------------
	// Constraints. Every constraint accepts :id, :weight, :tolerance and
	// :on (a component that owns it locally).
	// -----------------------------------------------------------------------

	// (fixed a :at (vec3 0 0 0))
	env.AddFunction("fixed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fixed: %w", err)
		}
		d := assembly.Fixed{A: els[0]}
		var at assembly.Vec3
		if ok, err := kwVec3(pa, "at", &at); err != nil {
			return zygo.SexpNull, fmt.Errorf("fixed: %w", err)
		} else if ok {
			d.At = &at
		}
		return declare(b, name, pa, d)
	})

	// (distance a b 100)
	env.AddFunction("distance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		v, err := value(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		return declare(b, name, pa, assembly.Distance{A: els[0], B: els[1], Value: v})
	})

	// (coincident a b)
	env.AddFunction("coincident", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("coincident: %w", err)
		}
		return declare(b, name, pa, assembly.Coincident{A: els[0], B: els[1]})
	})

	// (parallel a b :axis (vec3 0 1 0))
	env.AddFunction("parallel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("parallel: %w", err)
		}
		d := assembly.Parallel{A: els[0], B: els[1]}
		if _, err := kwVec3(pa, "axis", &d.Axis); err != nil {
			return zygo.SexpNull, fmt.Errorf("parallel: %w", err)
		}
		return declare(b, name, pa, d)
	})

	// (perpendicular a b :axis (vec3 0 0 1))
	env.AddFunction("perpendicular", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("perpendicular: %w", err)
		}
		d := assembly.Perpendicular{A: els[0], B: els[1]}
		if _, err := kwVec3(pa, "axis", &d.Axis); err != nil {
			return zygo.SexpNull, fmt.Errorf("perpendicular: %w", err)
		}
		return declare(b, name, pa, d)
	})

	// (angle a b 45 :axis (vec3 1 0 0))
	env.AddFunction("angle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("angle: %w", err)
		}
		deg, err := value(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("angle: %w", err)
		}
		d := assembly.Angle{A: els[0], B: els[1], Degrees: deg}
		if _, err := kwVec3(pa, "axis", &d.Axis); err != nil {
			return zygo.SexpNull, fmt.Errorf("angle: %w", err)
		}
		return declare(b, name, pa, d)
	})

	// (tangent a b)
	env.AddFunction("tangent", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tangent: %w", err)
		}
		return declare(b, name, pa, assembly.Tangent{A: els[0], B: els[1]})
	})

	// (symmetric a b :origin (vec3 300 0 0) :normal (vec3 1 0 0))
	env.AddFunction("symmetric", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		els, err := elements(pa, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("symmetric: %w", err)
		}
		d := assembly.Symmetric{A: els[0], B: els[1]}
		if _, err := kwVec3(pa, "origin", &d.Plane.Origin); err != nil {
			return zygo.SexpNull, fmt.Errorf("symmetric: %w", err)
		}
		if _, err := kwVec3(pa, "normal", &d.Plane.Normal); err != nil {
			return zygo.SexpNull, fmt.Errorf("symmetric: %w", err)
		}
		return declare(b, name, pa, d)
	})
}

// parseComponent reads the keyword arguments of a component declaration.
func parseComponent(pa kwArgs, id assembly.ComponentID, typ assembly.ComponentType) (*assembly.Component, error) {
	c := &assembly.Component{ID: id, Name: string(id), Type: typ}

	if err := kwString(pa, "name", &c.Name); err != nil {
		return nil, err
	}
	if v, ok := pa.kw["type"]; ok {
		s, err := toKeywordString(v)
		if err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		if c.Type, err = assembly.ParseComponentType(s); err != nil {
			return nil, err
		}
	}
	if _, err := kwVec3(pa, "at", &c.Position); err != nil {
		return nil, err
	}
	if _, err := kwVec3(pa, "rotation", &c.Rotation); err != nil {
		return nil, err
	}
	for _, key := range []string{"size", "scale"} {
		var v assembly.Vec3
		ok, err := kwVec3(pa, key, &v)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if key == "size" {
			c.Size = &v
		} else {
			c.Scale = &v
		}
	}
	if v, ok := pa.kw["material"]; ok {
		m, err := toMaterial(v)
		if err != nil {
			return nil, fmt.Errorf("material: %w", err)
		}
		c.Material = m
	}
	return c, nil
}

// elements reads the first n positional arguments as elements.
func elements(pa kwArgs, n int) ([]assembly.ElementID, error) {
	if len(pa.positional) < n {
		return nil, fmt.Errorf("requires %d element arguments, got %d", n, len(pa.positional))
	}
	out := make([]assembly.ElementID, n)
	for i := 0; i < n; i++ {
		e, err := toElement(pa.positional[i])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i+1, err)
		}
		out[i] = e
	}
	return out, nil
}

// value reads the numeric argument at position i, or the :value keyword.
func value(pa kwArgs, i int) (float64, error) {
	if len(pa.positional) > i {
		return toFloat64(pa.positional[i])
	}
	var v float64
	if _, ok := pa.kw["value"]; !ok {
		return 0, fmt.Errorf("missing value")
	}
	err := kwFloat(pa, "value", &v)
	return v, err
}

// declare adds a constraint with the common :id, :weight, :tolerance and
// :on options and returns a reference to it.
func declare(b *assembly.Builder, fn string, pa kwArgs, d assembly.ConstraintData) (zygo.Sexp, error) {
	c := assembly.Constraint{Data: d}
	if err := kwString(pa, "id", &c.ID); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if c.ID == "" {
		c.ID = d.Kind().String() + "-" + assembly.NewID()
	}
	if err := kwFloat(pa, "weight", &c.Weight); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if err := kwFloat(pa, "tolerance", &c.Tolerance); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}

	if v, ok := pa.kw["on"]; ok {
		owner, err := toElement(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: on: %w", fn, err)
		}
		b.ConstrainOn(assembly.ComponentID(owner), c)
	} else {
		b.Constrain(c)
	}
	if err := b.Err(); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return &sexpConstraint{id: c.ID, kind: d.Kind()}, nil
}
