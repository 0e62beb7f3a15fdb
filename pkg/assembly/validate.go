package assembly

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding makes the
// constraint system invalid or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // system is invalid
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// Validation codes.
const (
	CodeEmptySystem         = "EMPTY_SYSTEM"
	CodeUnresolvedReference = "UNRESOLVED_REFERENCE"
	CodeUngrounded          = "UNGROUNDED"
	CodeOverConstrained     = "OVER_CONSTRAINED"

	CodeUnderConstrained    = "UNDER_CONSTRAINED"
	CodeUnconstrained       = "UNCONSTRAINED_COMPONENT"
	CodeSelfReference       = "SELF_REFERENCE"
	CodeInvalidWeight       = "INVALID_WEIGHT"
	CodeInvalidValue        = "INVALID_VALUE"
	CodeDuplicateComponent  = "DUPLICATE_COMPONENT"
	CodeDuplicateConstraint = "DUPLICATE_CONSTRAINT"
	CodeParentMismatch      = "PARENT_MISMATCH"
)

// ValidationError describes a single validation finding.
type ValidationError struct {
	Code         string             // machine-readable category
	Message      string             // human-readable description
	ConstraintID string             // offending constraint, if any
	ComponentID  ComponentID        // offending component, if any
	Severity     ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	switch {
	case e.ConstraintID != "":
		return fmt.Sprintf("[%s] constraint %s: %s", e.Severity, e.ConstraintID, e.Message)
	case e.ComponentID != "":
		return fmt.Sprintf("[%s] component %s: %s", e.Severity, e.ComponentID, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// Report is the outcome of ValidateConstraintSystem.
type Report struct {
	Valid            bool              `json:"is_valid"`
	Errors           []ValidationError `json:"errors"`
	Warnings         []ValidationError `json:"warnings"`
	DegreesOfFreedom int               `json:"degrees_of_freedom"`
	ConstraintCount  int               `json:"constraint_count"`
}

// Messages returns the Error() strings of the given findings.
func Messages(findings []ValidationError) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Error()
	}
	return out
}

// ValidateConstraintSystem inspects the assembly's constraint graph before
// solving. It is read-only and never mutates the assembly; calling it twice
// on an unmodified assembly yields identical reports. Findings are reported
// as data: the caller decides whether to solve anyway.
//
// Error rules, applied in order and contributing independently:
//  1. no components ("nothing to constrain"), degrees of freedom forced to 0
//  2. every constraint element that resolves to no component or anchor
//  3. no FIXED constraint anywhere ("ungrounded system")
//  4. 3 x components - consumed DOF < 0 ("over-constrained")
//
// A positive remainder is accepted and reported as a warning.
func ValidateConstraintSystem(a *Assembly) Report {
	if a == nil {
		a = &Assembly{}
	}
	ix := NewIndex(a)
	constraints := a.AllConstraints()

	r := Report{ConstraintCount: len(constraints)}

	r.Errors = append(r.Errors, validateNonEmpty(ix)...)
	r.Errors = append(r.Errors, validateReferences(ix, constraints)...)
	r.Errors = append(r.Errors, validateGrounding(constraints)...)

	dof, dofFindings := countDegreesOfFreedom(ix, constraints)
	r.DegreesOfFreedom = dof
	for _, f := range dofFindings {
		if f.Severity == SeverityError {
			r.Errors = append(r.Errors, f)
		} else {
			r.Warnings = append(r.Warnings, f)
		}
	}

	r.Warnings = append(r.Warnings, validateUnconstrained(ix, constraints)...)
	r.Warnings = append(r.Warnings, validateConstraintValues(constraints)...)
	r.Warnings = append(r.Warnings, validateIdentity(a, ix, constraints)...)

	r.Valid = len(r.Errors) == 0
	return r
}

// validateNonEmpty reports an assembly without components.
func validateNonEmpty(ix *Index) []ValidationError {
	if ix.Len() > 0 {
		return nil
	}
	return []ValidationError{{
		Code:     CodeEmptySystem,
		Message:  "assembly has no components: nothing to constrain",
		Severity: SeverityError,
	}}
}

// validateReferences reports one error per constraint element that does not
// resolve to a component or anchor.
func validateReferences(ix *Index, constraints []Constraint) []ValidationError {
	var errs []ValidationError
	labels := []string{"element_a", "element_b"}

	for _, c := range constraints {
		if c.Data == nil {
			errs = append(errs, ValidationError{
				Code:         CodeUnresolvedReference,
				Message:      "unresolved reference: constraint has no elements",
				ConstraintID: c.ID,
				Severity:     SeverityError,
			})
			continue
		}
		for i, e := range c.Elements() {
			if _, _, ok := ix.Resolve(e); ok {
				continue
			}
			label := labels[min(i, len(labels)-1)]
			msg := fmt.Sprintf("unresolved reference: %s %s %q does not name a component or anchor", c.Kind(), label, e)
			if e == "" {
				msg = fmt.Sprintf("unresolved reference: %s %s is empty", c.Kind(), label)
			}
			errs = append(errs, ValidationError{
				Code:         CodeUnresolvedReference,
				Message:      msg,
				ConstraintID: c.ID,
				Severity:     SeverityError,
			})
		}
	}

	return errs
}

// validateGrounding reports a system with no FIXED constraint, which cannot
// have a unique solution.
func validateGrounding(constraints []Constraint) []ValidationError {
	for _, c := range constraints {
		if c.Kind() == KindFixed {
			return nil
		}
	}
	return []ValidationError{{
		Code:     CodeUngrounded,
		Message:  "ungrounded system: no fixed constraint anchors the assembly",
		Severity: SeverityError,
	}}
}

// countDegreesOfFreedom applies the naive per-kind consumption table. Every
// constraint counts, including redundant duplicates.
func countDegreesOfFreedom(ix *Index, constraints []Constraint) (int, []ValidationError) {
	if ix.Len() == 0 {
		return 0, nil
	}

	total := 3 * ix.Len()
	consumed := 0
	for _, c := range constraints {
		consumed += c.Kind().DOF()
	}
	dof := total - consumed

	switch {
	case dof < 0:
		return dof, []ValidationError{{
			Code:     CodeOverConstrained,
			Message:  fmt.Sprintf("over-constrained: constraints consume %d of %d degrees of freedom", consumed, total),
			Severity: SeverityError,
		}}
	case dof > 0:
		return dof, []ValidationError{{
			Code:     CodeUnderConstrained,
			Message:  fmt.Sprintf("under-constrained: %d of %d degrees of freedom remain free", dof, total),
			Severity: SeverityWarning,
		}}
	}
	return dof, nil
}

// validateUnconstrained warns about components no constraint touches.
func validateUnconstrained(ix *Index, constraints []Constraint) []ValidationError {
	touched := make(map[ComponentID]bool)
	for _, c := range constraints {
		for _, e := range c.Elements() {
			if id, _, ok := ix.Resolve(e); ok {
				touched[id] = true
			}
		}
	}

	var warnings []ValidationError
	for _, id := range ix.IDs() {
		c, _ := ix.Component(id)
		if touched[id] || len(c.SubComponents) > 0 {
			continue
		}
		warnings = append(warnings, ValidationError{
			Code:        CodeUnconstrained,
			Message:     "component is not referenced by any constraint and will not be solved",
			ComponentID: id,
			Severity:    SeverityWarning,
		})
	}
	return warnings
}

// validateConstraintValues warns about weights and values the solver will
// replace or cannot meet.
func validateConstraintValues(constraints []Constraint) []ValidationError {
	var warnings []ValidationError
	warn := func(c Constraint, code, format string, args ...any) {
		warnings = append(warnings, ValidationError{
			Code:         code,
			Message:      fmt.Sprintf(format, args...),
			ConstraintID: c.ID,
			Severity:     SeverityWarning,
		})
	}

	for _, c := range constraints {
		if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
			warn(c, CodeInvalidWeight, "weight %v is not strictly positive and finite; %v is used", c.Weight, DefaultWeight)
		}

		switch d := c.Data.(type) {
		case Distance:
			if !isFinite(d.Value) {
				warn(c, CodeInvalidValue, "distance value %v is not finite", d.Value)
			} else if d.Value < 0 {
				warn(c, CodeInvalidValue, "distance value %.4f is negative and can never be met", d.Value)
			}
		case Angle:
			if !isFinite(d.Degrees) {
				warn(c, CodeInvalidValue, "angle value %v is not finite", d.Degrees)
			} else if d.Degrees < 0 || d.Degrees > 180 {
				warn(c, CodeInvalidValue, "angle %.2f degrees is outside [0, 180] and can never be met", d.Degrees)
			}
		case Fixed:
			if d.At != nil && !d.At.IsFinite() {
				warn(c, CodeInvalidValue, "fixed target is not finite")
			}
		}

		elems := c.Elements()
		if len(elems) == 2 && elems[0] != "" && elems[0] == elems[1] {
			warn(c, CodeSelfReference, "%s constraint references %q on both sides", c.Kind(), elems[0])
		}
	}

	return warnings
}

// validateIdentity warns about duplicate IDs and parent back-references that
// disagree with ownership.
func validateIdentity(a *Assembly, ix *Index, constraints []Constraint) []ValidationError {
	var warnings []ValidationError

	for _, id := range ix.Duplicates() {
		warnings = append(warnings, ValidationError{
			Code:        CodeDuplicateComponent,
			Message:     "component id appears more than once; only the first is used",
			ComponentID: id,
			Severity:    SeverityWarning,
		})
	}

	seen := make(map[string]bool)
	for _, c := range constraints {
		if c.ID == "" {
			continue
		}
		if seen[c.ID] {
			warnings = append(warnings, ValidationError{
				Code:         CodeDuplicateConstraint,
				Message:      "constraint id appears more than once",
				ConstraintID: c.ID,
				Severity:     SeverityWarning,
			})
		}
		seen[c.ID] = true
	}

	a.Walk(func(c, parent *Component) bool {
		want := ComponentID("")
		if parent != nil {
			want = parent.ID
		}
		if c.ParentID != "" && c.ParentID != want {
			warnings = append(warnings, ValidationError{
				Code:        CodeParentMismatch,
				Message:     fmt.Sprintf("parent_id %q does not match owning component %q", c.ParentID, want),
				ComponentID: c.ID,
				Severity:    SeverityWarning,
			})
		}
		return true
	})

	return warnings
}
