package main

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: slices are non-nil so JSON carries [] instead of null.
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := newTestApp(t)
	result, _ := app.Evaluate("")

	if result.Errors == nil || result.Checks == nil || result.Interferences == nil || result.Warnings == nil {
		t.Error("report slices should be non-nil")
	}
	if result.Validation.Errors == nil || result.Validation.Warnings == nil {
		t.Error("validation slices should be non-nil")
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"errors":[]`, `"checks":[]`, `"interferences":[]`, `"warnings":[]`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON missing %s: %s", key, data)
		}
	}
	if strings.Contains(string(data), `"solve"`) {
		t.Error("unsolved report should omit solve")
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors carry a message and, when available, a line.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp(t)

	source := "(component \"a\")\n(component \"b\""
	result, _ := app.Evaluate(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

// ---------------------------------------------------------------------------
// 3. Structural problems are reported by the validator, not the engine.
// ---------------------------------------------------------------------------

func TestE2EUnresolvedReference(t *testing.T) {
	app := newTestApp(t)

	result, _ := app.Evaluate(`
(component "a")
(fixed "a")
(distance "a" "nonexistent" 10)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected eval errors: %v", result.Errors)
	}
	if result.Validation.Valid {
		t.Fatal("expected invalid system")
	}
	found := false
	for _, f := range result.Validation.Errors {
		if f.Code == assembly.CodeUnresolvedReference && strings.Contains(f.Message, "nonexistent") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected UNRESOLVED_REFERENCE naming the element, got %+v", result.Validation.Errors)
	}
	if result.Solve != nil {
		t.Error("invalid system should not be solved")
	}
}

func TestE2EUngrounded(t *testing.T) {
	app := newTestApp(t)

	result, _ := app.Evaluate(`
(component "a")
(component "b")
(distance "a" "b" 10)
`)
	if result.Validation.Valid {
		t.Fatal("expected invalid system")
	}
	if result.Validation.Errors[0].Code != assembly.CodeUngrounded {
		t.Errorf("first error = %+v, want UNGROUNDED", result.Validation.Errors[0])
	}
}

func TestE2EOverConstrained(t *testing.T) {
	app := newTestApp(t)

	result, _ := app.Evaluate(`
(component "a")
(component "b" :at (vec3 10 0 0))
(fixed "a")
(distance "a" "b" 10)
(distance "a" "b" 10)
(distance "a" "b" 10)
(distance "a" "b" 10)
(distance "a" "b" 10)
(distance "a" "b" 10)
`)
	if result.Validation.Valid {
		t.Fatal("expected over-constrained system to be invalid")
	}
	if result.Validation.DegreesOfFreedom > 0 {
		t.Errorf("DOF = %d, want <= 0", result.Validation.DegreesOfFreedom)
	}
}

// ---------------------------------------------------------------------------
// 4. Rapid evaluation: no panics when valid and broken sources alternate.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := newTestApp(t)

	sources := []string{
		`(component "ok") (fixed "ok")`,
		`(component "broken"`,
		``,
		`(part "missing")`,
		`(component "a") (component "b" :at (vec3 5 0 0)) (fixed "a") (distance "a" "b" 10)`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		`(distance "x" "y" -1)`,
		`(component "last" :size (vec3 10 10 10)) (box-anchors "last") (fixed "last.zmax")`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_, _ = app.Evaluate(source)
		}()
	}
}

// ---------------------------------------------------------------------------
// 5. Scale: large and small assemblies stay finite.
// ---------------------------------------------------------------------------

func TestE2ELargeDimensions(t *testing.T) {
	app := newTestApp(t)

	result, _ := app.Evaluate(`
(component "a" :size (vec3 10000 10000 19))
(component "b" :at (vec3 500000 0 0) :size (vec3 10000 10000 19))
(fixed "a")
(distance "a" "b" 1000000)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Solve == nil {
		t.Fatal("expected a solve")
	}
	for id, p := range result.Solve.Positions {
		if !p.IsFinite() {
			t.Errorf("%s: non-finite position %+v", id, p)
		}
	}
	for i, r := range result.Solve.Residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			t.Errorf("residual %d non-finite", i)
		}
	}
}

// ---------------------------------------------------------------------------
// 6. Interference: overlapping parts are reported after solving.
// ---------------------------------------------------------------------------

func TestE2EInterference(t *testing.T) {
	app := newTestApp(t)

	// The distance pulls b 10 mm into a.
	result, _ := app.Evaluate(`
(component "a" :size (vec3 100 100 20))
(component "b" :at (vec3 100 0 0) :size (vec3 100 100 20))
(fixed "a")
(distance "a" "b" 90)
(parallel "a" "b" :axis (vec3 1 0 0))
`)
	if result.Solve == nil || !result.Solve.Success {
		t.Fatalf("solve failed: %+v", result.Solve)
	}
	if len(result.Interferences) != 1 {
		t.Fatalf("interferences = %+v, want 1", result.Interferences)
	}
	got := result.Interferences[0]
	if got.A != "a" || got.B != "b" || got.Depth <= 0 {
		t.Errorf("interference = %+v", got)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "overlap") {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

// ---------------------------------------------------------------------------
// 7. Comments only: no script errors, but an empty system.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp(t)

	source := `
;; This is a comment
;; Another comment
; And another
`
	result, asm := app.Evaluate(source)

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for comments-only source: %v", result.Errors)
	}
	if asm == nil || asm.ComponentCount() != 0 {
		t.Error("expected an empty assembly")
	}
}

// ---------------------------------------------------------------------------
// 8. Arithmetic in scripts feeds constraint values.
// ---------------------------------------------------------------------------

func TestE2ENestedArithmeticDef(t *testing.T) {
	app := newTestApp(t)

	source := `
(def span (* 2 150))
(component "a")
(component "b" :at (vec3 (/ span 2) 0 0))
(fixed "a")
(distance "a" "b" span)
`
	result, _ := app.Evaluate(source)
	if len(result.Errors) > 0 {
		t.Fatalf("eval errors: %v", result.Errors)
	}
	if !result.Solve.Success {
		t.Fatalf("solve failed: %s", result.Solve.Message)
	}
	assert.InDelta(t, 300, result.Solve.Positions["b"].Norm(), 1e-2, "|b|")
}

// ---------------------------------------------------------------------------
// 9. Rendering never fails on any report shape.
// ---------------------------------------------------------------------------

func TestRenderReport(t *testing.T) {
	app := newTestApp(t)

	report, asm := app.Evaluate(`
(assembly "pair")
(component "a")
(component "b" :at (vec3 50 0 0))
(fixed "a")
(distance "a" "b" 100 :id "span")
`)
	out := renderReport(report, asm)
	for _, want := range []string{"pair", "Positions", "Constraints", "span", "converged"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	failed, _ := app.Evaluate(`(component "a"`)
	if out := renderReport(failed, nil); !strings.Contains(out, "script failed") {
		t.Errorf("failed report = %q", out)
	}
}
