package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.lignin")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const pairScript = `
(component "a")
(component "b" :at (vec3 50 0 0))
(fixed "a")
(distance "a" "b" 100 :id "span")
`

func TestCLISolveJSON(t *testing.T) {
	out, err := runCLI(t, "solve", writeScript(t, pairScript), "--json")
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	var r Report
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if r.Solve == nil || !r.Solve.Success {
		t.Errorf("solve = %+v", r.Solve)
	}
	if len(r.Checks) != 2 {
		t.Errorf("checks = %d, want 2", len(r.Checks))
	}
}

func TestCLISolveFailsOnInvalid(t *testing.T) {
	path := writeScript(t, `(component "a") (component "b") (distance "a" "b" 10)`)
	out, err := runCLI(t, "solve", path)
	if err != errFailed {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if !strings.Contains(out, "UNGROUNDED") {
		t.Errorf("report should name the finding:\n%s", out)
	}
}

func TestCLIValidate(t *testing.T) {
	if _, err := runCLI(t, "validate", writeScript(t, pairScript)); err != nil {
		t.Errorf("validate: %v", err)
	}
	if _, err := runCLI(t, "validate", writeScript(t, `(component "a"`)); err == nil {
		t.Error("expected error for a broken script")
	}
}

func TestCLIGraphDOT(t *testing.T) {
	out, err := runCLI(t, "graph", writeScript(t, pairScript))
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if !strings.HasPrefix(out, "digraph G") || !strings.Contains(out, "distance") {
		t.Errorf("unexpected DOT:\n%s", out)
	}
}

func TestCLIGraphUnsupportedFormat(t *testing.T) {
	path := writeScript(t, pairScript)
	out := filepath.Join(t.TempDir(), "graph.png")
	if _, err := runCLI(t, "graph", path, "-o", out); err == nil {
		t.Error("expected error for .png output")
	}
}

func TestCLIMissingFile(t *testing.T) {
	if _, err := runCLI(t, "solve", filepath.Join(t.TempDir(), "missing.lignin")); err == nil {
		t.Error("expected error for missing script")
	}
}
