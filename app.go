package main

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/chazu/lignin-solve/pkg/assembly"
	"github.com/chazu/lignin-solve/pkg/engine"
	"github.com/chazu/lignin-solve/pkg/kernel"
	"github.com/chazu/lignin-solve/pkg/kernel/sdfx"
	"github.com/chazu/lignin-solve/pkg/solver"
)

// App runs an assembly script through the full pipeline: evaluation,
// validation, solving, post-solve checks and interference detection.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	solver *solver.Solver
	logger *log.Logger
}

// EvalErrorData is a JSON-serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// FindingData is a JSON-serializable validation finding.
type FindingData struct {
	Code         string `json:"code"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	ConstraintID string `json:"constraint_id,omitempty"`
	ComponentID  string `json:"component_id,omitempty"`
}

// ValidationData summarizes the validator's report.
type ValidationData struct {
	Valid            bool          `json:"is_valid"`
	DegreesOfFreedom int           `json:"degrees_of_freedom"`
	ConstraintCount  int           `json:"constraint_count"`
	Errors           []FindingData `json:"errors"`
	Warnings         []FindingData `json:"warnings"`
}

// Report is the full result of App.Evaluate. Slices are never nil so the
// JSON form always carries arrays.
type Report struct {
	Assembly      string                `json:"assembly"`
	Components    int                   `json:"components"`
	Errors        []EvalErrorData       `json:"errors"`
	Validation    ValidationData        `json:"validation"`
	Solve         *solver.Result        `json:"solve,omitempty"`
	Checks        []solver.Check        `json:"checks"`
	Unsatisfied   int                   `json:"unsatisfied"`
	Interferences []kernel.Interference `json:"interferences"`
	Warnings      []string              `json:"warnings"`
}

// NewApp creates an App with the sdfx kernel and a solver using cfg.
// A nil logger discards output.
func NewApp(cfg solver.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	k := sdfx.New()
	s, err := solver.New(cfg, solver.WithLogger(logger.WithPrefix("solver")))
	if err != nil {
		return nil, err
	}
	return &App{
		engine: engine.NewEngine(engine.WithKernel(k)),
		kernel: k,
		solver: s,
		logger: logger,
	}, nil
}

func newReport() Report {
	return Report{
		Errors:        []EvalErrorData{},
		Validation:    ValidationData{Errors: []FindingData{}, Warnings: []FindingData{}},
		Checks:        []solver.Check{},
		Interferences: []kernel.Interference{},
		Warnings:      []string{},
	}
}

// Evaluate runs source through the pipeline. The returned assembly carries
// solved positions and check results; it is nil when the script failed.
// An invalid constraint system is reported without solving.
func (a *App) Evaluate(source string) (Report, *assembly.Assembly) {
	return a.run(source, true)
}

// Validate evaluates source and validates the constraint system without
// solving.
func (a *App) Validate(source string) (Report, *assembly.Assembly) {
	return a.run(source, false)
}

func (a *App) run(source string, solve bool) (Report, *assembly.Assembly) {
	result := newReport()

	// Step 1: Evaluate the script into an assembly.
	asm, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Error("evaluate", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result, nil
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result, nil
	}
	result.Assembly = asm.Name
	result.Components = asm.ComponentCount()

	// Step 2: Validate the constraint system.
	rep := assembly.ValidateConstraintSystem(asm)
	asm.Valid = rep.Valid
	result.Validation = ValidationData{
		Valid:            rep.Valid,
		DegreesOfFreedom: rep.DegreesOfFreedom,
		ConstraintCount:  rep.ConstraintCount,
		Errors:           findings(rep.Errors),
		Warnings:         findings(rep.Warnings),
	}
	for _, w := range rep.Warnings {
		a.logger.Warn(w.Message, "code", w.Code)
	}
	if !solve {
		return result, asm
	}
	if !rep.Valid {
		a.logger.Debug("skipping solve", "errors", len(rep.Errors))
		return result, asm
	}

	// Step 3: Solve.
	res := a.solver.Solve(asm, nil)
	result.Solve = res

	// Step 4: Check every constraint at the solved positions against the
	// solve's own seeds, then write the solution back.
	checks := solver.CheckResult(asm, res)
	result.Unsatisfied = solver.ApplyChecks(asm, checks)
	result.Checks = append(result.Checks, checks...)
	moved := asm.ApplyPositions(res.Positions)
	a.logger.Debug("solved", "success", res.Success, "iterations", res.Iterations, "moved", moved)

	// Step 5: Look for overlapping components.
	hits, err := kernel.Interferences(a.kernel, asm, res.Positions)
	if err != nil {
		result.Warnings = append(result.Warnings, "interference check failed: "+err.Error())
	}
	result.Interferences = append(result.Interferences, hits...)
	for _, h := range hits {
		result.Warnings = append(result.Warnings,
			"components "+string(h.A)+" and "+string(h.B)+" overlap")
	}

	return result, asm
}

func findings(in []assembly.ValidationError) []FindingData {
	out := make([]FindingData, 0, len(in))
	for _, f := range in {
		out = append(out, FindingData{
			Code:         f.Code,
			Severity:     f.Severity.String(),
			Message:      f.Message,
			ConstraintID: f.ConstraintID,
			ComponentID:  string(f.ComponentID),
		})
	}
	return out
}
