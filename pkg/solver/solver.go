package solver

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/chazu/lignin-solve/pkg/assembly"
	"github.com/chazu/lignin-solve/pkg/constraint"
)

// Positions maps component IDs to positions.
type Positions = constraint.Positions

// Result is the outcome of a solve.
type Result struct {
	Success    bool      `json:"success"`
	Positions  Positions `json:"positions"`
	Residuals  []float64 `json:"residuals"` // unweighted, aligned with Assembly.AllConstraints
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	Error      float64   `json:"error"` // RMS of the weighted residuals
	Message    string    `json:"message"`
	SolverTime float64   `json:"solver_time"` // milliseconds

	// Seeds holds the starting position of every unknown. FIXED constraints
	// without an explicit target hold their component here.
	Seeds Positions `json:"-"`
}

// Solver positions components by damped Gauss-Newton (Levenberg-Marquardt)
// least squares. A Solver holds only configuration and is safe for
// concurrent use.
type Solver struct {
	cfg    Config
	logger *log.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger routes per-iteration debug output to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a solver. It fails only when cfg is invalid.
func New(cfg Config, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{cfg: cfg, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the solver's configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve positions asm's components with the default configuration, or cfg
// when non-nil. The error is non-nil only for an invalid configuration;
// malformed assemblies degrade to zero residuals instead.
func Solve(asm *assembly.Assembly, initial Positions, cfg *Config) (*Result, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	s, err := New(c)
	if err != nil {
		return nil, err
	}
	return s.Solve(asm, initial), nil
}

// Solve positions asm's components starting from initial.
//
// Every component referenced by a constraint is an unknown, seeded from
// initial or, when absent there, from its declared position. Entries of
// initial that no constraint touches are returned unchanged, and unknowns
// missing from initial are added, so len(Positions) equals len(initial)
// only when initial covers every constrained component. The assembly is
// not modified. Use CheckResult to check the outcome against the same
// seeds.
func (s *Solver) Solve(asm *assembly.Assembly, initial Positions) *Result {
	components, constraints := 0, 0
	if asm != nil {
		components, constraints = asm.ComponentCount(), len(asm.AllConstraints())
	}
	ctx, span := startSolveSpan(context.Background(), components, constraints)

	start := time.Now()
	res := s.solve(asm, initial)
	elapsed := time.Since(start)
	res.SolverTime = float64(elapsed.Microseconds()) / 1000

	recordSolveMetrics(ctx, elapsed, res)
	finishSolveSpan(span, res)
	return res
}

// problem is the state of a single solve.
type problem struct {
	ev      *constraint.Evaluator
	frame   *constraint.Frame
	unknown []assembly.ComponentID
	column  map[assembly.ComponentID]int
}

func (s *Solver) solve(asm *assembly.Assembly, initial Positions) *Result {
	out := copyPositions(initial)

	ev := constraint.Compile(asm)
	if asm == nil || asm.ComponentCount() == 0 || ev.Len() == 0 {
		return &Result{
			Success:   true,
			Converged: true,
			Positions: out,
			Residuals: make([]float64, ev.Len()),
			Message:   "nothing to solve",
		}
	}

	// Seed every referenced component.
	seeds := make(Positions)
	probe := ev.Frame(nil, nil)
	unknown := ev.Components(probe)
	for _, id := range unknown {
		p, ok := initial[id]
		if !ok {
			p, _ = probe.Position(id)
		}
		seeds[id] = sanitize(p)
	}
	pos := copyPositions(seeds)

	pr := &problem{
		ev:      ev,
		frame:   ev.Frame(pos, seeds),
		unknown: unknown,
		column:  make(map[assembly.ComponentID]int, len(unknown)),
	}
	for i, id := range unknown {
		pr.column[id] = 3 * i
	}

	res := s.iterate(pr)

	for _, id := range unknown {
		p, _ := pr.frame.Position(id)
		out[id] = p
	}
	res.Positions = out
	res.Seeds = seeds
	res.Residuals = ev.Violations(pr.frame)
	return res
}

func (s *Solver) iterate(pr *problem) *Result {
	cfg := s.cfg
	r := pr.ev.Residuals(pr.frame)
	errNow := constraint.RMS(r)
	lambda := cfg.InitialDamping
	iter := 0

	if len(pr.unknown) == 0 || pr.ev.Rows() == 0 {
		return &Result{
			Success:   errNow <= cfg.Tolerance,
			Converged: errNow <= cfg.Tolerance,
			Error:     finiteError(errNow),
			Message:   "no solvable components",
		}
	}

	stalled := false
	for errNow > cfg.Tolerance && iter < cfg.MaxIterations {
		iter++
		jac := s.jacobian(pr)

		accepted := false
		for attempt := 0; attempt < cfg.MaxStepAttempts; attempt++ {
			step, ok := solveDamped(jac, r, lambda)
			if ok {
				saved := pr.apply(step)
				rTrial := pr.ev.Residuals(pr.frame)
				eTrial := constraint.RMS(rTrial)
				if !math.IsNaN(eTrial) && !math.IsInf(eTrial, 0) && eTrial < errNow {
					r, errNow = rTrial, eTrial
					lambda = math.Max(lambda*cfg.DampingDecrease, cfg.MinDamping)
					accepted = true
					break
				}
				pr.restore(saved)
			}
			if lambda >= cfg.MaxDamping {
				break
			}
			lambda = math.Min(lambda*cfg.DampingIncrease, cfg.MaxDamping)
		}

		s.logger.Debug("solver iteration",
			"iteration", iter,
			"error", errNow,
			"damping", lambda,
			"accepted", accepted,
		)

		if !accepted && lambda >= cfg.MaxDamping {
			stalled = true
			break
		}
	}

	res := &Result{
		Iterations: iter,
		Error:      finiteError(errNow),
	}
	switch {
	case errNow <= cfg.Tolerance:
		res.Converged = true
		res.Success = true
		res.Message = fmt.Sprintf("converged after %d iterations (error %.3g)", iter, res.Error)
	case stalled:
		res.Message = fmt.Sprintf("stalled after %d iterations: no step reduces error %.3g below tolerance %.3g", iter, res.Error, cfg.Tolerance)
	default:
		res.Message = fmt.Sprintf("did not converge within %d iterations: error %.3g exceeds tolerance %.3g", iter, res.Error, cfg.Tolerance)
	}

	s.logger.Debug("solve finished", "iterations", iter, "error", res.Error, "converged", res.Converged)
	return res
}

// jacobian builds the weighted Jacobian of the stacked residual vector with
// respect to the unknown coordinates. Terms without an analytic gradient
// are differentiated by central differences.
func (s *Solver) jacobian(pr *problem) *mat.Dense {
	jac := mat.NewDense(pr.ev.Rows(), 3*len(pr.unknown), nil)

	for _, ent := range pr.ev.Entries() {
		if ent.Term == nil {
			continue
		}
		w := math.Sqrt(ent.Weight)

		if d, ok := ent.Term.(constraint.Differentiable); ok {
			for i, row := range d.Partials(pr.frame) {
				for id, g := range row {
					col, known := pr.column[id]
					if !known {
						continue
					}
					for k := 0; k < 3; k++ {
						jac.Set(ent.Offset+i, col+k, g.Component(k)*w)
					}
				}
			}
			continue
		}

		for _, id := range ent.Term.Components(pr.frame) {
			col, known := pr.column[id]
			if !known {
				continue
			}
			p0, _ := pr.frame.Position(id)
			for k := 0; k < 3; k++ {
				x := p0.Component(k)
				h := 1e-6 * math.Max(1, math.Abs(x))

				pr.frame.Set(id, p0.WithComponent(k, x+h))
				plus := ent.Term.Residual(pr.frame)
				pr.frame.Set(id, p0.WithComponent(k, x-h))
				minus := ent.Term.Residual(pr.frame)
				pr.frame.Set(id, p0)

				for i := range plus {
					jac.Set(ent.Offset+i, col+k, (plus[i]-minus[i])/(2*h)*w)
				}
			}
		}
	}

	return jac
}

// apply adds step to the unknown positions and returns the previous ones.
func (pr *problem) apply(step []float64) []assembly.Vec3 {
	saved := make([]assembly.Vec3, len(pr.unknown))
	for i, id := range pr.unknown {
		p, _ := pr.frame.Position(id)
		saved[i] = p
		pr.frame.Set(id, p.Add(assembly.Vec3{X: step[3*i], Y: step[3*i+1], Z: step[3*i+2]}))
	}
	return saved
}

func (pr *problem) restore(saved []assembly.Vec3) {
	for i, id := range pr.unknown {
		pr.frame.Set(id, saved[i])
	}
}

// sanitize replaces non-finite coordinates with zero.
func sanitize(p assembly.Vec3) assembly.Vec3 {
	for k := 0; k < 3; k++ {
		if x := p.Component(k); math.IsNaN(x) || math.IsInf(x, 0) {
			p = p.WithComponent(k, 0)
		}
	}
	return p
}

func finiteError(e float64) float64 {
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return math.MaxFloat64
	}
	return e
}
