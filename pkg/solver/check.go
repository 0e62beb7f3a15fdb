package solver

import (
	"math"

	"github.com/chazu/lignin-solve/pkg/assembly"
	"github.com/chazu/lignin-solve/pkg/constraint"
)

// DefaultCheckTolerance is the satisfaction threshold for constraints that
// do not declare their own tolerance.
const DefaultCheckTolerance = 1e-3

// Check is the post-solve status of one constraint.
type Check struct {
	ConstraintID string  `json:"constraint_id"`
	Satisfied    bool    `json:"satisfied"`
	Error        float64 `json:"error"`
}

// CheckConstraints evaluates every constraint of asm against positions,
// independently of any solve. Components missing from positions are taken
// at their declared position, and FIXED constraints without an explicit
// target compare against the declared position. The result is aligned with
// Assembly.AllConstraints.
func CheckConstraints(asm *assembly.Assembly, positions Positions) []Check {
	return CheckConstraintsFrom(asm, positions, nil)
}

// CheckResult checks asm at the positions of res, holding FIXED
// constraints to the seeds the solve started from. Each Check.Error then
// equals the matching entry of res.Residuals.
func CheckResult(asm *assembly.Assembly, res *Result) []Check {
	if res == nil {
		return CheckConstraints(asm, nil)
	}
	return CheckConstraintsFrom(asm, res.Positions, res.Seeds)
}

// CheckConstraintsFrom is CheckConstraints with FIXED targets taken from
// seeds. Components absent from seeds fall back to their declared position.
func CheckConstraintsFrom(asm *assembly.Assembly, positions, seeds Positions) []Check {
	ev := constraint.Compile(asm)
	f := ev.Frame(copyPositions(positions), copyPositions(seeds))
	violations := ev.Violations(f)

	checks := make([]Check, ev.Len())
	for i, ent := range ev.Entries() {
		tol := ent.Constraint.Tolerance
		if !(tol > 0) || math.IsInf(tol, 0) {
			tol = DefaultCheckTolerance
		}
		e := violations[i]
		checks[i] = Check{
			ConstraintID: ent.Constraint.ID,
			Satisfied:    e <= tol,
			Error:        e,
		}
	}
	return checks
}

// ApplyChecks records check results on the assembly's constraints and
// returns how many are unsatisfied.
func ApplyChecks(asm *assembly.Assembly, checks []Check) int {
	if asm == nil {
		return 0
	}
	unsatisfied := 0
	for i, c := range checks {
		if !asm.RecordCheck(i, c.Satisfied, c.Error) {
			break
		}
		if !c.Satisfied {
			unsatisfied++
		}
	}
	return unsatisfied
}

func copyPositions(p Positions) Positions {
	out := make(Positions, len(p))
	for id, v := range p {
		out[id] = v
	}
	return out
}
