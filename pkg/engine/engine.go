// Package engine provides the Lisp evaluation engine for assembly scripts.
// It wraps zygomys in a sandboxed environment and produces an Assembly
// from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/lignin-solve/pkg/assembly"
	"github.com/chazu/lignin-solve/pkg/kernel"
	"github.com/chazu/lignin-solve/pkg/kernel/sdfx"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for assembly scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	gens    generations
	timeout time.Duration
	kernel  kernel.Kernel
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout for this engine.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithKernel sets the geometry kernel used by box-anchors.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) {
		if k != nil {
			e.kernel = k
		}
	}
}

// NewEngine creates a new Engine instance backed by the sdfx kernel.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, kernel: sdfx.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new Assembly.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns assembly + nil errors + nil error
//   - On parse/eval failure: returns nil assembly + eval errors + nil error
//   - On fatal failure: returns nil + nil + error (ErrTimeout, ErrSuperseded
//     or a recovered panic)
func (e *Engine) Evaluate(source string) (*assembly.Assembly, []EvalError, error) {
	gen := e.gens.next()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		asm, evalErrs, err := e.evaluate(source)
		ch <- evalResult{asm: asm, errors: evalErrs, err: err}
	}()

	return e.gens.await(ch, gen, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*assembly.Assembly, []EvalError, error) {
	b := assembly.NewBuilder("untitled")

	// Empty source is a valid program that produces an empty assembly.
	if strings.TrimSpace(source) == "" {
		asm, err := b.Build()
		return asm, nil, err
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, b, e.kernel)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	asm, err := b.Build()
	if err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	return asm, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// No line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
