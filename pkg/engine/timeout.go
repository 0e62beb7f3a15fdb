package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/lignin-solve/pkg/assembly"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult passes evaluation output from the worker goroutine.
type evalResult struct {
	asm    *assembly.Assembly
	errors []EvalError
	err    error
}

// generations hands out increasing evaluation numbers. Only the most recent
// number is current.
type generations struct {
	mu   sync.Mutex
	last uint64
}

func (g *generations) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return g.last
}

func (g *generations) current(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gen == g.last
}

// await blocks until the worker for gen reports on ch or timeout elapses.
// A worker that outlives its timeout sends into the buffered channel and
// its result is dropped.
func (g *generations) await(ch <-chan evalResult, gen uint64, timeout time.Duration) (*assembly.Assembly, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !g.current(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.asm, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
