package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chazu/strata/pkg/document"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	doc    *document.Document
	errors []EvalError
	err    error
}

// waitWithTimeout waits for the result of evaluation gen. A result whose
// generation is no longer current is dropped with ErrSuperseded.
//
// A timed-out script keeps running in its goroutine until zygomys returns;
// its document is never handed out because the buffered channel is only
// read here.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
	logger *slog.Logger,
) (*document.Document, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			logger.Debug("dropping stale evaluation", "generation", gen, "current", current)
			return nil, nil, ErrSuperseded
		}
		return res.doc, res.errors, res.err

	case <-timer.C:
		logger.Warn("abandoning evaluation", "generation", gen, "timeout", timeout)
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
