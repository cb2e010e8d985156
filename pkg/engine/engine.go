// Package engine provides the Lisp scripting front end for strata.
// It wraps zygomys in a sandboxed environment and builds an evaluated
// document from user source code.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/strata/pkg/document"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning reports a group that evaluated with a problem: a failed
// generate or solid-model step, or a sketch the solver could not satisfy.
type EvalWarning struct {
	Group   document.ID
	Name    string
	Message string
}

func (w EvalWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Name, w.Message)
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Document *document.Document
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for strata evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh document for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	docOpts []document.Option
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDocumentOptions sets the options every evaluated document is created
// with, typically its solver and kernel.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(e *Engine) { e.docOpts = append(e.docOpts, opts...) }
}

// WithLogger sets the engine's logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Evaluate takes Lisp source code and produces a new evaluated Document.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns document + nil errors + nil error
//   - On parse/eval failure: returns nil document + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*document.Document, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		doc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{doc: doc, errors: evalErrs, err: err}
	}()

	doc, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout, e.logger)
	if err != nil {
		e.logger.Warn("evaluation failed", "error", err)
	}
	return doc, evalErrs, err
}

// Run evaluates source like Evaluate and collects per-group warnings from
// the resulting document.
func (e *Engine) Run(source string) (EvalResult, error) {
	doc, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Document: doc, Errors: evalErrs}
	if doc != nil {
		res.Warnings = Warnings(doc)
	}
	return res, nil
}

// Warnings lists the groups of doc that evaluated with an error or an
// unsolved sketch, in evaluation order.
func Warnings(doc *document.Document) []EvalWarning {
	var out []EvalWarning
	for _, g := range doc.GroupsSorted() {
		if err := g.Err(); err != nil {
			out = append(out, EvalWarning{Group: g.ID, Name: g.Name, Message: err.Error()})
		}
		if g.Status != document.SolveOK {
			out = append(out, EvalWarning{Group: g.ID, Name: g.Name, Message: "solve: " + g.Status.String()})
		}
	}
	return out
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*document.Document, []EvalError, error) {
	doc := document.New(e.docOpts...)

	// Empty source is a valid program that produces the default document.
	if strings.TrimSpace(source) == "" {
		return doc, nil, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, newBuilder(doc))

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		evalErrs := parseZygomysError(err)
		return nil, evalErrs, nil
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		evalErrs := parseZygomysError(err)
		return nil, evalErrs, nil
	}

	doc.UpdatePending(document.None, nil)
	e.logger.Debug("evaluated script", "groups", len(doc.GroupsSorted()), "entities", len(doc.Entities()))
	return doc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
