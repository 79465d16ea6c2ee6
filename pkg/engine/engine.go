// Package engine evaluates native pfcmesh assembly documents (.zy). A
// document is a zygomys program run in a sandbox; the builtins it calls
// (box, defpart, place, assembly, ...) record parts and their placements
// in a DesignGraph.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/pfcmesh/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
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

// DefaultTimeout bounds the evaluation of one document.
const DefaultTimeout = 5 * time.Second

// Engine evaluates documents. Every call to Evaluate runs in a fresh
// sandbox; nothing carries over from one document to the next.
type Engine struct {
	// Timeout bounds one evaluation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewEngine returns an Engine with the default timeout.
func NewEngine() *Engine {
	return &Engine{Timeout: DefaultTimeout}
}

// evalResult carries an evaluation out of its goroutine.
type evalResult struct {
	graph  *graph.DesignGraph
	errors []EvalError
	err    error
}

// Evaluate runs document source and returns the DesignGraph it builds.
//
//   - success: graph, nil, nil
//   - parse, runtime or structural errors in the document: nil, errors, nil
//   - timeout or interpreter panic: nil, nil, error
func (e *Engine) Evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		g, evalErrs, err := e.evaluate(source)
		ch <- evalResult{graph: g, errors: evalErrs, err: err}
	}()
	return wait(ch, e.timeout())
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// wait returns the result sent on ch, or an error once d has passed. A
// timed out evaluation keeps running in its sandbox; ch is buffered so its
// result is dropped when it finishes.
func wait(ch <-chan evalResult, d time.Duration) (*graph.DesignGraph, []EvalError, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.graph, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", d)
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(source) == "" {
		return graph.New(), nil, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	g := graph.New()
	registerBuiltins(env, g)

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

	// Structural problems in the resulting graph are reported like
	// evaluation errors; warnings are left for the caller to inspect.
	if findings := graph.Errors(graph.Validate(g)); len(findings) > 0 {
		evalErrs := make([]EvalError, 0, len(findings))
		for _, f := range findings {
			evalErrs = append(evalErrs, EvalError{Message: f.Error()})
		}
		return nil, evalErrs, nil
	}

	return g, nil, nil
}

// linePatterns extract a line number from zygomys errors, which read
// "Error on line N: ..." for parse errors and "line N: ..." elsewhere. The
// detail may span lines when a builtin error is wrapped.
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`),
	regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`),
}

// parseZygomysError converts an interpreter error into an EvalError,
// keeping the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range linePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
