// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import (
	"fmt"
	"io"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the banner and the exit summary
	LogLast LogLevel = 0
	// LogEval print also f and ‖g‖ every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration except n-vectors
	LogTrace LogLevel = 99
	// LogVerbose print details of every iteration including x and g (level > 99)
	LogVerbose LogLevel = 100
)

// Logger handles logging output for the optimizer.
// Note the writers must be thread-safe when shared by concurrent optimizations.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for the iteration table.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if l.Msg == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if l.Out == nil {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Evaluation computes the objective function at x and stores its gradient in g.
// The step is the current step of the line search, it is informational only.
// An Evaluation must not retain x or g.
type Evaluation func(x, g []float64, step float64) (f float64)

// Progress receives the location accepted by every iteration:
// the variables x, the gradient g, the objective fx, the norms ‖x‖ and ‖g‖ (pseudo-gradient for OWL-QN),
// the accepted step, the iteration k (from 1) and the number of evaluations ls of its line search.
// Returning a non-zero value cancels the optimization.
type Progress func(x, g []float64, fx, xNorm, gNorm, step float64, k, ls int) int

// Problem specifies the problem for L-BFGS optimizer.
type Problem struct {
	Eval     Evaluation // Objective function and gradient
	Progress Progress   // Optional progress callback
	Param    *Param     // Optional parameters, DefaultParam when nil
	Logger   *Logger    // Optional logger, silent when nil
}

// Result contains the final result of the optimization process.
type Result struct {
	OK      bool      // Whether the optimization terminated successfully.
	F       float64   // Final function value (including the L1 term for OWL-QN).
	X, G    []float64 // Final solution (the caller's slice) and gradient.
	Extra   int       // Value returned by Progress when it cancelled the optimization.
	Summary           // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  Status // Final status after optimization.
	NumIter int    // Number of iterations performed.
	NumEval int    // Number of function and gradient evaluations performed.
}

// Err returns nil when the optimization terminated successfully, otherwise the failed Status.
func (r *Result) Err() error {
	if r.Status >= 0 {
		return nil
	}
	return r.Status
}

// Minimize minimizes the objective from the initial point x, which is updated in place.
// A nil param uses DefaultParam and a nil progress is never called.
//
// Each call allocates its own workspace, so concurrent calls are safe as long as they do not share x.
func Minimize(x []float64, eval Evaluation, progress Progress, param *Param) *Result {
	p := Problem{
		Eval:     eval,
		Progress: progress,
		Param:    param,
	}
	return p.Minimize(x)
}

// Minimize runs the optimization from the initial point x, which is updated in place.
//
// Parameter errors are reported by Result.Status before any evaluation,
// in which case x is left untouched.
func (p *Problem) Minimize(x []float64) *Result {

	logger := Logger{Level: LogNoop}
	if p.Logger != nil {
		logger = *p.Logger
	}

	param := p.Param
	if param == nil {
		param = &DefaultParam
	}

	param2, search, status := param.check(len(x))
	if status == Success && p.Eval == nil {
		status = ErrInvalidParameters
	}
	if status != Success {
		if logger.enable(LogLast) {
			logger.log("L-BFGS: %v\n", status)
		}
		return &Result{X: x, Summary: Summary{Status: status}}
	}

	spec := iterSpec{
		n:        len(x),
		Param:    param2,
		search:   search,
		eval:     p.Eval,
		progress: p.Progress,
		logger:   logger,
	}

	loc := iterLoc{
		x: x,
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		spec:     &spec,
		location: &loc,
	}
	driver.context.init(&spec)

	ctx := &driver.context
	res := driver.mainLoop()
	return &Result{
		OK: res >= 0,
		X:  loc.x, F: loc.f, G: loc.g,
		Extra: ctx.extra,
		Summary: Summary{
			Status:  res,
			NumIter: ctx.iter,
			NumEval: ctx.numEval,
		},
	}
}
