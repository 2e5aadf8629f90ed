// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import (
	"math"
)

// iterSpec is the read-only specification of one optimization.
type iterSpec struct {
	n int
	Param
	search   lineSearch
	eval     Evaluation
	progress Progress
	logger   Logger
}

// orthantWise reports whether OWL-QN is active.
func (s *iterSpec) orthantWise() bool {
	return s.OrthantwiseC > zero
}

// evaluate computes loc.f and loc.g at loc.x.
// It reports false when the evaluation panicked.
func (s *iterSpec) evaluate(loc *iterLoc, ctx *iterCtx) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if s.logger.enable(LogLast) {
				s.logger.log("Evaluation panic: %v\n", r)
			}
		}
	}()
	ctx.numEval++
	loc.f = s.eval(loc.x, loc.g, ctx.step)
	return true
}

// iterLoc is the current location.
type iterLoc struct {
	f    float64
	x, g []float64
}

// iterCtx is the working state owned by one optimization.
type iterCtx struct {
	// saved location before the line search
	fp     float64
	xp, gp []float64 // n
	// search direction
	d []float64 // n
	// pseudo-gradient (OWL-QN only)
	pg []float64 // n
	// line-search orthant (OWL-QN only)
	wp []float64 // n
	// scratch vector
	work []float64 // n
	// objective values of the past iterations (delta test only)
	pf []float64 // past
	// limited-memory corrections
	hist history
	// line-search step length
	step float64
	// norms of the current location
	xNorm, gNorm float64
	// iteration counter (from 1)
	iter int
	// total number of evaluations
	numEval int
	// evaluations of the last line search
	numSearch int
	// number of corrections dropped by the curvature condition
	numSkip int
	// value returned by the progress callback
	extra int
}

// init allocates the workspace,
// approximately float64[2×mn + 5×n + past] (+ 2×n for OWL-QN).
func (c *iterCtx) init(spec *iterSpec) {
	n := spec.n
	buf := make([]float64, 4*n)
	c.xp, c.gp, c.d, c.work = buf[:n:n], buf[n:2*n:2*n], buf[2*n:3*n:3*n], buf[3*n:]
	if spec.orthantWise() {
		buf = make([]float64, 2*n)
		c.pg, c.wp = buf[:n:n], buf[n:]
	}
	if spec.Past > 0 {
		c.pf = make([]float64, spec.Past)
	}
	c.hist.init(n, spec.M)
}

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	spec     *iterSpec
	location *iterLoc
	context  iterCtx
}

// grad returns the gradient driving the iterations: the pseudo-gradient for OWL-QN.
func (d *iterDriver) grad() []float64 {
	if d.spec.orthantWise() {
		return d.context.pg
	}
	return d.location.g
}

// measure computes the norms of the current location and reports
// whether the convergence test holds:
//
//	‖ g ‖ / 𝚖𝚊𝚡(1, ‖ x ‖) ≤ 𝚎𝚙𝚜𝚒𝚕𝚘𝚗
func (d *iterDriver) measure() bool {
	ctx := &d.context
	ctx.xNorm = norm2(d.location.x)
	ctx.gNorm = norm2(d.grad())
	return ctx.gNorm/math.Max(one, ctx.xNorm) <= d.spec.Epsilon
}

// initLocation evaluates f₀ and g₀ (and the L1 term with the pseudo-gradient for OWL-QN).
func (d *iterDriver) initLocation() bool {
	spec, loc, ctx := d.spec, d.location, &d.context
	if !spec.evaluate(loc, ctx) {
		return false
	}
	if spec.orthantWise() {
		c, start, end := spec.OrthantwiseC, spec.OrthantwiseStart, spec.OrthantwiseEnd
		loc.f += c * l1Norm(loc.x, start, end)
		pseudoGradient(ctx.pg, loc.x, loc.g, c, start, end)
	}
	return true
}

// searchStep saves the current location, performs the line search along the
// current direction, and restores the saved location on failure.
func (d *iterDriver) searchStep() (status Status) {
	spec, loc, ctx := d.spec, d.location, &d.context

	vecCopy(ctx.xp, loc.x)
	vecCopy(ctx.gp, loc.g)
	ctx.fp = loc.f

	ctx.numSearch, status = spec.search(loc, spec, ctx)
	if status != Success {
		vecCopy(loc.x, ctx.xp)
		vecCopy(loc.g, ctx.gp)
		loc.f = ctx.fp
		return
	}

	if spec.orthantWise() {
		pseudoGradient(ctx.pg, loc.x, loc.g, spec.OrthantwiseC, spec.OrthantwiseStart, spec.OrthantwiseEnd)
	}
	return
}

// checkStop applies the stopping tests after a successful line search.
// It returns Success to continue the iterations.
func (d *iterDriver) checkStop(converged bool) (status Status, done bool) {
	spec, loc, ctx := d.spec, d.location, &d.context

	if converged {
		return Success, true
	}

	// The delta test compares f with the value `past` iterations ago:
	//   |fₖ₋ₚₐₛₜ - fₖ| / |fₖ| < 𝚍𝚎𝚕𝚝𝚊
	if ctx.pf != nil {
		k := ctx.iter % spec.Past
		if spec.Past <= ctx.iter {
			rate := math.Abs(ctx.pf[k]-loc.f) / math.Abs(loc.f)
			if rate < spec.Delta {
				return Stop, true
			}
		}
		ctx.pf[k] = loc.f
	}

	if spec.MaxIterations != 0 && spec.MaxIterations <= ctx.iter {
		return ErrMaximumIteration, true
	}
	return Success, false
}

// nextDirection stores the latest correction and computes the next search direction
// with the two-loop recursion. It also chooses the initial step of the next line search.
func (d *iterDriver) nextDirection() {
	spec, loc, ctx := d.spec, d.location, &d.context

	if !ctx.hist.push(loc.x, ctx.xp, loc.g, ctx.gp) {
		ctx.numSkip++
		if spec.logger.enable(LogEval) {
			spec.logger.log("Skipping L-BFGS update at iterate %d.\n", ctx.iter)
		}
	}

	grad := d.grad()
	ctx.hist.direction(ctx.d, grad)

	if spec.orthantWise() {
		// The direction must disagree with the sign of the pseudo-gradient.
		constrainDirection(ctx.d, grad, ctx.work, spec.OrthantwiseStart, spec.OrthantwiseEnd)
	}

	if ctx.hist.count > 0 {
		ctx.step = one
	} else {
		// Steepest descent, as on the first iteration.
		ctx.step = one / norm2(ctx.d)
	}
}

// mainLoop is the main execution loop of the iteration process:
//
//	Validated → Evaluated₀ → Iterating → {Converged | Stopped | Failed}
func (d *iterDriver) mainLoop() (status Status) {

	spec, loc, ctx := d.spec, d.location, &d.context

	d.printInit()
	defer func() { d.printExit(status) }()

	// Calculate f₀ and g₀
	if !d.initLocation() {
		return ErrEvaluationPanic
	}
	if ctx.pf != nil {
		ctx.pf[0] = loc.f
	}

	// Make sure that the initial variables are not a minimizer.
	if d.measure() {
		if spec.logger.enable(LogEval) {
			spec.logger.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", 0, loc.f, ctx.gNorm)
		}
		return AlreadyMinimized
	}

	// The initial hessian is the identity, d₀ = -g₀ with λ₀ = 1 / ‖ d₀ ‖
	negCopy(ctx.d, d.grad())
	ctx.step = one / norm2(ctx.d)

	for ctx.iter = 1; ; ctx.iter++ {

		if status = d.searchStep(); status != Success {
			break
		}

		converged := d.measure()
		d.printIter()

		if spec.progress != nil {
			if ret := spec.progress(loc.x, loc.g, loc.f, ctx.xNorm, ctx.gNorm, ctx.step, ctx.iter, ctx.numSearch); ret != 0 {
				ctx.extra = ret
				status = Stop
				break
			}
		}

		var done bool
		if status, done = d.checkStop(converged); done {
			break
		}

		d.nextDirection()
	}
	return
}

// printInit logs the initialization details of the optimization process.
func (d *iterDriver) printInit() {

	spec, loc := d.spec, d.location
	log := spec.logger

	if !log.enable(LogLast) {
		return
	}

	log.log("RUNNING THE L-BFGS CODE\n")
	log.log("           * * *\n")
	log.log("Machine precision = %10.3e\n", epsmch)
	log.log("N = %d    M = %d\n", spec.n, spec.M)
	if spec.orthantWise() {
		log.log("OWL-QN c = %10.3e on [%d, %d)\n", spec.OrthantwiseC, spec.OrthantwiseStart, spec.OrthantwiseEnd)
	} else {
		log.log("Line search = %v\n", spec.LineSearch)
	}

	if log.enable(LogEval) {
		log.out("RUNNING THE L-BFGS CODE\n\n")
		log.out("N = %d    M = %d\n", spec.n, spec.M)
		log.out("\n   it   nf   nls     step      |x|        |g|          f\n")
	}

	if log.enable(LogVerbose) {
		log.log("\nX0 = ")
		printVec(&log, loc.x)
	}
}

// printIter logs the current iteration details, including the function value,
// gradient norm, and other iteration statistics.
func (d *iterDriver) printIter() {

	spec, loc, ctx := d.spec, d.location, &d.context
	log := spec.logger

	if log.enable(LogTrace) {
		log.log("\n\nITERATION %5d\n", ctx.iter)
		log.log("LINE SEARCH %d times; step = %12.5e\n", ctx.numSearch, ctx.step)
		log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", ctx.iter, loc.f, ctx.gNorm)
		if log.enable(LogVerbose) {
			log.log("\n X = ")
			printVec(&log, loc.x)
			log.log(" G = ")
			printVec(&log, loc.g)
		}
	} else if log.enable(LogEval) {
		if ctx.iter%int(log.Level) == 0 {
			log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", ctx.iter, loc.f, ctx.gNorm)
		}
	}

	if log.enable(LogEval) {
		log.out("%5d %4d %5d %10.3e %10.3e %10.3e %10.3e\n",
			ctx.iter, ctx.numEval, ctx.numSearch, ctx.step, ctx.xNorm, ctx.gNorm, loc.f)
	}
}

// printExit logs the final statistics and exit conditions of the optimization process.
func (d *iterDriver) printExit(status Status) {

	spec, loc, ctx := d.spec, d.location, &d.context
	log := spec.logger

	if !log.enable(LogLast) {
		return
	}

	log.log("\n           * * *\n")
	log.log("Tit   = total number of iterations\n")
	log.log("Tnf   = total number of function evaluations\n")
	log.log("Skip  = number of L-BFGS updates skipped\n")
	log.log("G     = norm of the final (pseudo-)gradient\n")
	log.log("F     = final function value\n")
	log.log("\n           * * *\n")
	log.log("\n   N      Tit      Tnf   Skip      G         F\n")
	log.log("%5d %6d %7d %6d %6.2e %9.5e\n", spec.n, ctx.iter, ctx.numEval, ctx.numSkip, ctx.gNorm, loc.f)

	var msg string
	switch {
	case status == Success:
		msg = "CONVERGENCE: NORM_OF_GRADIENT_<=_EPSILON"
	case status == AlreadyMinimized:
		msg = "CONVERGENCE: INITIAL_X_IS_A_MINIMIZER"
	case status == Stop && ctx.extra != 0:
		msg = "STOP: CALLBACK REQUESTED HALT"
	case status == Stop:
		msg = "STOP: REL_REDUCTION_OF_F_<_DELTA"
	case status == ErrMaximumIteration:
		msg = "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case status == ErrEvaluationPanic:
		msg = "ABNORMAL_TERMINATION_IN_EVALUATION"
	default:
		msg = "ABNORMAL_TERMINATION_IN_LNSRCH"
	}
	log.log("\n%s\n", msg)

	if status < 0 && status != ErrMaximumIteration {
		log.log("\n %v.\n", status)
		if status != ErrEvaluationPanic {
			log.log("   Previous x, f and g restored.\n")
		}
	}

	if log.enable(LogVerbose) {
		log.log("\n X = ")
		printVec(&log, loc.x)
	}
}

func printVec(log *Logger, v []float64) {
	for i, v := range v {
		log.log("%.2e ", v)
		if (i+1)%6 == 0 {
			log.log("\n     ")
		}
	}
	log.log("\n")
}
