// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import "math"

const (
	p66        = 0.66
	xTrapLower = 1.1
	xTrapUpper = 4.0
)

const (
	stageArmijo = 1
	stageWolfe  = 2
)

type searchTask int

const (
	taskStart searchTask = iota
	taskFG               // evaluate f and g at the returned step
	taskConv             // the step satisfies both conditions
	taskWarnRounding     // rounding errors prevent progress
	taskWarnXTol         // the interval of uncertainty is below xtol
	taskWarnStepMax      // the step reached the upper bound
	taskWarnStepMin      // the step reached the lower bound
	taskErrStep          // the initial step is out of bounds
	taskErrInitG         // the initial derivative is not negative
	taskErrTol           // a tolerance is negative
	taskErrBounds        // the upper bound is less than the lower bound
)

// endpoint is a step with its function value and derivative.
type endpoint struct {
	st, f, g float64
}

// scalarSearch (dcsrch)
//
// Finds a step λ that satisfies:
//   - sufficient decrease condition: ϕ(λ) ≤ ϕ(0) + 𝚏𝚝𝚘𝚕 λϕ′(0)
//   - curvature condition: |ϕ′(λ)| ≤ 𝚐𝚝𝚘𝚕 |ϕ′(0)|
//
// Each call of next updates an interval with endpoints x and y.
// The interval is initially chosen so that it contains a minimizer of the modified function:
//
//	ψ(λ) = ϕ(λ) - ϕ(0) - 𝚏𝚝𝚘𝚕 λϕ′(0)
//
// If ψ(λ) ≤ 0 and ϕ′(λ) ≥ 0 for some step, then the interval is chosen so that it contains a minimizer of ϕ.
// If no step can be found that satisfies both conditions, then the search stops with a warning.
//
// # Reference
//
//   - J. J. Moré and D. J. Thuente, Line search algorithms with guaranteed sufficient decrease,
//     ACM Transactions on Mathematical Software 20 (1994), no. 3, pp. 286-307.
type scalarSearch struct {
	ftol, gtol, xtol float64
	stpMin, stpMax   float64

	bracket bool
	stage   int
	f0, g0  float64
	x, y    endpoint // x holds the step with the least function value
	width   [2]float64
	lo, hi  float64 // bounds of the next step
}

// start checks the arguments and returns the task for the initial step.
func (s *scalarSearch) start(f, g, stp float64) searchTask {

	switch {
	case stp < s.stpMin || stp > s.stpMax:
		return taskErrStep
	case g >= zero:
		return taskErrInitG
	case s.ftol < zero || s.gtol < zero || s.xtol < zero || s.stpMin < zero:
		return taskErrTol
	case s.stpMax < s.stpMin:
		return taskErrBounds
	}

	s.bracket = false
	s.stage = stageArmijo
	s.f0, s.g0 = f, g
	s.width[0] = s.stpMax - s.stpMin
	s.width[1] = s.width[0] / p5

	s.x = endpoint{zero, f, g}
	s.y = endpoint{zero, f, g}
	s.lo = zero
	s.hi = stp + xTrapUpper*stp
	return taskFG
}

// next consumes ϕ(λ) and ϕ′(λ) at the step λ returned by the previous call,
// and returns either a new trial step with taskFG or the final task.
func (s *scalarSearch) next(f, g, stp float64) (float64, searchTask) {

	gTest := s.ftol * s.g0
	fTest := s.f0 + stp*gTest

	// Test for warnings and convergence
	switch {
	case s.bracket && (stp <= s.lo || stp >= s.hi):
		return stp, taskWarnRounding
	case s.bracket && s.hi-s.lo <= s.xtol*s.hi:
		return stp, taskWarnXTol
	case stp == s.stpMax && f <= fTest && g <= gTest:
		return stp, taskWarnStepMax
	case stp == s.stpMin && (f > fTest || g >= gTest):
		return stp, taskWarnStepMin
	case f <= fTest && math.Abs(g) <= s.gtol*(-s.g0):
		return stp, taskConv
	}

	if s.stage == stageArmijo && f <= fTest && g >= zero {
		s.stage = stageWolfe
	}

	p := endpoint{stp, f, g}
	if s.stage == stageArmijo && f <= s.x.f && f > fTest {
		// Use the modified function ψ while no step with ψ ≤ 0 and ϕ′ ≥ 0 is found.
		modify := func(e endpoint, sign float64) endpoint {
			return endpoint{e.st, e.f + sign*e.st*gTest, e.g + sign*gTest}
		}
		var x, y endpoint
		x, y, s.bracket, stp = safeStep(modify(s.x, -1), modify(s.y, -1), modify(p, -1), s.bracket, s.lo, s.hi)
		s.x, s.y = modify(x, 1), modify(y, 1)
	} else {
		s.x, s.y, s.bracket, stp = safeStep(s.x, s.y, p, s.bracket, s.lo, s.hi)
	}

	// Decide if a bisection step is needed.
	if s.bracket {
		if math.Abs(s.y.st-s.x.st) >= p66*s.width[1] {
			stp = s.x.st + p5*(s.y.st-s.x.st)
		}
		s.width[1] = s.width[0]
		s.width[0] = math.Abs(s.y.st - s.x.st)
	}

	// Set the minimum and maximum steps allowed for stp.
	if s.bracket {
		s.lo = math.Min(s.x.st, s.y.st)
		s.hi = math.Max(s.x.st, s.y.st)
	} else {
		s.lo = stp + xTrapLower*(stp-s.x.st)
		s.hi = stp + xTrapUpper*(stp-s.x.st)
	}

	stp = math.Min(math.Max(stp, s.stpMin), s.stpMax)

	// Fall back to the best step when no further progress is possible.
	if s.bracket && (stp <= s.lo || stp >= s.hi || s.hi-s.lo <= s.xtol*s.hi) {
		stp = s.x.st
	}
	return stp, taskFG
}

// safeStep (dcstep)
//
// Computes a safeguarded step for the search and updates the interval [x, y]
// that contains a step satisfying the sufficient decrease and curvature condition.
//
// The endpoint x has the least function value, its derivative must be negative in the
// direction of the step, that is x.g and p.st - x.st must have opposite signs.
// If bracket is set then min(x.st, y.st) < p.st < max(x.st, y.st).
// The returned step lies in [lo, hi] unless a minimizer has been bracketed.
func safeStep(x, y, p endpoint, bracket bool, lo, hi float64) (endpoint, endpoint, bool, float64) {

	var stpf float64
	sgnd := p.g * (x.g / math.Abs(x.g))

	// cubic computes the minimizer of the cubic that interpolates a and b
	cubic := func(a, b endpoint) (gamma, theta float64) {
		theta = 3*(a.f-b.f)/(b.st-a.st) + a.g + b.g
		s := math.Max(math.Max(math.Abs(theta), math.Abs(a.g)), math.Abs(b.g))
		gamma = s * math.Sqrt(math.Max(zero, (theta/s)*(theta/s)-(a.g/s)*(b.g/s)))
		return
	}

	switch {
	case p.f > x.f:
		// A higher function value. The minimum is bracketed.
		// If the cubic step is closer to x than the quadratic step, the cubic step is taken,
		// otherwise the average of the cubic and quadratic steps is taken.
		gamma, theta := cubic(x, p)
		if p.st < x.st {
			gamma = -gamma
		}
		q := ((gamma - x.g) + gamma) + p.g
		r := ((gamma - x.g) + theta) / q
		stpc := x.st + r*(p.st-x.st)
		stpq := x.st + ((x.g/((x.f-p.f)/(p.st-x.st)+x.g))/two)*(p.st-x.st)
		if math.Abs(stpc-x.st) < math.Abs(stpq-x.st) {
			stpf = stpc
		} else {
			stpf = stpc + (stpq-stpc)/two
		}
		bracket = true

	case sgnd < zero:
		// A lower function value and derivatives of opposite sign. The minimum is bracketed.
		// If the cubic step is farther from p than the secant step, the cubic step is taken,
		// otherwise the secant step is taken.
		gamma, theta := cubic(x, p)
		if p.st > x.st {
			gamma = -gamma
		}
		q := ((gamma - p.g) + gamma) + x.g
		r := ((gamma - p.g) + theta) / q
		stpc := p.st + r*(x.st-p.st)
		stpq := p.st + (p.g/(p.g-x.g))*(x.st-p.st)
		if math.Abs(stpc-p.st) > math.Abs(stpq-p.st) {
			stpf = stpc
		} else {
			stpf = stpq
		}
		bracket = true

	case math.Abs(p.g) < math.Abs(x.g):
		// A lower function value, derivatives of the same sign, and the magnitude of the derivative decreases.
		// The cubic step is computed only if the cubic tends to infinity in the direction of the step
		// or if the minimum of the cubic is beyond p. Otherwise the cubic step is defined to be the secant step.
		gamma, theta := cubic(x, p)
		if p.st > x.st {
			gamma = -gamma
		}
		q := (gamma + (x.g - p.g)) + gamma
		r := ((gamma - p.g) + theta) / q
		var stpc float64
		switch {
		case r < zero && gamma != zero:
			stpc = p.st + r*(x.st-p.st)
		case p.st > x.st:
			stpc = hi
		default:
			stpc = lo
		}
		stpq := p.st + (p.g/(p.g-x.g))*(x.st-p.st)
		if bracket {
			// Take the step closer to p, but not too close to y.
			if math.Abs(stpc-p.st) < math.Abs(stpq-p.st) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			if p.st > x.st {
				stpf = math.Min(p.st+p66*(y.st-p.st), stpf)
			} else {
				stpf = math.Max(p.st+p66*(y.st-p.st), stpf)
			}
		} else {
			// Take the step farther from p, within [lo, hi].
			if math.Abs(stpc-p.st) > math.Abs(stpq-p.st) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			stpf = math.Max(lo, math.Min(hi, stpf))
		}

	default:
		// A lower function value, derivatives of the same sign, and the magnitude of the derivative does not decrease.
		// If the minimum is not bracketed, the step is either lo or hi, otherwise the cubic step is taken.
		switch {
		case bracket:
			gamma, theta := cubic(p, y)
			if p.st > y.st {
				gamma = -gamma
			}
			q := ((gamma - p.g) + gamma) + y.g
			r := ((gamma - p.g) + theta) / q
			stpf = p.st + r*(y.st-p.st)
		case p.st > x.st:
			stpf = hi
		default:
			stpf = lo
		}
	}

	// Update the interval which contains a minimizer.
	if p.f > x.f {
		y = p
	} else {
		if sgnd < zero {
			y = x
		}
		x = p
	}
	return x, y, bracket, stpf
}

// searchMoreThuente drives scalarSearch along dₖ with ϕ(λ) = f(xₖ + λdₖ) and ϕ′(λ) = g(xₖ + λdₖ)ᵀdₖ.
func searchMoreThuente(loc *iterLoc, spec *iterSpec, ctx *iterCtx) (count int, status Status) {

	x, g, d := loc.x, loc.g, ctx.d

	if ctx.step <= zero {
		return 0, ErrInvalidParameters
	}

	dgInit := dot(ctx.gp, d)
	if dgInit >= zero {
		return 0, ErrIncreaseGradient
	}

	search := scalarSearch{
		ftol: spec.FTol, gtol: spec.GTol, xtol: spec.XTol,
		stpMin: spec.MinStep, stpMax: spec.MaxStep,
	}

	task := search.start(ctx.fp, dgInit, ctx.step)
	for task == taskFG {
		vecCopy(x, ctx.xp)
		axpy(x, ctx.step, d)

		if !spec.evaluate(loc, ctx) {
			return count, ErrEvaluationPanic
		}
		count++

		ctx.step, task = search.next(loc.f, dot(g, d), ctx.step)
		if task == taskFG && spec.MaxLineSearch <= count {
			return count, ErrMaximumLineSearch
		}
	}

	switch task {
	case taskConv:
		status = Success
	case taskWarnRounding:
		status = ErrRoundingError
	case taskWarnXTol:
		status = ErrWidthTooSmall
	case taskWarnStepMax:
		status = ErrMaximumStep
	case taskWarnStepMin:
		status = ErrMinimumStep
	case taskErrStep:
		status = ErrOutOfInterval
	case taskErrInitG:
		status = ErrIncreaseGradient
	case taskErrBounds:
		status = ErrIncorrectTMinMax
	default:
		status = ErrInvalidParameters
	}
	return
}
