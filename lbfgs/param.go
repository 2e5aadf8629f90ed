// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

// Param controls the L-BFGS (and OWL-QN) iterations.
// A Param is read-only during an optimization, so one value can be shared by many goroutines.
type Param struct {
	// The number of corrections kept to approximate the inverse hessian matrix.
	// Values less than 3 are not recommended, large values result in excessive computing time.
	M int
	// The iteration will stop when the (pseudo-)gradient satisfied:
	//   ‖ g ‖ / 𝚖𝚊𝚡(1, ‖ x ‖) ≤ 𝚎𝚙𝚜𝚒𝚕𝚘𝚗
	Epsilon float64
	// Distance (in iterations) used by the delta-based stopping test.
	// Zero disables the test.
	Past int
	// The iteration will stop when the objective value satisfied:
	//   |fₖ₋ₚₐₛₜ - fₖ| / |fₖ| < 𝚍𝚎𝚕𝚝𝚊
	Delta float64
	// The iteration will stop when the number of iteration exceeds limit.
	// Zero means iterate until convergence or error.
	MaxIterations int
	// The line-search strategy.
	// It is ignored in favor of the OWL-QN backtracking when OrthantwiseC > 0.
	LineSearch LineSearch
	// The maximum number of trials for the line search per iteration.
	MaxLineSearch int
	// The minimum and maximum step length of the line search.
	MinStep, MaxStep float64
	// Tolerance of the sufficient decrease (Armijo) condition, in range (0, 0.5).
	FTol float64
	// Coefficient of the Wolfe curvature condition used by backtracking, in range (FTol, 1).
	Wolfe float64
	// Tolerance of the curvature condition used by More-Thuente, in range (FTol, 1).
	GTol float64
	// Relative tolerance of the interval of uncertainty used by More-Thuente.
	XTol float64
	// Coefficient of the L1 norm of x. Positive value switches to OWL-QN that minimizes
	//   F(x) = f(x) + 𝚌 ‖ x ‖₁
	OrthantwiseC float64
	// The half-open range [OrthantwiseStart, OrthantwiseEnd) of variables the L1 norm applies to.
	// Negative OrthantwiseEnd means the problem dimension.
	OrthantwiseStart, OrthantwiseEnd int
}

// DefaultParam holds the default parameters.
var DefaultParam = Param{
	M:                6,
	Epsilon:          1e-5,
	Past:             0,
	Delta:            1e-5,
	MaxIterations:    0,
	LineSearch:       BacktrackingWolfe,
	MaxLineSearch:    40,
	MinStep:          1e-20,
	MaxStep:          1e20,
	FTol:             1e-4,
	Wolfe:            0.9,
	GTol:             0.9,
	XTol:             1e-16,
	OrthantwiseC:     0,
	OrthantwiseStart: 0,
	OrthantwiseEnd:   -1,
}

// Validate checks the parameters against a problem of dimension n.
// It returns nil or the failed Status.
func (p *Param) Validate(n int) error {
	if _, _, s := p.check(n); s != Success {
		return s
	}
	return nil
}

// check validates the parameters and selects the line-search strategy.
// The returned Param is a copy with OrthantwiseEnd resolved.
func (p *Param) check(n int) (spec Param, search lineSearch, status Status) {

	spec = *p

	switch {
	case n <= 0:
		status = ErrInvalidN
	case spec.M <= 0:
		status = ErrInvalidM
	case spec.Epsilon < zero:
		status = ErrInvalidEpsilon
	case spec.Past < 0:
		status = ErrInvalidTestPeriod
	case spec.Delta < zero:
		status = ErrInvalidDelta
	case spec.MinStep < zero:
		status = ErrInvalidMinStep
	case spec.MaxStep < spec.MinStep:
		status = ErrInvalidMaxStep
	case spec.FTol < zero:
		status = ErrInvalidFTol
	case spec.LineSearch.wolfeFamily() && (spec.Wolfe <= spec.FTol || one <= spec.Wolfe):
		status = ErrInvalidWolfe
	case spec.GTol < zero:
		status = ErrInvalidGTol
	case spec.XTol < zero:
		status = ErrInvalidXTol
	case spec.MaxLineSearch <= 0:
		status = ErrInvalidMaxLineSearch
	case spec.OrthantwiseC < zero:
		status = ErrInvalidOrthantwise
	case spec.OrthantwiseStart < 0 || n < spec.OrthantwiseStart:
		status = ErrInvalidOrthantwiseStart
	}
	if status != Success {
		return
	}

	if spec.OrthantwiseEnd < 0 {
		spec.OrthantwiseEnd = n
	}
	if n < spec.OrthantwiseEnd {
		status = ErrInvalidOrthantwiseEnd
		return
	}

	switch spec.LineSearch {
	case MoreThuente:
		search = searchMoreThuente
	case BacktrackingArmijo, BacktrackingWolfe, BacktrackingStrongWolfe:
		search = searchBacktracking
	default:
		status = ErrInvalidLineSearch
		return
	}

	if spec.OrthantwiseC > zero {
		search = searchOrthantWise
	}
	return
}
