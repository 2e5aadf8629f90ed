// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import (
	"fmt"
	"math"
	"strings"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	p5   = 0.5
)

// machine epsilon
var epsmch = math.Nextafter(1, 2) - 1

// LineSearch selects the line-search strategy.
type LineSearch int

const (
	// MoreThuente uses the More-Thuente method with safeguarded cubic interpolation.
	MoreThuente LineSearch = iota
	// BacktrackingArmijo accepts the first step that satisfies the sufficient decrease condition.
	BacktrackingArmijo
	// BacktrackingWolfe additionally requires the regular Wolfe curvature condition.
	BacktrackingWolfe
	// BacktrackingStrongWolfe additionally requires the strong Wolfe curvature condition.
	BacktrackingStrongWolfe
)

// Backtracking is an alias of BacktrackingWolfe.
const Backtracking = BacktrackingWolfe

func (l LineSearch) String() string {
	switch l {
	case MoreThuente:
		return "more-thuente"
	case BacktrackingArmijo:
		return "armijo"
	case BacktrackingWolfe:
		return "wolfe"
	case BacktrackingStrongWolfe:
		return "strong-wolfe"
	default:
		return "unknown"
	}
}

// ParseLineSearch returns the strategy named by String, "backtracking" is accepted for BacktrackingWolfe.
func ParseLineSearch(name string) (LineSearch, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "more-thuente", "morethuente":
		return MoreThuente, nil
	case "armijo":
		return BacktrackingArmijo, nil
	case "wolfe", "backtracking":
		return BacktrackingWolfe, nil
	case "strong-wolfe", "strongwolfe":
		return BacktrackingStrongWolfe, nil
	}
	return 0, fmt.Errorf("unknown line search %q", name)
}

func (l LineSearch) wolfeFamily() bool {
	return l == BacktrackingWolfe || l == BacktrackingStrongWolfe
}

// Status is the final state of an optimization.
// Non-negative values are successful terminations, negative values are failures.
type Status int

const (
	// Success the (pseudo-)gradient norm reached the epsilon test.
	Success Status = iota
	// Stop the delta test was satisfied or the progress callback asked to stop.
	Stop
	// AlreadyMinimized the initial point already satisfies the epsilon test.
	AlreadyMinimized
)

const (
	// ErrInvalidN the problem dimension is not positive.
	ErrInvalidN Status = -(iota + 1)
	// ErrInvalidM the history size is not positive.
	ErrInvalidM
	// ErrInvalidEpsilon Param.Epsilon is negative.
	ErrInvalidEpsilon
	// ErrInvalidTestPeriod Param.Past is negative.
	ErrInvalidTestPeriod
	// ErrInvalidDelta Param.Delta is negative.
	ErrInvalidDelta
	// ErrInvalidLineSearch Param.LineSearch is not a known strategy.
	ErrInvalidLineSearch
	// ErrInvalidMinStep Param.MinStep is negative.
	ErrInvalidMinStep
	// ErrInvalidMaxStep Param.MaxStep is less than Param.MinStep.
	ErrInvalidMaxStep
	// ErrInvalidFTol Param.FTol is negative.
	ErrInvalidFTol
	// ErrInvalidWolfe Param.Wolfe is not in (FTol, 1) for a Wolfe backtracking.
	ErrInvalidWolfe
	// ErrInvalidGTol Param.GTol is negative.
	ErrInvalidGTol
	// ErrInvalidXTol Param.XTol is negative.
	ErrInvalidXTol
	// ErrInvalidMaxLineSearch Param.MaxLineSearch is not positive.
	ErrInvalidMaxLineSearch
	// ErrInvalidOrthantwise Param.OrthantwiseC is negative.
	ErrInvalidOrthantwise
	// ErrInvalidOrthantwiseStart Param.OrthantwiseStart is out of [0, n].
	ErrInvalidOrthantwiseStart
	// ErrInvalidOrthantwiseEnd Param.OrthantwiseEnd is greater than n.
	ErrInvalidOrthantwiseEnd
	// ErrOutOfInterval the line-search step went out of the interval of uncertainty.
	ErrOutOfInterval
	// ErrIncorrectTMinMax the interval of uncertainty is inconsistent.
	ErrIncorrectTMinMax
	// ErrRoundingError rounding errors prevent further progress.
	ErrRoundingError
	// ErrMinimumStep the line-search step became smaller than Param.MinStep.
	ErrMinimumStep
	// ErrMaximumStep the line-search step became larger than Param.MaxStep.
	ErrMaximumStep
	// ErrMaximumLineSearch the line search reached Param.MaxLineSearch trials.
	ErrMaximumLineSearch
	// ErrMaximumIteration the algorithm reached Param.MaxIterations.
	ErrMaximumIteration
	// ErrWidthTooSmall the relative width of the interval of uncertainty is at most Param.XTol.
	ErrWidthTooSmall
	// ErrInvalidParameters the line search received an invalid step.
	ErrInvalidParameters
	// ErrIncreaseGradient the search direction is not a descent direction.
	ErrIncreaseGradient
	// ErrEvaluationPanic the evaluation panicked.
	ErrEvaluationPanic
)

var statusText = map[Status]string{
	Success:                    "success",
	Stop:                       "stop",
	AlreadyMinimized:           "already minimized",
	ErrInvalidN:                "invalid number of variables",
	ErrInvalidM:                "invalid history size",
	ErrInvalidEpsilon:          "invalid epsilon",
	ErrInvalidTestPeriod:       "invalid past",
	ErrInvalidDelta:            "invalid delta",
	ErrInvalidLineSearch:       "invalid line search",
	ErrInvalidMinStep:          "invalid min step",
	ErrInvalidMaxStep:          "invalid max step",
	ErrInvalidFTol:             "invalid ftol",
	ErrInvalidWolfe:            "invalid wolfe",
	ErrInvalidGTol:             "invalid gtol",
	ErrInvalidXTol:             "invalid xtol",
	ErrInvalidMaxLineSearch:    "invalid max line search",
	ErrInvalidOrthantwise:      "invalid orthantwise c",
	ErrInvalidOrthantwiseStart: "invalid orthantwise start",
	ErrInvalidOrthantwiseEnd:   "invalid orthantwise end",
	ErrOutOfInterval:           "line search step out of interval",
	ErrIncorrectTMinMax:        "incorrect interval of uncertainty",
	ErrRoundingError:           "rounding errors prevent progress",
	ErrMinimumStep:             "line search step below min step",
	ErrMaximumStep:             "line search step above max step",
	ErrMaximumLineSearch:       "line search reached max trials",
	ErrMaximumIteration:        "reached max iterations",
	ErrWidthTooSmall:           "interval of uncertainty below xtol",
	ErrInvalidParameters:       "invalid line search parameters",
	ErrIncreaseGradient:        "not a descent direction",
	ErrEvaluationPanic:         "evaluation panic",
}

func (s Status) String() string {
	if msg, ok := statusText[s]; ok {
		return msg
	}
	return "unknown status"
}

// Error implements the error interface so a failed Status can be returned as an error.
func (s Status) Error() string {
	return "lbfgs: " + s.String()
}

// Config reports whether the status is a parameter error detected before any evaluation.
func (s Status) Config() bool {
	return s <= ErrInvalidN && s >= ErrInvalidOrthantwiseEnd
}
