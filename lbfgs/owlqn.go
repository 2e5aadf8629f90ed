// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

// searchOrthantWise performs the backtracking of OWL-QN on F(x) = f(x) + c ‖ x ‖₁.
//
// Every trial point is projected onto the orthant ξ chosen from the saved location:
//
//	xₖ₊₁ = π(xₖ + λdₖ; ξ)
//
// and λ shrinks until the sufficient decrease condition holds for the projected step:
//
//	F(xₖ₊₁) ≤ F(xₖ) + 𝚏𝚝𝚘𝚕 (xₖ₊₁ - xₖ)ᵀ𝚙𝚐ₖ
//
// On success ctx.pg still holds the pseudo-gradient at xₖ.
func searchOrthantWise(loc *iterLoc, spec *iterSpec, ctx *iterCtx) (count int, status Status) {

	x, d, pg, wp := loc.x, ctx.d, ctx.pg, ctx.wp
	c, start, end := spec.OrthantwiseC, spec.OrthantwiseStart, spec.OrthantwiseEnd

	if ctx.step <= zero {
		return 0, ErrInvalidParameters
	}

	if dot(pg, d) >= zero {
		return 0, ErrIncreaseGradient
	}

	fInit := ctx.fp
	orthant(wp, ctx.xp, pg)

	for {
		vecCopy(x, ctx.xp)
		axpy(x, ctx.step, d)
		project(x, wp, start, end)

		if !spec.evaluate(loc, ctx) {
			return count, ErrEvaluationPanic
		}
		loc.f += c * l1Norm(x, start, end)
		count++

		diffTo(ctx.work, x, ctx.xp)
		dgTest := dot(ctx.work, pg)

		if loc.f <= fInit+spec.FTol*dgTest {
			return count, Success
		}

		switch {
		case ctx.step < spec.MinStep:
			return count, ErrMinimumStep
		case ctx.step > spec.MaxStep:
			return count, ErrMaximumStep
		case spec.MaxLineSearch <= count:
			return count, ErrMaximumLineSearch
		}

		ctx.step *= searchDec
	}
}
