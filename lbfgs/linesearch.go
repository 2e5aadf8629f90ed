// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

const (
	searchDec = 0.5
	searchInc = 2.1
)

// lineSearch finds a step λ along ctx.d starting from the saved location (ctx.xp, ctx.fp, ctx.gp).
//
// On entry loc holds the saved location and ctx.step the initial estimate of λ.
// On success loc holds xₖ₊₁ = xₖ + λdₖ with its function value and gradient, and ctx.step holds λ.
// On failure loc is undefined and must be restored by the caller.
//
// The count is the number of evaluations performed.
type lineSearch func(loc *iterLoc, spec *iterSpec, ctx *iterCtx) (count int, status Status)

// searchBacktracking (Armijo, Wolfe and strong Wolfe)
//
// The step λ shrinks (or expands) until it satisfies:
//   - sufficient decrease condition: f(xₖ + λdₖ) ≤ f(xₖ) + 𝚏𝚝𝚘𝚕 λgₖᵀdₖ
//   - regular Wolfe condition: g(xₖ + λdₖ)ᵀdₖ ≥ 𝚠𝚘𝚕𝚏𝚎 gₖᵀdₖ
//   - strong Wolfe condition: |g(xₖ + λdₖ)ᵀdₖ| ≤ 𝚠𝚘𝚕𝚏𝚎 |gₖᵀdₖ|
func searchBacktracking(loc *iterLoc, spec *iterSpec, ctx *iterCtx) (count int, status Status) {

	x, g, d := loc.x, loc.g, ctx.d

	if ctx.step <= zero {
		return 0, ErrInvalidParameters
	}

	dgInit := dot(ctx.gp, d)
	if dgInit >= zero {
		// The search direction must be a descent direction.
		return 0, ErrIncreaseGradient
	}

	fInit := ctx.fp
	dgTest := spec.FTol * dgInit

	for {
		vecCopy(x, ctx.xp)
		axpy(x, ctx.step, d)

		if !spec.evaluate(loc, ctx) {
			return count, ErrEvaluationPanic
		}
		count++

		width := searchDec
		if loc.f <= fInit+ctx.step*dgTest {
			if spec.LineSearch == BacktrackingArmijo {
				return count, Success
			}
			dg := dot(g, d)
			if dg < spec.Wolfe*dgInit {
				width = searchInc
			} else if spec.LineSearch == BacktrackingWolfe {
				return count, Success
			} else if dg <= -spec.Wolfe*dgInit {
				return count, Success
			}
		}

		switch {
		case ctx.step < spec.MinStep:
			return count, ErrMinimumStep
		case ctx.step > spec.MaxStep:
			return count, ErrMaximumStep
		case spec.MaxLineSearch <= count:
			return count, ErrMaximumLineSearch
		}

		ctx.step *= width
	}
}
