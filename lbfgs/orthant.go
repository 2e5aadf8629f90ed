// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import "math"

// l1Norm computes ∑ |xᵢ| for i ∈ [start, end).
func l1Norm(x []float64, start, end int) float64 {
	norm := zero
	for _, v := range x[start:end] {
		norm += math.Abs(v)
	}
	return norm
}

// pseudoGradient computes the pseudo-gradient of F(x) = f(x) + c ‖ x ‖₁ for the L1 norm on [start, end).
//
// The sub-differential of F at coordinate i is chosen as:
//
//	𝚙𝚐ᵢ = gᵢ - c    if xᵢ < 0
//	𝚙𝚐ᵢ = gᵢ + c    if xᵢ > 0
//	𝚙𝚐ᵢ = gᵢ + c    if xᵢ = 0 and gᵢ < -c
//	𝚙𝚐ᵢ = gᵢ - c    if xᵢ = 0 and gᵢ > c
//	𝚙𝚐ᵢ = 0         otherwise
//
// Variables out of the range keep their gradient.
func pseudoGradient(pg, x, g []float64, c float64, start, end int) {

	n := len(x)
	if n > len(pg) || n > len(g) || start < 0 || end > n {
		panic("bound check error")
	}

	copy(pg[:start], g[:start])

	for i := start; i < end; i++ {
		switch {
		case x[i] < zero:
			pg[i] = g[i] - c
		case x[i] > zero:
			pg[i] = g[i] + c
		case g[i] < -c:
			// right partial derivative
			pg[i] = g[i] + c
		case g[i] > c:
			// left partial derivative
			pg[i] = g[i] - c
		default:
			pg[i] = zero
		}
	}

	copy(pg[end:n], g[end:n])
}

// project zeroes every dᵢ (i ∈ [start, end)) that does not share the sign of signᵢ.
func project(d, sign []float64, start, end int) {
	for i := start; i < end; i++ {
		if d[i]*sign[i] <= zero {
			d[i] = zero
		}
	}
}

// orthant chooses the orthant explored by the line search:
//
//	ξᵢ = xᵢ       if xᵢ ≠ 0
//	ξᵢ = -𝚙𝚐ᵢ     otherwise
func orthant(wp, xp, pg []float64) {
	if len(wp) != len(xp) || len(wp) != len(pg) {
		panic("bound check error")
	}
	for i, x := range xp {
		if x == zero {
			wp[i] = -pg[i]
		} else {
			wp[i] = x
		}
	}
}

// constrainDirection zeroes every dᵢ (i ∈ [start, end)) whose sign agrees with 𝚙𝚐ᵢ,
// so that d stays a descent direction of the current orthant.
// The work slice receives d ⊙ 𝚙𝚐.
func constrainDirection(d, pg, work []float64, start, end int) {
	w := work[start:end]
	mulTo(w, d[start:end], pg[start:end])
	for i, v := range w {
		if v >= zero {
			d[start+i] = zero
		}
	}
}
