// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

// correction is one (s, y) pair of the limited-memory BFGS matrix.
type correction struct {
	s, y   []float64 // s = xₖ₊₁ - xₖ, y = gₖ₊₁ - gₖ
	ys, yy float64   // yᵀs, yᵀy
	alpha  float64
}

// history is a ring of the m most recent corrections.
// Slots are overwritten oldest-first.
type history struct {
	m     int
	slots []correction
	spare correction
	end   int // slot receiving the next correction
	count int // number of live slots
}

func (h *history) init(n, m int) {
	// one backing array for all the 2×(m+1) vectors
	buf := make([]float64, 2*(m+1)*n)
	next := func() []float64 {
		v := buf[:n:n]
		buf = buf[n:]
		return v
	}
	h.m = m
	h.slots = make([]correction, m)
	for i := range h.slots {
		h.slots[i].s, h.slots[i].y = next(), next()
	}
	h.spare.s, h.spare.y = next(), next()
	h.reset()
}

func (h *history) reset() {
	h.end, h.count = 0, 0
}

// push stores s = x - xp and y = g - gp as the newest correction.
//
// The pair is dropped when the curvature condition yᵀs > 𝚎𝚙𝚜𝚖𝚌𝚑 × yᵀy does not hold,
// since the two-loop recursion divides by yᵀs.
func (h *history) push(x, xp, g, gp []float64) bool {

	c := &h.spare
	diffTo(c.s, x, xp)
	diffTo(c.y, g, gp)
	c.ys = dot(c.y, c.s)
	c.yy = dot(c.y, c.y)

	if c.ys <= epsmch*c.yy {
		return false
	}

	h.slots[h.end], h.spare = h.spare, h.slots[h.end]
	h.end = (h.end + 1) % h.m
	if h.count < h.m {
		h.count++
	}
	return true
}

// direction computes d = -Hg with the two-loop recursion, where H is the
// limited-memory approximation of the inverse hessian.
// Without any correction, H is the identity.
func (h *history) direction(d, g []float64) {

	negCopy(d, g)
	if h.count == 0 {
		return
	}

	m := h.m
	j := h.end

	// newest to oldest
	for i := 0; i < h.count; i++ {
		j = (j + m - 1) % m
		c := &h.slots[j]
		c.alpha = dot(c.s, d) / c.ys // αⱼ = sⱼᵀd / yⱼᵀsⱼ
		axpy(d, -c.alpha, c.y)       // d = d - αⱼyⱼ
	}

	// H₀ = (yᵀs / yᵀy) I of the newest correction
	newest := &h.slots[(h.end+m-1)%m]
	scale(d, newest.ys/newest.yy)

	// oldest to newest
	for i := 0; i < h.count; i++ {
		c := &h.slots[j]
		beta := dot(c.y, d) / c.ys // βⱼ = yⱼᵀd / yⱼᵀsⱼ
		axpy(d, c.alpha-beta, c.s) // d = d + (αⱼ - βⱼ)sⱼ
		j = (j + 1) % m
	}
}
