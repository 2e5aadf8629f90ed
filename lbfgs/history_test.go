// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEmpty(t *testing.T) {
	var h history
	h.init(3, 4)

	d := make([]float64, 3)
	h.direction(d, []float64{1, -2, 3})
	assert.Equal(t, []float64{-1, 2, -3}, d)
}

func TestHistorySecant(t *testing.T) {
	var h history
	h.init(3, 5)

	xs := [][]float64{
		{0, 0, 0},
		{1, 0.5, -0.2},
		{1.3, 0.1, 0.4},
		{0.7, -0.6, 1.1},
	}
	// g = Ax for a symmetric positive definite A
	grad := func(x []float64) []float64 {
		return []float64{
			4*x[0] + x[1],
			x[0] + 3*x[1] + 0.5*x[2],
			0.5*x[1] + 2*x[2],
		}
	}

	for i := 1; i < len(xs); i++ {
		require.True(t, h.push(xs[i], xs[i-1], grad(xs[i]), grad(xs[i-1])))
	}
	require.Equal(t, 3, h.count)

	// H yₖ = sₖ holds for the newest pair.
	newest := &h.slots[(h.end+h.m-1)%h.m]
	y := append([]float64(nil), newest.y...)
	d := make([]float64, 3)
	h.direction(d, y)
	for i := range d {
		assert.InDelta(t, -newest.s[i], d[i], 1e-12)
	}
}

func TestHistoryScaling(t *testing.T) {
	var h history
	h.init(3, 3)

	// f(x) = 2 ‖ x ‖² whose inverse hessian is I / 4
	x, xp := []float64{1, 2, 3}, []float64{0, 1, 1}
	g, gp := []float64{4, 8, 12}, []float64{0, 4, 4}
	require.True(t, h.push(x, xp, g, gp))

	d := make([]float64, 3)
	h.direction(d, g)
	assert.InDeltaSlice(t, []float64{-1, -2, -3}, d, 1e-12)
}

func TestHistoryRing(t *testing.T) {
	var h history
	h.init(1, 2)

	for i := 1; i <= 3; i++ {
		v := float64(i)
		require.True(t, h.push([]float64{v}, []float64{0}, []float64{2 * v}, []float64{0}))
	}

	assert.Equal(t, 2, h.count)
	assert.Equal(t, 1, h.end)
	assert.Equal(t, []float64{3}, h.slots[0].s)
	assert.Equal(t, []float64{2}, h.slots[1].s)

	h.reset()
	assert.Equal(t, 0, h.count)
}

func TestHistoryCurvature(t *testing.T) {
	var h history
	h.init(2, 3)

	// yᵀs < 0
	assert.False(t, h.push([]float64{1, 0}, []float64{0, 0}, []float64{-1, 0}, []float64{0, 0}))
	// y = 0
	assert.False(t, h.push([]float64{1, 0}, []float64{0, 0}, []float64{3, 3}, []float64{3, 3}))
	assert.Equal(t, 0, h.count)

	assert.True(t, h.push([]float64{1, 0}, []float64{0, 0}, []float64{1, 0}, []float64{0, 0}))
	assert.Equal(t, 1, h.count)
}
