// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lbfgs

import "gonum.org/v1/gonum/floats"

// All kernels panic when the lengths of the operands differ.

// dot computes xᵀy.
func dot(x, y []float64) float64 {
	return floats.Dot(x, y)
}

// norm2 computes ‖ x ‖₂.
func norm2(x []float64) float64 {
	return floats.Norm(x, 2)
}

// scale computes y = c × y.
func scale(y []float64, c float64) {
	floats.Scale(c, y)
}

// axpy computes y = y + c × x.
func axpy(y []float64, c float64, x []float64) {
	floats.AddScaled(y, c, x)
}

// vecCopy computes y = x.
func vecCopy(y, x []float64) {
	if len(y) != len(x) {
		panic("bound check error")
	}
	copy(y, x)
}

// negCopy computes y = -x.
func negCopy(y, x []float64) {
	floats.ScaleTo(y, -1, x)
}

// mulTo computes z = x ⊙ y.
func mulTo(z, x, y []float64) {
	floats.MulTo(z, x, y)
}

// diffTo computes z = x - y.
func diffTo(z, x, y []float64) {
	floats.SubTo(z, x, y)
}
