// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package numdiff approximates the gradient of scalar objectives by finite differences.
package numdiff

import (
	"math"

	"github.com/pkg/errors"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// ParseMethod returns the method named "forward" or "central".
func ParseMethod(name string) (Method, error) {
	switch name {
	case "forward":
		return Forward, nil
	case "central":
		return Central, nil
	}
	return 0, errors.Errorf("unknown finite difference method %q", name)
}

// Approx estimates the gradient of a scalar function.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type Approx struct {
	// Function of which to estimate the gradient.
	Object func(x []float64) float64
	// Finite difference method to use.
	Method Method
	// Relative step size used to compute absolute step size.
	// The default absolute step size is h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0) when RelStep is provided.
	RelStep float64
	// Absolute step size to use, the RelStep is used when AbsStep is not provide.
	// For Central method the sign of AbsStep is ignored.
	AbsStep float64

	absStep []float64
}

// Gradient stores the approximation of ∇f(x0) in g and returns f(x0).
// The x0 is perturbed during the evaluation but restored on return.
func (a *Approx) Gradient(x0, g []float64) (float64, error) {

	switch {
	case len(x0) == 0:
		return 0, errors.New("empty x0")
	case len(x0) != len(g):
		return 0, errors.New("invalid gradient dimensions")
	case a.Method != Forward && a.Method != Central:
		return 0, errors.New("unknown method")
	case a.Object == nil:
		return 0, errors.New("object function is required")
	}

	if len(a.absStep) != len(x0) {
		a.absStep = make([]float64, len(x0))
	}
	a.absoluteStep(x0)

	f0 := a.Object(x0)
	if a.Method == Central {
		a.approxCentral(x0, g)
	} else {
		a.approxForward(x0, f0, g)
	}
	return f0, nil
}

func (a *Approx) absoluteStep(x0 []float64) {
	h := a.absStep
	if len(h) != len(x0) {
		panic("bound check error")
	}

	eps := sqrtEps
	if a.Method == Central {
		eps = cubeEps
	}

	abs, rel := a.AbsStep, a.RelStep
	for i, v := range x0 {
		var s float64
		switch {
		case abs != 0:
			s = abs
		case rel != 0:
			s = math.Copysign(rel, v) * math.Abs(v)
		}
		if (v+s)-v == 0 {
			s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
		if a.Method == Central {
			s = math.Abs(s)
		}
		h[i] = s
	}
}

func (a *Approx) approxForward(x0 []float64, f0 float64, g []float64) {
	for i, s := range a.absStep {
		t := x0[i]
		x0[i] = t + s
		g[i] = (a.Object(x0) - f0) / s
		x0[i] = t
	}
}

func (a *Approx) approxCentral(x0, g []float64) {
	for i, s := range a.absStep {
		t := x0[i]
		x0[i] = t - s
		f1 := a.Object(x0)
		x0[i] = t + s
		f2 := a.Object(x0)
		g[i] = (f2 - f1) / (2 * s)
		x0[i] = t
	}
}

// Evaluation turns a function without gradient into an objective for the optimizer.
// Every call costs len(x)+1 (Forward) or 2×len(x)+1 (Central) evaluations of f.
// The returned function is not safe for concurrent use.
func Evaluation(f func(x []float64) float64, method Method) func(x, g []float64, step float64) float64 {
	a := Approx{Object: f, Method: method}
	return func(x, g []float64, _ float64) float64 {
		fx, err := a.Gradient(x, g)
		if err != nil {
			panic(err)
		}
		return fx
	}
}
