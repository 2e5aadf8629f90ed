// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package problems provides benchmark objectives for the L-BFGS optimizer.
package problems

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Evaluation computes f(x) and stores ∇f(x) in g.
type Evaluation = func(x, g []float64, step float64) float64

// Problem is an objective with its starting point.
type Problem struct {
	Name string
	X0   []float64
	Eval Evaluation
	// Coefficient of the L1 term expected by the problem, zero for smooth problems.
	OrthantwiseC float64
}

// Start returns a copy of the starting point.
func (p *Problem) Start() []float64 {
	return slices.Clone(p.X0)
}

// Value returns the objective without its gradient.
// The returned function is not safe for concurrent use.
func (p *Problem) Value() func(x []float64) float64 {
	var g []float64
	return func(x []float64) float64 {
		if len(g) != len(x) {
			g = make([]float64, len(x))
		}
		return p.Eval(x, g, 0)
	}
}

// Quadratic returns f(x) = ∑ i (xᵢ - 1)² whose minimizer is x = 1.
func Quadratic(n int) *Problem {
	return &Problem{
		Name: "quadratic",
		X0:   make([]float64, n),
		Eval: func(x, g []float64, _ float64) (f float64) {
			for i, v := range x {
				w := float64(i + 1)
				f += w * (v - 1) * (v - 1)
				g[i] = 2 * w * (v - 1)
			}
			return
		},
	}
}

// Rosenbrock returns the extended Rosenbrock function on n (even) variables:
//
//	f(x) = ∑ (1 - x₂ᵢ)² + 100 (x₂ᵢ₊₁ - x₂ᵢ²)²
//
// starting from (-1.2, 1, -1.2, 1, ...).
func Rosenbrock(n int) *Problem {
	n += n % 2
	x0 := make([]float64, n)
	for i := 0; i < n; i += 2 {
		x0[i], x0[i+1] = -1.2, 1
	}
	return &Problem{
		Name: "rosenbrock",
		X0:   x0,
		Eval: func(x, g []float64, _ float64) (f float64) {
			for i := 0; i < len(x); i += 2 {
				t1 := 1 - x[i]
				t2 := 10 * (x[i+1] - x[i]*x[i])
				g[i+1] = 20 * t2
				g[i] = -2 * (x[i]*g[i+1] + t1)
				f += t1*t1 + t2*t2
			}
			return
		},
	}
}

// LinearLeastSquares is the objective f(x) = ½ ‖ Ax - b ‖².
type LinearLeastSquares struct {
	a *mat.Dense
	b *mat.VecDense
}

// NewLeastSquares creates the least squares objective of the design matrix a and the targets b.
func NewLeastSquares(a *mat.Dense, b []float64) (*LinearLeastSquares, error) {
	r, _ := a.Dims()
	if r != len(b) {
		return nil, fmt.Errorf("design matrix has %d rows but %d targets", r, len(b))
	}
	return &LinearLeastSquares{a: a, b: mat.NewVecDense(len(b), slices.Clone(b))}, nil
}

// Eval computes ½ ‖ Ax - b ‖² and its gradient Aᵀ(Ax - b).
func (ls *LinearLeastSquares) Eval(x, g []float64, _ float64) float64 {
	r, c := ls.a.Dims()
	if len(x) != c || len(g) != c {
		panic("bound check error")
	}
	res := mat.NewVecDense(r, nil)
	res.MulVec(ls.a, mat.NewVecDense(c, x))
	res.SubVec(res, ls.b)
	mat.NewVecDense(c, g).MulVec(ls.a.T(), res)
	return 0.5 * mat.Dot(res, res)
}

// Solution solves the normal equations AᵀAx = Aᵀb.
func (ls *LinearLeastSquares) Solution() ([]float64, error) {
	_, c := ls.a.Dims()
	var ata mat.Dense
	ata.Mul(ls.a.T(), ls.a)
	atb := mat.NewVecDense(c, nil)
	atb.MulVec(ls.a.T(), ls.b)
	x := mat.NewVecDense(c, nil)
	if err := x.SolveVec(&ata, atb); err != nil {
		return nil, err
	}
	return x.RawVector().Data, nil
}

// LeastSquares returns a line fitting problem of n points y = 1 + 0.5t + noise.
func LeastSquares(n int) *Problem {
	n = max(n, 2)
	a := mat.NewDense(n, 2, nil)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i)
		a.Set(i, 0, 1)
		a.Set(i, 1, t)
		b[i] = 1 + 0.5*t + 0.1*math.Sin(t)
	}
	ls, _ := NewLeastSquares(a, b)
	return &Problem{
		Name: "leastsquares",
		X0:   make([]float64, 2),
		Eval: ls.Eval,
	}
}

// Lasso returns f(x) = ∑ (xᵢ - tᵢ)² to be minimized with the L1 coefficient c.
// The minimizer is the soft-threshold xᵢ = 𝚜𝚒𝚐𝚗(tᵢ) 𝚖𝚊𝚡(|tᵢ| - c/2, 0).
func Lasso(targets []float64, c float64) *Problem {
	t := slices.Clone(targets)
	return &Problem{
		Name:         "lasso",
		X0:           make([]float64, len(t)),
		OrthantwiseC: c,
		Eval: func(x, g []float64, _ float64) float64 {
			floats.SubTo(g, x, t)
			f := floats.Dot(g, g)
			floats.Scale(2, g)
			return f
		},
	}
}

// SoftThreshold returns the minimizer of Lasso(targets, c).
func SoftThreshold(targets []float64, c float64) []float64 {
	x := make([]float64, len(targets))
	for i, t := range targets {
		x[i] = math.Copysign(math.Max(math.Abs(t)-c/2, 0), t)
	}
	return x
}

var registry = map[string]func(n int) *Problem{
	"quadratic":    Quadratic,
	"rosenbrock":   Rosenbrock,
	"leastsquares": LeastSquares,
	"lasso": func(n int) *Problem {
		t := make([]float64, n)
		for i := range t {
			t[i] = math.Sin(float64(i + 1))
		}
		return Lasso(t, 1)
	},
}

// Names returns the registered problem names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup creates the registered problem of dimension n.
func Lookup(name string, n int) (*Problem, error) {
	create, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q", name)
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", n)
	}
	return create(n), nil
}
