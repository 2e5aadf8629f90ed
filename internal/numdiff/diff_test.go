// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numdiff

import (
	"math"
	"slices"
	"testing"
)

func objScalar(x []float64) float64 {
	return x[0]*math.Sin(x[1]) + math.Pow(x[0], 3)*math.Pow(x[1], -0.5)
}

func gradScalar(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]) + 3*math.Pow(x[0], 2)*math.Pow(x[1], -0.5),
		x[0]*math.Cos(x[1]) - 0.5*math.Pow(x[0], 3)*math.Pow(x[1], -1.5),
	}
}

func TestComputeAbsStp(t *testing.T) {

	x0 := []float64{1e-5, 0, 1, 1e5}

	// auto select relative step
	for method, relStep := range map[Method]float64{
		Forward: sqrtEps,
		Central: cubeEps,
	} {

		expected := []float64{
			relStep,
			relStep * 1,
			relStep * 1,
			relStep * math.Abs(x0[3]),
		}

		a := Approx{Method: method, absStep: make([]float64, 4)}
		a.absoluteStep(x0)
		if !relativeEqual(a.absStep, expected, 1e-12) {
			t.Fatal("unexpected abs step")
		}

		negX0 := make([]float64, len(x0))
		for i, v := range x0 {
			negX0[i] = -v
			if method == Forward {
				expected[i] = math.Copysign(expected[i], -v)
			}
		}

		a.absoluteStep(negX0)
		if !relativeEqual(a.absStep, expected, 1e-12) {
			t.Fatal("unexpected abs step")
		}
	}

	// user-specified relative step
	for _, relStep := range []float64{0.1, 1, 10, 100} {

		expected := []float64{
			relStep * x0[0],
			sqrtEps,
			relStep * x0[2],
			relStep * x0[3],
		}

		a := Approx{Method: Forward, RelStep: relStep, absStep: make([]float64, 4)}
		a.absoluteStep(x0)
		if !relativeEqual(a.absStep, expected, 1e-12) {
			t.Fatal("unexpected abs step")
		}
	}
}

func TestAbsStpSign(t *testing.T) {

	obj := func(x []float64) float64 {
		return -math.Abs(x[0]+1) + math.Abs(x[1]+1)
	}

	x0 := []float64{-1, -1}
	grad := []float64{0, 0}

	a := Approx{Method: Forward, Object: obj, AbsStep: 1e-8}
	if _, err := a.Gradient(x0, grad); err != nil {
		t.Fatal("abs sign failed", err)
	}
	if !relativeEqual(grad, []float64{-1.0, 1.0}, 1e-7) {
		t.Fatal("unexpected abs sign")
	}

	a = Approx{Method: Forward, Object: obj, AbsStep: -1e-8}
	if _, err := a.Gradient(x0, grad); err != nil {
		t.Fatal("abs sign failed", err)
	}
	if !relativeEqual(grad, []float64{1.0, -1.0}, 1e-7) {
		t.Fatal("unexpected abs sign")
	}
}

func TestAccuracy(t *testing.T) {

	for _, method := range []Method{Forward, Central} {
		x0 := []float64{-10.0, 10}
		g := make([]float64, 2)

		a := Approx{Method: method, Object: objScalar}
		f, err := a.Gradient(x0, g)
		if err != nil {
			t.Fatal(err)
		}
		if f != objScalar([]float64{-10, 10}) || !slices.Equal(x0, []float64{-10, 10}) {
			t.Fatal("x0 not restored")
		}

		tol := 1e-5
		if method == Central {
			tol = 1e-9
		}
		for i, want := range gradScalar(x0) {
			if err := math.Abs(want-g[i]) / math.Max(1, math.Abs(g[i])); err > tol {
				t.Fatalf("approx accuracy not enough: method %d, error %g", method, err)
			}
		}
	}
}

func TestInvalid(t *testing.T) {
	a := Approx{Object: objScalar}
	if _, err := a.Gradient(nil, nil); err == nil {
		t.Fatal("expect empty x0 error")
	}
	if _, err := a.Gradient([]float64{1, 1}, []float64{0}); err == nil {
		t.Fatal("expect dimension error")
	}
	a.Method = Method(5)
	if _, err := a.Gradient([]float64{1, 1}, []float64{0, 0}); err == nil {
		t.Fatal("expect method error")
	}
	a = Approx{}
	if _, err := a.Gradient([]float64{1}, []float64{0}); err == nil {
		t.Fatal("expect object error")
	}

	if _, err := ParseMethod("backward"); err == nil {
		t.Fatal("expect unknown method")
	}
}

func TestEvaluation(t *testing.T) {
	m, err := ParseMethod("central")
	if err != nil {
		t.Fatal(err)
	}

	eval := Evaluation(func(x []float64) float64 {
		return (x[0]-1)*(x[0]-1) + 3*x[1]*x[1]
	}, m)

	g := make([]float64, 2)
	f := eval([]float64{2, 1}, g, 1)
	if f != 4 || !relativeEqual(g, []float64{2, 6}, 1e-8) {
		t.Fatal("unexpected evaluation", f, g)
	}
}

func relativeEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, a := range a {
		b := b[i]
		if a == b {
			continue
		}
		if math.Abs(a-b)/math.Max(math.Abs(a), math.Abs(b)) > tol {
			return false
		}
	}
	return true
}
