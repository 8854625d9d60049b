// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linop adapts dense matrices and implicit operators to the
// linear operator contract consumed by the spgl1 solver.
//
// An operator A of shape m×n exposes the forward product 𝐲 = 𝐀𝐱 and the
// adjoint product 𝐱 = 𝐀ᴴ𝐲. The two products must be mutually adjoint:
//
//	⟨𝐀𝐮, 𝐯⟩ = ⟨𝐮, 𝐀ᴴ𝐯⟩ for all 𝐮 ∈ 𝔽ⁿ, 𝐯 ∈ 𝔽ᵐ
//
// This is a precondition of the caller. DotTest measures it for tests.
package linop

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

// ErrDimension is returned when operand lengths do not match the operator shape.
var ErrDimension = errors.New("linop: dimension mismatch")

// Element is the scalar type of an operator: real or complex double precision.
type Element interface {
	float64 | complex128
}

// Kind identifies the element type of an operator.
type Kind int

const (
	// Real operators act on float64 vectors.
	Real Kind = iota
	// Complex operators act on complex128 vectors, the adjoint is the conjugate transpose.
	Complex
)

func (k Kind) String() string {
	switch k {
	case Real:
		return "real"
	case Complex:
		return "complex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf reports the element kind of T.
func KindOf[T Element]() Kind {
	var z T
	if _, ok := any(z).(complex128); ok {
		return Complex
	}
	return Real
}

// Operator is a linear map from 𝔽ⁿ to 𝔽ᵐ.
//
// Implementations must not retain dst or the input slice and must not
// modify the input. The solver never calls an operator concurrently.
type Operator[T Element] interface {
	// Dims returns the number of measurements m and unknowns n.
	Dims() (m, n int)
	// Apply computes dst = A x with len(x) = n and len(dst) = m.
	Apply(dst, x []T)
	// ApplyAdjoint computes dst = Aᴴ y with len(y) = m and len(dst) = n.
	ApplyAdjoint(dst, y []T)
}

// CheckDims verifies that op maps vectors of length n to vectors of length m.
func CheckDims[T Element](op Operator[T], m, n int) error {
	om, on := op.Dims()
	if om != m || on != n {
		return fmt.Errorf("operator is %d×%d, operands need %d×%d: %w", om, on, m, n, ErrDimension)
	}
	return nil
}

// DotTest returns the relative mismatch between ⟨𝐀𝐮, 𝐯⟩ and ⟨𝐮, 𝐀ᴴ𝐯⟩.
// A correct adjoint pair yields a value close to machine precision.
func DotTest[T Element](op Operator[T], u, v []T) float64 {
	m, n := op.Dims()
	if len(u) != n || len(v) != m {
		panic("bound check error")
	}
	au := make([]T, m)
	ahv := make([]T, n)
	op.Apply(au, u)
	op.ApplyAdjoint(ahv, v)
	lhs, rhs := inner(au, v), inner(u, ahv)
	return cmplx.Abs(lhs-rhs) / math.Max(1, cmplx.Abs(lhs))
}

// inner computes the Hermitian inner product ∑ conj(uᵢ)vᵢ.
func inner[T Element](u, v []T) complex128 {
	switch u := any(u).(type) {
	case []float64:
		return complex(floats.Dot(u, any(v).([]float64)), 0)
	case []complex128:
		return cmplxs.Dot(u, any(v).([]complex128))
	}
	panic("unreachable")
}

// addTo accumulates dst += s.
func addTo[T Element](dst, s []T) {
	switch dst := any(dst).(type) {
	case []float64:
		floats.Add(dst, any(s).([]float64))
	case []complex128:
		cmplxs.Add(dst, any(s).([]complex128))
	}
}
