// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"
	"math/cmplx"

	"github.com/curioloop/spgl1/linop"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

// arith collects the vector kernels of the solver for one element type.
// A complex vector in ℂⁿ is treated as a real vector in ℝ²ⁿ,
// so every inner product is the real part of the Hermitian product.
type arith[T linop.Element] interface {
	// dot returns Re⟨u, v⟩.
	dot(u, v []T) float64
	// norm returns ‖v‖₂.
	norm(v []T) float64
	// normInf returns ‖v‖∞.
	normInf(v []T) float64
	// abs stores |vᵢ| into dst.
	abs(dst []float64, v []T)
	// axpy computes dst += a·s.
	axpy(dst []T, a float64, s []T)
	// axpyTo computes dst = y + a·s.
	axpyTo(dst, y []T, a float64, s []T)
	// subTo computes dst = u - v.
	subTo(dst, u, v []T)
	// shrink rescales each vᵢ to modulus magᵢ keeping its sign or phase.
	shrink(dst, v []T, mag []float64)
}

func arithOf[T linop.Element]() arith[T] {
	var z T
	switch any(z).(type) {
	case complex128:
		return any(complexArith{}).(arith[T])
	default:
		return any(realArith{}).(arith[T])
	}
}

type realArith struct{}

func (realArith) dot(u, v []float64) float64 { return floats.Dot(u, v) }
func (realArith) norm(v []float64) float64   { return floats.Norm(v, 2) }

func (realArith) normInf(v []float64) float64 {
	return floats.Norm(v, math.Inf(1))
}

func (realArith) abs(dst []float64, v []float64) {
	for i, v := range v {
		dst[i] = math.Abs(v)
	}
}

func (realArith) axpy(dst []float64, a float64, s []float64) {
	floats.AddScaled(dst, a, s)
}

func (realArith) axpyTo(dst, y []float64, a float64, s []float64) {
	floats.AddScaledTo(dst, y, a, s)
}

func (realArith) subTo(dst, u, v []float64) {
	floats.SubTo(dst, u, v)
}

func (realArith) shrink(dst, v []float64, mag []float64) {
	for i, v := range v {
		switch {
		case mag[i] == zero:
			dst[i] = zero
		case v < zero:
			dst[i] = -mag[i]
		default:
			dst[i] = mag[i]
		}
	}
}

type complexArith struct{}

func (complexArith) dot(u, v []complex128) float64 { return real(cmplxs.Dot(u, v)) }
func (complexArith) norm(v []complex128) float64   { return cmplxs.Norm(v, 2) }

func (complexArith) normInf(v []complex128) float64 {
	return cmplxs.Norm(v, math.Inf(1))
}

func (complexArith) abs(dst []float64, v []complex128) {
	for i, v := range v {
		dst[i] = cmplx.Abs(v)
	}
}

func (complexArith) axpy(dst []complex128, a float64, s []complex128) {
	cmplxs.AddScaled(dst, complex(a, 0), s)
}

func (complexArith) axpyTo(dst, y []complex128, a float64, s []complex128) {
	cmplxs.AddScaledTo(dst, y, complex(a, 0), s)
}

func (complexArith) subTo(dst, u, v []complex128) {
	cmplxs.SubTo(dst, u, v)
}

func (complexArith) shrink(dst, v []complex128, mag []float64) {
	for i, v := range v {
		if a := cmplx.Abs(v); a > zero && mag[i] > zero {
			// zᵢ · (mᵢ / |zᵢ|) keeps the phase of zᵢ
			s := mag[i] / a
			dst[i] = complex(real(v)*s, imag(v)*s)
		} else {
			dst[i] = 0
		}
	}
}
