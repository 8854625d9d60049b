// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linop

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Dense is a real operator backed by a row-major dense matrix.
type Dense struct {
	a blas64.General
}

// NewDense wraps a real matrix. A *mat.Dense is shared, not copied,
// so it must not be modified while a solve is running.
func NewDense(a mat.Matrix) *Dense {
	d, ok := a.(*mat.Dense)
	if !ok {
		d = mat.DenseCopyOf(a)
	}
	return &Dense{a: d.RawMatrix()}
}

func (d *Dense) Dims() (m, n int) {
	return d.a.Rows, d.a.Cols
}

// Apply computes dst = A x.
func (d *Dense) Apply(dst, x []float64) {
	if len(x) != d.a.Cols || len(dst) != d.a.Rows {
		panic("bound check error")
	}
	blas64.Gemv(blas.NoTrans, 1, d.a,
		blas64.Vector{N: len(x), Data: x, Inc: 1}, 0,
		blas64.Vector{N: len(dst), Data: dst, Inc: 1})
}

// ApplyAdjoint computes dst = Aᵀ y.
func (d *Dense) ApplyAdjoint(dst, y []float64) {
	if len(y) != d.a.Rows || len(dst) != d.a.Cols {
		panic("bound check error")
	}
	blas64.Gemv(blas.Trans, 1, d.a,
		blas64.Vector{N: len(y), Data: y, Inc: 1}, 0,
		blas64.Vector{N: len(dst), Data: dst, Inc: 1})
}

// CDense is a complex operator backed by a row-major dense matrix.
type CDense struct {
	a cblas128.General
}

// NewCDense wraps a complex matrix without copying it.
func NewCDense(a *mat.CDense) *CDense {
	return &CDense{a: a.RawCMatrix()}
}

func (c *CDense) Dims() (m, n int) {
	return c.a.Rows, c.a.Cols
}

// Apply computes dst = A x.
func (c *CDense) Apply(dst, x []complex128) {
	if len(x) != c.a.Cols || len(dst) != c.a.Rows {
		panic("bound check error")
	}
	cblas128.Gemv(blas.NoTrans, 1, c.a,
		cblas128.Vector{N: len(x), Data: x, Inc: 1}, 0,
		cblas128.Vector{N: len(dst), Data: dst, Inc: 1})
}

// ApplyAdjoint computes dst = Aᴴ y.
func (c *CDense) ApplyAdjoint(dst, y []complex128) {
	if len(y) != c.a.Rows || len(dst) != c.a.Cols {
		panic("bound check error")
	}
	cblas128.Gemv(blas.ConjTrans, 1, c.a,
		cblas128.Vector{N: len(y), Data: y, Inc: 1}, 0,
		cblas128.Vector{N: len(dst), Data: dst, Inc: 1})
}
