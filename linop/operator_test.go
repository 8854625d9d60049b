// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linop

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"
)

func randReal(rnd *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rnd.NormFloat64()
	}
	return v
}

func randComplex(rnd *rand.Rand, n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	return v
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Real, KindOf[float64]())
	assert.Equal(t, Complex, KindOf[complex128]())
	assert.Equal(t, "complex", Complex.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestDense(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	op := NewDense(a)

	m, n := op.Dims()
	require.Equal(t, 2, m)
	require.Equal(t, 3, n)

	y := make([]float64, 2)
	op.Apply(y, []float64{1, 0, -1})
	assert.Equal(t, []float64{-2, -2}, y)

	x := make([]float64, 3)
	op.ApplyAdjoint(x, []float64{1, 1})
	assert.Equal(t, []float64{5, 7, 9}, x)

	rnd := rand.New(rand.NewPCG(3, 5))
	g := mat.NewDense(7, 11, randReal(rnd, 77))
	assert.Less(t, DotTest[float64](NewDense(g), randReal(rnd, 11), randReal(rnd, 7)), 1e-12)

	// non *mat.Dense matrices are copied
	tr := NewDense(a.T())
	m, n = tr.Dims()
	assert.Equal(t, 3, m)
	assert.Equal(t, 2, n)
	assert.Panics(t, func() { op.Apply(make([]float64, 3), make([]float64, 3)) })
}

func TestCDense(t *testing.T) {
	a := mat.NewCDense(2, 2, []complex128{
		1i, 2,
		0, 1 - 1i,
	})
	op := NewCDense(a)

	y := make([]complex128, 2)
	op.Apply(y, []complex128{1, 1i})
	assert.Equal(t, []complex128{1i + 2i, 1i + 1}, y)

	x := make([]complex128, 2)
	op.ApplyAdjoint(x, []complex128{1, 1})
	assert.Equal(t, []complex128{-1i, 3 + 1i}, x)

	rnd := rand.New(rand.NewPCG(7, 9))
	g := mat.NewCDense(6, 9, randComplex(rnd, 54))
	assert.Less(t, DotTest[complex128](NewCDense(g), randComplex(rnd, 9), randComplex(rnd, 6)), 1e-12)
}

func TestFunc(t *testing.T) {
	// y = [x₀+x₁, x₁]
	op := Func[float64]{
		M: 2, N: 2,
		Forward: func(dst, x []float64) {
			dst[0], dst[1] = x[0]+x[1], x[1]
		},
		Adjoint: func(dst, y []float64) {
			dst[0], dst[1] = y[0], y[0]+y[1]
		},
	}
	require.NoError(t, CheckDims[float64](op, 2, 2))
	assert.ErrorIs(t, CheckDims[float64](op, 3, 2), ErrDimension)

	rnd := rand.New(rand.NewPCG(1, 1))
	assert.Less(t, DotTest[float64](op, randReal(rnd, 2), randReal(rnd, 2)), 1e-14)
	assert.Panics(t, func() { op.ApplyAdjoint(make([]float64, 2), make([]float64, 3)) })
}

func TestBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	rnd := rand.New(rand.NewPCG(11, 13))
	full := mat.NewDense(9, 5, randReal(rnd, 45))

	var parts []Operator[float64]
	for _, r := range [][2]int{{0, 4}, {4, 5}, {5, 9}} {
		parts = append(parts, NewDense(full.Slice(r[0], r[1], 0, 5)))
	}
	blk, err := NewBlocks(2, parts...)
	require.NoError(t, err)

	m, n := blk.Dims()
	require.Equal(t, 9, m)
	require.Equal(t, 5, n)

	dense := NewDense(full)
	x, y := randReal(rnd, 5), randReal(rnd, 9)

	want, got := make([]float64, 9), make([]float64, 9)
	dense.Apply(want, x)
	blk.Apply(got, x)
	assert.InDeltaSlice(t, want, got, 1e-12)

	wantT, gotT := make([]float64, 5), make([]float64, 5)
	dense.ApplyAdjoint(wantT, y)
	blk.ApplyAdjoint(gotT, y)
	assert.InDeltaSlice(t, wantT, gotT, 1e-12)

	assert.Less(t, DotTest[float64](blk, x, y), 1e-12)
}

func TestBlocksErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := NewBlocks[float64](1)
	require.Error(t, err)

	a := NewDense(mat.NewDense(2, 3, nil))
	b := NewDense(mat.NewDense(2, 4, nil))
	_, err = NewBlocks[float64](1, a, b)
	require.True(t, errors.Is(err, ErrDimension))

	bad := Func[float64]{
		M: 1, N: 3,
		Forward: func(dst, x []float64) { panic("broken operator") },
		Adjoint: func(dst, y []float64) {},
	}
	blk, err := NewBlocks[float64](0, a, bad)
	require.NoError(t, err)
	assert.Panics(t, func() { blk.Apply(make([]float64, 3), make([]float64, 3)) })
}
