// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linop

// Func is an implicit operator defined by a pair of closures.
//
// Forward receives (dst, x) and must store A x into dst.
// Adjoint receives (dst, y) and must store Aᴴ y into dst.
type Func[T Element] struct {
	M, N    int
	Forward func(dst, x []T)
	Adjoint func(dst, y []T)
}

func (f Func[T]) Dims() (m, n int) {
	return f.M, f.N
}

func (f Func[T]) Apply(dst, x []T) {
	if len(x) != f.N || len(dst) != f.M {
		panic("bound check error")
	}
	f.Forward(dst, x)
}

func (f Func[T]) ApplyAdjoint(dst, y []T) {
	if len(y) != f.M || len(dst) != f.N {
		panic("bound check error")
	}
	f.Adjoint(dst, y)
}
