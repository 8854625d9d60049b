// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linop

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Blocks stacks operators with a common column count on top of each other:
//
//	    ⎡ A₁ ⎤
//	𝐀 = ⎢ ⋮  ⎥
//	    ⎣ Aₖ ⎦
//
// Forward products of the blocks write disjoint row ranges and run concurrently.
// Adjoint products 𝐀ᴴ𝐲 = ∑ Aᵢᴴ𝐲ᵢ are computed concurrently into per-block
// buffers and summed in block order, so the result does not depend on scheduling.
//
// A Blocks value owns scratch buffers and is not safe for concurrent use.
type Blocks[T Element] struct {
	blocks  []Operator[T]
	offset  []int // row offset of each block, len(blocks)+1
	cols    int
	workers int
	scratch [][]T
}

// NewBlocks builds a row-block operator evaluated by at most workers goroutines.
// A non-positive workers uses GOMAXPROCS.
func NewBlocks[T Element](workers int, blocks ...Operator[T]) (*Blocks[T], error) {
	if len(blocks) == 0 {
		return nil, errors.New("linop: no blocks")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	b := &Blocks[T]{
		blocks:  blocks,
		offset:  make([]int, len(blocks)+1),
		workers: workers,
		scratch: make([][]T, len(blocks)),
	}
	_, b.cols = blocks[0].Dims()
	for k, op := range blocks {
		m, n := op.Dims()
		if n != b.cols {
			return nil, fmt.Errorf("block %d has %d columns, want %d: %w", k, n, b.cols, ErrDimension)
		}
		b.offset[k+1] = b.offset[k] + m
		b.scratch[k] = make([]T, n)
	}
	return b, nil
}

func (b *Blocks[T]) Dims() (m, n int) {
	return b.offset[len(b.blocks)], b.cols
}

// Apply computes dst = A x. A panic inside a block is re-raised on the calling goroutine.
func (b *Blocks[T]) Apply(dst, x []T) {
	m, n := b.Dims()
	if len(x) != n || len(dst) != m {
		panic("bound check error")
	}
	b.run(func(k int, op Operator[T]) {
		op.Apply(dst[b.offset[k]:b.offset[k+1]], x)
	})
}

// ApplyAdjoint computes dst = Aᴴ y.
func (b *Blocks[T]) ApplyAdjoint(dst, y []T) {
	m, n := b.Dims()
	if len(y) != m || len(dst) != n {
		panic("bound check error")
	}
	b.run(func(k int, op Operator[T]) {
		op.ApplyAdjoint(b.scratch[k], y[b.offset[k]:b.offset[k+1]])
	})
	copy(dst, b.scratch[0])
	for _, s := range b.scratch[1:] {
		addTo(dst, s)
	}
}

func (b *Blocks[T]) run(do func(k int, op Operator[T])) {
	var g errgroup.Group
	g.SetLimit(b.workers)
	for k, op := range b.blocks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("linop: block %d: %v", k, r)
				}
			}()
			do(k, op)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
}
