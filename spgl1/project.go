// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"

	"github.com/curioloop/spgl1/linop"
)

// Project computes the Euclidean projection of v onto the weighted one-norm ball
//
//	𝔹(τ) = { x : ∑ wᵢ|xᵢ| ≤ τ }
//
// and stores it into dst, which may alias v. A nil weights means wᵢ = 1.
// Coordinates with wᵢ = 0 are unconstrained.
//
// The returned λ is the soft-threshold level of the projection:
//
//	xᵢ = sign(vᵢ) · 𝚖𝚊𝚡(|vᵢ| - λwᵢ, 0)
//
// where sign keeps the phase of complex entries. λ = 0 when v is already inside 𝔹(τ).
func Project[T linop.Element](dst, v []T, tau float64, weights []float64) (lambda float64) {
	if len(dst) != len(v) || (weights != nil && len(weights) != len(v)) {
		panic("bound check error")
	}
	p := newProjector[T](len(v), weights)
	return p.project(dst, v, tau)
}

// projector owns the workspace of repeated projections of n-vectors.
type projector[T linop.Element] struct {
	ar    arith[T]
	w     []float64
	mag   []float64 // |vᵢ| then the thresholded moduli
	key   []float64 // heap of breakpoints |vᵢ|/wᵢ
	order []int     // coordinate index of each key
}

func newProjector[T linop.Element](n int, weights []float64) *projector[T] {
	return &projector[T]{
		ar:    arithOf[T](),
		w:     weights,
		mag:   make([]float64, n),
		key:   make([]float64, n),
		order: make([]int, n),
	}
}

func (p *projector[T]) weight(i int) float64 {
	if p.w == nil {
		return one
	}
	return p.w[i]
}

func (p *projector[T]) project(dst, v []T, tau float64) (lambda float64) {

	n, mag := len(v), p.mag
	if n > len(mag) || n > len(dst) {
		panic("bound check error")
	}

	p.ar.abs(mag, v)
	norm := primalNorm(mag, p.w)
	if norm <= tau {
		copy(dst, v)
		return zero
	}

	// Collect the breakpoints of the piecewise-linear budget
	//   𝒔(λ) = ∑ wᵢ·𝚖𝚊𝚡(|vᵢ| - λwᵢ, 0)
	// which decreases from ‖v‖ at λ = 0 to zero at λ = 𝚖𝚊𝚡 |vᵢ|/wᵢ.
	k := 0
	for i, m := range mag[:n] {
		if w := p.weight(i); w > zero && m > zero {
			p.key[k], p.order[k] = m/w, i
			k++
		}
	}

	if tau <= zero {
		for j := 0; j < k; j++ {
			lambda = math.Max(lambda, p.key[j])
			mag[p.order[j]] = zero
		}
		p.ar.shrink(dst, v, mag)
		return
	}

	// Visit breakpoints in decreasing order. With the first j coordinates active
	//   λⱼ = (∑ wᵢ|vᵢ| - τ) / ∑ wᵢ²
	// and the root is the last λⱼ that stays below the j-th breakpoint.
	csdb, csd2 := zero, zero
	for j := k; j > 0; j-- {
		heapSortOut(j, p.key, p.order, j != k)
		brk, i := p.key[j-1], p.order[j-1]
		w := p.weight(i)
		csdb += w * mag[i]
		csd2 += w * w
		alpha := (csdb - tau) / csd2
		if alpha >= brk {
			break
		}
		lambda = alpha
	}
	lambda = math.Max(lambda, zero)

	for i, m := range mag[:n] {
		if w := p.weight(i); w > zero {
			mag[i] = math.Max(m-lambda*w, zero)
		}
	}
	p.ar.shrink(dst, v, mag)
	return
}

// Subroutine heapSortOut (hpsolb)
//
// Given t[:n] and order[:n]:
//   - Build max-heap on t[:n] (sorted = false)
//   - Swap the top elements to the tail t[0] ⇄ t[n-1]
//   - Recover heap t[:n-1] by shifting down t[0]
func heapSortOut(n int, t []float64, order []int, sorted bool) {

	if n < 0 || n > len(t) || n > len(order) {
		panic("bound check error")
	}

	if !sorted { // Build heap on t[:n]
		for k := 1; k < n; k++ {
			i := k // Add t[i] to the heap t[:i-1]
			val, idx := t[i], order[i]
			for i > 0 && i < n {
				j := (i - 1) / 2 // Parent of t[i]
				if val > t[j] {  // Shift down the parent
					t[i], order[i] = t[j], order[j]
					i = j
				} else { // Already a heap
					break
				}
			}
			t[i], order[i] = val, idx
		}
	}

	if n > 1 {
		// Pop the greatest element of heap
		topVal, topIdx := t[0], order[0]
		// Move the bottom element to t[0] = t[n-1] and trim the heap to t[:n-1]
		val, idx := t[n-1], order[n-1]
		// Shifting down the t[0] until heap recover
		i := 0 // t[i] is parent
		for {
			j := 2*i + 1 // Left child
			if j < n-1 {
				// Select the larger child when right child available
				if j+1 < n-1 && t[j+1] > t[j] {
					j++
				}
				if t[j] > val { // Shift up the larger child
					t[i], order[i] = t[j], order[j]
					i = j
				} else {
					break // Stop when parent is larger than children
				}
			} else {
				break
			}
		}
		// Now t[:n-1] is a heap
		t[i], order[i] = val, idx
		// Store the greatest element at t[n-1]
		t[n-1], order[n-1] = topVal, topIdx
	}
}

// primalNorm returns ∑ wᵢ·magᵢ.
func primalNorm(mag, w []float64) (norm float64) {
	if w == nil {
		for _, m := range mag {
			norm += m
		}
		return
	}
	for i, m := range mag {
		norm += w[i] * m
	}
	return
}

// dualNorm returns 𝚖𝚊𝚡 magᵢ/wᵢ, the norm dual to primalNorm.
func dualNorm(mag, w []float64) (norm float64) {
	if w == nil {
		for _, m := range mag {
			norm = math.Max(norm, m)
		}
		return
	}
	for i, m := range mag {
		norm = math.Max(norm, m/w[i])
	}
	return
}
