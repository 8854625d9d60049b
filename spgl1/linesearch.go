// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type searchErr int

const (
	searchOK         searchErr = iota // sufficient decrease reached
	searchExceedIter                  // too many backtracking steps
	searchNoDescent                   // the direction is not a descent direction
)

const (
	searchGamma  = 1e-4 // sufficient decrease factor
	searchMaxIts = 10   // backtracking steps before failure
)

// history keeps the last objective values of the non-monotone line search.
type history struct {
	vals []float64
	k    int
}

func newHistory(m int) *history {
	return &history{vals: make([]float64, m)}
}

// reset clears the memory to a single value f.
func (h *history) reset(f float64) {
	for i := range h.vals {
		h.vals[i] = math.Inf(-1)
	}
	h.vals[0], h.k = f, 1
}

func (h *history) push(f float64) {
	h.vals[h.k%len(h.vals)] = f
	h.k++
}

// max returns the reference value of the non-monotone Armijo condition.
func (h *history) max() float64 {
	return floats.Max(h.vals)
}

// backtrack searches along a feasible direction d with directional derivative gtd:
//
//	f(x + 𝛂d) < 𝐟ₘₐₓ + γ·𝛂·gtd
//
// Starting from 𝛂 = 1, the step is reduced by safeguarded quadratic interpolation
// while 𝛂 > 0.1 and halved afterward. eval(𝛂) returns the objective at x + 𝛂d.
func backtrack(f, fMax, gtd float64, eval func(step float64) float64) (step, fNew float64, iter int, err searchErr) {

	if gtd >= zero || math.IsNaN(gtd) {
		return zero, f, 0, searchNoDescent
	}

	step = one
	for {
		fNew = eval(step)
		if fNew < fMax+searchGamma*step*gtd {
			err = searchOK
			break
		}
		if iter >= searchMaxIts {
			err = searchExceedIter
			break
		}
		iter++

		if step <= 0.1 {
			step *= half
		} else {
			// Minimizer of the quadratic through f, gtd and fNew
			tmp := (-gtd * step * step) / (two * (fNew - f - step*gtd))
			if tmp < 0.1 || tmp > 0.9*step || math.IsNaN(tmp) {
				tmp = step * half
			}
			step = tmp
		}
	}
	return
}

// searchLine runs the backtracking search along the feasible direction
//
//	d = P(x - 𝛂g) - x
//
// where 𝛂 is the spectral step. The trial point is left in xNew and rNew.
func (s *solver[T]) searchLine(fMax float64) (fNew float64, iter int, err searchErr) {

	x, g, d := s.x, s.g, s.d

	s.ar.axpyTo(d, x, -s.gStep, g)
	s.project(d, d, s.tau)
	s.ar.axpy(d, -one, x)
	gtd := s.ar.dot(g, d)

	_, fNew, iter, err = backtrack(s.f, fMax, gtd, func(step float64) float64 {
		s.ar.axpyTo(s.xNew, x, step, d)
		return s.objective(s.rNew, s.xNew)
	})
	return
}

// searchArc runs the backtracking search along the projected arc
//
//	x(𝛂) = P(x - 𝛂·𝒔·g)
//
// The scale 𝒔 shrinks when successive steps stop moving x. The trial point is left in xNew and rNew.
func (s *solver[T]) searchArc(fMax float64) (fNew float64, iter int, err searchErr) {

	x, g, d := s.x, s.g, s.d
	n := float64(len(x))

	step, scale := one, one
	sNorm, nSafe := zero, 0
	for {
		s.ar.axpyTo(s.xNew, x, -step*scale*s.gStep, g)
		s.project(s.xNew, s.xNew, s.tau)
		fNew = s.objective(s.rNew, s.xNew)

		s.ar.subTo(d, s.xNew, x)
		gts := scale * s.gStep * s.ar.dot(g, d)
		if gts >= zero || math.IsNaN(gts) {
			err = searchNoDescent
			break
		}
		if fNew < fMax+searchGamma*step*gts {
			err = searchOK
			break
		}
		if iter >= searchMaxIts {
			err = searchExceedIter
			break
		}
		iter++
		step *= half

		// Damp the search direction when the projection keeps returning the same point
		sNormOld := sNorm
		sNorm = s.ar.norm(d) / math.Sqrt(n)
		if math.Abs(sNorm-sNormOld) <= 1e-6*sNorm {
			gNorm := s.gStep * s.ar.norm(g) / math.Sqrt(n)
			scale = sNorm / gNorm / math.Pow(two, float64(nSafe))
			nSafe++
		}
	}
	return
}
