// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"

	"go.uber.org/zap"
)

// paretoPoint is a sample (τ, φ(τ)) of the Pareto curve.
type paretoPoint struct {
	tau, phi float64
}

// bracket encloses the root of φ(τ) = σ with φ(lo) ≥ σ > φ(hi).
// hi.tau = +∞ until a sample lands below σ.
type bracket struct {
	lo, hi paretoPoint
}

func newBracket(bNorm float64) bracket {
	return bracket{
		lo: paretoPoint{tau: zero, phi: bNorm},
		hi: paretoPoint{tau: math.Inf(1), phi: math.NaN()},
	}
}

// paretoLower returns the lower bound of φ(τ) certified by an iterate with
// objective f and duality gap gap, the dual objective f - gap ≤ ½φ(τ)².
func paretoLower(f, gap float64) float64 {
	return math.Sqrt(two * math.Max(f-gap, zero))
}

// update narrows the bracket with the bounds lb ≤ φ(τ) ≤ ub of an inexact sample.
// It reports whether the sample became the upper end.
func (br *bracket) update(tau, lb, ub, sigma float64) (upper bool) {
	switch {
	case ub < sigma && tau < br.hi.tau:
		br.hi = paretoPoint{tau: tau, phi: ub}
		return true
	case lb >= sigma && tau > br.lo.tau:
		br.lo = paretoPoint{tau: tau, phi: lb}
	}
	return false
}

func (br *bracket) bounded() bool {
	return !math.IsInf(br.hi.tau, 1)
}

// collapsed reports whether the bracket width is below tol relative to hi.
func (br *bracket) collapsed(tol float64) bool {
	return br.bounded() && br.hi.tau-br.lo.tau <= tol*math.Max(one, br.hi.tau)
}

// next returns the safeguarded Newton step on φ(τ) - σ:
//
//	τ₊ = τ - (φ - σ)/φ′  with  φ′(τ) = -λ/φ
//
// A step that is not finite or leaves the open bracket is replaced by the midpoint,
// or by doubling τ while the bracket is unbounded.
func (br *bracket) next(tau, phi, lambda, sigma float64) (tauNew float64, newton bool) {
	tauNew = tau + phi*(phi-sigma)/lambda
	if lambda > zero && !math.IsNaN(tauNew) && !math.IsInf(tauNew, 0) &&
		tauNew > br.lo.tau && tauNew < br.hi.tau {
		return tauNew, true
	}
	if !br.bounded() {
		if tau > zero {
			return two * tau, false
		}
		return math.Max(two*br.lo.tau, one), false
	}
	return half * (br.lo.tau + br.hi.tau), false
}

// findRoot drives the SPG core along the Pareto curve until φ(τ) = σ.
func (s *solver[T]) findRoot() (task Status) {

	br := newBracket(s.bNorm)
	for first := true; ; first = false {

		task = s.minimize(first)
		s.record()
		if task != needTau {
			return
		}

		if br.update(s.tau, paretoLower(s.f, s.gap), s.rNorm, s.sigma) {
			if s.xHi == nil {
				s.xHi = make([]T, s.n)
			}
			copy(s.xHi, s.x)
		}
		switch {
		case s.set.maxOuter > 0 && s.info.NumOuter >= s.set.maxOuter:
			return StopOuterLimit
		case br.collapsed(s.set.optTol):
			return s.settle(br.hi.tau)
		}

		tauOld := s.tau
		tau, newton := br.next(s.tau, s.rNorm, s.gNorm, s.sigma)
		s.tau = tau
		s.printOuter(tauOld, newton)
		s.notify(true)
		s.zap.Debug("tau updated",
			zap.Int("outer", s.info.NumOuter),
			zap.Float64("tau", tau),
			zap.Float64("tau_old", tauOld),
			zap.Float64("rnorm", s.rNorm),
			zap.Bool("newton", newton))
	}
}

// settle ends a collapsed search at the upper bracket end, the best τ known to give ‖r‖₂ < σ.
// The root is located when ‖r‖₂ is within tolerance of σ, otherwise the point is only feasible.
func (s *solver[T]) settle(tau float64) Status {
	copy(s.xNew, s.xHi)
	s.moveTo()
	s.tau = tau
	s.checkOptimal(false)
	s.notify(false)
	s.zap.Debug("bracket collapsed",
		zap.Int("outer", s.info.NumOuter),
		zap.Float64("tau", tau),
		zap.Float64("rnorm", s.rNorm))
	if s.rErr1 <= s.set.optTol {
		return ConvBracket
	}
	return ConvSuboptimalBP
}

// record appends the current sample of the Pareto curve to the diagnostics.
func (s *solver[T]) record() {
	s.info.NumOuter++
	slope := math.NaN()
	if s.rNorm > zero {
		slope = -s.gNorm / s.rNorm
	}
	s.info.Pareto = append(s.info.Pareto, ParetoPoint{Tau: s.tau, Phi: s.rNorm, Slope: slope})
	s.ar.abs(s.gMag, s.x)
	s.info.XNorm1 = append(s.info.XNorm1, primalNorm(s.gMag, s.w))
	s.info.RNorm2 = append(s.info.RNorm2, s.rNorm)
}
