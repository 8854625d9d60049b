// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"
	"time"

	"github.com/curioloop/spgl1/linop"
	"go.uber.org/zap"
)

// solver holds the state of one solve.
// Given m measurements and n unknowns, the work space is approximately T[7×n + 2×m].
type solver[T linop.Element] struct {
	op  linop.Operator[T]
	b   []T
	ar  arith[T]
	prj *projector[T]
	set settings
	w   []float64

	log     logger
	zap     *zap.Logger
	monitor func(Progress)

	m, n   int
	bNorm  float64
	sigma  float64
	single bool // fixed τ, no root-finding
	tau    float64

	x, r, g    []T // current iterate, residual Ax - b and gradient Aᴴr
	xNew, rNew []T // line search trial point
	gOld       []T
	d, y       []T // search direction, then the BB pair s = xₖ₊₁ - xₖ and y = gₖ₊₁ - gₖ
	gMag       []float64

	f, fOld float64
	gStep   float64 // spectral step length
	stepMax float64
	valid   bool // r and g match x
	hist    *history

	// best iterate of a fixed τ solve
	xBest, rBest, gBest []T
	fBest               float64

	// iterate of the upper bracket end, known to satisfy ‖r‖₂ < σ
	xHi []T

	rNorm, gNorm float64 // ‖r‖₂ and the dual norm of g
	gap          float64 // duality gap Re⟨g, x⟩ + τ‖g‖*
	rGap, rErr1  float64

	info  Info
	start time.Time
}

// operatorPanic carries a panic raised by the user operator.
type operatorPanic struct {
	value any
}

func (s *solver[T]) apply(dst, x []T) {
	defer s.catch()
	t := time.Now()
	s.op.Apply(dst, x)
	s.info.MatVecTime += time.Since(t)
	s.info.NumMatVec++
}

func (s *solver[T]) applyAdjoint(dst, y []T) {
	defer s.catch()
	t := time.Now()
	s.op.ApplyAdjoint(dst, y)
	s.info.MatVecTime += time.Since(t)
	s.info.NumAdjoint++
}

func (s *solver[T]) catch() {
	if r := recover(); r != nil {
		panic(operatorPanic{r})
	}
}

// objective computes r = Ax - b and returns ½‖r‖².
func (s *solver[T]) objective(r, x []T) float64 {
	s.apply(r, x)
	s.ar.axpy(r, -one, s.b)
	nrm := s.ar.norm(r)
	return half * nrm * nrm
}

// gradient computes g = Aᴴr.
func (s *solver[T]) gradient(g, r []T) {
	s.applyAdjoint(g, r)
}

// moveTo evaluates xNew and makes it the current iterate.
// x, r and g are left untouched when the operator panics.
func (s *solver[T]) moveTo() {
	f := s.objective(s.rNew, s.xNew)
	s.gradient(s.gOld, s.rNew)
	s.accept(f)
}

// accept swaps in xNew and rNew with the gradient held in gOld.
func (s *solver[T]) accept(f float64) {
	s.x, s.xNew = s.xNew, s.x
	s.r, s.rNew = s.rNew, s.r
	s.g, s.gOld = s.gOld, s.g
	s.f = f
	s.valid = true
}

func (s *solver[T]) project(dst, v []T, tau float64) float64 {
	t := time.Now()
	lambda := s.prj.project(dst, v, tau)
	s.info.ProjectTime += time.Since(t)
	return lambda
}

func (s *solver[T]) clamp(step float64) float64 {
	return math.Min(s.stepMax, math.Max(s.set.stepMin, step))
}

// minimize runs the spectral projected gradient method on the τ-ball
//
//	minimize ½‖Ax - b‖₂² subject to ∑ wᵢ|xᵢ| ≤ τ
//
// warm-started from x. In root-finding mode it returns needTau as soon as
// the objective stagnates relative to the distance between ‖r‖₂ and σ.
// A hand-back is suppressed at the first check unless first is set.
func (s *solver[T]) minimize(first bool) (task Status) {

	// Project x onto the ball, r and g stay valid when x does not move
	if lambda := s.project(s.xNew, s.x, s.tau); lambda != zero || !s.valid {
		s.moveTo()
	} else {
		s.rNorm = s.ar.norm(s.r)
		s.f = half * s.rNorm * s.rNorm
	}
	s.fOld = s.f
	s.hist.reset(s.f)

	if s.gStep == zero {
		// First spectral step from the projected gradient
		s.ar.axpyTo(s.d, s.x, -one, s.g)
		s.project(s.d, s.d, s.tau)
		s.ar.axpy(s.d, -one, s.x)
		if dxNorm := s.ar.normInf(s.d); dxNorm < one/s.stepMax {
			s.gStep = s.stepMax
		} else {
			s.gStep = s.clamp(one / dxNorm)
		}
	}

	if s.single {
		s.saveBest()
	}

	allowTau := first
	for {
		task = s.checkOptimal(allowTau)
		allowTau = true
		if task == iterLoop {
			task = s.checkLimits()
		}
		s.printIter()
		s.notify(false)
		if task != iterLoop {
			break
		}
		if task = s.step(); task != iterLoop {
			s.notify(false)
			break
		}
	}

	if s.single && !task.Converged() && s.fBest < s.f {
		s.restoreBest()
	}
	return
}

// checkOptimal computes the optimality measures at x and tests for convergence.
func (s *solver[T]) checkOptimal(allowTau bool) Status {

	s.ar.abs(s.gMag, s.g)
	s.gNorm = dualNorm(s.gMag, s.w)
	s.rNorm = s.ar.norm(s.r)

	// Duality gap Re⟨g, x⟩ + τ‖g‖* is non-negative on the τ-ball
	s.gap = s.ar.dot(s.g, s.x) + s.tau*s.gNorm
	s.rGap = math.Abs(s.gap) / math.Max(one, s.f)

	if s.single {
		if s.rGap <= s.set.optTol || s.rNorm < s.set.optTol*s.bNorm {
			return ConvOptimal
		}
		return iterLoop
	}

	aErr1 := s.rNorm - s.sigma
	aErr2 := s.f - half*s.sigma*s.sigma
	s.rErr1 = math.Abs(aErr1) / math.Max(one, s.rNorm)
	rErr2 := math.Abs(aErr2) / math.Max(one, s.f)

	task := iterLoop
	if s.gNorm <= s.set.lsTol*s.rNorm {
		task = StopInfeasible
	}
	if s.rGap <= math.Max(s.set.optTol, rErr2) || s.rErr1 <= s.set.optTol {
		// Later tests take precedence
		if s.rNorm <= s.sigma {
			task = ConvSuboptimalBP
		}
		if s.rErr1 <= s.set.optTol {
			task = ConvRootFound
		}
		if s.rNorm <= s.set.bpTol*s.bNorm {
			task = ConvBPSolution
		}
	}
	if task != iterLoop || !allowTau {
		return task
	}

	df := math.Abs(s.f - s.fOld)
	far := s.rNorm > two*s.sigma
	if (far && df <= s.set.decTol*s.f) || (!far && df <= 0.1*s.f*math.Abs(aErr1)) {
		task = needTau
	}
	return task
}

// checkLimits tests the resource budgets of the solve.
func (s *solver[T]) checkLimits() Status {
	switch {
	case s.info.NumIter >= s.set.maxIter:
		return StopIterLimit
	case s.set.maxMatVec > 0 && s.info.NumMatVec+s.info.NumAdjoint >= s.set.maxMatVec:
		return StopMatVecLimit
	case s.set.timeLimit > 0 && time.Since(s.start) >= s.set.timeLimit:
		return StopTimeLimit
	}
	return iterLoop
}

// step performs one SPG iteration: line search from the spectral step, then the BB update.
func (s *solver[T]) step() Status {

	s.info.NumIter++
	s.fOld = s.f
	fMax := s.hist.max()

	fNew, iter, err := s.searchLine(fMax)
	s.info.NumLineSearch += iter + 1
	if err != searchOK {
		// Retry along the projected arc
		fNew, iter, err = s.searchArc(fMax)
		s.info.NumLineSearch += iter + 1
	}

	if err != searchOK {
		// Keep x and damp the maximum spectral step
		s.info.NumLineErrors++
		s.stepMax /= 10
		s.gStep = math.Min(s.stepMax, s.gStep)
		s.zap.Warn("line search failed, damping the maximum step",
			zap.Int("iter", s.info.NumIter),
			zap.Int("failures", s.info.NumLineErrors),
			zap.Float64("step_max", s.stepMax))
		if s.info.NumLineErrors >= s.set.maxLineErrors {
			return StopLineError
		}
	} else {
		s.gradient(s.gOld, s.rNew)
		s.accept(fNew)

		// Barzilai-Borwein step sᵀs / sᵀy
		s.ar.subTo(s.d, s.x, s.xNew)
		s.ar.subTo(s.y, s.g, s.gOld)
		sts, sty := s.ar.dot(s.d, s.d), s.ar.dot(s.d, s.y)
		if sty <= zero {
			s.gStep = s.stepMax
			s.info.NumDegenerate++
		} else {
			s.gStep = s.clamp(sts / sty)
		}
	}

	if s.single || s.f > half*s.sigma*s.sigma {
		s.hist.push(s.f)
	}
	if s.single && s.f < s.fBest {
		s.saveBest()
	}
	return iterLoop
}

func (s *solver[T]) saveBest() {
	if s.xBest == nil {
		s.xBest = make([]T, s.n)
		s.gBest = make([]T, s.n)
		s.rBest = make([]T, s.m)
	}
	copy(s.xBest, s.x)
	copy(s.rBest, s.r)
	copy(s.gBest, s.g)
	s.fBest = s.f
}

func (s *solver[T]) restoreBest() {
	copy(s.x, s.xBest)
	copy(s.r, s.rBest)
	copy(s.g, s.gBest)
	s.f = s.fBest
	s.ar.abs(s.gMag, s.g)
	s.gNorm = dualNorm(s.gMag, s.w)
	s.rNorm = s.ar.norm(s.r)
	s.gap = s.ar.dot(s.g, s.x) + s.tau*s.gNorm
	s.rGap = math.Abs(s.gap) / math.Max(one, s.f)
}

func (s *solver[T]) notify(outer bool) {
	if s.monitor == nil {
		return
	}
	s.monitor(Progress{
		Outer:     outer,
		Iter:      s.info.NumIter,
		NumOuter:  s.info.NumOuter,
		NumMatVec: s.info.NumMatVec + s.info.NumAdjoint,
		Tau:       s.tau,
		RNorm:     s.rNorm,
		GNorm:     s.gNorm,
		RGap:      s.rGap,
		Step:      s.gStep,
	})
}
