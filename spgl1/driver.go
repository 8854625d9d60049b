// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"fmt"
	"math"
	"time"

	"github.com/curioloop/spgl1/linop"
	"go.uber.org/zap"
)

// newSolver validates the problem and allocates the work space of one solve.
func newSolver[T linop.Element](A linop.Operator[T], b []T, tau, sigma float64, o *Options[T]) (s *solver[T], err error) {

	if o == nil {
		o = new(Options[T])
	}

	if A == nil {
		return nil, ErrNilOperator
	}
	m, n := A.Dims()

	switch {
	case m <= 0 || n <= 0:
		err = fmt.Errorf("operator dimension %d×%d: %w", m, n, linop.ErrDimension)
	case len(b) != m:
		err = fmt.Errorf("measurement length %d, want %d: %w", len(b), m, linop.ErrDimension)
	case o.X0 != nil && len(o.X0) != n:
		err = fmt.Errorf("initial x length %d, want %d: %w", len(o.X0), n, linop.ErrDimension)
	case math.IsNaN(tau) || tau < zero:
		err = fmt.Errorf("tau = %g: %w", tau, ErrNegativeTau)
	case sigma < zero:
		err = fmt.Errorf("sigma = %g: %w", sigma, ErrNegativeSigma)
	default:
		err = checkWeights(o.Weights, n)
	}
	if err != nil {
		return
	}

	set, log, zl, err := o.resolve(m)
	if err != nil {
		return
	}

	s = &solver[T]{
		op:      A,
		b:       b,
		ar:      arithOf[T](),
		prj:     newProjector[T](n, o.Weights),
		set:     set,
		w:       o.Weights,
		log:     log,
		zap:     zl,
		monitor: o.Monitor,
		m:       m,
		n:       n,
		tau:     tau,
		sigma:   sigma,
		single:  math.IsNaN(sigma),
		stepMax: set.stepMax,
		hist:    newHistory(set.memory),
		x:       make([]T, n),
		xNew:    make([]T, n),
		g:       make([]T, n),
		gOld:    make([]T, n),
		d:       make([]T, n),
		y:       make([]T, n),
		gMag:    make([]float64, n),
		r:       make([]T, m),
		rNew:    make([]T, m),
	}
	copy(s.x, o.X0)

	s.bNorm = s.ar.norm(b)
	if s.single {
		s.sigma = zero
	} else if s.sigma == zero {
		s.sigma = set.bpTol * s.bNorm
	}
	return
}

// run executes the solve and fills the diagnostics.
func (s *solver[T]) run() (task Status) {

	s.start = time.Now()
	s.printInit()
	s.zap.Info("spgl1 solve started",
		zap.Int("m", s.m),
		zap.Int("n", s.n),
		zap.Bool("lasso", s.single),
		zap.Float64("tau", s.tau),
		zap.Float64("sigma", s.sigma),
		zap.Float64("bnorm", s.bNorm))

	defer func() {
		if r := recover(); r != nil {
			p, ok := r.(operatorPanic)
			if !ok {
				panic(r)
			}
			task = HaltOperatorPanic
			s.zap.Error("operator panicked", zap.Any("panic", p.value))
		}
		s.finish(task)
	}()

	switch {
	case s.single:
		task = s.minimize(true)
		s.record()
	case s.sigma >= s.bNorm:
		// x = 0 is feasible
		clear(s.xNew)
		s.moveTo()
		s.tau = zero
		s.checkOptimal(false)
		task = ConvZeroSolution
	default:
		task = s.findRoot()
	}
	return
}

func (s *solver[T]) finish(task Status) {
	i := &s.info
	i.Status = task
	i.Tau = s.tau
	i.Sigma = s.sigma
	i.RNorm = s.rNorm
	i.GNorm = s.gNorm
	i.RGap = s.rGap
	i.Elapsed = time.Since(s.start)

	s.printExit(task)
	fields := []zap.Field{
		zap.Stringer("status", task),
		zap.Float64("tau", i.Tau),
		zap.Float64("rnorm", i.RNorm),
		zap.Float64("rgap", i.RGap),
		zap.Int("iter", i.NumIter),
		zap.Int("outer", i.NumOuter),
		zap.Int("matvec", i.NumMatVec),
		zap.Int("adjoint", i.NumAdjoint),
		zap.Duration("elapsed", i.Elapsed),
	}
	if task.Converged() {
		s.zap.Info("spgl1 solve finished", fields...)
	} else {
		s.zap.Warn("spgl1 solve stopped", fields...)
	}
}

// printInit logs the problem dimensions and the tolerances.
func (s *solver[T]) printInit() {

	log := s.log
	if !log.enable(PerOuter) {
		return
	}

	log.log("================================================================================\n")
	log.log("SPGL1 (%v)\n", linop.KindOf[T]())
	log.log("================================================================================\n")
	log.log("No. rows          : %8d     Two-norm of b      : %11.3e\n", s.m, s.bNorm)
	log.log("No. columns       : %8d     Optimality tol     : %11.3e\n", s.n, s.set.optTol)
	if s.single {
		log.log("Target one-norm   : %11.3e  Basis pursuit tol  : %11.3e\n", s.tau, s.set.bpTol)
	} else {
		log.log("Initial tau       : %11.3e  Basis pursuit tol  : %11.3e\n", s.tau, s.set.bpTol)
		log.log("Target residual   : %11.3e  Least-squares tol  : %11.3e\n", s.sigma, s.set.lsTol)
	}
	log.log("Maximum iterations: %8d     Memory             : %8d\n", s.set.maxIter, s.set.memory)
	log.log("\n   Iter      Objective   Relative Gap   Rel Error      gNorm   stepG          tau\n")
}

// printIter logs one SPG iteration.
func (s *solver[T]) printIter() {
	log := s.log
	if !log.enable(PerInner) {
		return
	}
	log.log(" %6d  %13.7e  %13.7e  %10.2e  %9.2e  %6.1f  %11.5e\n",
		s.info.NumIter, s.rNorm, s.rGap, s.rErr1, s.gNorm, math.Log10(s.gStep), s.tau)
}

// printOuter logs one root-finding step.
func (s *solver[T]) printOuter(tauOld float64, newton bool) {
	log := s.log
	if !log.enable(PerOuter) {
		return
	}
	kind := "newton"
	if !newton {
		kind = "safeguard"
	}
	log.log(" %6d  %13.7e  tau %11.5e -> %11.5e (%s) outer %d\n",
		s.info.NumIter, s.rNorm, tauOld, s.tau, kind, s.info.NumOuter)
}

// printExit logs the final statistics and exit conditions of the solve.
func (s *solver[T]) printExit(task Status) {

	log, i := s.log, &s.info
	if !log.enable(PerOuter) {
		return
	}

	log.log("\n%v\n", task)
	log.log("Products with A   : %8d     Total time         : %s\n", i.NumMatVec, formatDuration(i.Elapsed))
	log.log("Products with A^H : %8d     Project time       : %s\n", i.NumAdjoint, formatDuration(i.ProjectTime))
	log.log("Newton iterations : %8d     Mat-vec time       : %s\n", i.NumOuter, formatDuration(i.MatVecTime))
	log.log("Line search its   : %8d     Line search errors : %8d\n", i.NumLineSearch, i.NumLineErrors)
	log.log("Iterations        : %8d     Degenerate steps   : %8d\n", i.NumIter, i.NumDegenerate)
	log.log("Final tau         : %11.5e  Residual norm      : %11.5e\n", i.Tau, i.RNorm)
}

func formatDuration(d time.Duration) string {
	nanoseconds := d.Nanoseconds()
	switch {
	case nanoseconds >= 1e9: // Convert to seconds
		return fmt.Sprintf("%.2f s", float64(nanoseconds)/1e9)
	case nanoseconds >= 1e6: // Convert to milliseconds
		return fmt.Sprintf("%.2f ms", float64(nanoseconds)/1e6)
	case nanoseconds >= 1e3: // Convert to microseconds
		return fmt.Sprintf("%.2f µs", float64(nanoseconds)/1e3)
	default: // Keep in nanoseconds
		return fmt.Sprintf("%.2f ns", float64(nanoseconds))
	}
}
