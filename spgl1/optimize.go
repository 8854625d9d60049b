// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/curioloop/spgl1/linop"
	"go.uber.org/zap"
)

// Verbosity controls the frequency of the iteration table.
type Verbosity int

const (
	// Silent no output is generated
	Silent Verbosity = 0
	// PerOuter print the header, one line per root-finding step and the exit summary
	PerOuter Verbosity = 1
	// PerInner print also one line per SPG iteration
	PerInner Verbosity = 2
)

// logger handles the iteration table of the solver.
// Note the writer must be thread-safe when solves run concurrently.
type logger struct {
	Level Verbosity
	Msg   io.Writer
}

func (l *logger) enable(level Verbosity) bool {
	return l.Level >= level
}

func (l *logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Options configures a solve. The zero value of every scalar field selects its default.
type Options[T linop.Element] struct {
	// Verbosity of the iteration table written to Output.
	Verbosity Verbosity `yaml:"verbosity"`
	// The iteration stop when the total number of SPG iterations exceeds limit (default 10·m).
	MaxIterations int `yaml:"max_iterations"`
	// The iteration stop when the number of root-finding steps exceeds limit (default unlimited).
	MaxOuterIterations int `yaml:"max_outer_iterations"`
	// The iteration stop when the number of products with A and Aᴴ exceeds limit (default unlimited).
	MaxMatVec int `yaml:"max_matvec"`
	// The iteration stop when the wall-clock time exceeds limit (default unlimited).
	TimeLimit time.Duration `yaml:"time_limit"`
	// Optimality tolerance on the relative duality gap and the root residual.
	OptTol float64 `yaml:"opt_tol"`
	// Basis pursuit tolerance, the residual floor ‖r‖₂ ≤ 𝚋𝚙𝚝𝚘𝚕·‖b‖₂ used when σ = 0.
	BPTol float64 `yaml:"bp_tol"`
	// Least-squares tolerance, a dual norm below 𝚕𝚜𝚝𝚘𝚕·‖r‖₂ means no τ reaches σ.
	LSTol float64 `yaml:"ls_tol"`
	// Relative objective decrease below which the root-finder updates τ.
	DecTol float64 `yaml:"dec_tol"`
	// Bounds of the spectral step length.
	StepMin float64 `yaml:"step_min"`
	StepMax float64 `yaml:"step_max"`
	// Number of previous objective values kept by the non-monotone line search.
	Memory int `yaml:"memory"`
	// Number of line-search failures tolerated before the solve stops.
	MaxLineErrors int `yaml:"max_line_errors"`
	// Optional positive weights of the one-norm ∑ wᵢ|xᵢ|.
	Weights []float64 `yaml:"weights"`
	// Optional warm start.
	X0 []T `yaml:"-"`
	// Writer of the iteration table (default stdout).
	Output io.Writer `yaml:"-"`
	// Structured solver events (default no-op).
	Logger *zap.Logger `yaml:"-"`
	// Optional callback invoked after each iteration and each root-finding step.
	Monitor func(Progress) `yaml:"-"`
}

// Progress is a snapshot of the solver passed to Options.Monitor.
type Progress struct {
	Outer     bool    // A root-finding step rather than an SPG iteration.
	Iter      int     // Total SPG iterations so far.
	NumOuter  int     // Root-finding steps so far.
	NumMatVec int     // Products with A and Aᴴ so far.
	Tau       float64 // Current one-norm budget.
	RNorm     float64 // ‖r‖₂
	GNorm     float64 // Dual norm of g.
	RGap      float64 // Relative duality gap.
	Step      float64 // Spectral step length.
}

// ParetoPoint samples the Pareto curve φ(τ) = ‖Ax_τ - b‖₂ at one root-finding step.
type ParetoPoint struct {
	Tau   float64
	Phi   float64
	Slope float64 // φ′(τ) = -λ/φ
}

// Info contains a summary of the solve.
type Info struct {
	Status Status  // Final status of the solve.
	Tau    float64 // Final one-norm budget.
	Sigma  float64 // Residual target, the σ floor in basis pursuit mode.
	RNorm  float64 // Final ‖r‖₂.
	GNorm  float64 // Final dual norm of g.
	RGap   float64 // Final relative duality gap.

	// Per root-finding step: ‖x‖₁ (weighted) and ‖r‖₂.
	XNorm1 []float64
	RNorm2 []float64
	Pareto []ParetoPoint

	NumIter       int // Number of SPG iterations.
	NumOuter      int // Number of root-finding steps.
	NumMatVec     int // Number of products with A.
	NumAdjoint    int // Number of products with Aᴴ.
	NumLineSearch int // Number of line-search trials.
	NumLineErrors int // Number of line-search failures.
	NumDegenerate int // Number of spectral steps with non-positive curvature.

	Elapsed     time.Duration
	ProjectTime time.Duration
	MatVecTime  time.Duration
}

// Reason describes the termination status.
func (i *Info) Reason() string {
	return i.Status.String()
}

// Result contains the final result of the solve.
type Result[T linop.Element] struct {
	OK   bool // Whether the solve converged.
	X    []T  // Solution.
	R    []T  // Residual Ax - b.
	G    []T  // Gradient Aᴴr.
	Info      // Solve summary.
}

// Lasso solves
//
//	minimize ‖Ax - b‖₂ subject to ‖x‖₁ ≤ τ
func Lasso[T linop.Element](A linop.Operator[T], b []T, tau float64, o *Options[T]) (*Result[T], error) {
	return Solve(A, b, tau, math.NaN(), o)
}

// BP solves the basis pursuit problem
//
//	minimize ‖x‖₁ subject to Ax = b
//
// The equality is relaxed to ‖Ax - b‖₂ ≤ 𝚋𝚙𝚝𝚘𝚕·‖b‖₂.
func BP[T linop.Element](A linop.Operator[T], b []T, o *Options[T]) (*Result[T], error) {
	return Solve(A, b, 0, 0, o)
}

// BPDN solves the basis pursuit denoise problem
//
//	minimize ‖x‖₁ subject to ‖Ax - b‖₂ ≤ σ
func BPDN[T linop.Element](A linop.Operator[T], b []T, sigma float64, o *Options[T]) (*Result[T], error) {
	if math.IsNaN(sigma) {
		return nil, fmt.Errorf("sigma = %g: %w", sigma, ErrNegativeSigma)
	}
	return Solve(A, b, 0, sigma, o)
}

// Solve is the general entry of the solver.
// A NaN sigma solves the LASSO problem with budget tau.
// Otherwise the root of φ(τ) = σ is searched starting from tau.
func Solve[T linop.Element](A linop.Operator[T], b []T, tau, sigma float64, o *Options[T]) (*Result[T], error) {
	s, err := newSolver(A, b, tau, sigma, o)
	if err != nil {
		return nil, err
	}
	status := s.run()
	return &Result[T]{
		OK:   status.Converged(),
		X:    s.x,
		R:    s.r,
		G:    s.g,
		Info: s.info,
	}, nil
}
