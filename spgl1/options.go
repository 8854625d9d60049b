// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/curioloop/spgl1/linop"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultOptTol        = 1e-4
	defaultBPTol         = 1e-6
	defaultLSTol         = 1e-6
	defaultDecTol        = 1e-4
	defaultStepMin       = 1e-16
	defaultStepMax       = 1e5
	defaultMemory        = 3
	defaultMaxLineErrors = 10
	defaultIterFactor    = 10
)

// DefaultOptions returns the options with every default spelled out.
// MaxIterations stays zero since its default depends on the number of measurements.
func DefaultOptions[T linop.Element]() *Options[T] {
	return &Options[T]{
		OptTol:        defaultOptTol,
		BPTol:         defaultBPTol,
		LSTol:         defaultLSTol,
		DecTol:        defaultDecTol,
		StepMin:       defaultStepMin,
		StepMax:       defaultStepMax,
		Memory:        defaultMemory,
		MaxLineErrors: defaultMaxLineErrors,
	}
}

// DecodeOptions reads YAML options from r into o. Unknown fields are rejected.
// Fields absent from the document keep their value in o.
func DecodeOptions[T linop.Element](r io.Reader, o *Options[T]) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil && err != io.EOF {
		return fmt.Errorf("spgl1: decode options: %w", err)
	}
	return nil
}

// settings holds the resolved options of one solve.
type settings struct {
	maxIter       int
	maxOuter      int
	maxMatVec     int
	timeLimit     time.Duration
	optTol        float64
	bpTol         float64
	lsTol         float64
	decTol        float64
	stepMin       float64
	stepMax       float64
	memory        int
	maxLineErrors int
}

func positiveOr(v, def float64) float64 {
	if v == zero {
		return def
	}
	return v
}

// resolve validates o and fills the defaults for a problem with m measurements.
func (o *Options[T]) resolve(m int) (set settings, log logger, zl *zap.Logger, err error) {

	set = settings{
		maxIter:       o.MaxIterations,
		maxOuter:      o.MaxOuterIterations,
		maxMatVec:     o.MaxMatVec,
		timeLimit:     o.TimeLimit,
		optTol:        positiveOr(o.OptTol, defaultOptTol),
		bpTol:         positiveOr(o.BPTol, defaultBPTol),
		lsTol:         positiveOr(o.LSTol, defaultLSTol),
		decTol:        positiveOr(o.DecTol, defaultDecTol),
		stepMin:       positiveOr(o.StepMin, defaultStepMin),
		stepMax:       positiveOr(o.StepMax, defaultStepMax),
		memory:        o.Memory,
		maxLineErrors: o.MaxLineErrors,
	}
	if set.maxIter == 0 {
		set.maxIter = defaultIterFactor * m
	}
	if set.memory == 0 {
		set.memory = defaultMemory
	}
	if set.maxLineErrors == 0 {
		set.maxLineErrors = defaultMaxLineErrors
	}

	bad := func(v float64) bool { return v < zero || math.IsNaN(v) || math.IsInf(v, 0) }

	switch {
	case set.maxIter < 0:
		err = fmt.Errorf("max iterations %d must not be negative: %w", set.maxIter, ErrBadOption)
	case set.maxOuter < 0:
		err = fmt.Errorf("max outer iterations %d must not be negative: %w", set.maxOuter, ErrBadOption)
	case set.maxMatVec < 0:
		err = fmt.Errorf("max matvec %d must not be negative: %w", set.maxMatVec, ErrBadOption)
	case set.timeLimit < 0:
		err = fmt.Errorf("time limit %v must not be negative: %w", set.timeLimit, ErrBadOption)
	case bad(set.optTol), bad(set.bpTol), bad(set.lsTol), bad(set.decTol):
		err = fmt.Errorf("tolerances must be non-negative finite numbers: %w", ErrBadOption)
	case bad(set.stepMin), bad(set.stepMax):
		err = fmt.Errorf("step bounds must be non-negative finite numbers: %w", ErrBadOption)
	case set.stepMin > set.stepMax:
		err = fmt.Errorf("step min %g greater than step max %g: %w", set.stepMin, set.stepMax, ErrBadOption)
	case set.memory < 0:
		err = fmt.Errorf("memory %d must be positive: %w", set.memory, ErrBadOption)
	case set.maxLineErrors < 0:
		err = fmt.Errorf("max line errors %d must not be negative: %w", set.maxLineErrors, ErrBadOption)
	case o.Verbosity < Silent || o.Verbosity > PerInner:
		err = fmt.Errorf("verbosity %d out of range: %w", o.Verbosity, ErrBadOption)
	}
	if err != nil {
		return
	}

	log = logger{Level: o.Verbosity, Msg: o.Output}
	if log.Msg == nil {
		log.Msg = os.Stdout
	}
	if zl = o.Logger; zl == nil {
		zl = zap.NewNop()
	}
	return
}

// checkWeights reports whether every weight is a positive finite number.
func checkWeights(w []float64, n int) error {
	if w == nil {
		return nil
	}
	if len(w) != n {
		return fmt.Errorf("weights length %d, want %d: %w", len(w), n, linop.ErrDimension)
	}
	for i, v := range w {
		if !(v > zero) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %d is %g: %w", i, v, ErrBadWeights)
		}
	}
	return nil
}
