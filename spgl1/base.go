// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"errors"
	"fmt"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	half = 0.5
)

var (
	// ErrNilOperator is returned when no measurement operator is supplied.
	ErrNilOperator = errors.New("spgl1: nil operator")
	// ErrNegativeTau is returned for a negative or NaN one-norm budget.
	ErrNegativeTau = errors.New("spgl1: tau must be a non-negative number")
	// ErrNegativeSigma is returned for a negative or NaN residual tolerance.
	ErrNegativeSigma = errors.New("spgl1: sigma must be a non-negative number")
	// ErrBadWeights is returned when a weight is not a positive finite number.
	ErrBadWeights = errors.New("spgl1: weights must be positive and finite")
	// ErrBadOption is returned for an option outside its valid range.
	ErrBadOption = errors.New("spgl1: invalid option")
)

// Status reports why a solve terminated.
type Status int

const (
	statusConv Status = 1 << (4 + iota)
	statusStop
)

const (
	// iterLoop means the iteration should continue.
	iterLoop Status = 0
	// needTau hands control back to the root-finder for a new τ.
	needTau Status = 1 << 3
)

const (
	// ConvRootFound the residual norm matches σ within the optimality tolerance.
	ConvRootFound = statusConv | (1 + iota)
	// ConvBPSolution the residual is negligible relative to ‖b‖₂.
	ConvBPSolution
	// ConvSuboptimalBP the residual is below σ but the one-norm may be larger than necessary.
	ConvSuboptimalBP
	// ConvOptimal the duality gap of a fixed-τ problem is below the optimality tolerance.
	ConvOptimal
	// ConvBracket the root bracket collapsed below the optimality tolerance.
	ConvBracket
	// ConvZeroSolution σ ≥ ‖b‖₂ so that x = 0 is optimal.
	ConvZeroSolution
	// StopIterLimit the total number of inner iterations exceeds the limit.
	StopIterLimit = statusStop | (1 + iota)
	// StopOuterLimit the number of root-finding steps exceeds the limit.
	StopOuterLimit
	// StopMatVecLimit the number of operator products exceeds the limit.
	StopMatVecLimit
	// StopTimeLimit the wall-clock budget is exhausted.
	StopTimeLimit
	// StopLineError the line search failed too many times.
	StopLineError
	// StopInfeasible the least-squares residual is above σ, no τ reaches the target.
	StopInfeasible
	// HaltOperatorPanic the operator panicked during evaluation.
	HaltOperatorPanic
)

// Converged reports whether s is a successful termination.
func (s Status) Converged() bool {
	return s&statusConv > 0
}

func (s Status) String() string {
	switch s {
	case ConvRootFound:
		return "EXIT -- Found a root"
	case ConvBPSolution:
		return "EXIT -- Found a BP solution"
	case ConvSuboptimalBP:
		return "EXIT -- Found a suboptimal BP solution"
	case ConvOptimal:
		return "EXIT -- Optimal solution found"
	case ConvBracket:
		return "EXIT -- Root bracket collapsed"
	case ConvZeroSolution:
		return "EXIT -- sigma >= ||b||, x = 0 is optimal"
	case StopIterLimit:
		return "ERROR EXIT -- Too many iterations"
	case StopOuterLimit:
		return "ERROR EXIT -- Too many root-finding steps"
	case StopMatVecLimit:
		return "ERROR EXIT -- Maximum matrix-vector operations reached"
	case StopTimeLimit:
		return "ERROR EXIT -- Time limit reached"
	case StopLineError:
		return "ERROR EXIT -- Linesearch error"
	case StopInfeasible:
		return "EXIT -- Found a least-squares solution above sigma"
	case HaltOperatorPanic:
		return "ERROR EXIT -- Operator evaluation panicked"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
