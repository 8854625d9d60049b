// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spgl1 solves large-scale sparse recovery problems with the
// spectral projected gradient method for one-norm minimization.
//
//	LASSO  minimize ‖Ax - b‖₂   subject to ‖x‖₁ ≤ τ
//	BP     minimize ‖x‖₁        subject to Ax = b
//	BPDN   minimize ‖x‖₁        subject to ‖Ax - b‖₂ ≤ σ
//
// BP and BPDN are reduced to a sequence of LASSO problems by a Newton
// root-finder on the Pareto curve φ(τ) = ‖b - Axτ‖₂.
package spgl1
