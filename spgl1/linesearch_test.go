// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := newHistory(3)
	h.reset(5)
	assert.Equal(t, 5.0, h.max())

	h.push(7)
	h.push(2)
	assert.Equal(t, 7.0, h.max())

	// 5 and 7 fall out of the window
	h.push(1)
	h.push(3)
	assert.Equal(t, 3.0, h.max())

	h.reset(0.5)
	assert.Equal(t, 0.5, h.max())
	assert.True(t, math.IsInf(h.vals[1], -1))
}

func TestBacktrack(t *testing.T) {
	// f(x + 𝛂d) = (1 - 𝛂)² along d = -1 from x = 1, gtd = -2
	quad := func(step float64) float64 { return (1 - step) * (1 - step) }

	step, f, iter, err := backtrack(1, 1, -2, quad)
	assert.Equal(t, searchOK, err)
	assert.Equal(t, 0, iter)
	assert.Equal(t, 1.0, step)
	assert.Equal(t, 0.0, f)

	// overshooting objective f(𝛂) = 1 + 10𝛂² - 2𝛂 needs backtracking
	steep := func(step float64) float64 { return 1 + 10*step*step - 2*step }
	step, f, iter, err = backtrack(1, 1, -2, steep)
	assert.Equal(t, searchOK, err)
	assert.Greater(t, iter, 0)
	assert.Less(t, step, 0.2)
	assert.Less(t, f, 1.0)

	// the non-monotone reference accepts an increase
	step, _, iter, err = backtrack(1, 50, -2, steep)
	assert.Equal(t, searchOK, err)
	assert.Equal(t, 0, iter)
	assert.Equal(t, 1.0, step)
}

func TestBacktrackFailure(t *testing.T) {
	calls := 0
	flat := func(step float64) float64 {
		calls++
		return 2
	}
	_, _, iter, err := backtrack(1, 1, -1, flat)
	assert.Equal(t, searchExceedIter, err)
	assert.Equal(t, searchMaxIts, iter)
	assert.Equal(t, searchMaxIts+1, calls)

	calls = 0
	_, f, _, err := backtrack(1, 1, 0, flat)
	assert.Equal(t, searchNoDescent, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1.0, f)

	_, _, _, err = backtrack(1, 1, math.NaN(), flat)
	assert.Equal(t, searchNoDescent, err)
}
