// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spgl1

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptions(t *testing.T) {
	doc := `
verbosity: 1
max_iterations: 250
time_limit: 1500ms
opt_tol: 1.0e-6
bp_tol: 1.0e-9
memory: 5
weights: [1, 0.5, 2]
`
	o := DefaultOptions[float64]()
	require.NoError(t, DecodeOptions(strings.NewReader(doc), o))

	want := DefaultOptions[float64]()
	want.Verbosity = PerOuter
	want.MaxIterations = 250
	want.TimeLimit = 1500 * time.Millisecond
	want.OptTol = 1e-6
	want.BPTol = 1e-9
	want.Memory = 5
	want.Weights = []float64{1, 0.5, 2}

	if diff := cmp.Diff(want, o, cmpopts.IgnoreFields(Options[float64]{}, "Monitor")); diff != "" {
		t.Errorf("decoded options mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOptionsErrors(t *testing.T) {
	o := new(Options[complex128])
	err := DecodeOptions(strings.NewReader("opt_tol: 1e-3\nunknown: 1\n"), o)
	assert.Error(t, err)

	err = DecodeOptions(strings.NewReader("max_iterations: many\n"), o)
	assert.Error(t, err)

	// an empty document keeps o
	o = DefaultOptions[complex128]()
	require.NoError(t, DecodeOptions(strings.NewReader(""), o))
	assert.Equal(t, defaultOptTol, o.OptTol)
}

func TestResolve(t *testing.T) {
	set, log, zl, err := new(Options[float64]).resolve(7)
	require.NoError(t, err)
	assert.Equal(t, settings{
		maxIter:       70,
		optTol:        defaultOptTol,
		bpTol:         defaultBPTol,
		lsTol:         defaultLSTol,
		decTol:        defaultDecTol,
		stepMin:       defaultStepMin,
		stepMax:       defaultStepMax,
		memory:        defaultMemory,
		maxLineErrors: defaultMaxLineErrors,
	}, set)
	assert.Equal(t, Silent, log.Level)
	assert.NotNil(t, log.Msg)
	assert.NotNil(t, zl)

	// defaults and explicit values resolve alike
	explicit, _, _, err := DefaultOptions[float64]().resolve(7)
	require.NoError(t, err)
	assert.Equal(t, set, explicit)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12.00 ns", formatDuration(12))
	assert.Equal(t, "1.50 µs", formatDuration(1500))
	assert.Equal(t, "2.25 ms", formatDuration(2250*time.Microsecond))
	assert.Equal(t, "3.00 s", formatDuration(3*time.Second))
}
