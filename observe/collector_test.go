// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package observe

import (
	"testing"

	"github.com/curioloop/spgl1/linop"
	"github.com/curioloop/spgl1/spgl1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "test")
	require.NoError(t, err)

	_, err = NewCollector(reg, "test")
	require.Error(t, err, "duplicate registration")

	// the check before the first iteration of each τ repeats the count
	c.Observe(spgl1.Progress{Iter: 0, RNorm: 3, Tau: 0.5})
	c.Observe(spgl1.Progress{Iter: 1, RNorm: 2, Tau: 0.5})
	c.Observe(spgl1.Progress{Iter: 2, RNorm: 1, Tau: 0.5})
	c.Observe(spgl1.Progress{Outer: true, Iter: 2, RNorm: 1, Tau: 0.75})
	c.Observe(spgl1.Progress{Iter: 2, RNorm: 1, Tau: 0.75})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.iterations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outerSteps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.residual))
	assert.Equal(t, 0.75, testutil.ToFloat64(c.tau))

	// a new solve restarts the count
	c.Record(&spgl1.Info{Status: spgl1.ConvOptimal})
	c.Observe(spgl1.Progress{Iter: 0})
	c.Observe(spgl1.Progress{Iter: 3})
	assert.Equal(t, 5.0, testutil.ToFloat64(c.iterations))
	c.Observe(spgl1.Progress{Iter: 1})
	assert.Equal(t, 6.0, testutil.ToFloat64(c.iterations))
}

func TestCollectorSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "")
	require.NoError(t, err)

	// A = [I I] has the minimum one-norm solution x = [b/2, b/2]
	a := mat.NewDense(2, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
	})
	b := []float64{1, -2}
	res, err := spgl1.BP(linop.NewDense(a), b, &spgl1.Options[float64]{
		OptTol:  1e-8,
		Monitor: c.Observe,
	})
	require.NoError(t, err)
	c.Record(&res.Info)

	assert.Equal(t, float64(res.NumIter), testutil.ToFloat64(c.iterations))
	assert.Equal(t, float64(res.NumOuter-1), testutil.ToFloat64(c.outerSteps))
	assert.Equal(t, float64(res.NumMatVec+res.NumAdjoint), testutil.ToFloat64(c.products))
	converged := "false"
	if res.OK {
		converged = "true"
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(c.solves.WithLabelValues(res.Reason(), converged)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}
