// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package observe exports the progress of spgl1 solves as Prometheus metrics.
//
//	c, _ := observe.NewCollector(prometheus.DefaultRegisterer, "recovery")
//	opt := &spgl1.Options[float64]{Monitor: c.Observe}
//	res, _ := spgl1.BP(op, b, opt)
//	c.Record(&res.Info)
package observe

import (
	"sync"

	"github.com/curioloop/spgl1/spgl1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the metrics of the solves it observes.
// Gauges describe the latest reported state, so concurrent solves should use separate namespaces.
type Collector struct {
	mu       sync.Mutex
	lastIter int // iteration count of the latest report

	iterations prometheus.Counter
	outerSteps prometheus.Counter
	residual   prometheus.Gauge
	dualNorm   prometheus.Gauge
	gap        prometheus.Gauge
	tau        prometheus.Gauge
	step       prometheus.Gauge
	solves     *prometheus.CounterVec
	products   prometheus.Counter
	duration   prometheus.Histogram
}

// NewCollector registers the solver metrics on reg under namespace.
func NewCollector(reg prometheus.Registerer, namespace string) (c *Collector, err error) {
	defer func() {
		// promauto panics on duplicate registration
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				c, err = nil, e
				return
			}
			panic(r)
		}
	}()

	f := promauto.With(reg)
	c = &Collector{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "iterations_total",
			Help:      "Total SPG iterations",
		}),
		outerSteps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "root_steps_total",
			Help:      "Total root-finding steps on the Pareto curve",
		}),
		residual: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "residual_norm",
			Help:      "Two-norm of the latest residual",
		}),
		dualNorm: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "gradient_dual_norm",
			Help:      "Dual norm of the latest gradient",
		}),
		gap: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "relative_gap",
			Help:      "Latest relative duality gap",
		}),
		tau: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "tau",
			Help:      "Latest one-norm budget",
		}),
		step: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "spectral_step",
			Help:      "Latest spectral step length",
		}),
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "solves_total",
			Help:      "Finished solves by termination status",
		}, []string{"status", "converged"}),
		products: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "operator_products_total",
			Help:      "Products with A and its adjoint over finished solves",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "spgl1",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock time of finished solves",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}),
	}
	return c, nil
}

// Observe records one progress report. It matches the signature of spgl1.Options.Monitor.
// Iterations are counted from the advance of Progress.Iter, a report with a smaller count starts a new solve.
func (c *Collector) Observe(p spgl1.Progress) {
	if p.Outer {
		c.outerSteps.Inc()
	} else {
		c.advance(p.Iter)
	}
	c.residual.Set(p.RNorm)
	c.dualNorm.Set(p.GNorm)
	c.gap.Set(p.RGap)
	c.tau.Set(p.Tau)
	c.step.Set(p.Step)
}

func (c *Collector) advance(iter int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if iter < c.lastIter {
		c.lastIter = 0
	}
	if iter > c.lastIter {
		c.iterations.Add(float64(iter - c.lastIter))
		c.lastIter = iter
	}
}

// Record accounts a finished solve.
func (c *Collector) Record(info *spgl1.Info) {
	c.mu.Lock()
	c.lastIter = 0
	c.mu.Unlock()

	converged := "false"
	if info.Status.Converged() {
		converged = "true"
	}
	c.solves.WithLabelValues(info.Reason(), converged).Inc()
	c.products.Add(float64(info.NumMatVec + info.NumAdjoint))
	c.duration.Observe(info.Elapsed.Seconds())
}
