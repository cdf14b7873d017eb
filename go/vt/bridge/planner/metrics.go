/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package planner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Planning outcomes recorded by Metrics.
const (
	OutcomeBridged        = "bridged"
	OutcomeUnsupported    = "unsupported_command"
	OutcomeScrollCursor   = "scroll_cursor"
	OutcomeDeparseError   = "deparse_error"
	OutcomeConnectError   = "connect_error"
	OutcomePrepareError   = "prepare_error"
	OutcomeTypeError      = "type_error"
	OutcomeCatalogMissing = "catalog_missing"
)

// Metrics counts planning attempts by outcome and times them.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

var (
	defaultMetrics = &Metrics{}
	metricsOnce    sync.Once
)

// InitializeMetrics registers the planner metrics with the default
// prometheus registry on first use and returns them.
func InitializeMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics creates planner metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtbridge",
			Subsystem: "planner",
			Name:      "attempts_total",
			Help:      "Planning attempts against the alternate engine by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vtbridge",
			Subsystem: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Time spent planning a statement against the alternate engine.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.duration)
	}
	return m
}

func (m *Metrics) record(outcome string) {
	m.attempts.WithLabelValues(outcome).Inc()
}
