// Copyright 2025 The fpath Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runtime

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "fpath"
	subsystem = "engine"
)

const (
	resultComplete  = "complete"
	resultExhausted = "exhausted"
	resultFailed    = "failed"
)

// engineMetrics holds prometheus metrics for the fixpoint loop.
var engineMetrics = newEngineMetrics()

type metrics struct {
	passes         *prometheus.HistogramVec
	resolutionTime *prometheus.HistogramVec
}

func newEngineMetrics() *metrics {
	m := &metrics{
		passes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_passes",
				Help:      "Number of evaluation passes per top-level evaluation.",
				Buckets:   prometheus.LinearBuckets(1, 1, DefaultMaxPasses),
			},
			[]string{"result"}, // "complete", "exhausted" or "failed"
		),
		resolutionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "resolution_duration_seconds",
				Help:      "External call resolution time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"adapter", "result"}, // "success" or "error"
		),
	}
	prometheus.MustRegister(m.passes, m.resolutionTime)
	return m
}

// ObservePasses records how many passes a top-level evaluation took.
func (m *metrics) ObservePasses(passes int, result string) {
	m.passes.WithLabelValues(result).Observe(float64(passes))
}

// ObserveResolution records one external call resolution duration.
func (m *metrics) ObserveResolution(adapter string, durationSeconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.resolutionTime.WithLabelValues(adapter, result).Observe(durationSeconds)
}
