// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects pipeline and market data metrics in the default
// prometheus registry
type Recorder struct {
	adapterDuration *prometheus.HistogramVec
	adapterOutcomes *prometheus.CounterVec
	providerFetches *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	comparisons     prometheus.Counter
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Default returns the process wide recorder; promauto registration may only
// happen once per metric name
func Default() *Recorder {
	recorderOnce.Do(func() {
		recorder = newRecorder(prometheus.DefaultRegisterer)
	})
	return recorder
}

func newRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		adapterDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pvforecast_adapter_duration_seconds",
				Help:    "Wall clock time spent fitting and forecasting per model",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"model"},
		),
		adapterOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvforecast_adapter_results_total",
				Help: "Model adapter results by outcome",
			},
			[]string{"model", "outcome"},
		),
		providerFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvforecast_provider_fetches_total",
				Help: "Market data requests sent to upstream providers",
			},
			[]string{"provider", "status"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvforecast_cache_lookups_total",
				Help: "Market data cache lookups",
			},
			[]string{"result"},
		),
		comparisons: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pvforecast_comparisons_total",
				Help: "Completed model comparison runs",
			},
		),
	}
}

// RecordAdapter records the duration and outcome (ok, failed, timeout) of one model run
func (r *Recorder) RecordAdapter(model, outcome string, elapsed time.Duration) {
	r.adapterDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	r.adapterOutcomes.WithLabelValues(model, outcome).Inc()
}

// RecordFetch records an upstream provider request
func (r *Recorder) RecordFetch(provider string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.providerFetches.WithLabelValues(provider, status).Inc()
}

// RecordCache records a cache hit or miss
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordComparison() {
	r.comparisons.Inc()
}
