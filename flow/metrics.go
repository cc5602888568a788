// Copyright 2022 Dolthub, Inc.
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

package flow

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsReporter exports results as prometheus metrics.
type MetricsReporter struct {
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsReporter creates a MetricsReporter and registers its collectors
// in reg.
func NewMetricsReporter(reg prometheus.Registerer) (*MetricsReporter, error) {
	m := &MetricsReporter{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rbac",
			Name:      "test_results_total",
			Help:      "Number of finished tests by kind and status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rbac",
			Name:      "test_duration_seconds",
			Help:      "Duration of finished tests by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{m.results, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Report implements the Reporter interface.
func (m *MetricsReporter) Report(res Result) {
	kind := res.Kind.String()
	m.results.WithLabelValues(kind, res.Status.String()).Inc()
	m.duration.WithLabelValues(kind).Observe(res.Duration.Seconds())
}
