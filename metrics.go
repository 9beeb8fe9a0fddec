// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serverfn

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeNotFound = "not_found"
)

type dispatchMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newDispatchMetrics registers the dispatch collectors. Registries sharing a
// Prometheus registerer share collectors.
func newDispatchMetrics(registerer prometheus.Registerer) (*dispatchMetrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "serverfn",
		Name:      "dispatch_total",
		Help:      "Requests dispatched to server functions, by path and outcome.",
	}, []string{"path", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "serverfn",
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent dispatching requests to server functions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})

	var err error
	if calls, err = registerOrReuse(registerer, calls); err != nil {
		return nil, err
	}
	if duration, err = registerOrReuse(registerer, duration); err != nil {
		return nil, err
	}
	return &dispatchMetrics{calls: calls, duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return collector, err
}

// observe is a no-op on a nil receiver, so registries without metrics don't
// need to check.
func (m *dispatchMetrics) observe(path, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(path, outcome).Inc()
	m.duration.WithLabelValues(path).Observe(elapsed.Seconds())
}
