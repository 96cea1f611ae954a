// Copyright 2023-2025 Buf Technologies, Inc.
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

package searchconn

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// metrics counts client lifecycle events. A nil *metrics records nothing.
type metrics struct {
	initializations *prometheus.CounterVec
	teardowns       *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	initializations, err := registerCounterVec(registerer, prometheus.CounterOpts{
		Name: "searchconn_initializations_total",
		Help: "Number of search client initializations, by client kind and result.",
	})
	if err != nil {
		return nil, err
	}
	teardowns, err := registerCounterVec(registerer, prometheus.CounterOpts{
		Name: "searchconn_teardowns_total",
		Help: "Number of search client teardowns, by client kind and result.",
	})
	if err != nil {
		return nil, err
	}
	return &metrics{initializations: initializations, teardowns: teardowns}, nil
}

// registerCounterVec registers a counter labeled by kind and result. If an
// identical counter is already registered, for example by another manager
// sharing the registerer, that counter is used instead.
func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, []string{"kind", "result"})
	err := registerer.Register(counter)
	if err == nil {
		return counter, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, err
}

func (m *metrics) observeInitialization(kind Kind, err error) {
	if m == nil {
		return
	}
	m.initializations.WithLabelValues(kind.String(), resultLabel(err)).Inc()
}

func (m *metrics) observeTeardown(kind Kind, err error) {
	if m == nil {
		return
	}
	m.teardowns.WithLabelValues(kind.String(), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
