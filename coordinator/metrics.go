// Copyright 2024 Blink Labs Software
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

package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type coordinatorMetrics struct {
	submissions *prometheus.CounterVec
	retries     prometheus.Counter
}

func newCoordinatorMetrics(promRegistry prometheus.Registerer) *coordinatorMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &coordinatorMetrics{
		submissions: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightsurety_coordinator_submissions_total",
				Help: "oracle responses submitted by result",
			},
			[]string{"result"},
		),
		retries: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_coordinator_retries_total",
			Help: "oracle submissions retried after a transient error",
		}),
	}
}
