// Copyright 2025 Blink Labs Software
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

package sqlite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const treasuryMetricPrefix = "flightsurety_treasury_"

type sqliteMetrics struct {
	deposits *prometheus.CounterVec
	payouts  prometheus.Counter
}

func (s *MetadataStoreSqlite) registerMetrics() {
	promautoFactory := promauto.With(s.promRegistry)
	s.metrics = &sqliteMetrics{
		deposits: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: treasuryMetricPrefix + "deposits_total",
				Help: "treasury deposits recorded by kind",
			},
			[]string{"kind"},
		),
		payouts: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: treasuryMetricPrefix + "payouts_total",
				Help: "treasury payouts recorded",
			},
		),
	}
}
