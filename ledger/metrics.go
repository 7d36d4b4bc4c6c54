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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	operationsTotal     *prometheus.CounterVec
	operationLatency    *prometheus.HistogramVec
	journalSeq          prometheus.Gauge
	airlinesRegistered  prometheus.Gauge
	airlinesOperational prometheus.Gauge
	flightsRegistered   prometheus.Gauge
	oraclesRegistered   prometheus.Gauge
	openRequests        prometheus.Gauge
	policiesSold        prometheus.Gauge
	outstandingCredit   prometheus.Gauge
	flightsFinalized    *prometheus.CounterVec
	payoutsTotal        prometheus.Counter
	operational         prometheus.Gauge
	halted              prometheus.Gauge
	transferFailures    prometheus.Counter
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.operationsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightsurety_ledger_operations_total",
			Help: "ledger mutations by operation and result",
		},
		[]string{"op", "result"},
	)
	m.operationLatency = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flightsurety_ledger_operation_seconds",
			Help:    "latency of accepted ledger mutations including the journal commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100us to ~1.6s
		},
		[]string{"op"},
	)
	m.journalSeq = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_journal_seq",
		Help: "sequence number of the last committed journal record",
	})
	m.airlinesRegistered = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_airlines_registered",
		Help: "number of governance approved airlines",
	})
	m.airlinesOperational = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_airlines_operational",
		Help: "number of registered and funded airlines",
	})
	m.flightsRegistered = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_flights_registered",
		Help: "number of registered flights",
	})
	m.oraclesRegistered = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_oracles_registered",
		Help: "number of registered oracles",
	})
	m.openRequests = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_status_requests_open",
		Help: "number of status requests still waiting for quorum",
	})
	m.policiesSold = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_policies",
		Help: "number of insurance policies sold",
	})
	m.outstandingCredit = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_outstanding_credit",
		Help: "credit owed to passengers in base units",
	})
	m.flightsFinalized = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightsurety_ledger_flights_finalized_total",
			Help: "flights finalized by oracle quorum, by status",
		},
		[]string{"status"},
	)
	m.payoutsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "flightsurety_ledger_payouts_total",
		Help: "completed withdrawals",
	})
	m.operational = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_operational",
		Help: "whether mutations are enabled (0 or 1)",
	})
	m.halted = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "flightsurety_ledger_halted",
		Help: "whether the ledger stopped after a journal failure (0 or 1)",
	})
	m.transferFailures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "flightsurety_ledger_transfer_failures_total",
		Help: "withdrawal transfers that failed and were credited back",
	})
}
