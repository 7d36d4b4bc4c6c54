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

package flightsurety

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tp26610/FlightSurety/coordinator"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
)

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	statusSource  coordinator.StatusSource
	transferFunc  ledger.TransferFunc
	dataDir       string
	apiAddress    string
	indexSeed     []byte
	oracleSeed    []byte
	owner         common.Address
	oracleCount   int
	retryAttempts uint64
	retryBackoff  time.Duration
	// Shutdown timeout for graceful shutdown
	shutdownTimeout time.Duration
	coordinator     bool
	tracing         bool
	tracingStdout   bool
}

func (n *Node) configValidate() error {
	if n.config.owner == common.ZeroAddress {
		return errors.New("owner address must be specified")
	}
	if len(n.config.indexSeed) == 0 {
		return errors.New("index seed must be specified")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new node config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		oracleCount: coordinator.DefaultOracleCount,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithOwner specifies the contract owner, who is also the first airline
func WithOwner(owner common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.owner = owner
	}
}

// WithIndexSeed specifies the seed mixed into every oracle index draw
func WithIndexSeed(seed []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.indexSeed = seed
	}
}

// WithApiAddress specifies the listen address of the HTTP API. An empty address disables it
func WithApiAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiAddress = address
	}
}

// WithTransferFunc specifies how withdrawals are paid out
func WithTransferFunc(transferFunc ledger.TransferFunc) ConfigOptionFunc {
	return func(c *Config) {
		c.transferFunc = transferFunc
	}
}

// WithCoordinator enables the oracle coordinator with count locally managed oracles
func WithCoordinator(enabled bool, count int, seed []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.coordinator = enabled
		c.oracleCount = count
		c.oracleSeed = seed
	}
}

// WithStatusSource specifies what the coordinator oracles report. The default is a random status
func WithStatusSource(source coordinator.StatusSource) ConfigOptionFunc {
	return func(c *Config) {
		c.statusSource = source
	}
}

// WithCoordinatorRetry specifies how often and how fast a failed oracle submission is retried
func WithCoordinatorRetry(attempts uint64, backoff time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318 (or an alternate endpoint
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
