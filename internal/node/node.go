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

package node

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tp26610/FlightSurety"
	"github.com/tp26610/FlightSurety/coordinator"
	"github.com/tp26610/FlightSurety/internal/config"
	"github.com/tp26610/FlightSurety/ledger/common"
)

// NewNodeConfig translates the loaded configuration into node options
func NewNodeConfig(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (flightsurety.Config, error) {
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return flightsurety.Config{}, err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return flightsurety.Config{}, err
	}
	retryBackoff, err := cfg.Coordinator.RetryBackoffDuration()
	if err != nil {
		return flightsurety.Config{}, err
	}
	statusSource, err := coordinator.NewStatusSource(
		cfg.Coordinator.StatusMode,
		common.StatusCode(cfg.Coordinator.FixedStatus),
	)
	if err != nil {
		return flightsurety.Config{}, err
	}
	apiAddress := ""
	if cfg.ApiPort > 0 {
		apiAddress = fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort)
	}
	return flightsurety.NewConfig(
		flightsurety.WithLogger(logger),
		flightsurety.WithDatabasePath(cfg.DatabasePath),
		flightsurety.WithOwner(owner),
		flightsurety.WithIndexSeed([]byte(cfg.IndexSeed)),
		flightsurety.WithApiAddress(apiAddress),
		flightsurety.WithCoordinator(
			cfg.Coordinator.Enabled,
			cfg.Coordinator.OracleCount,
			[]byte(cfg.Coordinator.Seed),
		),
		flightsurety.WithStatusSource(statusSource),
		flightsurety.WithCoordinatorRetry(cfg.Coordinator.RetryAttempts, retryBackoff),
		flightsurety.WithTracing(cfg.Tracing),
		flightsurety.WithTracingStdout(cfg.TracingStdout),
		flightsurety.WithShutdownTimeout(shutdownTimeout),
		flightsurety.WithPrometheusRegistry(promRegistry),
	), nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	// Enable metrics with default prometheus registry
	nodeCfg, err := NewNodeConfig(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ShutdownTimeoutDuration()
	n, err := flightsurety.New(nodeCfg)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.MetricsPort > 0 {
		logger.Info(
			"serving prometheus metrics on "+metricsServer.Addr,
			"component", "node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				err != http.ErrServerClosed {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
			}
		}()
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	runErr := n.Run(signalCtx)
	if runErr != nil {
		logger.Error("node error", "error", runErr, "component", "node")
	} else {
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if cfg.MetricsPort > 0 {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err, "component", "node")
		}
	}
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err, "component", "node")
		if runErr == nil {
			return err
		}
	}
	if runErr == nil {
		logger.Info("shutdown complete", "component", "node")
	}
	return runErr
}
