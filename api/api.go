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

// Package api is the JSON over HTTP boundary of the settlement node. It
// also serves the gRPC health protocol on the same listener.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultListenAddress = ":8080"

	// CallerHeader carries the identity of the caller
	CallerHeader = "X-Caller"
)

type ServerConfig struct {
	Logger          *slog.Logger
	PromRegistry    prometheus.Registerer
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	node       LedgerNode
	metrics    *apiMetrics
	httpServer *http.Server
	listenAddr net.Addr
	doneCh     chan struct{}
	mu         sync.Mutex
}

func New(cfg ServerConfig, node LedgerNode) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "api"),
		node:   node,
	}
	s.metrics = newApiMetrics(cfg.PromRegistry)
	return s
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range []struct {
		handler http.HandlerFunc
		pattern string
	}{
		{pattern: "GET /api", handler: s.handleRoot},
		{pattern: "GET /api/v0/stats", handler: s.handleStats},
		{pattern: "GET /api/v0/operational", handler: s.handleGetOperational},
		{pattern: "PUT /api/v0/operational", handler: s.handleSetOperational},
		{pattern: "POST /api/v0/airlines", handler: s.handleRegisterAirline},
		{pattern: "GET /api/v0/airlines/{address}", handler: s.handleGetAirline},
		{pattern: "POST /api/v0/airlines/{address}/fund", handler: s.handleFundAirline},
		{pattern: "POST /api/v0/flights", handler: s.handleRegisterFlight},
		{
			pattern: "GET /api/v0/flights/{airline}/{flight}/{timestamp}",
			handler: s.handleGetFlight,
		},
		{pattern: "POST /api/v0/oracles", handler: s.handleRegisterOracle},
		{pattern: "GET /api/v0/oracles/{address}/indexes", handler: s.handleOracleIndexes},
		{pattern: "POST /api/v0/status-requests", handler: s.handleRequestFlightStatus},
		{pattern: "POST /api/v0/oracle-responses", handler: s.handleOracleResponse},
		{pattern: "POST /api/v0/insurance", handler: s.handleBuyInsurance},
		{
			pattern: "GET /api/v0/insurance/{passenger}/{airline}/{flight}/{timestamp}",
			handler: s.handleGetPolicy,
		},
		{pattern: "GET /api/v0/passengers/{address}/credit", handler: s.handleGetCredit},
		{pattern: "POST /api/v0/passengers/{address}/withdraw", handler: s.handleWithdraw},
		{pattern: "GET /api/v0/events", handler: s.handleEvents},
	} {
		mux.Handle(route.pattern, s.instrument(route.pattern, route.handler))
	}
	mux.Handle(
		grpchealth.NewHandler(
			&ledgerChecker{node: s.node},
			connect.WithCompressMinBytes(1024),
		),
	)
	// Use h2c so gRPC health clients can connect without TLS
	return h2c.NewHandler(mux, &http2.Server{})
}

// Start binds the listener and serves in a background goroutine until Stop
// is called or ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	doneCh := make(chan struct{})
	s.httpServer = server
	s.listenAddr = ln.Addr()
	s.doneCh = doneCh
	s.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	go func() {
		select {
		case <-ctx.Done():
		case <-doneCh:
			return
		}
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.config.ShutdownTimeout,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or nil when not started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	if s.doneCh != nil {
		close(s.doneCh)
		s.doneCh = nil
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
