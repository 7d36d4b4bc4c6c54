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
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tp26610/FlightSurety/api"
	"github.com/tp26610/FlightSurety/coordinator"
	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/event"
	"github.com/tp26610/FlightSurety/ledger"
)

type Node struct {
	eventBus      *event.EventBus
	ledgerState   *ledger.LedgerState
	coordinator   *coordinator.Coordinator
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	mu            sync.Mutex
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	return n, nil
}

// Run starts the node components and blocks until ctx is cancelled or Stop
// is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		return err
	}
	n.config.logger.Info(
		"node started",
		"component", "node",
		"owner", n.config.owner.Hex(),
	)
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

func (n *Node) start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load state
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Logger:       n.config.logger,
			EventBus:     n.eventBus,
			PromRegistry: n.config.promRegistry,
			TransferFunc: n.config.transferFunc,
			DataDir:      n.config.dataDir,
			IndexSeed:    n.config.indexSeed,
			Owner:        n.config.owner,
		},
	)
	if err != nil {
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			return fmt.Errorf("database needs recovery: %w", err)
		}
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	n.ledgerState = state
	// Start oracle coordinator
	if n.config.coordinator {
		c, err := coordinator.New(coordinator.CoordinatorConfig{
			Logger:        n.config.logger,
			EventBus:      n.eventBus,
			Ledger:        n.ledgerState,
			StatusSource:  n.config.statusSource,
			PromRegistry:  n.config.promRegistry,
			Seed:          n.config.oracleSeed,
			OracleCount:   n.config.oracleCount,
			RetryAttempts: n.config.retryAttempts,
			RetryBackoff:  n.config.retryBackoff,
		})
		if err != nil {
			return err
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("failed to start coordinator: %w", err)
		}
		n.coordinator = c
	}
	// Configure HTTP API
	if n.config.apiAddress != "" {
		n.api = api.New(
			api.ServerConfig{
				Logger:          n.config.logger,
				PromRegistry:    n.config.promRegistry,
				ListenAddress:   n.config.apiAddress,
				ShutdownTimeout: n.config.shutdownTimeout,
			},
			n.ledgerState,
		)
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// LedgerState returns the settlement engine, or nil before Run
func (n *Node) LedgerState() *ledger.LedgerState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledgerState
}

// ApiAddr returns the bound address of the HTTP API, or nil when it is not running
func (n *Node) ApiAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.coordinator != nil {
		n.coordinator.Stop()
	}

	// Phase 2: Drain event handlers
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close state and database
	if n.ledgerState != nil {
		if closeErr := n.ledgerState.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("ledger state close: %w", closeErr),
			)
		}
	}

	// Phase 4: Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
