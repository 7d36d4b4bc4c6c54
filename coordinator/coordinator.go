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

// Package coordinator runs a set of locally managed oracles. It registers
// them with the ledger, watches for status requests and answers each
// request from every local oracle that holds the requested index.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/tp26610/FlightSurety/event"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

const (
	DefaultOracleCount   = 20
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 50 * time.Millisecond

	maxConcurrentSubmissions = 16
)

// Ledger is the part of the settlement engine used by the coordinator
type Ledger interface {
	RegisterOracle(
		ctx context.Context,
		caller common.Address,
		fee common.Amount,
	) (oracle.Indexes, error)
	OracleIndexes(addr common.Address) (oracle.Indexes, error)
	SubmitOracleResponse(
		ctx context.Context,
		caller common.Address,
		index uint8,
		flight common.FlightKey,
		status common.StatusCode,
	) (oracle.Outcome, error)
}

type CoordinatorConfig struct {
	Logger        *slog.Logger
	EventBus      *event.EventBus
	Ledger        Ledger
	StatusSource  StatusSource
	PromRegistry  prometheus.Registerer
	Seed          []byte
	OracleCount   int
	RetryAttempts uint64
	RetryBackoff  time.Duration
}

// Submission is the result of one oracle answering one request
type Submission struct {
	Err     error
	Outcome oracle.Outcome
	Oracle  common.Address
}

type localOracle struct {
	address common.Address
	indexes oracle.Indexes
}

type Coordinator struct {
	config  CoordinatorConfig
	logger  *slog.Logger
	metrics *coordinatorMetrics
	oracles []localOracle
	ctx     context.Context
	cancel  context.CancelFunc
	subId   event.EventSubscriberId
	mu      sync.Mutex
	started bool
}

func New(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("coordinator: ledger is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.OracleCount <= 0 {
		cfg.OracleCount = DefaultOracleCount
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.StatusSource == nil {
		cfg.StatusSource = NewRandomStatus(0)
	}
	c := &Coordinator{
		config: cfg,
		logger: cfg.Logger.With("component", "coordinator"),
	}
	c.metrics = newCoordinatorMetrics(cfg.PromRegistry)
	return c, nil
}

// OracleAddress returns the identity of local oracle i
func OracleAddress(seed []byte, i int) common.Address {
	return common.DeriveAddress(
		[]byte("flightsurety-oracle"),
		seed,
		[]byte(strconv.Itoa(i)),
	)
}

// Start registers the local oracles, or looks up their indexes if they
// are already registered, and subscribes to status requests
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	oracles := make([]localOracle, 0, c.config.OracleCount)
	for i := range c.config.OracleCount {
		addr := OracleAddress(c.config.Seed, i)
		indexes, err := c.config.Ledger.RegisterOracle(ctx, addr, oracle.RegistrationFee)
		if errors.Is(err, common.ErrAlreadyRegistered) {
			indexes, err = c.config.Ledger.OracleIndexes(addr)
		}
		if err != nil {
			return fmt.Errorf("register oracle %s: %w", addr.Hex(), err)
		}
		oracles = append(oracles, localOracle{address: addr, indexes: indexes})
	}
	c.oracles = oracles
	c.ctx, c.cancel = context.WithCancel(context.Background())
	if c.config.EventBus != nil {
		c.subId = c.config.EventBus.SubscribeFunc(
			ledger.OracleRequestEventType,
			c.handleEventOracleRequest,
		)
	}
	c.started = true
	c.logger.Info(
		fmt.Sprintf("started with %d oracles", len(oracles)),
	)
	return nil
}

// Stop unsubscribes from status requests and cancels pending retries
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.started = false
	if c.config.EventBus != nil && c.subId != 0 {
		c.config.EventBus.Unsubscribe(ledger.OracleRequestEventType, c.subId)
	}
	c.cancel()
}

// Oracles returns the local oracle addresses and their indexes
func (c *Coordinator) Oracles() map[common.Address]oracle.Indexes {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make(map[common.Address]oracle.Indexes, len(c.oracles))
	for _, o := range c.oracles {
		ret[o.address] = o.indexes
	}
	return ret
}

func (c *Coordinator) handleEventOracleRequest(evt event.Event) {
	req, ok := evt.Data.(ledger.OracleRequestEvent)
	if !ok {
		c.logger.Error(
			fmt.Sprintf("unexpected event data type %T", evt.Data),
		)
		return
	}
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	_ = c.HandleRequest(ctx, req)
}

// HandleRequest answers req from every local oracle holding its index. The
// submissions run concurrently and a failure of one never stops the others.
func (c *Coordinator) HandleRequest(
	ctx context.Context,
	req ledger.OracleRequestEvent,
) []Submission {
	c.mu.Lock()
	var matching []localOracle
	for _, o := range c.oracles {
		if o.indexes.Contains(req.Index) {
			matching = append(matching, o)
		}
	}
	c.mu.Unlock()
	results := make([]Submission, len(matching))
	if len(matching) == 0 {
		return results
	}
	// One observation per request, shared by every local oracle
	status, err := c.config.StatusSource.Status(ctx, req.Flight)
	if err != nil {
		err = fmt.Errorf("status source: %w", err)
		for i, o := range matching {
			results[i] = Submission{Oracle: o.address, Err: err}
			c.logSubmissionError(o, req, err)
		}
		return results
	}
	c.logger.Debug(
		"answering status request",
		"flight", req.Flight.String(),
		"index", req.Index,
		"status", status.String(),
		"oracles", len(matching),
	)
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentSubmissions)
	for i, o := range matching {
		eg.Go(func() error {
			results[i] = c.submit(ctx, o, req, status)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (c *Coordinator) submit(
	ctx context.Context,
	o localOracle,
	req ledger.OracleRequestEvent,
	status common.StatusCode,
) Submission {
	ret := Submission{Oracle: o.address}
	backoff := retry.WithMaxRetries(
		c.config.RetryAttempts,
		retry.NewExponential(c.config.RetryBackoff),
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		outcome, err := c.config.Ledger.SubmitOracleResponse(
			ctx,
			o.address,
			req.Index,
			req.Flight,
			status,
		)
		if err != nil {
			if isTerminal(err) {
				return err
			}
			c.metrics.retries.Inc()
			return retry.RetryableError(err)
		}
		ret.Outcome = outcome
		return nil
	})
	if err != nil {
		ret.Err = err
		c.logSubmissionError(o, req, err)
		return ret
	}
	c.metrics.submissions.WithLabelValues("accepted").Inc()
	return ret
}

func (c *Coordinator) logSubmissionError(
	o localOracle,
	req ledger.OracleRequestEvent,
	err error,
) {
	c.metrics.submissions.WithLabelValues("failed").Inc()
	c.logger.Warn(
		"oracle submission failed",
		"oracle", o.address.Hex(),
		"flight", req.Flight.String(),
		"index", req.Index,
		"error", err,
	)
}

// isTerminal reports whether a submission error will not go away by retrying
func isTerminal(err error) bool {
	for _, terminal := range []error{
		common.ErrOracleNotAuthorizedForIndex,
		common.ErrRequestNotFound,
		common.ErrInvalidStatusCode,
		common.ErrFlightNotRegistered,
		common.ErrContractNotOperational,
		common.ErrUnauthorized,
		common.ErrAirlineNotOperational,
		ledger.ErrLedgerHalted,
		context.Canceled,
	} {
		if errors.Is(err, terminal) {
			return true
		}
	}
	return false
}
