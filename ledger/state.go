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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/database/types"
	"github.com/tp26610/FlightSurety/event"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/flight"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

const tracerName = "github.com/tp26610/FlightSurety/ledger"

// ErrLedgerHalted is returned for every mutation after a journal commit failed
var ErrLedgerHalted = errors.New("ledger halted")

type LedgerStateConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// TransferFunc moves withdrawn funds to the passenger. It defaults to
	// recording a payout in the treasury.
	TransferFunc TransferFunc
	DataDir      string
	IndexSeed    []byte
	Owner        common.Address
}

// TransferFunc performs the second half of a withdrawal and returns a receipt
type TransferFunc func(
	ctx context.Context,
	recipient common.Address,
	amount common.Amount,
) (string, error)

// Withdrawal is the result of a completed withdrawal
type Withdrawal struct {
	Receipt   string         `json:"receipt"`
	Passenger common.Address `json:"passenger"`
	Amount    common.Amount  `json:"amount"`
}

// LedgerState is the serialized settlement engine. Every mutation runs
// under a single lock, is applied to the in-memory registries, and is
// committed to the journal before the lock is released. Events are
// published after the lock is released, in commit order.
type LedgerState struct {
	sync.RWMutex
	// publishMutex keeps event delivery in commit order
	publishMutex sync.Mutex
	config       LedgerStateConfig
	db           *database.Database
	tracer       trace.Tracer
	metrics      stateMetrics
	eventLog     *common.EventLog
	airlines     *governance.Registry
	flights      *flight.Registry
	oracles      *oracle.Registry
	insurance    *insurance.Ledger
	halted       error
	owner        common.Address
	journalSeq   uint64
	operational  bool
	replaying    bool
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "ledger")
	ls := &LedgerState{
		config:      cfg,
		tracer:      otel.Tracer(tracerName),
		eventLog:    common.NewEventLog(),
		operational: true,
	}
	// Init metrics
	ls.metrics.init(ls.config.PromRegistry)
	if ls.config.TransferFunc == nil {
		ls.config.TransferFunc = ls.recordPayout
	}
	// Load database
	db, err := database.New(cfg.Logger, cfg.DataDir, cfg.PromRegistry)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			ls.config.Logger.Error(
				"journal and treasury stores disagree, refusing to start",
				"error", err,
			)
		}
		return nil, err
	}
	ls.db = db
	if err := ls.loadGenesis(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ls.replayJournal(); err != nil {
		_ = db.Close()
		return nil, err
	}
	ls.updateMetrics()
	ls.config.Logger.Info(
		"ledger ready",
		"owner", ls.owner.Hex(),
		"journal_seq", ls.journalSeq,
	)
	return ls, nil
}

// loadGenesis reads the stored owner and seed, or stores the configured
// ones on first start, and creates the registries from them
func (ls *LedgerState) loadGenesis() error {
	gen := &genesisRecord{
		Owner: ls.config.Owner.Bytes(),
		Seed:  ls.config.IndexSeed,
	}
	data, err := ls.db.GetGenesis(nil)
	switch {
	case err == nil:
		stored, err := decodeGenesis(data)
		if err != nil {
			return err
		}
		if !bytes.Equal(stored.Owner, gen.Owner) ||
			!bytes.Equal(stored.Seed, gen.Seed) {
			ls.config.Logger.Warn(
				"configured owner or index seed differs from stored genesis, using stored values",
				"owner", common.BytesToAddress(stored.Owner).Hex(),
			)
		}
		gen = stored
	case errors.Is(err, types.ErrBlobKeyNotFound):
		if ls.config.Owner == common.ZeroAddress {
			return fmt.Errorf("genesis: %w: owner address required", common.ErrInvalidAddress)
		}
		data, err := encodeGenesis(gen)
		if err != nil {
			return err
		}
		if err := ls.db.SetGenesis(data, nil); err != nil {
			return fmt.Errorf("store genesis: %w", err)
		}
	default:
		return fmt.Errorf("load genesis: %w", err)
	}
	ls.owner = common.BytesToAddress(gen.Owner)
	ls.airlines = governance.NewRegistry()
	if err := ls.airlines.Bootstrap(ls.owner); err != nil {
		return err
	}
	ls.flights = flight.NewRegistry(ls.airlines)
	ls.oracles = oracle.NewRegistry(gen.Seed)
	ls.insurance = insurance.NewLedger(ls.airlines, ls.flights)
	return nil
}

// replayJournal applies every stored record in order. Events are rebuilt in
// the event log but not published.
func (ls *LedgerState) replayJournal() error {
	start := time.Now()
	ls.replaying = true
	defer func() {
		ls.replaying = false
	}()
	iter := ls.db.JournalFrom(1)
	defer iter.Close()
	for {
		rec, err := iter.Next()
		if err != nil {
			return fmt.Errorf("replay journal: %w", err)
		}
		if rec == nil {
			break
		}
		if rec.Seq != ls.journalSeq+1 {
			return fmt.Errorf(
				"replay journal: expected record %d, found %d",
				ls.journalSeq+1,
				rec.Seq,
			)
		}
		jrec, err := decodeJournalRecord(rec.Data)
		if err != nil {
			return fmt.Errorf("replay journal record %d: %w", rec.Seq, err)
		}
		_, events, err := ls.apply(jrec)
		if err != nil {
			return fmt.Errorf(
				"replay journal record %d (%s): %w",
				rec.Seq,
				jrec.Op,
				err,
			)
		}
		ls.journalSeq = rec.Seq
		for _, evt := range events {
			ls.eventLog.Append(string(evt.typ), evt.data)
		}
	}
	if ls.journalSeq > 0 {
		ls.config.Logger.Info(
			fmt.Sprintf("replayed %d journal records", ls.journalSeq),
			"duration", time.Since(start).String(),
		)
	}
	return nil
}

// Close releases the database
func (ls *LedgerState) Close() error {
	ls.Lock()
	defer ls.Unlock()
	if ls.db == nil {
		return nil
	}
	err := ls.db.Close()
	ls.db = nil
	ls.halted = errors.New("closed")
	return err
}

// mutate runs one operation under the engine lock. The record is applied
// and, if accepted, journaled along with any treasury deposit it carries.
func (ls *LedgerState) mutate(
	ctx context.Context,
	rec *journalRecord,
) (any, error) {
	start := time.Now()
	opName := rec.Op.String()
	_, span := ls.tracer.Start(
		ctx,
		"ledger."+opName,
		trace.WithAttributes(attribute.String("ledger.op", opName)),
	)
	defer span.End()

	ls.Lock()
	if err := ls.checkWritable(rec.Op); err != nil {
		ls.Unlock()
		return nil, ls.rejected(span, rec.Op, err)
	}
	result, events, err := ls.apply(rec)
	if err != nil {
		ls.Unlock()
		return nil, ls.rejected(span, rec.Op, err)
	}
	if isNoop(result) {
		ls.Unlock()
		ls.metrics.operationsTotal.WithLabelValues(opName, "noop").Inc()
		return result, nil
	}
	if err := ls.commit(rec); err != nil {
		ls.Unlock()
		return nil, ls.rejected(span, rec.Op, err)
	}
	entries := make([]event.Event, 0, len(events))
	for _, evt := range events {
		ls.eventLog.Append(string(evt.typ), evt.data)
		entries = append(entries, event.NewEvent(evt.typ, evt.data))
	}
	ls.updateMetrics()
	// Take the publish lock before releasing the state lock so events from
	// consecutive commits cannot be delivered out of order
	ls.publishMutex.Lock()
	ls.Unlock()
	if ls.config.EventBus != nil {
		for _, evt := range entries {
			ls.config.EventBus.Publish(evt.Type, evt)
		}
	}
	ls.publishMutex.Unlock()

	span.SetAttributes(attribute.Int64("ledger.journal_seq", int64(rec.seq))) // #nosec G115
	ls.metrics.operationsTotal.WithLabelValues(opName, "accepted").Inc()
	ls.metrics.operationLatency.WithLabelValues(opName).
		Observe(time.Since(start).Seconds())
	return result, nil
}

// isNoop reports whether an accepted operation left the state untouched,
// in which case nothing is journaled
func isNoop(result any) bool {
	outcome, ok := result.(oracle.Outcome)
	return ok && (outcome.Stale || outcome.Duplicate)
}

func (ls *LedgerState) rejected(span trace.Span, op journalOp, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	ls.metrics.operationsTotal.WithLabelValues(op.String(), "rejected").Inc()
	ls.config.Logger.Debug(
		"operation rejected",
		"op", op.String(),
		"error", err,
	)
	return err
}

func (ls *LedgerState) checkWritable(op journalOp) error {
	if ls.halted != nil {
		return fmt.Errorf("%w: %w", ErrLedgerHalted, ls.halted)
	}
	switch op {
	case opSetOperatingStatus, opRestoreCredit:
		return nil
	}
	if !ls.operational {
		return common.ErrContractNotOperational
	}
	return nil
}

// commit journals an applied record. The in-memory state already includes
// the record, so a failure here stops all further mutations.
func (ls *LedgerState) commit(rec *journalRecord) error {
	data, err := encodeJournalRecord(rec)
	if err == nil {
		seq := ls.journalSeq + 1
		txn := ls.db.Transaction(true)
		err = txn.Do(func(txn *database.Txn) error {
			if err := ls.db.AppendJournal(seq, data, txn); err != nil {
				return err
			}
			if kind, ok := depositKind(rec.Op); ok {
				return ls.db.RecordDeposit(kind, rec.Caller, rec.Amount, seq, txn)
			}
			return nil
		})
		if err == nil {
			ls.journalSeq = seq
			rec.seq = seq
			return nil
		}
	}
	ls.halt(fmt.Errorf("journal commit: %w", err))
	return fmt.Errorf("%w: %w", ErrLedgerHalted, err)
}

func (ls *LedgerState) halt(err error) {
	ls.halted = err
	ls.metrics.halted.Set(1)
	ls.config.Logger.Error(
		"ledger halted, all further mutations will be rejected",
		"error", err,
	)
}

func depositKind(op journalOp) (string, bool) {
	switch op {
	case opFundAirline:
		return models.DepositKindAirlineBond, true
	case opRegisterOracle:
		return models.DepositKindOracleFee, true
	case opBuyInsurance:
		return models.DepositKindPremium, true
	default:
		return "", false
	}
}

// apply executes a record against the registries. It either fails without
// changing anything or succeeds and returns the events to emit.
func (ls *LedgerState) apply(rec *journalRecord) (any, []pendingEvent, error) {
	switch rec.Op {
	case opSetOperatingStatus:
		if rec.caller() != ls.owner {
			return nil, nil, fmt.Errorf(
				"%w: only the contract owner may change the operating status",
				common.ErrUnauthorized,
			)
		}
		ls.operational = rec.Flag
		return rec.Flag, []pendingEvent{{
			typ: OperatingStatusEventType,
			data: OperatingStatusEvent{
				Caller:      rec.caller(),
				Operational: rec.Flag,
			},
		}}, nil
	case opRegisterAirline:
		admission, err := ls.airlines.RegisterAirline(rec.target(), rec.caller())
		if err != nil {
			return nil, nil, err
		}
		return admission, []pendingEvent{{
			typ:  AirlineAdmissionEventType,
			data: admission,
		}}, nil
	case opFundAirline:
		// Any caller may post the bond; the treasury records the payer
		amount := common.Amount(rec.Amount)
		if err := ls.airlines.FundAirline(rec.target(), amount); err != nil {
			return nil, nil, err
		}
		return nil, []pendingEvent{{
			typ: AirlineFundedEventType,
			data: AirlineFundedEvent{
				Airline: rec.target(),
				Amount:  amount,
			},
		}}, nil
	case opRegisterFlight:
		key := rec.flightKey()
		if err := ls.flights.RegisterFlight(key); err != nil {
			return nil, nil, err
		}
		return key, []pendingEvent{{
			typ:  FlightRegisteredEventType,
			data: FlightRegisteredEvent{Flight: key},
		}}, nil
	case opRegisterOracle:
		fee := common.Amount(rec.Amount)
		indexes, err := ls.oracles.RegisterOracle(rec.caller(), fee)
		if err != nil {
			return nil, nil, err
		}
		return indexes, []pendingEvent{{
			typ: OracleRegisteredEventType,
			data: OracleRegisteredEvent{
				Oracle:  rec.caller(),
				Indexes: indexes,
				Fee:     fee,
			},
		}}, nil
	case opRequestFlightStatus:
		key := rec.flightKey()
		if !ls.flights.IsFlightRegistered(key) {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrFlightNotRegistered, key)
		}
		reqKey, reused := ls.oracles.RequestFlightStatus(key, rec.caller())
		req := OracleRequestEvent{
			Flight:    key,
			Requester: rec.caller(),
			Index:     reqKey.Index,
			Reused:    reused,
		}
		return req, []pendingEvent{{
			typ:  OracleRequestEventType,
			data: req,
		}}, nil
	case opSubmitOracleResponse:
		return ls.applyOracleResponse(rec)
	case opBuyInsurance:
		policy, err := ls.insurance.BuyInsurance(
			rec.caller(),
			rec.flightKey(),
			common.Amount(rec.Amount),
		)
		if err != nil {
			return nil, nil, err
		}
		return policy, []pendingEvent{{
			typ:  PolicyPurchasedEventType,
			data: PolicyPurchasedEvent{Policy: policy},
		}}, nil
	case opWithdraw:
		amount, err := ls.insurance.DebitAll(rec.caller())
		if err != nil {
			return nil, nil, err
		}
		if ls.replaying && uint64(amount) != rec.Amount {
			return nil, nil, fmt.Errorf(
				"withdraw of %s does not match journaled %s",
				amount,
				common.Amount(rec.Amount),
			)
		}
		rec.Amount = uint64(amount)
		return amount, []pendingEvent{{
			typ: CreditWithdrawnEventType,
			data: CreditWithdrawnEvent{
				Passenger: rec.caller(),
				Amount:    amount,
			},
		}}, nil
	case opRestoreCredit:
		amount := common.Amount(rec.Amount)
		if err := ls.insurance.Restore(rec.target(), amount); err != nil {
			return nil, nil, err
		}
		return amount, []pendingEvent{{
			typ: CreditRestoredEventType,
			data: CreditRestoredEvent{
				Passenger: rec.target(),
				Amount:    amount,
			},
		}}, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal operation %d", rec.Op)
	}
}

// applyOracleResponse records a response and, when it completes a quorum,
// finalizes the flight and settles its policies
func (ls *LedgerState) applyOracleResponse(
	rec *journalRecord,
) (any, []pendingEvent, error) {
	resp := oracle.Response{
		Flight:     rec.flightKey(),
		Oracle:     rec.caller(),
		Index:      rec.Index,
		StatusCode: common.StatusCode(rec.Status),
	}
	outcome, err := ls.oracles.SubmitResponse(resp)
	if err != nil {
		return nil, nil, err
	}
	if outcome.Stale || outcome.Duplicate {
		return outcome, nil, nil
	}
	events := []pendingEvent{{
		typ: OracleReportEventType,
		data: OracleReportEvent{
			Flight:     resp.Flight,
			Oracle:     resp.Oracle,
			Count:      outcome.Count,
			Index:      resp.Index,
			StatusCode: resp.StatusCode,
		},
	}}
	if outcome.Finalized == nil {
		return outcome, events, nil
	}
	fin := *outcome.Finalized
	applied, err := ls.flights.Finalize(fin)
	if err != nil {
		// Requests are only opened for registered flights
		ls.halt(fmt.Errorf("finalize %s: %w", fin.Flight, err))
		return nil, nil, fmt.Errorf("%w: %w", ErrLedgerHalted, err)
	}
	if !applied {
		// First finalization wins; this request closed without effect
		outcome.Finalized = nil
		return outcome, events, nil
	}
	if !ls.replaying {
		ls.metrics.flightsFinalized.WithLabelValues(fin.StatusCode.String()).Inc()
	}
	events = append(events, pendingEvent{
		typ:  FlightStatusFinalizedEventType,
		data: fin,
	})
	credits, err := ls.insurance.Settle(fin)
	if err != nil {
		ls.halt(fmt.Errorf("settle %s: %w", fin.Flight, err))
		return nil, nil, fmt.Errorf("%w: %w", ErrLedgerHalted, err)
	}
	for _, credit := range credits {
		events = append(events, pendingEvent{
			typ: PolicyCreditedEventType,
			data: PolicyCreditedEvent{
				Policy: credit.Policy,
				Amount: credit.Amount,
			},
		})
	}
	return outcome, events, nil
}

func (ls *LedgerState) updateMetrics() {
	ls.metrics.journalSeq.Set(float64(ls.journalSeq))
	ls.metrics.airlinesRegistered.Set(float64(ls.airlines.RegisteredCount()))
	ls.metrics.airlinesOperational.Set(float64(ls.airlines.OperationalCount()))
	ls.metrics.flightsRegistered.Set(float64(ls.flights.Count()))
	ls.metrics.oraclesRegistered.Set(float64(ls.oracles.OracleCount()))
	ls.metrics.openRequests.Set(float64(ls.oracles.OpenRequests()))
	ls.metrics.policiesSold.Set(float64(ls.insurance.PolicyCount()))
	ls.metrics.outstandingCredit.Set(float64(ls.insurance.Outstanding()))
	if ls.operational {
		ls.metrics.operational.Set(1)
	} else {
		ls.metrics.operational.Set(0)
	}
}
