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
	"context"
	"errors"
	"fmt"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

// SetOperatingStatus turns all other mutations on or off. Only the contract
// owner may call it.
func (ls *LedgerState) SetOperatingStatus(
	ctx context.Context,
	caller common.Address,
	operational bool,
) error {
	_, err := ls.mutate(ctx, &journalRecord{
		Op:     opSetOperatingStatus,
		Caller: caller.Bytes(),
		Flag:   operational,
	})
	return err
}

// RegisterAirline admits candidate, or records caller's vote for it
func (ls *LedgerState) RegisterAirline(
	ctx context.Context,
	caller common.Address,
	candidate common.Address,
) (governance.Admission, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:     opRegisterAirline,
		Caller: caller.Bytes(),
		Target: candidate.Bytes(),
	})
	if err != nil {
		return governance.Admission{}, err
	}
	return result.(governance.Admission), nil
}

// FundAirline posts the bond of an admitted airline. Any caller may pay it and
// the treasury records the caller as the depositor.
func (ls *LedgerState) FundAirline(
	ctx context.Context,
	caller common.Address,
	airline common.Address,
	value common.Amount,
) error {
	_, err := ls.mutate(ctx, &journalRecord{
		Op:     opFundAirline,
		Caller: caller.Bytes(),
		Target: airline.Bytes(),
		Amount: uint64(value),
	})
	return err
}

// RegisterFlight registers a flight of the calling airline
func (ls *LedgerState) RegisterFlight(
	ctx context.Context,
	caller common.Address,
	designator string,
	timestamp uint64,
) (common.FlightKey, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:        opRegisterFlight,
		Caller:    caller.Bytes(),
		Target:    caller.Bytes(),
		Flight:    designator,
		Timestamp: timestamp,
	})
	if err != nil {
		return common.FlightKey{}, err
	}
	return result.(common.FlightKey), nil
}

// RegisterOracle registers caller as an oracle and returns its indexes
func (ls *LedgerState) RegisterOracle(
	ctx context.Context,
	caller common.Address,
	fee common.Amount,
) (oracle.Indexes, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:     opRegisterOracle,
		Caller: caller.Bytes(),
		Amount: uint64(fee),
	})
	if err != nil {
		return oracle.Indexes{}, err
	}
	return result.(oracle.Indexes), nil
}

// RequestFlightStatus asks the oracles holding a freshly drawn index to
// report on a registered flight
func (ls *LedgerState) RequestFlightStatus(
	ctx context.Context,
	caller common.Address,
	flight common.FlightKey,
) (OracleRequestEvent, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:        opRequestFlightStatus,
		Caller:    caller.Bytes(),
		Target:    flight.Airline.Bytes(),
		Flight:    flight.Flight,
		Timestamp: flight.Timestamp,
	})
	if err != nil {
		return OracleRequestEvent{}, err
	}
	return result.(OracleRequestEvent), nil
}

// SubmitOracleResponse records the status reported by an oracle for one of
// its indexes. Responses to a closed request are accepted and ignored.
func (ls *LedgerState) SubmitOracleResponse(
	ctx context.Context,
	caller common.Address,
	index uint8,
	flight common.FlightKey,
	status common.StatusCode,
) (oracle.Outcome, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:        opSubmitOracleResponse,
		Caller:    caller.Bytes(),
		Target:    flight.Airline.Bytes(),
		Flight:    flight.Flight,
		Timestamp: flight.Timestamp,
		Index:     index,
		Status:    uint8(status),
	})
	if err != nil {
		return oracle.Outcome{}, err
	}
	return result.(oracle.Outcome), nil
}

// BuyInsurance sells caller a policy on flight for premium
func (ls *LedgerState) BuyInsurance(
	ctx context.Context,
	caller common.Address,
	flight common.FlightKey,
	premium common.Amount,
) (insurance.Policy, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:        opBuyInsurance,
		Caller:    caller.Bytes(),
		Target:    flight.Airline.Bytes(),
		Flight:    flight.Flight,
		Timestamp: flight.Timestamp,
		Amount:    uint64(premium),
	})
	if err != nil {
		return insurance.Policy{}, err
	}
	return result.(insurance.Policy), nil
}

// WithdrawCreditedAmount pays out the whole credit of caller. The balance is
// zeroed and journaled first, then the transfer runs outside the engine
// lock. If the transfer fails the amount is credited back.
func (ls *LedgerState) WithdrawCreditedAmount(
	ctx context.Context,
	caller common.Address,
) (Withdrawal, error) {
	result, err := ls.mutate(ctx, &journalRecord{
		Op:     opWithdraw,
		Caller: caller.Bytes(),
	})
	if err != nil {
		return Withdrawal{}, err
	}
	amount := result.(common.Amount)
	receipt, err := ls.config.TransferFunc(ctx, caller, amount)
	if err != nil {
		ls.metrics.transferFailures.Inc()
		ls.config.Logger.Warn(
			"withdrawal transfer failed, restoring credit",
			"passenger", caller.Hex(),
			"amount", amount.String(),
			"error", err,
		)
		_, restoreErr := ls.mutate(ctx, &journalRecord{
			Op:     opRestoreCredit,
			Caller: caller.Bytes(),
			Target: caller.Bytes(),
			Amount: uint64(amount),
		})
		if restoreErr != nil {
			return Withdrawal{}, errors.Join(
				fmt.Errorf("transfer: %w", err),
				fmt.Errorf("restore credit: %w", restoreErr),
			)
		}
		return Withdrawal{}, fmt.Errorf("transfer: %w", err)
	}
	ls.metrics.payoutsTotal.Inc()
	return Withdrawal{
		Receipt:   receipt,
		Passenger: caller,
		Amount:    amount,
	}, nil
}

// recordPayout is the default TransferFunc
func (ls *LedgerState) recordPayout(
	_ context.Context,
	recipient common.Address,
	amount common.Amount,
) (string, error) {
	ls.RLock()
	db := ls.db
	ls.RUnlock()
	if db == nil {
		return "", ErrLedgerHalted
	}
	var receipt string
	txn := database.NewTreasuryTxn(db, true)
	err := txn.Do(func(txn *database.Txn) error {
		payout, err := db.RecordPayout(recipient.Bytes(), uint64(amount), txn)
		if err != nil {
			return err
		}
		receipt = payout.Receipt
		return nil
	})
	if err != nil {
		return "", err
	}
	return receipt, nil
}
