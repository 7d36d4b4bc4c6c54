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
	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/flight"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

// Stats summarizes the engine state
type Stats struct {
	Outstanding         common.Amount `json:"outstandingCredit"`
	JournalSeq          uint64        `json:"journalSeq"`
	AirlinesRegistered  int           `json:"airlinesRegistered"`
	AirlinesOperational int           `json:"airlinesOperational"`
	Flights             int           `json:"flights"`
	Oracles             int           `json:"oracles"`
	OpenRequests        int           `json:"openRequests"`
	Policies            int           `json:"policies"`
	Operational         bool          `json:"operational"`
	Halted              bool          `json:"halted"`
}

func (ls *LedgerState) Owner() common.Address {
	return ls.owner
}

// IsOperational reports the kill switch state
func (ls *LedgerState) IsOperational() bool {
	ls.RLock()
	defer ls.RUnlock()
	return ls.operational
}

func (ls *LedgerState) IsAirlineRegistered(addr common.Address) bool {
	ls.RLock()
	defer ls.RUnlock()
	return ls.airlines.IsAirlineRegistered(addr)
}

func (ls *LedgerState) IsAirlineOperational(addr common.Address) bool {
	ls.RLock()
	defer ls.RUnlock()
	return ls.airlines.IsAirlineOperational(addr)
}

// Airline returns the airline record, if one exists
func (ls *LedgerState) Airline(addr common.Address) (governance.Airline, bool) {
	ls.RLock()
	defer ls.RUnlock()
	return ls.airlines.Airline(addr)
}

// Flight returns a registered flight and its status
func (ls *LedgerState) Flight(key common.FlightKey) (flight.Flight, error) {
	ls.RLock()
	defer ls.RUnlock()
	return ls.flights.Flight(key)
}

// FlightStatus returns the status code of a registered flight
func (ls *LedgerState) FlightStatus(key common.FlightKey) (common.StatusCode, error) {
	f, err := ls.Flight(key)
	if err != nil {
		return common.StatusUnknown, err
	}
	return f.StatusCode, nil
}

func (ls *LedgerState) IsOracleRegistered(addr common.Address) bool {
	ls.RLock()
	defer ls.RUnlock()
	return ls.oracles.IsOracleRegistered(addr)
}

// OracleIndexes returns the indexes of a registered oracle
func (ls *LedgerState) OracleIndexes(addr common.Address) (oracle.Indexes, error) {
	ls.RLock()
	defer ls.RUnlock()
	return ls.oracles.OracleIndexes(addr)
}

// StatusRequest returns a status request and its tally
func (ls *LedgerState) StatusRequest(key oracle.RequestKey) (oracle.Request, bool) {
	ls.RLock()
	defer ls.RUnlock()
	return ls.oracles.Request(key)
}

// CreditedAmount returns the withdrawable balance of passenger
func (ls *LedgerState) CreditedAmount(passenger common.Address) common.Amount {
	ls.RLock()
	defer ls.RUnlock()
	return ls.insurance.Credited(passenger)
}

func (ls *LedgerState) IsInsured(passenger common.Address, key common.FlightKey) bool {
	ls.RLock()
	defer ls.RUnlock()
	return ls.insurance.IsInsured(passenger, key)
}

// Policy returns the policy of passenger on a flight
func (ls *LedgerState) Policy(
	passenger common.Address,
	key common.FlightKey,
) (insurance.Policy, bool) {
	ls.RLock()
	defer ls.RUnlock()
	return ls.insurance.Policy(insurance.PolicyKey{
		Passenger: passenger,
		Flight:    key,
	})
}

// EventsSince returns the log entries after sequence number seq
func (ls *LedgerState) EventsSince(seq uint64) []common.LogEntry {
	return ls.eventLog.Since(seq)
}

// Stats returns counters describing the current state
func (ls *LedgerState) Stats() Stats {
	ls.RLock()
	defer ls.RUnlock()
	return Stats{
		Outstanding:         ls.insurance.Outstanding(),
		JournalSeq:          ls.journalSeq,
		AirlinesRegistered:  ls.airlines.RegisteredCount(),
		AirlinesOperational: ls.airlines.OperationalCount(),
		Flights:             ls.flights.Count(),
		Oracles:             ls.oracles.OracleCount(),
		OpenRequests:        ls.oracles.OpenRequests(),
		Policies:            ls.insurance.PolicyCount(),
		Operational:         ls.operational,
		Halted:              ls.halted != nil,
	}
}

// Treasury returns the deposit and payout totals
func (ls *LedgerState) Treasury() (database.TreasuryTotals, error) {
	ls.RLock()
	db := ls.db
	ls.RUnlock()
	if db == nil {
		return database.TreasuryTotals{}, ErrLedgerHalted
	}
	return db.Treasury(nil)
}

// Payouts returns the completed payouts to recipient
func (ls *LedgerState) Payouts(recipient common.Address) ([]models.Payout, error) {
	ls.RLock()
	db := ls.db
	ls.RUnlock()
	if db == nil {
		return nil, ErrLedgerHalted
	}
	return db.Payouts(recipient.Bytes(), nil)
}
