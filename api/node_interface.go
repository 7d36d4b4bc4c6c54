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

package api

import (
	"context"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/flight"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

// LedgerNode is the settlement engine as seen by the HTTP server. It is
// satisfied by *ledger.LedgerState and decouples the handlers from it.
type LedgerNode interface {
	SetOperatingStatus(ctx context.Context, caller common.Address, operational bool) error
	IsOperational() bool

	RegisterAirline(
		ctx context.Context,
		caller common.Address,
		candidate common.Address,
	) (governance.Admission, error)
	FundAirline(
		ctx context.Context,
		caller common.Address,
		airline common.Address,
		value common.Amount,
	) error
	Airline(addr common.Address) (governance.Airline, bool)

	RegisterFlight(
		ctx context.Context,
		caller common.Address,
		designator string,
		timestamp uint64,
	) (common.FlightKey, error)
	Flight(key common.FlightKey) (flight.Flight, error)

	RegisterOracle(
		ctx context.Context,
		caller common.Address,
		fee common.Amount,
	) (oracle.Indexes, error)
	OracleIndexes(addr common.Address) (oracle.Indexes, error)
	RequestFlightStatus(
		ctx context.Context,
		caller common.Address,
		flight common.FlightKey,
	) (ledger.OracleRequestEvent, error)
	SubmitOracleResponse(
		ctx context.Context,
		caller common.Address,
		index uint8,
		flight common.FlightKey,
		status common.StatusCode,
	) (oracle.Outcome, error)

	BuyInsurance(
		ctx context.Context,
		caller common.Address,
		flight common.FlightKey,
		premium common.Amount,
	) (insurance.Policy, error)
	Policy(passenger common.Address, key common.FlightKey) (insurance.Policy, bool)
	CreditedAmount(passenger common.Address) common.Amount
	WithdrawCreditedAmount(ctx context.Context, caller common.Address) (ledger.Withdrawal, error)

	EventsSince(seq uint64) []common.LogEntry
	Stats() ledger.Stats
	Treasury() (database.TreasuryTotals, error)
}
