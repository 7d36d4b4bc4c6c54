// Copyright 2025 Blink Labs Software
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

// Package insurance holds passenger policies and credit balances.
//
// Policies are settled only from a finalized flight status. Credit is paid
// out by pull: a withdrawal takes the whole balance at once.
package insurance

import (
	"fmt"

	"github.com/tp26610/FlightSurety/ledger/common"
)

const (
	// PremiumCap is the largest premium accepted for a single policy
	PremiumCap = common.Unit

	// Payout ratio applied to the premium of a policy on a LATE_AIRLINE flight
	PayoutNumerator   = 3
	PayoutDenominator = 2
)

// OperabilityChecker reports whether an airline may sell insurance
type OperabilityChecker interface {
	IsAirlineOperational(common.Address) bool
}

// FlightChecker reports whether a flight exists
type FlightChecker interface {
	IsFlightRegistered(common.FlightKey) bool
}

// PolicyKey identifies a policy
type PolicyKey struct {
	Passenger common.Address   `json:"passenger"`
	Flight    common.FlightKey `json:"flight"`
}

// Policy is a read-only view of a policy
type Policy struct {
	Key     PolicyKey     `json:"key"`
	Premium common.Amount `json:"premium"`
	Payout  common.Amount `json:"payout"`
	Settled bool          `json:"settled"`
}

// Credit is a single payout credited to a passenger by settlement
type Credit struct {
	Policy PolicyKey     `json:"policy"`
	Amount common.Amount `json:"amount"`
}

type policyRecord struct {
	premium common.Amount
	payout  common.Amount
	settled bool
}

// Ledger owns policies and passenger credit. It is not safe for concurrent
// use; the ledger engine serializes all access.
type Ledger struct {
	airlines OperabilityChecker
	flights  FlightChecker
	policies map[PolicyKey]*policyRecord
	// policy keys per flight in purchase order
	byFlight map[common.FlightKey][]PolicyKey
	credits  map[common.Address]common.Amount
}

func NewLedger(airlines OperabilityChecker, flights FlightChecker) *Ledger {
	return &Ledger{
		airlines: airlines,
		flights:  flights,
		policies: make(map[PolicyKey]*policyRecord),
		byFlight: make(map[common.FlightKey][]PolicyKey),
		credits:  make(map[common.Address]common.Amount),
	}
}

// BuyInsurance creates a policy for passenger on flight
func (l *Ledger) BuyInsurance(
	passenger common.Address,
	flight common.FlightKey,
	premium common.Amount,
) (Policy, error) {
	if passenger == common.ZeroAddress {
		return Policy{}, common.ErrInvalidAddress
	}
	if !l.airlines.IsAirlineOperational(flight.Airline) {
		return Policy{}, fmt.Errorf(
			"%w: %s",
			common.ErrAirlineNotOperational,
			flight.Airline.Hex(),
		)
	}
	if !l.flights.IsFlightRegistered(flight) {
		return Policy{}, fmt.Errorf("%w: %s", common.ErrFlightNotRegistered, flight)
	}
	if premium > PremiumCap {
		return Policy{}, fmt.Errorf(
			"%w: %s > %s",
			common.ErrPremiumExceedsCap,
			premium,
			PremiumCap,
		)
	}
	if premium == 0 {
		return Policy{}, common.ErrPremiumZero
	}
	key := PolicyKey{Passenger: passenger, Flight: flight}
	if _, ok := l.policies[key]; ok {
		return Policy{}, fmt.Errorf(
			"%w: %s on %s",
			common.ErrAlreadyInsured,
			passenger.Hex(),
			flight,
		)
	}
	l.policies[key] = &policyRecord{premium: premium}
	l.byFlight[flight] = append(l.byFlight[flight], key)
	return Policy{Key: key, Premium: premium}, nil
}

// PayoutFor returns premium * 3/2, truncated to a whole base unit
func PayoutFor(premium common.Amount) (common.Amount, error) {
	return premium.MulRat(PayoutNumerator, PayoutDenominator)
}

// Settle applies a finalized flight status. Only LATE_AIRLINE pays; every
// unsettled policy on the flight is credited and marked settled, in
// purchase order. Nothing changes if an error is returned.
func (l *Ledger) Settle(fin common.FlightStatusFinalized) ([]Credit, error) {
	if fin.StatusCode != common.StatusLateAirline {
		return nil, nil
	}
	var credits []Credit
	pending := make(map[common.Address]common.Amount)
	for _, key := range l.byFlight[fin.Flight] {
		if l.policies[key].settled {
			continue
		}
		payout, err := PayoutFor(l.policies[key].premium)
		if err != nil {
			return nil, fmt.Errorf("settle %s: %w", key.Flight, err)
		}
		balance, ok := pending[key.Passenger]
		if !ok {
			balance = l.credits[key.Passenger]
		}
		balance, err = balance.Add(payout)
		if err != nil {
			return nil, fmt.Errorf("settle %s: %w", key.Flight, err)
		}
		pending[key.Passenger] = balance
		credits = append(credits, Credit{Policy: key, Amount: payout})
	}
	for _, credit := range credits {
		rec := l.policies[credit.Policy]
		rec.settled = true
		rec.payout = credit.Amount
	}
	for passenger, balance := range pending {
		l.credits[passenger] = balance
	}
	return credits, nil
}

// Credited returns the withdrawable balance of a passenger
func (l *Ledger) Credited(passenger common.Address) common.Amount {
	return l.credits[passenger]
}

// IsInsured reports whether passenger holds a policy on flight
func (l *Ledger) IsInsured(passenger common.Address, flight common.FlightKey) bool {
	_, ok := l.policies[PolicyKey{Passenger: passenger, Flight: flight}]
	return ok
}

func (l *Ledger) Policy(key PolicyKey) (Policy, bool) {
	rec, ok := l.policies[key]
	if !ok {
		return Policy{}, false
	}
	return Policy{
		Key:     key,
		Premium: rec.premium,
		Payout:  rec.payout,
		Settled: rec.settled,
	}, true
}

// DebitAll zeroes and returns the balance of passenger. It is the first
// half of a withdrawal; the transfer happens after the debit is committed.
func (l *Ledger) DebitAll(passenger common.Address) (common.Amount, error) {
	amount := l.credits[passenger]
	if amount == 0 {
		return 0, fmt.Errorf(
			"%w: %s",
			common.ErrNothingToWithdraw,
			passenger.Hex(),
		)
	}
	delete(l.credits, passenger)
	return amount, nil
}

// Restore credits back an amount whose transfer failed
func (l *Ledger) Restore(passenger common.Address, amount common.Amount) error {
	balance, err := l.credits[passenger].Add(amount)
	if err != nil {
		return fmt.Errorf("restore credit: %w", err)
	}
	l.credits[passenger] = balance
	return nil
}

// Outstanding returns the total credit owed to passengers
func (l *Ledger) Outstanding() common.Amount {
	var total common.Amount
	for _, amount := range l.credits {
		total += amount
	}
	return total
}

// PolicyCount returns the number of policies sold
func (l *Ledger) PolicyCount() int {
	return len(l.policies)
}
