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

// Package governance implements airline membership: a single-authority
// bootstrap phase that turns into majority voting among registered airlines
// once the federation reaches BootstrapThreshold members.
package governance

import (
	"fmt"

	"github.com/tp26610/FlightSurety/ledger/common"
)

const (
	// BootstrapThreshold is the registered-airline count below which a funded
	// airline may admit a candidate without a vote
	BootstrapThreshold = 4

	// BondAmount is the exact stake an airline posts to become operational
	BondAmount = 10 * common.Unit
)

// Airline is a read-only view of an airline record
type Airline struct {
	Address      common.Address `json:"address"`
	IsAirline    bool           `json:"isAirline"`
	IsRegistered bool           `json:"isRegistered"`
	IsFunded     bool           `json:"isFunded"`
	Votes        int            `json:"votes"`
}

// Operational reports whether the airline may act in the federation
func (a Airline) Operational() bool {
	return a.IsRegistered && a.IsFunded
}

type airlineRecord struct {
	votes        map[common.Address]struct{}
	address      common.Address
	isRegistered bool
	isFunded     bool
}

func (r *airlineRecord) view() Airline {
	return Airline{
		Address:      r.address,
		IsAirline:    true,
		IsRegistered: r.isRegistered,
		IsFunded:     r.isFunded,
		Votes:        len(r.votes),
	}
}

// Admission describes the outcome of a RegisterAirline call
type Admission struct {
	Candidate common.Address `json:"candidate"`
	Voter     common.Address `json:"voter"`
	// Registered is true once the candidate is governance approved
	Registered bool `json:"registered"`
	// Votes and Required are zero when the candidate was admitted without a vote
	Votes    int `json:"votes"`
	Required int `json:"required"`
	// DuplicateVote is set when the voter had already voted for this candidate
	DuplicateVote bool `json:"duplicateVote,omitempty"`
}

// Registry owns every airline record. It is not safe for concurrent use;
// the ledger serializes all access.
type Registry struct {
	airlines        map[common.Address]*airlineRecord
	registeredCount int
}

func NewRegistry() *Registry {
	return &Registry{
		airlines: make(map[common.Address]*airlineRecord),
	}
}

// Bootstrap admits and registers the contract owner as the first airline.
// It is a no-op once any airline exists.
func (r *Registry) Bootstrap(owner common.Address) error {
	if owner == common.ZeroAddress {
		return fmt.Errorf("bootstrap: %w", common.ErrInvalidAddress)
	}
	if len(r.airlines) > 0 {
		return nil
	}
	r.airlines[owner] = &airlineRecord{
		address:      owner,
		isRegistered: true,
	}
	r.registeredCount = 1
	return nil
}

// RegisterAirline admits candidate on behalf of caller. While fewer than
// BootstrapThreshold airlines are registered the candidate is registered
// immediately. After that, each call is one vote and the candidate is
// registered once it holds votes from at least half of the registered
// airlines, counted at the time of the deciding vote.
func (r *Registry) RegisterAirline(
	candidate common.Address,
	caller common.Address,
) (Admission, error) {
	if candidate == common.ZeroAddress {
		return Admission{}, common.ErrInvalidAddress
	}
	voter, ok := r.airlines[caller]
	if !ok || !voter.isRegistered || !voter.isFunded {
		return Admission{}, fmt.Errorf(
			"%w: caller %s is not a registered, funded airline",
			common.ErrUnauthorized,
			caller.Hex(),
		)
	}
	rec, exists := r.airlines[candidate]
	if exists && rec.isRegistered {
		return Admission{}, fmt.Errorf(
			"%w: airline %s",
			common.ErrAlreadyRegistered,
			candidate.Hex(),
		)
	}
	// Voters are registered and candidates are not, so a self-vote cannot
	// get past the checks above
	ret := Admission{
		Candidate: candidate,
		Voter:     caller,
	}
	if !exists {
		rec = &airlineRecord{address: candidate}
		r.airlines[candidate] = rec
	}
	if r.registeredCount < BootstrapThreshold {
		r.approve(rec)
		ret.Registered = true
		return ret, nil
	}
	if rec.votes == nil {
		rec.votes = make(map[common.Address]struct{})
	}
	if _, voted := rec.votes[caller]; voted {
		ret.DuplicateVote = true
	} else {
		rec.votes[caller] = struct{}{}
	}
	ret.Votes = len(rec.votes)
	ret.Required = r.RequiredVotes()
	if ret.Votes >= ret.Required {
		r.approve(rec)
		ret.Registered = true
	}
	return ret, nil
}

func (r *Registry) approve(rec *airlineRecord) {
	rec.isRegistered = true
	rec.votes = nil
	r.registeredCount++
}

// RequiredVotes returns ceil(registered/2), the votes a pending candidate needs now
func (r *Registry) RequiredVotes() int {
	return (r.registeredCount + 1) / 2
}

// FundAirline records the bond for an admitted airline. The payment must
// equal BondAmount exactly.
func (r *Registry) FundAirline(
	airline common.Address,
	value common.Amount,
) error {
	rec, ok := r.airlines[airline]
	if !ok {
		return fmt.Errorf(
			"%w: %s",
			common.ErrUnknownAirline,
			airline.Hex(),
		)
	}
	if rec.isFunded {
		return fmt.Errorf(
			"%w: airline %s",
			common.ErrAlreadyFunded,
			airline.Hex(),
		)
	}
	if value != BondAmount {
		return &common.InsufficientPaymentError{
			Err:      common.ErrInsufficientFunds,
			Required: BondAmount,
			Paid:     value,
		}
	}
	rec.isFunded = true
	return nil
}

// Airline returns the record for addr
func (r *Registry) Airline(addr common.Address) (Airline, bool) {
	rec, ok := r.airlines[addr]
	if !ok {
		return Airline{Address: addr}, false
	}
	return rec.view(), true
}

func (r *Registry) IsAirlineRegistered(addr common.Address) bool {
	rec, ok := r.airlines[addr]
	return ok && rec.isRegistered
}

// IsAirlineOperational is true iff the airline is registered and funded
func (r *Registry) IsAirlineOperational(addr common.Address) bool {
	rec, ok := r.airlines[addr]
	return ok && rec.isRegistered && rec.isFunded
}

// RegisteredCount returns the number of governance-approved airlines
func (r *Registry) RegisteredCount() int {
	return r.registeredCount
}

// OperationalCount returns the number of registered and funded airlines
func (r *Registry) OperationalCount() int {
	count := 0
	for _, rec := range r.airlines {
		if rec.isRegistered && rec.isFunded {
			count++
		}
	}
	return count
}
