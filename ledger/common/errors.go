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

package common

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller lacks the required role or funding
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyRegistered is returned for duplicate airline or oracle registration
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrAlreadyFunded is returned when an airline posts its bond twice
	ErrAlreadyFunded = errors.New("already funded")
	// ErrInsufficientFunds is returned when a bond payment is not the exact amount
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientFee is returned when an oracle registration fee is too low
	ErrInsufficientFee = errors.New("insufficient fee")
	// ErrAirlineNotOperational is returned when an airline is not both registered and funded
	ErrAirlineNotOperational = errors.New("airline not operational")
	// ErrFlightNotRegistered is returned for operations on an unknown flight
	ErrFlightNotRegistered = errors.New("flight not registered")
	// ErrPremiumExceedsCap is returned when a premium is above the policy cap
	ErrPremiumExceedsCap = errors.New("premium exceeds cap")
	// ErrPremiumZero is returned when a premium of zero is offered
	ErrPremiumZero = errors.New("premium is zero")
	// ErrOracleNotAuthorizedForIndex is returned when an oracle answers a request outside its indexes
	ErrOracleNotAuthorizedForIndex = errors.New("oracle not authorized for index")
	// ErrNothingToWithdraw is returned when a passenger has no credit
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	// ErrContractNotOperational is returned for any mutation while the kill switch is off
	ErrContractNotOperational = errors.New("contract not operational")

	ErrUnknownAirline          = errors.New("unknown airline")
	ErrAlreadyInsured          = errors.New("already insured")
	ErrRequestNotFound         = errors.New("status request not found")
	ErrInvalidStatusCode       = errors.New("invalid status code")
	ErrInvalidAddress          = errors.New("invalid address")
	ErrInvalidFlight           = errors.New("invalid flight designator")
	ErrFlightAlreadyRegistered = errors.New("flight already registered")
)

// InsufficientPaymentError carries the required and offered amounts for a
// rejected payment. It matches ErrInsufficientFunds or ErrInsufficientFee via errors.Is.
type InsufficientPaymentError struct {
	Err      error
	Required Amount
	Paid     Amount
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf(
		"%s: required %s, paid %s",
		e.Err,
		e.Required,
		e.Paid,
	)
}

func (e *InsufficientPaymentError) Unwrap() error {
	return e.Err
}
