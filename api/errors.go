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
	"errors"
	"net/http"

	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
)

var (
	errMissingCaller = errors.New("missing " + CallerHeader + " header")
	errNotFound      = errors.New("not found")
	errBadRequest    = errors.New("bad request")
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{common.ErrUnauthorized, http.StatusForbidden},
	{common.ErrOracleNotAuthorizedForIndex, http.StatusForbidden},
	{errMissingCaller, http.StatusForbidden},
	{common.ErrContractNotOperational, http.StatusServiceUnavailable},
	{ledger.ErrLedgerHalted, http.StatusServiceUnavailable},
	{common.ErrUnknownAirline, http.StatusNotFound},
	{common.ErrFlightNotRegistered, http.StatusNotFound},
	{common.ErrRequestNotFound, http.StatusNotFound},
	{errNotFound, http.StatusNotFound},
	{common.ErrAlreadyRegistered, http.StatusConflict},
	{common.ErrAlreadyFunded, http.StatusConflict},
	{common.ErrAlreadyInsured, http.StatusConflict},
	{common.ErrFlightAlreadyRegistered, http.StatusConflict},
	{common.ErrInsufficientFunds, http.StatusBadRequest},
	{common.ErrInsufficientFee, http.StatusBadRequest},
	{common.ErrAirlineNotOperational, http.StatusBadRequest},
	{common.ErrPremiumExceedsCap, http.StatusBadRequest},
	{common.ErrPremiumZero, http.StatusBadRequest},
	{common.ErrNothingToWithdraw, http.StatusBadRequest},
	{common.ErrInvalidStatusCode, http.StatusBadRequest},
	{common.ErrInvalidAddress, http.StatusBadRequest},
	{common.ErrInvalidFlight, http.StatusBadRequest},
	{common.ErrAmountOverflow, http.StatusBadRequest},
	{errBadRequest, http.StatusBadRequest},
}

// statusForError maps an engine error to an HTTP status code
func statusForError(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
