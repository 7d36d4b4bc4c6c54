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
	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

// RootResponse is returned by GET /api
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type OperationalRequest struct {
	Operational bool `json:"operational"`
}

type OperationalResponse struct {
	Operational bool `json:"operational"`
}

type RegisterAirlineRequest struct {
	Candidate string `json:"candidate"`
}

// ValueRequest carries a payment for bond and oracle fee calls
type ValueRequest struct {
	Value common.Amount `json:"value"`
}

type RegisterFlightRequest struct {
	Flight    string `json:"flight"`
	Timestamp uint64 `json:"timestamp"`
}

// FlightRequest names a flight by its three key parts
type FlightRequest struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp uint64 `json:"timestamp"`
}

type OracleResponseRequest struct {
	FlightRequest
	Index      uint8             `json:"index"`
	StatusCode common.StatusCode `json:"statusCode"`
}

type BuyInsuranceRequest struct {
	FlightRequest
	Value common.Amount `json:"value"`
}

type OracleIndexesResponse struct {
	Oracle  common.Address `json:"oracle"`
	Indexes oracle.Indexes `json:"indexes"`
}

// OracleResponseResponse reports what a submitted response did
type OracleResponseResponse struct {
	Finalized *common.FlightStatusFinalized `json:"finalized,omitempty"`
	Count     int                           `json:"count"`
	Stale     bool                          `json:"stale"`
	Duplicate bool                          `json:"duplicate"`
}

type FlightResponse struct {
	Key        common.FlightKey  `json:"key"`
	Status     string            `json:"status"`
	StatusCode common.StatusCode `json:"statusCode"`
	Finalized  bool              `json:"finalized"`
}

type CreditResponse struct {
	Passenger common.Address `json:"passenger"`
	Amount    common.Amount  `json:"amount"`
}

type EventsResponse struct {
	Events []common.LogEntry `json:"events"`
	Next   uint64            `json:"next"`
}

type StatsResponse struct {
	Treasury database.TreasuryTotals `json:"treasury"`
	ledger.Stats
}
