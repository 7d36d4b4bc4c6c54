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

// Package oracle tracks the oracle panel and runs the status quorum.
//
// A status request is keyed by (index, flight). Any number of oracles
// holding that index may answer; the request closes the moment one status
// code has been reported by MinResponses distinct oracles. Codes are
// counted independently, so there is no tie-break and no weighting.
package oracle

import (
	"fmt"

	"github.com/tp26610/FlightSurety/ledger/common"
)

const (
	// MinResponses is the number of distinct oracles that must agree on a status code
	MinResponses = 3

	// RegistrationFee is the minimum fee for registering an oracle
	RegistrationFee = common.Unit
)

// RequestKey identifies a status request
type RequestKey struct {
	Flight common.FlightKey `json:"flight"`
	Index  uint8            `json:"index"`
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%d:%s", k.Index, k.Flight)
}

// Response is a status report from one oracle
type Response struct {
	Flight     common.FlightKey
	Oracle     common.Address
	Index      uint8
	StatusCode common.StatusCode
}

// Outcome describes what a response did to its request
type Outcome struct {
	// Finalized is set only by the response that closed the request
	Finalized *common.FlightStatusFinalized
	// Count is the number of distinct oracles reporting this status code
	Count int
	// Stale is set when the request had already closed
	Stale bool
	// Duplicate is set when this oracle already reported this status code
	Duplicate bool
}

// Request is a read-only view of a status request
type Request struct {
	Responses map[common.StatusCode]int `json:"responses"`
	Result    *common.StatusCode        `json:"result,omitempty"`
	Key       RequestKey                `json:"key"`
	Requester common.Address            `json:"requester"`
	Open      bool                      `json:"open"`
}

type statusRequest struct {
	responses map[common.StatusCode]map[common.Address]struct{}
	result    *common.StatusCode
	requester common.Address
	open      bool
}

// Registry owns oracles and status requests. It is not safe for concurrent
// use; the ledger serializes all access.
type Registry struct {
	oracles  map[common.Address]Indexes
	requests map[RequestKey]*statusRequest
	seed     []byte
	nonce    uint64
}

// NewRegistry returns an empty registry drawing indexes from seed
func NewRegistry(seed []byte) *Registry {
	return &Registry{
		seed:     append([]byte(nil), seed...),
		oracles:  make(map[common.Address]Indexes),
		requests: make(map[RequestKey]*statusRequest),
	}
}

// Nonce returns the number of draws performed so far
func (r *Registry) Nonce() uint64 {
	return r.nonce
}

func (r *Registry) nextNonce() uint64 {
	n := r.nonce
	r.nonce++
	return n
}

// RegisterOracle registers caller for a fee of at least RegistrationFee and
// draws its indexes
func (r *Registry) RegisterOracle(
	caller common.Address,
	fee common.Amount,
) (Indexes, error) {
	if caller == common.ZeroAddress {
		return Indexes{}, common.ErrInvalidAddress
	}
	if fee < RegistrationFee {
		return Indexes{}, &common.InsufficientPaymentError{
			Err:      common.ErrInsufficientFee,
			Required: RegistrationFee,
			Paid:     fee,
		}
	}
	if _, ok := r.oracles[caller]; ok {
		return Indexes{}, fmt.Errorf(
			"%w: oracle %s",
			common.ErrAlreadyRegistered,
			caller.Hex(),
		)
	}
	nonce := r.nextNonce()
	var indexes Indexes
	for slot := range indexes {
		indexes[slot] = DrawIndex(r.seed, caller, nonce, uint8(slot)) // #nosec G115
	}
	r.oracles[caller] = indexes
	return indexes, nil
}

func (r *Registry) IsOracleRegistered(addr common.Address) bool {
	_, ok := r.oracles[addr]
	return ok
}

// OracleIndexes returns the indexes assigned to a registered oracle
func (r *Registry) OracleIndexes(addr common.Address) (Indexes, error) {
	indexes, ok := r.oracles[addr]
	if !ok {
		return Indexes{}, fmt.Errorf(
			"%w: %s is not a registered oracle",
			common.ErrUnauthorized,
			addr.Hex(),
		)
	}
	return indexes, nil
}

func (r *Registry) OracleCount() int {
	return len(r.oracles)
}

// RequestFlightStatus draws an index for the request and opens a status
// request for it. Requesting a key that already exists reuses that entry,
// open or closed, and reports reused=true.
func (r *Registry) RequestFlightStatus(
	flight common.FlightKey,
	requester common.Address,
) (RequestKey, bool) {
	key := RequestKey{
		Index:  DrawIndex(r.seed, requester, r.nextNonce(), 0),
		Flight: flight,
	}
	if _, ok := r.requests[key]; ok {
		return key, true
	}
	r.requests[key] = &statusRequest{
		requester: requester,
		responses: make(map[common.StatusCode]map[common.Address]struct{}),
		open:      true,
	}
	return key, false
}

// SubmitResponse records a response. The oracle must hold the index and the
// request must exist. Responses to a closed request are accepted and ignored.
func (r *Registry) SubmitResponse(resp Response) (Outcome, error) {
	indexes, ok := r.oracles[resp.Oracle]
	if !ok || !indexes.Contains(resp.Index) {
		return Outcome{}, fmt.Errorf(
			"%w: oracle %s, index %d",
			common.ErrOracleNotAuthorizedForIndex,
			resp.Oracle.Hex(),
			resp.Index,
		)
	}
	if !resp.StatusCode.Valid() {
		return Outcome{}, fmt.Errorf(
			"%w: %d",
			common.ErrInvalidStatusCode,
			resp.StatusCode,
		)
	}
	key := RequestKey{Index: resp.Index, Flight: resp.Flight}
	req, ok := r.requests[key]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", common.ErrRequestNotFound, key)
	}
	if !req.open {
		return Outcome{Stale: true}, nil
	}
	voters, ok := req.responses[resp.StatusCode]
	if !ok {
		voters = make(map[common.Address]struct{})
		req.responses[resp.StatusCode] = voters
	}
	ret := Outcome{}
	if _, seen := voters[resp.Oracle]; seen {
		ret.Duplicate = true
	} else {
		voters[resp.Oracle] = struct{}{}
	}
	ret.Count = len(voters)
	if ret.Count >= MinResponses {
		code := resp.StatusCode
		req.open = false
		req.result = &code
		ret.Finalized = &common.FlightStatusFinalized{
			Flight:     resp.Flight,
			StatusCode: code,
		}
	}
	return ret, nil
}

// Request returns the view of a status request
func (r *Registry) Request(key RequestKey) (Request, bool) {
	req, ok := r.requests[key]
	if !ok {
		return Request{}, false
	}
	ret := Request{
		Key:       key,
		Requester: req.requester,
		Open:      req.open,
		Responses: make(map[common.StatusCode]int, len(req.responses)),
	}
	for code, voters := range req.responses {
		ret.Responses[code] = len(voters)
	}
	if req.result != nil {
		code := *req.result
		ret.Result = &code
	}
	return ret, true
}

// OpenRequests returns the number of requests still awaiting quorum
func (r *Registry) OpenRequests() int {
	count := 0
	for _, req := range r.requests {
		if req.open {
			count++
		}
	}
	return count
}
