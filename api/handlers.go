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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tp26610/FlightSurety/internal/version"
	"github.com/tp26610/FlightSurety/ledger/common"
)

const maxRequestBodyBytes = 64 * 1024

// writeJSON writes a JSON response with the given status code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// writeErr maps err to a status code. Only unexpected errors are logged.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func callerFrom(r *http.Request) (common.Address, error) {
	hdr := r.Header.Get(CallerHeader)
	if hdr == "" {
		return common.ZeroAddress, errMissingCaller
	}
	return common.ParseAddress(hdr)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	return common.ParseAddress(r.PathValue(name))
}

func (f FlightRequest) key() (common.FlightKey, error) {
	airline, err := common.ParseAddress(f.Airline)
	if err != nil {
		return common.FlightKey{}, err
	}
	return common.FlightKey{
		Airline:   airline,
		Flight:    f.Flight,
		Timestamp: f.Timestamp,
	}, nil
}

func pathFlightKey(r *http.Request) (common.FlightKey, error) {
	timestamp, err := strconv.ParseUint(r.PathValue("timestamp"), 10, 64)
	if err != nil {
		return common.FlightKey{}, fmt.Errorf("%w: invalid timestamp", errBadRequest)
	}
	return FlightRequest{
		Airline:   r.PathValue("airline"),
		Flight:    r.PathValue("flight"),
		Timestamp: timestamp,
	}.key()
}

// handleRoot handles GET /api
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "An API for FlightSurety",
		Version: version.GetVersionString(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.node.Treasury()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:    s.node.Stats(),
		Treasury: totals,
	})
}

func (s *Server) handleGetOperational(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OperationalResponse{
		Operational: s.node.IsOperational(),
	})
}

func (s *Server) handleSetOperational(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req OperationalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.node.SetOperatingStatus(r.Context(), caller, req.Operational); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OperationalResponse{
		Operational: s.node.IsOperational(),
	})
}

func (s *Server) handleRegisterAirline(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req RegisterAirlineRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	candidate, err := common.ParseAddress(req.Candidate)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	admission, err := s.node.RegisterAirline(r.Context(), caller, candidate)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	status := http.StatusAccepted
	if admission.Registered {
		status = http.StatusCreated
	}
	writeJSON(w, status, admission)
}

func (s *Server) handleGetAirline(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	airline, ok := s.node.Airline(addr)
	if !ok {
		s.writeErr(w, r, common.ErrUnknownAirline)
		return
	}
	writeJSON(w, http.StatusOK, airline)
}

func (s *Server) handleFundAirline(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	airline, err := pathAddress(r, "address")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req ValueRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.node.FundAirline(r.Context(), caller, airline, req.Value); err != nil {
		s.writeErr(w, r, err)
		return
	}
	airlineInfo, _ := s.node.Airline(airline)
	writeJSON(w, http.StatusOK, airlineInfo)
}

func (s *Server) handleRegisterFlight(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req RegisterFlightRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := s.node.RegisterFlight(r.Context(), caller, req.Flight, req.Timestamp)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeFlight(w, r, key, http.StatusCreated)
}

func (s *Server) handleGetFlight(w http.ResponseWriter, r *http.Request) {
	key, err := pathFlightKey(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeFlight(w, r, key, http.StatusOK)
}

func (s *Server) writeFlight(
	w http.ResponseWriter,
	r *http.Request,
	key common.FlightKey,
	status int,
) {
	f, err := s.node.Flight(key)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, status, FlightResponse{
		Key:        f.Key,
		StatusCode: f.StatusCode,
		Status:     f.StatusCode.String(),
		Finalized:  f.Finalized,
	})
}

func (s *Server) handleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req ValueRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	indexes, err := s.node.RegisterOracle(r.Context(), caller, req.Value)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, OracleIndexesResponse{
		Oracle:  caller,
		Indexes: indexes,
	})
}

func (s *Server) handleOracleIndexes(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	indexes, err := s.node.OracleIndexes(addr)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			err = fmt.Errorf("%w: oracle %s", errNotFound, addr.Hex())
		}
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OracleIndexesResponse{
		Oracle:  addr,
		Indexes: indexes,
	})
}

func (s *Server) handleRequestFlightStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req FlightRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := req.key()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	evt, err := s.node.RequestFlightStatus(r.Context(), caller, key)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, evt)
}

func (s *Server) handleOracleResponse(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req OracleResponseRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := req.key()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	outcome, err := s.node.SubmitOracleResponse(
		r.Context(),
		caller,
		req.Index,
		key,
		req.StatusCode,
	)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OracleResponseResponse{
		Finalized: outcome.Finalized,
		Count:     outcome.Count,
		Stale:     outcome.Stale,
		Duplicate: outcome.Duplicate,
	})
}

func (s *Server) handleBuyInsurance(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req BuyInsuranceRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := req.key()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	policy, err := s.node.BuyInsurance(r.Context(), caller, key, req.Value)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, policy)
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	passenger, err := pathAddress(r, "passenger")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := pathFlightKey(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	policy, ok := s.node.Policy(passenger, key)
	if !ok {
		s.writeErr(w, r, fmt.Errorf("%w: policy", errNotFound))
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (s *Server) handleGetCredit(w http.ResponseWriter, r *http.Request) {
	passenger, err := pathAddress(r, "address")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CreditResponse{
		Passenger: passenger,
		Amount:    s.node.CreditedAmount(passenger),
	})
}

// handleWithdraw pays out the credit of the passenger named in the path,
// who must also be the caller
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	passenger, err := pathAddress(r, "address")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if caller != passenger {
		s.writeErr(w, r, common.ErrUnauthorized)
		return
	}
	withdrawal, err := s.node.WithdrawCreditedAmount(r.Context(), caller)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawal)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParseEventRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := s.node.EventsSince(params.From)
	if len(events) > params.Count {
		events = events[:params.Count]
	}
	next := params.From
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	if events == nil {
		events = []common.LogEntry{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{
		Events: events,
		Next:   next,
	})
}
