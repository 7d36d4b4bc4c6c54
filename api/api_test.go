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

package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/api"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

var (
	testOwner     = common.DeriveAddress([]byte("owner"))
	testPassenger = common.DeriveAddress([]byte("passenger"))
)

type testEnv struct {
	t  *testing.T
	ls *ledger.LedgerState
	ts *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Owner:     testOwner,
		IndexSeed: []byte("api-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ls.Close()
	})
	srv := api.New(
		api.ServerConfig{PromRegistry: prometheus.NewRegistry()},
		ls,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, ls: ls, ts: ts}
}

// do sends a request and decodes a JSON response into out when it is non-nil
func (e *testEnv) do(
	method string,
	path string,
	caller common.Address,
	body any,
	out any,
) int {
	e.t.Helper()
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(e.t, err)
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reqBody)
	require.NoError(e.t, err)
	if caller != common.ZeroAddress {
		req.Header.Set(api.CallerHeader, caller.Hex())
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if out != nil {
		require.NoError(e.t, json.Unmarshal(respBody, out), string(respBody))
	}
	return resp.StatusCode
}

func TestRoot(t *testing.T) {
	e := newTestEnv(t)
	var root api.RootResponse
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api", common.ZeroAddress, nil, &root))
	assert.Equal(t, "An API for FlightSurety", root.Message)
	assert.NotEmpty(t, root.Version)
}

func TestAirlineEndpoints(t *testing.T) {
	e := newTestEnv(t)
	ownerPath := "/api/v0/airlines/" + testOwner.Hex()

	var airline governance.Airline
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, ownerPath, common.ZeroAddress, nil, &airline))
	assert.True(t, airline.IsRegistered)
	assert.False(t, airline.IsFunded)

	var errResp api.ErrorResponse
	assert.Equal(t, http.StatusForbidden, e.do(
		http.MethodPost, ownerPath+"/fund", common.ZeroAddress,
		map[string]string{"value": "10"}, &errResp,
	))
	assert.Equal(t, http.StatusForbidden, errResp.StatusCode)
	assert.Equal(t, http.StatusForbidden, e.do(
		http.MethodPost, ownerPath+"/fund", testPassenger,
		map[string]string{"value": "10"}, nil,
	))
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]string{"value": "5"}, nil,
	))
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]any{"value": 10}, nil,
	))
	require.Equal(t, http.StatusOK, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]string{"value": "10"}, &airline,
	))
	assert.True(t, airline.IsFunded)
	assert.Equal(t, http.StatusConflict, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]string{"value": "10"}, nil,
	))

	candidate := common.DeriveAddress([]byte("candidate"))
	var admission governance.Admission
	require.Equal(t, http.StatusCreated, e.do(
		http.MethodPost, "/api/v0/airlines", testOwner,
		api.RegisterAirlineRequest{Candidate: candidate.Hex()}, &admission,
	))
	assert.True(t, admission.Registered)
	assert.Equal(t, http.StatusConflict, e.do(
		http.MethodPost, "/api/v0/airlines", testOwner,
		api.RegisterAirlineRequest{Candidate: candidate.Hex()}, nil,
	))
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodPost, "/api/v0/airlines", testOwner,
		api.RegisterAirlineRequest{Candidate: "0x1234"}, nil,
	))

	assert.Equal(t, http.StatusNotFound, e.do(
		http.MethodGet, "/api/v0/airlines/"+testPassenger.Hex(), common.ZeroAddress, nil, nil,
	))
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodGet, "/api/v0/airlines/not-an-address", common.ZeroAddress, nil, nil,
	))
}

func TestOperationalToggle(t *testing.T) {
	e := newTestEnv(t)
	var status api.OperationalResponse
	require.Equal(t, http.StatusOK, e.do(
		http.MethodGet, "/api/v0/operational", common.ZeroAddress, nil, &status,
	))
	assert.True(t, status.Operational)

	assert.Equal(t, http.StatusForbidden, e.do(
		http.MethodPut, "/api/v0/operational", testPassenger,
		api.OperationalRequest{Operational: false}, nil,
	))
	require.Equal(t, http.StatusOK, e.do(
		http.MethodPut, "/api/v0/operational", testOwner,
		api.OperationalRequest{Operational: false}, &status,
	))
	assert.False(t, status.Operational)

	assert.Equal(t, http.StatusServiceUnavailable, e.do(
		http.MethodPost, "/api/v0/flights", testOwner,
		api.RegisterFlightRequest{Flight: "ND1309", Timestamp: 1}, nil,
	))

	require.Equal(t, http.StatusOK, e.do(
		http.MethodPut, "/api/v0/operational", testOwner,
		api.OperationalRequest{Operational: true}, &status,
	))
	assert.True(t, status.Operational)
}

func TestInsuranceFlow(t *testing.T) {
	e := newTestEnv(t)
	ownerPath := "/api/v0/airlines/" + testOwner.Hex()
	require.Equal(t, http.StatusOK, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]string{"value": "10"}, nil,
	))

	var flightResp api.FlightResponse
	require.Equal(t, http.StatusCreated, e.do(
		http.MethodPost, "/api/v0/flights", testOwner,
		api.RegisterFlightRequest{Flight: "ND1309", Timestamp: 1}, &flightResp,
	))
	assert.Equal(t, "ND1309", flightResp.Key.Flight)
	assert.False(t, flightResp.Finalized)
	flightPath := fmt.Sprintf("%s/ND1309/1", testOwner.Hex())
	flightReq := api.FlightRequest{Airline: testOwner.Hex(), Flight: "ND1309", Timestamp: 1}

	// Oracles
	oracles := make(map[common.Address]oracle.Indexes)
	for i := range 60 {
		addr := common.DeriveAddress([]byte(fmt.Sprintf("oracle-%d", i)))
		var resp api.OracleIndexesResponse
		require.Equal(t, http.StatusCreated, e.do(
			http.MethodPost, "/api/v0/oracles", addr,
			map[string]string{"value": "1"}, &resp,
		))
		oracles[addr] = resp.Indexes
	}
	for addr, indexes := range oracles {
		var resp api.OracleIndexesResponse
		require.Equal(t, http.StatusOK, e.do(
			http.MethodGet, "/api/v0/oracles/"+addr.Hex()+"/indexes", common.ZeroAddress, nil, &resp,
		))
		assert.Equal(t, indexes, resp.Indexes)
		break
	}
	assert.Equal(t, http.StatusNotFound, e.do(
		http.MethodGet, "/api/v0/oracles/"+testPassenger.Hex()+"/indexes", common.ZeroAddress, nil, nil,
	))

	// Insurance
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodPost, "/api/v0/insurance", testPassenger,
		api.BuyInsuranceRequest{FlightRequest: flightReq, Value: 1_500_000}, nil,
	))
	var policy insurance.Policy
	require.Equal(t, http.StatusCreated, e.do(
		http.MethodPost, "/api/v0/insurance", testPassenger,
		api.BuyInsuranceRequest{FlightRequest: flightReq, Value: common.Unit}, &policy,
	))
	assert.Equal(t, common.Unit, policy.Premium)
	assert.Equal(t, http.StatusConflict, e.do(
		http.MethodPost, "/api/v0/insurance", testPassenger,
		api.BuyInsuranceRequest{FlightRequest: flightReq, Value: common.Unit}, nil,
	))
	unknownFlight := flightReq
	unknownFlight.Flight = "ND0000"
	assert.Equal(t, http.StatusNotFound, e.do(
		http.MethodPost, "/api/v0/status-requests", testPassenger, unknownFlight, nil,
	))

	// Status request and consensus
	var req ledger.OracleRequestEvent
	require.Equal(t, http.StatusAccepted, e.do(
		http.MethodPost, "/api/v0/status-requests", testPassenger, flightReq, &req,
	))
	var holders, others []common.Address
	for addr, indexes := range oracles {
		if indexes.Contains(req.Index) {
			holders = append(holders, addr)
		} else {
			others = append(others, addr)
		}
	}
	require.GreaterOrEqual(t, len(holders), oracle.MinResponses)
	require.NotEmpty(t, others)
	response := api.OracleResponseRequest{
		FlightRequest: flightReq,
		Index:         req.Index,
		StatusCode:    common.StatusLateAirline,
	}
	assert.Equal(t, http.StatusForbidden, e.do(
		http.MethodPost, "/api/v0/oracle-responses", others[0], response, nil,
	))
	badStatus := response
	badStatus.StatusCode = 15
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodPost, "/api/v0/oracle-responses", holders[0], badStatus, nil,
	))
	var outcome api.OracleResponseResponse
	for i, addr := range holders[:oracle.MinResponses] {
		require.Equal(t, http.StatusOK, e.do(
			http.MethodPost, "/api/v0/oracle-responses", addr, response, &outcome,
		))
		assert.Equal(t, i+1, outcome.Count)
	}
	require.NotNil(t, outcome.Finalized)
	assert.Equal(t, common.StatusLateAirline, outcome.Finalized.StatusCode)

	require.Equal(t, http.StatusOK, e.do(
		http.MethodGet, "/api/v0/flights/"+flightPath, common.ZeroAddress, nil, &flightResp,
	))
	assert.True(t, flightResp.Finalized)
	assert.Equal(t, common.StatusLateAirline, flightResp.StatusCode)
	assert.Equal(t, common.StatusLateAirline.String(), flightResp.Status)
	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodGet, "/api/v0/flights/"+testOwner.Hex()+"/ND1309/soon", common.ZeroAddress, nil, nil,
	))

	policyPath := "/api/v0/insurance/" + testPassenger.Hex() + "/" + flightPath
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, policyPath, common.ZeroAddress, nil, &policy))
	assert.True(t, policy.Settled)
	assert.Equal(t, common.Amount(1_500_000), policy.Payout)
	assert.Equal(t, http.StatusNotFound, e.do(
		http.MethodGet, "/api/v0/insurance/"+testOwner.Hex()+"/"+flightPath, common.ZeroAddress, nil, nil,
	))

	// Withdrawal
	creditPath := "/api/v0/passengers/" + testPassenger.Hex() + "/credit"
	withdrawPath := "/api/v0/passengers/" + testPassenger.Hex() + "/withdraw"
	var credit api.CreditResponse
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, creditPath, common.ZeroAddress, nil, &credit))
	assert.Equal(t, common.Amount(1_500_000), credit.Amount)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, withdrawPath, testOwner, nil, nil))
	var withdrawal ledger.Withdrawal
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, withdrawPath, testPassenger, nil, &withdrawal))
	assert.Equal(t, common.Amount(1_500_000), withdrawal.Amount)
	assert.NotEmpty(t, withdrawal.Receipt)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, withdrawPath, testPassenger, nil, nil))
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, creditPath, common.ZeroAddress, nil, &credit))
	assert.Zero(t, credit.Amount)

	// Stats and treasury
	var stats api.StatsResponse
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v0/stats", common.ZeroAddress, nil, &stats))
	assert.Equal(t, 1, stats.Flights)
	assert.Equal(t, 60, stats.Oracles)
	assert.Equal(t, uint64(governance.BondAmount+60*oracle.RegistrationFee+common.Unit), stats.Treasury.Deposited)
	assert.Equal(t, uint64(1_500_000), stats.Treasury.PaidOut)
}

func TestEventsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	ownerPath := "/api/v0/airlines/" + testOwner.Hex()
	require.Equal(t, http.StatusOK, e.do(
		http.MethodPost, ownerPath+"/fund", testOwner,
		map[string]string{"value": "10"}, nil,
	))
	for i := range 3 {
		require.Equal(t, http.StatusCreated, e.do(
			http.MethodPost, "/api/v0/flights", testOwner,
			api.RegisterFlightRequest{Flight: "ND1309", Timestamp: uint64(i + 1)}, nil,
		))
	}

	var events api.EventsResponse
	require.Equal(t, http.StatusOK, e.do(
		http.MethodGet, "/api/v0/events", common.ZeroAddress, nil, &events,
	))
	require.Len(t, events.Events, 4)
	assert.Equal(t, string(ledger.AirlineFundedEventType), events.Events[0].Type)
	assert.Equal(t, uint64(4), events.Next)

	require.Equal(t, http.StatusOK, e.do(
		http.MethodGet, "/api/v0/events?from=1&count=2", common.ZeroAddress, nil, &events,
	))
	require.Len(t, events.Events, 2)
	assert.Equal(t, uint64(2), events.Events[0].Seq)
	assert.Equal(t, uint64(3), events.Next)

	require.Equal(t, http.StatusOK, e.do(
		http.MethodGet, "/api/v0/events?from=10", common.ZeroAddress, nil, &events,
	))
	assert.Empty(t, events.Events)
	assert.Equal(t, uint64(10), events.Next)

	assert.Equal(t, http.StatusBadRequest, e.do(
		http.MethodGet, "/api/v0/events?from=x", common.ZeroAddress, nil, nil,
	))
}

func TestHealthCheck(t *testing.T) {
	e := newTestEnv(t)
	check := func(body string) (int, string) {
		req, err := http.NewRequest(
			http.MethodPost,
			e.ts.URL+"/grpc.health.v1.Health/Check",
			strings.NewReader(body),
		)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out struct {
			Status string `json:"status"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out.Status
	}
	code, status := check("{}")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SERVING", status)

	code, status = check(`{"service":"` + api.HealthServiceName + `"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SERVING", status)

	code, _ = check(`{"service":"unknown"}`)
	assert.Equal(t, http.StatusNotFound, code)
}
