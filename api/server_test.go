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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/common"
)

// stubNode only answers the calls made by the root and health handlers
type stubNode struct {
	LedgerNode
	halted bool
}

func (s *stubNode) Stats() ledger.Stats {
	return ledger.Stats{Halted: s.halted}
}

func newTestServer(node LedgerNode) *Server {
	return New(
		ServerConfig{
			ListenAddress: "127.0.0.1:0",
		},
		node,
	)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestServer(&stubNode{})
	require.NoError(t, s.Start(t.Context()))
	addr := s.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/api")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	http.DefaultClient.CloseIdleConnections()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.Nil(t, s.Addr())
	// Stopping twice is harmless
	require.NoError(t, s.Stop(stopCtx))
}

func TestStartAlreadyStarted(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestServer(&stubNode{})
	require.NoError(t, s.Start(t.Context()))
	defer func() {
		require.NoError(t, s.Stop(context.Background()))
	}()
	require.Error(t, s.Start(t.Context()))
}

func TestStopOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestServer(&stubNode{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	require.Eventually(t, func() bool {
		return s.Addr() == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealthChecker(t *testing.T) {
	node := &stubNode{}
	checker := &ledgerChecker{node: node}
	resp, err := checker.Check(t.Context(), &grpchealth.CheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpchealth.StatusServing, resp.Status)

	node.halted = true
	resp, err = checker.Check(t.Context(), &grpchealth.CheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpchealth.StatusNotServing, resp.Status)

	_, err = checker.Check(t.Context(), &grpchealth.CheckRequest{Service: "other"})
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{common.ErrUnauthorized, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", common.ErrOracleNotAuthorizedForIndex), http.StatusForbidden},
		{common.ErrContractNotOperational, http.StatusServiceUnavailable},
		{ledger.ErrLedgerHalted, http.StatusServiceUnavailable},
		{common.ErrFlightNotRegistered, http.StatusNotFound},
		{common.ErrAlreadyInsured, http.StatusConflict},
		{
			&common.InsufficientPaymentError{Err: common.ErrInsufficientFunds},
			http.StatusBadRequest,
		},
		{common.ErrNothingToWithdraw, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		assert.Equal(t, test.status, statusForError(test.err), test.err.Error())
	}
}

func TestParseEventRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v0/events", nil)
	params, err := ParseEventRange(req)
	require.NoError(t, err)
	assert.Equal(t, EventRange{From: 0, Count: DefaultEventCount}, params)

	req = httptest.NewRequest(http.MethodGet, "/api/v0/events?from=5&count=5000", nil)
	params, err = ParseEventRange(req)
	require.NoError(t, err)
	assert.Equal(t, EventRange{From: 5, Count: MaxEventCount}, params)

	req = httptest.NewRequest(http.MethodGet, "/api/v0/events?count=0", nil)
	params, err = ParseEventRange(req)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Count)

	for _, url := range []string{
		"/api/v0/events?from=-1",
		"/api/v0/events?count=abc",
	} {
		req = httptest.NewRequest(http.MethodGet, url, nil)
		_, err = ParseEventRange(req)
		require.ErrorIs(t, err, ErrInvalidPaginationParameters, url)
	}
}
