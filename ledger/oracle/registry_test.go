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

package oracle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

var testSeed = []byte("oracle-test-seed")

func oracleAddr(i int) common.Address {
	return common.DeriveAddress([]byte("oracle"), []byte{byte(i >> 8), byte(i)})
}

var testFlight = common.FlightKey{
	Airline:   common.DeriveAddress([]byte("airline")),
	Flight:    "ND1309",
	Timestamp: 1700000000,
}

// setupPanel registers count oracles and opens one request, returning the
// request key and the oracles able to answer it
func setupPanel(
	t *testing.T,
	count int,
) (*oracle.Registry, oracle.RequestKey, []common.Address) {
	t.Helper()
	r := oracle.NewRegistry(testSeed)
	for i := range count {
		_, err := r.RegisterOracle(oracleAddr(i), oracle.RegistrationFee)
		require.NoError(t, err)
	}
	key, reused := r.RequestFlightStatus(testFlight, testFlight.Airline)
	require.False(t, reused)
	var matching []common.Address
	for i := range count {
		indexes, err := r.OracleIndexes(oracleAddr(i))
		require.NoError(t, err)
		if indexes.Contains(key.Index) {
			matching = append(matching, oracleAddr(i))
		}
	}
	require.GreaterOrEqual(t, len(matching), 6, "not enough oracles for index %d", key.Index)
	return r, key, matching
}

func respond(
	r *oracle.Registry,
	key oracle.RequestKey,
	from common.Address,
	code common.StatusCode,
) (oracle.Outcome, error) {
	return r.SubmitResponse(oracle.Response{
		Index:      key.Index,
		Flight:     key.Flight,
		StatusCode: code,
		Oracle:     from,
	})
}

func TestDrawIndexDeterministic(t *testing.T) {
	addr := oracleAddr(1)
	for nonce := range uint64(50) {
		for slot := range uint8(oracle.IndexesPerOracle) {
			a := oracle.DrawIndex(testSeed, addr, nonce, slot)
			b := oracle.DrawIndex(testSeed, addr, nonce, slot)
			assert.Equal(t, a, b)
			assert.Less(t, a, uint8(oracle.IndexSpace))
		}
	}
}

func TestIndexDistributionCoversSpace(t *testing.T) {
	seen := make(map[uint8]bool)
	for nonce := range uint64(200) {
		seen[oracle.DrawIndex(testSeed, oracleAddr(0), nonce, 0)] = true
	}
	assert.Len(t, seen, oracle.IndexSpace)
}

func TestRegisterOracle(t *testing.T) {
	r := oracle.NewRegistry(testSeed)

	_, err := r.RegisterOracle(oracleAddr(1), oracle.RegistrationFee-1)
	require.ErrorIs(t, err, common.ErrInsufficientFee)
	assert.False(t, r.IsOracleRegistered(oracleAddr(1)))

	indexes, err := r.RegisterOracle(oracleAddr(1), oracle.RegistrationFee)
	require.NoError(t, err)
	for _, idx := range indexes {
		assert.Less(t, idx, uint8(oracle.IndexSpace))
	}
	got, err := r.OracleIndexes(oracleAddr(1))
	require.NoError(t, err)
	assert.Equal(t, indexes, got)
	assert.Equal(t, uint64(1), r.Nonce())

	_, err = r.RegisterOracle(oracleAddr(1), oracle.RegistrationFee)
	require.ErrorIs(t, err, common.ErrAlreadyRegistered)

	// Overpaying is accepted
	_, err = r.RegisterOracle(oracleAddr(2), 2*oracle.RegistrationFee)
	require.NoError(t, err)
	assert.Equal(t, 2, r.OracleCount())

	_, err = r.OracleIndexes(oracleAddr(3))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRegistryReplayIsDeterministic(t *testing.T) {
	a := oracle.NewRegistry(testSeed)
	b := oracle.NewRegistry(testSeed)
	for i := range 10 {
		ia, err := a.RegisterOracle(oracleAddr(i), oracle.RegistrationFee)
		require.NoError(t, err)
		ib, err := b.RegisterOracle(oracleAddr(i), oracle.RegistrationFee)
		require.NoError(t, err)
		assert.Equal(t, ia, ib)
	}
	ka, _ := a.RequestFlightStatus(testFlight, testFlight.Airline)
	kb, _ := b.RequestFlightStatus(testFlight, testFlight.Airline)
	assert.Equal(t, ka, kb)
}

func TestQuorumFinalizes(t *testing.T) {
	r, key, oracles := setupPanel(t, 60)
	assert.Equal(t, 1, r.OpenRequests())

	out, err := respond(r, key, oracles[0], common.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Nil(t, out.Finalized)

	out, err = respond(r, key, oracles[1], common.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Nil(t, out.Finalized)

	out, err = respond(r, key, oracles[2], common.StatusLateAirline)
	require.NoError(t, err)
	require.NotNil(t, out.Finalized)
	assert.Equal(t, common.StatusLateAirline, out.Finalized.StatusCode)
	assert.Equal(t, testFlight, out.Finalized.Flight)
	assert.Equal(t, 0, r.OpenRequests())

	// Late responses are accepted no-ops
	out, err = respond(r, key, oracles[3], common.StatusLateAirline)
	require.NoError(t, err)
	assert.True(t, out.Stale)
	assert.Nil(t, out.Finalized)

	req, ok := r.Request(key)
	require.True(t, ok)
	assert.False(t, req.Open)
	require.NotNil(t, req.Result)
	assert.Equal(t, common.StatusLateAirline, *req.Result)
	assert.Equal(t, 3, req.Responses[common.StatusLateAirline])
}

func TestQuorumConflictingCodes(t *testing.T) {
	r, key, oracles := setupPanel(t, 60)

	// Two votes each for two codes do not finalize anything
	for i, code := range []common.StatusCode{
		common.StatusOnTime,
		common.StatusLateWeather,
		common.StatusOnTime,
		common.StatusLateWeather,
	} {
		out, err := respond(r, key, oracles[i], code)
		require.NoError(t, err)
		assert.Nil(t, out.Finalized)
	}
	out, err := respond(r, key, oracles[4], common.StatusLateWeather)
	require.NoError(t, err)
	require.NotNil(t, out.Finalized)
	assert.Equal(t, common.StatusLateWeather, out.Finalized.StatusCode)

	out, err = respond(r, key, oracles[5], common.StatusOnTime)
	require.NoError(t, err)
	assert.True(t, out.Stale)
}

func TestDuplicateResponseDoesNotCount(t *testing.T) {
	r, key, oracles := setupPanel(t, 60)
	for range 3 {
		out, err := respond(r, key, oracles[0], common.StatusLateAirline)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
		assert.Nil(t, out.Finalized)
	}
	// The same oracle may report a different code
	out, err := respond(r, key, oracles[0], common.StatusOnTime)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 1, r.OpenRequests())
}

func TestResponseRejections(t *testing.T) {
	r, key, oracles := setupPanel(t, 60)

	// Index not held by the oracle
	var outsider common.Address
	for i := range 60 {
		indexes, err := r.OracleIndexes(oracleAddr(i))
		require.NoError(t, err)
		if !indexes.Contains(key.Index) {
			outsider = oracleAddr(i)
			break
		}
	}
	require.NotEqual(t, common.ZeroAddress, outsider)
	_, err := respond(r, key, outsider, common.StatusOnTime)
	require.ErrorIs(t, err, common.ErrOracleNotAuthorizedForIndex)

	// Unregistered oracle holds no index
	_, err = respond(r, key, oracleAddr(1000), common.StatusOnTime)
	require.ErrorIs(t, err, common.ErrOracleNotAuthorizedForIndex)

	_, err = respond(r, key, oracles[0], common.StatusCode(15))
	require.ErrorIs(t, err, common.ErrInvalidStatusCode)

	unopened := key
	unopened.Flight.Flight = "XX0001"
	_, err = respond(r, unopened, oracles[0], common.StatusOnTime)
	require.ErrorIs(t, err, common.ErrRequestNotFound)

	req, ok := r.Request(key)
	require.True(t, ok)
	assert.Empty(t, req.Responses)
}

func TestRequestReusesExistingEntry(t *testing.T) {
	r := oracle.NewRegistry(testSeed)
	keys := make(map[oracle.RequestKey]bool)
	reusedSeen := false
	// With 10 indexes a repeated index is certain within 11 requests
	for range oracle.IndexSpace + 1 {
		key, reused := r.RequestFlightStatus(testFlight, testFlight.Airline)
		if keys[key] {
			assert.True(t, reused)
			reusedSeen = true
		} else {
			assert.False(t, reused)
			keys[key] = true
		}
	}
	assert.True(t, reusedSeen)
	assert.Equal(t, len(keys), r.OpenRequests())
}
