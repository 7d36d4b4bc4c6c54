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

package flight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/ledger/common"
)

type mockAirlines map[common.Address]bool

func (m mockAirlines) IsAirlineRegistered(addr common.Address) bool {
	return m[addr]
}

func TestRegisterFlight(t *testing.T) {
	airline := common.DeriveAddress([]byte("airline"))
	stranger := common.DeriveAddress([]byte("stranger"))
	r := NewRegistry(mockAirlines{airline: true})

	key := common.FlightKey{Airline: airline, Flight: "ND1309", Timestamp: 1700000000}
	require.NoError(t, r.RegisterFlight(key))
	assert.True(t, r.IsFlightRegistered(key))
	assert.Equal(t, 1, r.Count())

	f, err := r.Flight(key)
	require.NoError(t, err)
	assert.Equal(t, common.StatusUnknown, f.StatusCode)
	assert.False(t, f.Finalized)

	require.ErrorIs(t, r.RegisterFlight(key), common.ErrFlightAlreadyRegistered)

	other := key
	other.Airline = stranger
	require.ErrorIs(t, r.RegisterFlight(other), common.ErrUnauthorized)
	assert.False(t, r.IsFlightRegistered(other))
}

func TestValidateDesignator(t *testing.T) {
	testDefs := []struct {
		designator string
		valid      bool
	}{
		{designator: "ND1309", valid: true},
		{designator: "AA-100", valid: true},
		{designator: "", valid: false},
		{designator: "ND 1309", valid: false},
		{designator: "ND/1309", valid: false},
		{designator: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", valid: false},
	}
	for _, testDef := range testDefs {
		err := ValidateDesignator(testDef.designator)
		if testDef.valid {
			assert.NoError(t, err, testDef.designator)
		} else {
			assert.ErrorIs(t, err, common.ErrInvalidFlight, testDef.designator)
		}
	}
}

func TestFinalizeFirstWins(t *testing.T) {
	airline := common.DeriveAddress([]byte("airline"))
	r := NewRegistry(mockAirlines{airline: true})
	key := common.FlightKey{Airline: airline, Flight: "ND1309", Timestamp: 1}

	_, err := r.Finalize(common.FlightStatusFinalized{Flight: key, StatusCode: common.StatusOnTime})
	require.ErrorIs(t, err, common.ErrFlightNotRegistered)

	require.NoError(t, r.RegisterFlight(key))
	applied, err := r.Finalize(common.FlightStatusFinalized{Flight: key, StatusCode: common.StatusLateAirline})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = r.Finalize(common.FlightStatusFinalized{Flight: key, StatusCode: common.StatusOnTime})
	require.NoError(t, err)
	assert.False(t, applied)

	f, err := r.Flight(key)
	require.NoError(t, err)
	assert.Equal(t, common.StatusLateAirline, f.StatusCode)
	assert.True(t, f.Finalized)
}
