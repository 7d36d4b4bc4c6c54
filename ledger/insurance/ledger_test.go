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

package insurance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/insurance"
)

type mockChecker struct {
	operational map[common.Address]bool
	flights     map[common.FlightKey]bool
}

func (m *mockChecker) IsAirlineOperational(addr common.Address) bool {
	return m.operational[addr]
}

func (m *mockChecker) IsFlightRegistered(key common.FlightKey) bool {
	return m.flights[key]
}

var (
	testAirline  = common.DeriveAddress([]byte("airline"))
	testPassA    = common.DeriveAddress([]byte("passenger-a"))
	testPassB    = common.DeriveAddress([]byte("passenger-b"))
	testFlightND = common.FlightKey{Airline: testAirline, Flight: "ND1309", Timestamp: 1}
)

func newTestLedger() (*insurance.Ledger, *mockChecker) {
	m := &mockChecker{
		operational: map[common.Address]bool{testAirline: true},
		flights:     map[common.FlightKey]bool{testFlightND: true},
	}
	return insurance.NewLedger(m, m), m
}

func TestBuyInsuranceChecks(t *testing.T) {
	l, m := newTestLedger()

	m.operational[testAirline] = false
	_, err := l.BuyInsurance(testPassA, testFlightND, common.Unit)
	require.ErrorIs(t, err, common.ErrAirlineNotOperational)
	m.operational[testAirline] = true

	other := testFlightND
	other.Flight = "ND9999"
	_, err = l.BuyInsurance(testPassA, other, common.Unit)
	require.ErrorIs(t, err, common.ErrFlightNotRegistered)

	_, err = l.BuyInsurance(testPassA, testFlightND, common.Unit+1)
	require.ErrorIs(t, err, common.ErrPremiumExceedsCap)

	_, err = l.BuyInsurance(testPassA, testFlightND, 0)
	require.ErrorIs(t, err, common.ErrPremiumZero)

	assert.False(t, l.IsInsured(testPassA, testFlightND))
	assert.Zero(t, l.PolicyCount())

	policy, err := l.BuyInsurance(testPassA, testFlightND, insurance.PremiumCap)
	require.NoError(t, err)
	assert.Equal(t, insurance.PremiumCap, policy.Premium)
	assert.True(t, l.IsInsured(testPassA, testFlightND))

	_, err = l.BuyInsurance(testPassA, testFlightND, common.Unit)
	require.ErrorIs(t, err, common.ErrAlreadyInsured)
}

func TestSettleLateAirline(t *testing.T) {
	l, _ := newTestLedger()
	_, err := l.BuyInsurance(testPassA, testFlightND, common.Unit)
	require.NoError(t, err)
	_, err = l.BuyInsurance(testPassB, testFlightND, 900_000)
	require.NoError(t, err)

	credits, err := l.Settle(common.FlightStatusFinalized{
		Flight:     testFlightND,
		StatusCode: common.StatusLateAirline,
	})
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.Equal(t, testPassA, credits[0].Policy.Passenger)
	assert.Equal(t, common.Amount(1_500_000), credits[0].Amount)
	assert.Equal(t, common.Amount(1_350_000), credits[1].Amount)

	assert.Equal(t, common.Amount(1_500_000), l.Credited(testPassA))
	assert.Equal(t, common.Amount(1_350_000), l.Credited(testPassB))
	assert.Equal(t, common.Amount(2_850_000), l.Outstanding())

	policy, ok := l.Policy(insurance.PolicyKey{Passenger: testPassA, Flight: testFlightND})
	require.True(t, ok)
	assert.True(t, policy.Settled)
	assert.Equal(t, common.Amount(1_500_000), policy.Payout)

	// A second settlement pays nothing
	credits, err = l.Settle(common.FlightStatusFinalized{
		Flight:     testFlightND,
		StatusCode: common.StatusLateAirline,
	})
	require.NoError(t, err)
	assert.Empty(t, credits)
	assert.Equal(t, common.Amount(1_500_000), l.Credited(testPassA))
}

func TestSettleOtherStatusPaysNothing(t *testing.T) {
	for _, code := range common.StatusCodes {
		if code == common.StatusLateAirline {
			continue
		}
		l, _ := newTestLedger()
		_, err := l.BuyInsurance(testPassA, testFlightND, common.Unit)
		require.NoError(t, err)
		credits, err := l.Settle(common.FlightStatusFinalized{Flight: testFlightND, StatusCode: code})
		require.NoError(t, err)
		assert.Empty(t, credits, code.String())
		assert.Zero(t, l.Credited(testPassA), code.String())
		policy, _ := l.Policy(insurance.PolicyKey{Passenger: testPassA, Flight: testFlightND})
		assert.False(t, policy.Settled)
	}
}

func TestWithdrawDebitAndRestore(t *testing.T) {
	l, _ := newTestLedger()
	_, err := l.DebitAll(testPassA)
	require.ErrorIs(t, err, common.ErrNothingToWithdraw)

	_, err = l.BuyInsurance(testPassA, testFlightND, common.Unit)
	require.NoError(t, err)
	_, err = l.Settle(common.FlightStatusFinalized{Flight: testFlightND, StatusCode: common.StatusLateAirline})
	require.NoError(t, err)

	amount, err := l.DebitAll(testPassA)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(1_500_000), amount)
	assert.Zero(t, l.Credited(testPassA))

	// A second attempt sees the zero balance
	_, err = l.DebitAll(testPassA)
	require.ErrorIs(t, err, common.ErrNothingToWithdraw)

	require.NoError(t, l.Restore(testPassA, amount))
	assert.Equal(t, amount, l.Credited(testPassA))
}

func TestPayoutFor(t *testing.T) {
	payout, err := insurance.PayoutFor(common.Unit)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(1_500_000), payout)
	payout, err = insurance.PayoutFor(1)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(1), payout)
}
