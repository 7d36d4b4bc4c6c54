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

package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/ledger/common"
)

func TestParseAmount(t *testing.T) {
	testDefs := []struct {
		input    string
		expected common.Amount
		wantErr  bool
	}{
		{input: "1", expected: common.Unit},
		{input: "1.5", expected: 1_500_000},
		{input: "0.000001", expected: 1},
		{input: "10", expected: common.Units(10)},
		{input: " 0.9 ", expected: 900_000},
		{input: "0.0000001", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.input, func(t *testing.T) {
			amount, err := common.ParseAmount(testDef.input)
			if testDef.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, amount)
		})
	}
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "1", common.Unit.String())
	assert.Equal(t, "1.5", common.Amount(1_500_000).String())
	assert.Equal(t, "0.000001", common.Amount(1).String())
	assert.Equal(t, "0", common.Amount(0).String())
}

func TestAmountMulRat(t *testing.T) {
	payout, err := common.Unit.MulRat(3, 2)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(1_500_000), payout)

	// 0.9 units pays 1.35 units with no drift
	payout, err = common.Amount(900_000).MulRat(3, 2)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(1_350_000), payout)

	// half a base unit is dropped
	payout, err = common.Amount(3).MulRat(3, 2)
	require.NoError(t, err)
	assert.Equal(t, common.Amount(4), payout)

	_, err = common.Amount(math.MaxUint64).MulRat(3, 2)
	require.ErrorIs(t, err, common.ErrAmountOverflow)

	_, err = common.Unit.MulRat(1, 0)
	require.Error(t, err)
}

func TestAmountAddOverflow(t *testing.T) {
	sum, err := common.Unit.Add(common.Unit)
	require.NoError(t, err)
	assert.Equal(t, common.Units(2), sum)
	_, err = common.Amount(math.MaxUint64).Add(1)
	require.ErrorIs(t, err, common.ErrAmountOverflow)
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Value common.Amount `json:"value"`
	}{Value: 1_500_000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"1.5"}`, string(data))

	var out struct {
		Value common.Amount `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"value":"0.25"}`), &out))
	assert.Equal(t, common.Amount(250_000), out.Value)
	require.Error(t, json.Unmarshal([]byte(`{"value":1}`), &out))
}

func TestAmountScan(t *testing.T) {
	var a common.Amount
	require.NoError(t, a.Scan("1500000"))
	assert.Equal(t, common.Amount(1_500_000), a)
	require.NoError(t, a.Scan(int64(7)))
	assert.Equal(t, common.Amount(7), a)
	require.Error(t, a.Scan(3.5))
	v, err := common.Amount(42).Value()
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestParseAddress(t *testing.T) {
	addr, err := common.ParseAddress("0xf17f52151EbEF6C7334FAD080c5704D77216b732")
	require.NoError(t, err)
	assert.Equal(t, "0xf17f52151EbEF6C7334FAD080c5704D77216b732", addr.Hex())

	_, err = common.ParseAddress("not-an-address")
	require.ErrorIs(t, err, common.ErrInvalidAddress)
	_, err = common.ParseAddress("0x0000000000000000000000000000000000000000")
	require.ErrorIs(t, err, common.ErrInvalidAddress)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	a := common.DeriveAddress([]byte("seed"), []byte{1})
	b := common.DeriveAddress([]byte("seed"), []byte{1})
	c := common.DeriveAddress([]byte("seed"), []byte{2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestStatusCodes(t *testing.T) {
	for _, code := range common.StatusCodes {
		assert.True(t, code.Valid(), "status %d", code)
	}
	assert.False(t, common.StatusCode(15).Valid())
	assert.Equal(t, "late_airline", common.StatusLateAirline.String())
	assert.Equal(t, "invalid(15)", common.StatusCode(15).String())
}

func TestInsufficientPaymentError(t *testing.T) {
	err := fmt.Errorf("fund airline: %w", &common.InsufficientPaymentError{
		Err:      common.ErrInsufficientFunds,
		Required: common.Units(10),
		Paid:     common.Units(9),
	})
	require.ErrorIs(t, err, common.ErrInsufficientFunds)
	var payErr *common.InsufficientPaymentError
	require.True(t, errors.As(err, &payErr))
	assert.Equal(t, common.Units(10), payErr.Required)
	assert.Contains(t, err.Error(), "required 10, paid 9")
}

func TestEventLog(t *testing.T) {
	log := common.NewEventLog()
	first := log.Append("a", 1)
	second := log.Append("b", 2)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, uint64(2), log.Len())

	all := log.Since(0)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Type)

	rest := log.Since(1)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].Type)

	assert.Empty(t, log.Since(2))
	assert.Empty(t, log.Since(100))
}
