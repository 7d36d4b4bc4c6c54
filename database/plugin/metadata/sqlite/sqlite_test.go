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

package sqlite_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/database/plugin/metadata/sqlite"
	"github.com/tp26610/FlightSurety/database/types"
)

func newTestStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(sqlite.WithPromRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.ErrorIs(t, store.SetCommitTimestamp(1234, nil), types.ErrNilTxn)

	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(1234, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ts)

	// Second write updates the single row
	txn = store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(5678, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(5678), ts)
}

func TestDepositRollback(t *testing.T) {
	store := newTestStore(t)
	payer := []byte("01234567890123456789")

	txn := store.Transaction()
	require.NoError(t, store.AddDeposit(&models.Deposit{
		Kind:       models.DepositKindAirlineBond,
		Payer:      payer,
		JournalSeq: 1,
		Amount:     10_000_000,
	}, txn))
	require.NoError(t, txn.Rollback())

	deposits, err := store.GetDeposits(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, deposits)

	txn = store.Transaction()
	require.NoError(t, store.AddDeposit(&models.Deposit{
		Kind:       models.DepositKindAirlineBond,
		Payer:      payer,
		JournalSeq: 1,
		Amount:     10_000_000,
	}, txn))
	require.NoError(t, txn.Commit())

	deposits, err = store.GetDeposits(payer, nil)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, types.Uint64(10_000_000), deposits[0].Amount)
	assert.Equal(t, models.DepositKindAirlineBond, deposits[0].Kind)

	// Journal sequence numbers are unique
	err = store.AddDeposit(&models.Deposit{
		Kind:       models.DepositKindPremium,
		Payer:      payer,
		JournalSeq: 1,
		Amount:     1,
	}, nil)
	require.Error(t, err)
}

func TestFinishedTxn(t *testing.T) {
	store := newTestStore(t)
	txn := store.Transaction()
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Commit())
	err := store.AddPayout(&models.Payout{
		Receipt:   "r",
		Recipient: []byte("01234567890123456789"),
		Amount:    1,
	}, txn)
	require.ErrorIs(t, err, types.ErrTxnFinished)
}

func TestPayouts(t *testing.T) {
	store := newTestStore(t)
	alice := []byte("aaaaaaaaaaaaaaaaaaaa")
	bob := []byte("bbbbbbbbbbbbbbbbbbbb")
	for i, p := range []models.Payout{
		{Receipt: "r-1", Recipient: alice, Amount: 1_500_000},
		{Receipt: "r-2", Recipient: bob, Amount: 1_350_000},
		{Receipt: "r-3", Recipient: alice, Amount: 7},
	} {
		require.NoError(t, store.AddPayout(&p, nil), "payout %d", i)
	}

	all, err := store.GetPayouts(nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := store.GetPayouts(alice, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "r-1", mine[0].Receipt)
	assert.Equal(t, "r-3", mine[1].Receipt)

	payout, err := store.GetPayout("r-2", nil)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, types.Uint64(1_350_000), payout.Amount)

	payout, err = store.GetPayout("missing", nil)
	require.NoError(t, err)
	assert.Nil(t, payout)

	// Receipts are unique
	require.Error(t, store.AddPayout(&models.Payout{
		Receipt:   "r-1",
		Recipient: bob,
		Amount:    1,
	}, nil))
}
