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

package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/ledger"
	"github.com/tp26610/FlightSurety/ledger/governance"
)

func TestReadJournal(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		DataDir:   dir,
		Owner:     testOwner,
		IndexSeed: testSeed,
	})
	require.NoError(t, err)
	require.NoError(t, ls.FundAirline(ctx, testOwner, testOwner, governance.BondAmount))
	_, err = ls.RegisterFlight(ctx, testOwner, "ND1309", 7)
	require.NoError(t, err)
	require.NoError(t, ls.SetOperatingStatus(ctx, testOwner, false))
	require.NoError(t, ls.Close())

	db, err := database.New(nil, dir, nil)
	require.NoError(t, err)
	defer db.Close()

	var entries []ledger.JournalEntry
	require.NoError(t, ledger.ReadJournal(db, 0, func(entry ledger.JournalEntry) error {
		entries = append(entries, entry)
		return nil
	}))
	require.Len(t, entries, 3)
	assert.Equal(t, "fund_airline", entries[0].Op)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, governance.BondAmount, entries[0].Amount)
	require.NotNil(t, entries[0].Target)
	assert.Equal(t, testOwner, *entries[0].Target)
	assert.Equal(t, "register_flight", entries[1].Op)
	assert.Equal(t, "ND1309", entries[1].Flight)
	assert.Equal(t, uint64(7), entries[1].Timestamp)
	assert.Equal(t, "set_operating_status", entries[2].Op)
	assert.False(t, entries[2].Flag)
	assert.Nil(t, entries[2].Target)

	// Start after a sequence number and stop early on error
	errStop := errors.New("stop")
	var seen []uint64
	err = ledger.ReadJournal(db, 1, func(entry ledger.JournalEntry) error {
		seen = append(seen, entry.Seq)
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, []uint64{2}, seen)
}
