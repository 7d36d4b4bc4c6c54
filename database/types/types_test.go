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

package types_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp26610/FlightSurety/database/types"
)

func TestUint64ScanValue(t *testing.T) {
	testDefs := []uint64{0, 123, math.MaxUint64}
	for _, testDef := range testDefs {
		orig := types.Uint64(testDef)
		valueOut, err := orig.Value()
		require.NoError(t, err)
		var scanned types.Uint64
		require.NoError(t, scanned.Scan(valueOut))
		assert.Equal(t, orig, scanned)
	}
	var v types.Uint64
	require.NoError(t, v.Scan(int64(42)))
	assert.Equal(t, types.Uint64(42), v)
	require.NoError(t, v.Scan([]byte("7")))
	assert.Equal(t, types.Uint64(7), v)
	require.Error(t, v.Scan(int64(-1)))
	require.Error(t, v.Scan(1.5))
}

func TestJournalBlobKeyOrdering(t *testing.T) {
	prev := types.JournalBlobKey(0)
	for _, seq := range []uint64{1, 255, 256, 1 << 32, math.MaxUint64} {
		key := types.JournalBlobKey(seq)
		assert.Equal(t, 1, bytes.Compare(key, prev), "seq %d", seq)
		got, err := types.JournalSeqFromKey(key)
		require.NoError(t, err)
		assert.Equal(t, seq, got)
		prev = key
	}
	_, err := types.JournalSeqFromKey([]byte("genesis"))
	require.Error(t, err)
}
