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

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/tp26610/FlightSurety/database/types"
)

var commitTimestampKey = []byte("commit_timestamp")

// GetCommitTimestamp returns the commit time of the last journal write,
// in unix milliseconds
func (s *BlobStoreBadger) GetCommitTimestamp() (int64, error) {
	txn := s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := s.Get(txn, commitTimestampKey)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed commit timestamp of %d bytes", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil //nolint:gosec
}

func (s *BlobStoreBadger) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	val := binary.BigEndian.AppendUint64(nil, uint64(timestamp)) //nolint:gosec
	return s.Set(txn, commitTimestampKey, val)
}
