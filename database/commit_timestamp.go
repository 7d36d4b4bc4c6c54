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

package database

import (
	"errors"
	"fmt"

	"github.com/tp26610/FlightSurety/database/types"
)

// CommitTimestampError means a commit reached one store but not the other
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: treasury at %d, journal at %d",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	treasuryTs, err := d.metadata.GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("read treasury commit timestamp: %w", err)
	}
	// Fresh database
	if treasuryTs <= 0 {
		return nil
	}
	journalTs, err := d.blob.GetCommitTimestamp()
	if err != nil && !errors.Is(err, types.ErrBlobKeyNotFound) {
		return fmt.Errorf("read journal commit timestamp: %w", err)
	}
	if journalTs != treasuryTs {
		return CommitTimestampError{
			MetadataTimestamp: treasuryTs,
			BlobTimestamp:     journalTs,
		}
	}
	return nil
}

// updateCommitTimestamp stamps both halves of txn with the same time
func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	if err := d.metadata.SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	if err := d.blob.SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
