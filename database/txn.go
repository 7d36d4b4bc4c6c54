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
	"sync"
	"time"

	"github.com/tp26610/FlightSurety/database/types"
)

// txnScope selects which stores a Txn spans
type txnScope uint8

const (
	scopeJournal txnScope = 1 << iota
	scopeTreasury

	scopeAll = scopeJournal | scopeTreasury
)

// Txn spans the journal (blob store) and the treasury (metadata store). A
// read-write Txn over both stores stamps each with the same commit time so
// a torn commit is detected on the next open.
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func newScopedTxn(db *Database, readWrite bool, scope txnScope) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if scope&scopeJournal != 0 && db.Blob() != nil {
		t.blobTxn = db.Blob().NewTransaction(readWrite)
	}
	if scope&scopeTreasury != 0 && db.Metadata() != nil {
		t.metadataTxn = db.Metadata().Transaction()
	}
	return t
}

// NewTxn opens a transaction over the journal and the treasury
func NewTxn(db *Database, readWrite bool) *Txn {
	return newScopedTxn(db, readWrite, scopeAll)
}

// NewJournalTxn opens a transaction over the journal only
func NewJournalTxn(db *Database, readWrite bool) *Txn {
	return newScopedTxn(db, readWrite, scopeJournal)
}

// NewTreasuryTxn opens a transaction over the treasury only
func NewTreasuryTxn(db *Database, readWrite bool) *Txn {
	return newScopedTxn(db, readWrite, scopeTreasury)
}

func (t *Txn) DB() *Database {
	return t.db
}

func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// Do runs fn inside the transaction, committing when fn succeeds and rolling
// back otherwise
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	if t.blobTxn == nil && t.metadataTxn == nil {
		t.finished = true
		return types.ErrNoStoreAvailable
	}
	defer func() {
		t.finished = true
	}()
	if t.blobTxn != nil && t.metadataTxn != nil {
		if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
			t.abandon()
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	// The journal goes first: a journal record without its treasury row is
	// caught by the commit timestamp check, the reverse is not
	if t.blobTxn != nil {
		if err := t.blobTxn.Commit(); err != nil {
			t.abandon()
			return fmt.Errorf("journal commit failed: %w", err)
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Commit(); err != nil {
			t.db.logger.Error(
				"journal committed without treasury update",
				"error", err,
			)
			_ = t.metadataTxn.Rollback()
			return fmt.Errorf("treasury commit failed: %w", err)
		}
	}
	return nil
}

// abandon rolls back whatever is still open, ignoring errors
func (t *Txn) abandon() {
	if t.blobTxn != nil {
		_ = t.blobTxn.Rollback()
	}
	if t.metadataTxn != nil {
		_ = t.metadataTxn.Rollback()
	}
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	var err error
	if t.blobTxn != nil {
		if rbErr := t.blobTxn.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("journal rollback: %w", rbErr))
		}
	}
	if t.metadataTxn != nil {
		if rbErr := t.metadataTxn.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("treasury rollback: %w", rbErr))
		}
	}
	return err
}

// Release discards the transaction and logs any failure. It is meant for
// defer statements on read-only transactions.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
