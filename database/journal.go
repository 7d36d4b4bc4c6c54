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

package database

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/tp26610/FlightSurety/database/types"
)

const (
	// journalIteratorBatchSize controls how many journal records are read
	// per blob transaction during replay
	journalIteratorBatchSize = 1000
)

// JournalRecord is a single encoded operation and its sequence number
type JournalRecord struct {
	Data []byte
	Seq  uint64
}

// AppendJournal stores an encoded operation under its sequence number
func (d *Database) AppendJournal(seq uint64, data []byte, txn *Txn) error {
	if txn == nil {
		txn = NewJournalTxn(d, true)
		return txn.Do(func(txn *Txn) error {
			return d.AppendJournal(seq, data, txn)
		})
	}
	if txn.Blob() == nil {
		return types.ErrNilTxn
	}
	key := types.JournalBlobKey(seq)
	if _, err := d.Blob().Get(txn.Blob(), key); err == nil {
		return fmt.Errorf("journal record %d already exists", seq)
	} else if !errors.Is(err, types.ErrBlobKeyNotFound) {
		return err
	}
	return d.Blob().Set(txn.Blob(), key, data)
}

// JournalTip returns the highest journal sequence number, or zero when the
// journal is empty
func (d *Database) JournalTip() (uint64, error) {
	txn := NewJournalTxn(d, false)
	defer txn.Release()
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{
			Prefix:  []byte(types.JournalBlobKeyPrefix),
			Reverse: true,
		},
	)
	defer iter.Close()
	// Reverse iteration seeks to the last key not greater than the seek key
	seekKey := append(
		[]byte(types.JournalBlobKeyPrefix),
		bytes.Repeat([]byte{0xff}, 8)...,
	)
	iter.Seek(seekKey)
	if !iter.ValidForPrefix([]byte(types.JournalBlobKeyPrefix)) {
		return 0, iter.Err()
	}
	return types.JournalSeqFromKey(iter.Item().Key())
}

// GetGenesis returns the stored genesis record. It returns
// types.ErrBlobKeyNotFound when none has been written.
func (d *Database) GetGenesis(txn *Txn) ([]byte, error) {
	if txn == nil {
		txn = NewJournalTxn(d, false)
		defer txn.Release()
	}
	return d.Blob().Get(txn.Blob(), []byte(types.GenesisBlobKey))
}

// SetGenesis stores the genesis record
func (d *Database) SetGenesis(data []byte, txn *Txn) error {
	if txn == nil {
		txn = NewJournalTxn(d, true)
		return txn.Do(func(txn *Txn) error {
			return d.SetGenesis(data, txn)
		})
	}
	return d.Blob().Set(txn.Blob(), []byte(types.GenesisBlobKey), data)
}

// JournalIterator reads journal records in sequence order. Records are
// fetched in batches so that replaying a long journal does not hold a
// single read transaction open.
type JournalIterator struct {
	db        *Database
	batch     []JournalRecord
	resumeKey []byte
	startSeq  uint64
	batchIdx  int
	mu        sync.Mutex
	exhausted bool
	closed    bool
}

// JournalFrom returns an iterator over journal records with a sequence
// number of at least startSeq
func (d *Database) JournalFrom(startSeq uint64) *JournalIterator {
	return &JournalIterator{
		db:       d,
		startSeq: startSeq,
	}
}

// Next returns the next journal record. When iteration is complete, it
// returns (nil, nil).
func (it *JournalIterator) Next() (*JournalRecord, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return nil, nil
	}
	if it.batchIdx >= len(it.batch) {
		if it.exhausted {
			return nil, nil
		}
		if err := it.fetchBatch(); err != nil {
			return nil, err
		}
		if len(it.batch) == 0 {
			it.exhausted = true
			return nil, nil
		}
	}
	rec := it.batch[it.batchIdx]
	it.batchIdx++
	return &rec, nil
}

// Close releases any resources held by the iterator. It is safe to call
// Close multiple times.
func (it *JournalIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch must be called with it.mu held
func (it *JournalIterator) fetchBatch() error {
	txn := NewJournalTxn(it.db, false)
	defer txn.Release()

	prefix := []byte(types.JournalBlobKeyPrefix)
	blobIter := it.db.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer blobIter.Close()

	seekKey := it.resumeKey
	if seekKey == nil {
		seekKey = types.JournalBlobKey(it.startSeq)
	}
	resuming := it.resumeKey != nil

	batch := make([]JournalRecord, 0, journalIteratorBatchSize)
	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		key := item.Key()
		// Skip the key the previous batch ended on
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}
		seq, err := types.JournalSeqFromKey(key)
		if err != nil {
			it.db.logger.Warn(
				"journal iterator: skipping unparseable key",
				"error", err,
			)
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("reading journal record %d: %w", seq, err)
		}
		batch = append(batch, JournalRecord{Seq: seq, Data: val})
		if len(batch) >= journalIteratorBatchSize {
			break
		}
	}
	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("scanning journal keys: %w", err)
	}

	it.batch = batch
	it.batchIdx = 0
	if len(batch) > 0 {
		it.resumeKey = types.JournalBlobKey(batch[len(batch)-1].Seq)
	}
	if len(batch) < journalIteratorBatchSize {
		it.exhausted = true
	}
	return nil
}
