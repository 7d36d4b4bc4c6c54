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
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tp26610/FlightSurety/database/types"
)

var errForeignTxn = errors.New("transaction belongs to another journal store")

// journalTxn adapts a badger transaction to types.Txn
type journalTxn struct {
	store *BlobStoreBadger
	tx    *badger.Txn
	done  bool
}

func (t *journalTxn) Commit() error {
	if t.done {
		return nil
	}
	// A failed commit leaves badger's txn discarded, so it is done either way
	t.done = true
	return t.tx.Commit()
}

func (t *journalTxn) Rollback() error {
	if !t.done {
		t.done = true
		t.tx.Discard()
	}
	return nil
}

// open unwraps txn for use against store s
func (s *BlobStoreBadger) open(txn types.Txn) (*badger.Txn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	jt, ok := txn.(*journalTxn)
	switch {
	case !ok:
		return nil, types.ErrTxnWrongType
	case jt.store != s:
		return nil, errForeignTxn
	case jt.done:
		return nil, types.ErrTxnFinished
	}
	return jt.tx, nil
}

type journalIterator struct {
	it *badger.Iterator
}

func (j journalIterator) Rewind()                      { j.it.Rewind() }
func (j journalIterator) Seek(key []byte)              { j.it.Seek(key) }
func (j journalIterator) Valid() bool                  { return j.it.Valid() }
func (j journalIterator) ValidForPrefix(p []byte) bool { return j.it.ValidForPrefix(p) }
func (j journalIterator) Next()                        { j.it.Next() }
func (j journalIterator) Close()                       { j.it.Close() }
func (j journalIterator) Err() error                   { return nil }

func (j journalIterator) Item() types.BlobItem {
	return journalItem{j.it.Item()}
}

type journalItem struct {
	item *badger.Item
}

func (i journalItem) Key() []byte {
	return i.item.KeyCopy(nil)
}

func (i journalItem) ValueCopy(dst []byte) ([]byte, error) {
	return i.item.ValueCopy(dst)
}

// failedIterator reports an error from Err and yields nothing
type failedIterator struct {
	err error
}

func (failedIterator) Rewind()                    {}
func (failedIterator) Seek([]byte)                {}
func (failedIterator) Valid() bool                { return false }
func (failedIterator) ValidForPrefix([]byte) bool { return false }
func (failedIterator) Next()                      {}
func (failedIterator) Item() types.BlobItem       { return nil }
func (failedIterator) Close()                     {}
func (f failedIterator) Err() error               { return f.err }
