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

package sqlite

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tp26610/FlightSurety/database/types"
)

// sqliteTxn wraps a gorm transaction and implements types.Txn
type sqliteTxn struct {
	store    *MetadataStoreSqlite
	tx       *gorm.DB
	finished bool
}

// Transaction begins a new metadata transaction
func (s *MetadataStoreSqlite) Transaction() types.Txn {
	return &sqliteTxn{store: s, tx: s.db.Begin()}
}

func (t *sqliteTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx.Error != nil {
		return t.tx.Error
	}
	return t.tx.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx.Error != nil {
		return nil
	}
	return t.tx.Rollback().Error
}

// resolveDB returns the gorm handle for txn, or the base handle when txn is nil
func (s *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	sTxn, ok := txn.(*sqliteTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if sTxn.store != s {
		return nil, errors.New("transaction from different store")
	}
	if sTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if sTxn.tx.Error != nil {
		return nil, sTxn.tx.Error
	}
	return sTxn.tx, nil
}
