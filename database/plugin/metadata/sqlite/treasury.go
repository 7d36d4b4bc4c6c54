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
	"fmt"

	"gorm.io/gorm"

	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/database/types"
)

// AddDeposit records a treasury deposit
func (s *MetadataStoreSqlite) AddDeposit(
	deposit *models.Deposit,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(deposit); result.Error != nil {
		return fmt.Errorf("create deposit: %w", result.Error)
	}
	if s.metrics != nil {
		s.metrics.deposits.WithLabelValues(deposit.Kind).Inc()
	}
	return nil
}

// AddPayout records a treasury payout
func (s *MetadataStoreSqlite) AddPayout(
	payout *models.Payout,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(payout); result.Error != nil {
		return fmt.Errorf("create payout: %w", result.Error)
	}
	if s.metrics != nil {
		s.metrics.payouts.Inc()
	}
	return nil
}

// GetDeposits returns deposits in journal order, optionally filtered by payer
func (s *MetadataStoreSqlite) GetDeposits(
	payer []byte,
	txn types.Txn,
) ([]models.Deposit, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Deposit
	query := db.Order("journal_seq")
	if payer != nil {
		query = query.Where("payer = ?", payer)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetPayouts returns payouts in creation order, optionally filtered by recipient
func (s *MetadataStoreSqlite) GetPayouts(
	recipient []byte,
	txn types.Txn,
) ([]models.Payout, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Payout
	query := db.Order("id")
	if recipient != nil {
		query = query.Where("recipient = ?", recipient)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetPayout returns the payout with the given receipt
func (s *MetadataStoreSqlite) GetPayout(
	receipt string,
	txn types.Txn,
) (*models.Payout, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Payout{}
	result := db.First(ret, "receipt = ?", receipt)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}
