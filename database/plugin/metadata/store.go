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

package metadata

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/database/plugin/metadata/sqlite"
	"github.com/tp26610/FlightSurety/database/types"
)

// MetadataStore holds the queryable treasury records alongside the journal
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Treasury
	AddDeposit(*models.Deposit, types.Txn) error
	AddPayout(*models.Payout, types.Txn) error
	GetDeposits([]byte, types.Txn) ([]models.Deposit, error)
	GetPayouts([]byte, types.Txn) ([]models.Payout, error)
	GetPayout(string, types.Txn) (*models.Payout, error)
}

// For now, this always returns a sqlite store instance
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	store, err := sqlite.New(
		sqlite.WithDataDir(dataDir),
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(promRegistry),
	)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return store, nil
}
