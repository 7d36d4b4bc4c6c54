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
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tp26610/FlightSurety/database/plugin/blob"
	"github.com/tp26610/FlightSurety/database/plugin/metadata"
)

// Database pairs the operation journal (blob store) with the treasury
// tables (metadata store)
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// New opens both stores under dataDir. An empty dataDir keeps them in
// memory. When the stores disagree on their last commit the Database is
// returned along with a CommitTimestampError so the caller can inspect it.
func New(
	logger *slog.Logger,
	dataDir string,
	promRegistry prometheus.Registerer,
) (*Database, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "database")
	treasury, err := metadata.New(dataDir, logger, promRegistry)
	if err != nil {
		return nil, fmt.Errorf("treasury store: %w", err)
	}
	journal, err := blob.New(dataDir, logger, promRegistry)
	if err != nil {
		_ = treasury.Close()
		return nil, fmt.Errorf("journal store: %w", err)
	}
	d := &Database{
		logger:   logger,
		blob:     journal,
		metadata: treasury,
		dataDir:  dataDir,
	}
	return d, d.checkCommitTimestamp()
}

func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

func (d *Database) DataDir() string {
	return d.dataDir
}

func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction opens a Txn spanning the journal and the treasury
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

func (d *Database) Close() error {
	return errors.Join(d.metadata.Close(), d.blob.Close())
}
