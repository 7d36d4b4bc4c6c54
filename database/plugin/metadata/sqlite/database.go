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

package sqlite

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tp26610/FlightSurety/database/models"
)

const (
	DefaultVacuumInterval = 24 * time.Hour

	treasuryFileName = "treasury.sqlite"
	// WAL with a full sync on every commit
	onDiskPragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"
)

// MetadataStoreSqlite keeps the treasury tables in SQLite
type MetadataStoreSqlite struct {
	promRegistry   prometheus.Registerer
	db             *gorm.DB
	logger         *slog.Logger
	metrics        *sqliteMetrics
	stopCh         chan struct{}
	dataDir        string
	wg             sync.WaitGroup
	vacuumInterval time.Duration
	closeOnce      sync.Once
}

// New opens the treasury store. Without a data directory it lives in memory.
func New(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	s := &MetadataStoreSqlite{
		vacuumInterval: DefaultVacuumInterval,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := s.dsn()
	if err != nil {
		return nil, err
	}
	s.db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open treasury store: %w", err)
	}
	if s.dataDir == "" {
		// Readers would otherwise block on table locks held by an open
		// write transaction in the shared cache
		sqlDb, err := s.db.DB()
		if err != nil {
			return nil, err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return s, err
	}
	if err := s.migrate(); err != nil {
		return s, err
	}
	if s.promRegistry != nil {
		s.registerMetrics()
	}
	if s.dataDir != "" && s.vacuumInterval > 0 {
		s.wg.Add(1)
		go s.runVacuum()
	}
	return s, nil
}

func (s *MetadataStoreSqlite) dsn() (string, error) {
	if s.dataDir == "" {
		// A unique name per store, shared between the pool's connections
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(s.dataDir, treasuryFileName),
		onDiskPragmas,
	), nil
}

func (s *MetadataStoreSqlite) migrate() error {
	tables := append([]any{&CommitTimestamp{}}, models.MigrateModels...)
	for _, model := range tables {
		if err := s.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

func (s *MetadataStoreSqlite) runVacuum() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.vacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
		s.logger.Debug("vacuuming treasury store")
		if err := s.db.Exec("VACUUM").Error; err != nil {
			s.logger.Error(
				"failed to free unused space in treasury store",
				"error", err,
			)
		}
	}
}

// Close stops the vacuum loop and closes the connection pool
func (s *MetadataStoreSqlite) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		sqlDb, dbErr := s.db.DB()
		if dbErr != nil {
			err = fmt.Errorf("get database handle: %w", dbErr)
			return
		}
		err = sqlDb.Close()
	})
	return err
}

// DB returns the gorm handle
func (s *MetadataStoreSqlite) DB() *gorm.DB {
	return s.db
}
