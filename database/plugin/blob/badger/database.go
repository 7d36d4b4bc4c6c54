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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tp26610/FlightSurety/database/types"
)

// BlobStoreBadger keeps the operation journal in badger. Nothing is
// persisted when no data directory is configured.
type BlobStoreBadger struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	gcRuns         prometheus.Counter
	stopCh         chan struct{}
	dataDir        string
	wg             sync.WaitGroup
	gcInterval     time.Duration
	blockCacheSize int64
	valueThreshold int64
	closeOnce      sync.Once
}

// New opens the journal store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	s := &BlobStoreBadger{
		gcInterval:     DefaultGcInterval,
		blockCacheSize: DefaultBlockCacheSize,
		valueThreshold: DefaultValueThreshold,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := s.badgerOptions()
	if err != nil {
		return nil, err
	}
	s.db, err = badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open journal store: %w", err)
	}
	if s.promRegistry != nil {
		s.registerBlobMetrics()
	}
	// Value log GC only matters on disk
	if s.dataDir != "" && s.gcInterval > 0 {
		s.wg.Add(1)
		go s.runGc()
	}
	return s, nil
}

func (s *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	if s.dataDir == "" {
		return badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(NewBadgerLogger(s.logger)).
			WithLoggingLevel(badger.WARNING).
			WithValueThreshold(s.valueThreshold), nil
	}
	journalDir := filepath.Join(s.dataDir, "journal")
	if err := os.MkdirAll(journalDir, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("failed to create data dir: %w", err)
	}
	return badger.DefaultOptions(journalDir).
		WithLogger(NewBadgerLogger(s.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(s.blockCacheSize).
		WithValueThreshold(s.valueThreshold).
		WithCompression(options.Snappy), nil
}

func (s *BlobStoreBadger) runGc() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
		// Keep collecting while each pass rewrites a file
		for {
			err := s.db.RunValueLogGC(0.5)
			if err == nil {
				if s.gcRuns != nil {
					s.gcRuns.Inc()
				}
				continue
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn(
					"journal value log GC failed",
					"error", err,
				)
			}
			break
		}
	}
}

// Close stops background GC and closes badger
func (s *BlobStoreBadger) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB returns the badger handle
func (s *BlobStoreBadger) DB() *badger.DB {
	return s.db
}

func (s *BlobStoreBadger) NewTransaction(readWrite bool) types.Txn {
	return &journalTxn{store: s, tx: s.db.NewTransaction(readWrite)}
}

func (s *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	tx, err := s.open(txn)
	if err != nil {
		return nil, err
	}
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrBlobKeyNotFound
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	tx, err := s.open(txn)
	if err != nil {
		return err
	}
	return tx.Set(key, val)
}

// NewIterator walks keys within txn, which must stay open while the
// iterator is in use
func (s *BlobStoreBadger) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	tx, err := s.open(txn)
	if err != nil {
		return failedIterator{err: err}
	}
	return journalIterator{
		it: tx.NewIterator(badger.IteratorOptions{
			Prefix:  opts.Prefix,
			Reverse: opts.Reverse,
		}),
	}
}
