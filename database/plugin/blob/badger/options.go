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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlockCacheSize = 32 << 20
	DefaultValueThreshold = 1 << 10
	DefaultGcInterval     = 5 * time.Minute
)

type BlobStoreBadgerOptionFunc func(*BlobStoreBadger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.promRegistry = registry
	}
}

// WithDataDir places the journal under dataDir/journal
func WithDataDir(dataDir string) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.dataDir = dataDir
	}
}

func WithBlockCacheSize(size int64) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.blockCacheSize = size
	}
}

// WithGcInterval sets how often value log GC runs. Zero disables it.
func WithGcInterval(interval time.Duration) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.gcInterval = interval
	}
}

// WithValueThreshold sets the largest value kept inline in the LSM tree
func WithValueThreshold(threshold int64) BlobStoreBadgerOptionFunc {
	return func(s *BlobStoreBadger) {
		s.valueThreshold = threshold
	}
}
