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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/tp26610/FlightSurety/coordinator"
	"github.com/tp26610/FlightSurety/ledger/common"
)

type ctxKey string

const configContextKey ctxKey = "flightsurety.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultRetryBackoff    = "50ms"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config *Config `yaml:"config,omitempty"`
}

type CoordinatorConfig struct {
	StatusMode    string `yaml:"statusMode"    split_words:"true"`
	Seed          string `yaml:"seed"`
	RetryBackoff  string `yaml:"retryBackoff"  split_words:"true"`
	OracleCount   int    `yaml:"oracleCount"   split_words:"true"`
	RetryAttempts uint64 `yaml:"retryAttempts" split_words:"true"`
	FixedStatus   uint8  `yaml:"fixedStatus"   split_words:"true"`
	Enabled       bool   `yaml:"enabled"`
}

type Config struct {
	DatabasePath    string            `yaml:"databasePath"    split_words:"true"`
	BindAddr        string            `yaml:"bindAddr"        split_words:"true"`
	Owner           string            `yaml:"owner"`
	IndexSeed       string            `yaml:"indexSeed"       split_words:"true"`
	ShutdownTimeout string            `yaml:"shutdownTimeout" split_words:"true"`
	Coordinator     CoordinatorConfig `yaml:"coordinator"`
	ApiPort         uint              `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint              `yaml:"metricsPort"     split_words:"true"`
	Tracing         bool              `yaml:"tracing"`
	TracingStdout   bool              `yaml:"tracingStdout"   split_words:"true"`
}

var globalConfig = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".flightsurety",
		IndexSeed:       "flightsurety",
		ApiPort:         3000,
		MetricsPort:     12798,
		ShutdownTimeout: DefaultShutdownTimeout,
		Coordinator: CoordinatorConfig{
			Enabled:       true,
			OracleCount:   coordinator.DefaultOracleCount,
			Seed:          "flightsurety-oracles",
			StatusMode:    coordinator.StatusModeRandom,
			FixedStatus:   uint8(common.StatusLateAirline),
			RetryAttempts: coordinator.DefaultRetryAttempts,
			RetryBackoff:  DefaultRetryBackoff,
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.flightsurety/flightsurety.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".flightsurety", "flightsurety.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		if configFile == "" {
			systemPath := "/etc/flightsurety/flightsurety.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(buf, globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	// Process environment variables
	if err := envconfig.Process("flightsurety", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the values that are parsed later on startup
func (c *Config) Validate() error {
	if c.Owner == "" {
		return errors.New("owner address must be configured")
	}
	if _, err := common.ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Coordinator.RetryBackoffDuration(); err != nil {
		return err
	}
	if _, err := coordinator.NewStatusSource(
		c.Coordinator.StatusMode,
		common.StatusCode(c.Coordinator.FixedStatus),
	); err != nil {
		return fmt.Errorf("invalid coordinator status: %w", err)
	}
	return nil
}

// OwnerAddress returns the parsed owner address
func (c *Config) OwnerAddress() (common.Address, error) {
	return common.ParseAddress(c.Owner)
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return d, nil
}

func (c *CoordinatorConfig) RetryBackoffDuration() (time.Duration, error) {
	if c.RetryBackoff == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinator retry backoff: %w", err)
	}
	return d, nil
}
