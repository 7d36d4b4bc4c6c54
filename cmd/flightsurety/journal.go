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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/internal/config"
	"github.com/tp26610/FlightSurety/ledger"
)

// journalRun prints the journal records after seq from as JSON lines,
// followed by the treasury totals
func journalRun(cfg *config.Config, from uint64) error {
	if cfg.DatabasePath == "" {
		return errors.New("an in-memory database has no journal to show")
	}
	db, err := database.New(slog.Default(), cfg.DatabasePath, nil)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	if err := ledger.ReadJournal(db, from, func(entry ledger.JournalEntry) error {
		return enc.Encode(entry)
	}); err != nil {
		return err
	}
	totals, err := db.Treasury(nil)
	if err != nil {
		return fmt.Errorf("reading treasury: %w", err)
	}
	return enc.Encode(struct {
		Treasury database.TreasuryTotals `json:"treasury"`
		Balance  uint64                  `json:"balance"`
	}{
		Treasury: totals,
		Balance:  totals.Balance(),
	})
}

func journalCommand() *cobra.Command {
	var from uint64
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the operation journal and treasury totals",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			if err := journalRun(cfg, from); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "only show records after this sequence number")
	return cmd
}
