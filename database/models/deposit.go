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

package models

import (
	"time"

	"github.com/tp26610/FlightSurety/database/types"
)

// Deposit kinds
const (
	DepositKindAirlineBond = "airline_bond"
	DepositKindOracleFee   = "oracle_fee"
	DepositKindPremium     = "premium"
)

// Deposit records value paid into the treasury by an operation
type Deposit struct {
	CreatedAt  time.Time
	Kind       string       `gorm:"size:32;index;not null"`
	Payer      []byte       `gorm:"size:20;index;not null"`
	ID         uint         `gorm:"primarykey"`
	JournalSeq uint64       `gorm:"uniqueIndex;not null"`
	Amount     types.Uint64 `gorm:"type:text;not null"`
}

func (Deposit) TableName() string {
	return "deposit"
}
