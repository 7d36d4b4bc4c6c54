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

package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tp26610/FlightSurety/database/models"
	"github.com/tp26610/FlightSurety/database/types"
)

// TreasuryTotals summarizes funds held by the treasury
type TreasuryTotals struct {
	Deposited uint64 `json:"deposited"`
	PaidOut   uint64 `json:"paidOut"`
}

// Balance returns the funds still held
func (t TreasuryTotals) Balance() uint64 {
	if t.PaidOut > t.Deposited {
		return 0
	}
	return t.Deposited - t.PaidOut
}

// RecordDeposit stores a deposit against the journal record that accepted it
func (d *Database) RecordDeposit(
	kind string,
	payer []byte,
	amount uint64,
	journalSeq uint64,
	txn *Txn,
) error {
	deposit := &models.Deposit{
		Kind:       kind,
		Payer:      payer,
		Amount:     types.Uint64(amount),
		JournalSeq: journalSeq,
	}
	if txn == nil {
		return d.metadata.AddDeposit(deposit, nil)
	}
	return d.metadata.AddDeposit(deposit, txn.Metadata())
}

// RecordPayout stores a payout and returns it with a newly assigned receipt
func (d *Database) RecordPayout(
	recipient []byte,
	amount uint64,
	txn *Txn,
) (*models.Payout, error) {
	payout := &models.Payout{
		Receipt:   uuid.NewString(),
		Recipient: recipient,
		Amount:    types.Uint64(amount),
	}
	var err error
	if txn == nil {
		err = d.metadata.AddPayout(payout, nil)
	} else {
		err = d.metadata.AddPayout(payout, txn.Metadata())
	}
	if err != nil {
		return nil, fmt.Errorf("record payout: %w", err)
	}
	return payout, nil
}

// Deposits returns deposits in journal order. A nil payer returns all of them.
func (d *Database) Deposits(payer []byte, txn *Txn) ([]models.Deposit, error) {
	if txn == nil {
		return d.metadata.GetDeposits(payer, nil)
	}
	return d.metadata.GetDeposits(payer, txn.Metadata())
}

// Payouts returns payouts in the order they were made. A nil recipient
// returns all of them.
func (d *Database) Payouts(recipient []byte, txn *Txn) ([]models.Payout, error) {
	if txn == nil {
		return d.metadata.GetPayouts(recipient, nil)
	}
	return d.metadata.GetPayouts(recipient, txn.Metadata())
}

// Payout returns the payout with the given receipt, or nil if there is none
func (d *Database) Payout(receipt string, txn *Txn) (*models.Payout, error) {
	if txn == nil {
		return d.metadata.GetPayout(receipt, nil)
	}
	return d.metadata.GetPayout(receipt, txn.Metadata())
}

// Treasury sums all deposits and payouts
func (d *Database) Treasury(txn *Txn) (TreasuryTotals, error) {
	var ret TreasuryTotals
	deposits, err := d.Deposits(nil, txn)
	if err != nil {
		return ret, err
	}
	for _, deposit := range deposits {
		ret.Deposited += uint64(deposit.Amount)
	}
	payouts, err := d.Payouts(nil, txn)
	if err != nil {
		return ret, err
	}
	for _, payout := range payouts {
		ret.PaidOut += uint64(payout.Amount)
	}
	return ret, nil
}
