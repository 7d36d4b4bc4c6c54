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

package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tp26610/FlightSurety/database"
	"github.com/tp26610/FlightSurety/ledger/common"
)

type journalOp uint8

const (
	opSetOperatingStatus journalOp = iota + 1
	opRegisterAirline
	opFundAirline
	opRegisterFlight
	opRegisterOracle
	opRequestFlightStatus
	opSubmitOracleResponse
	opBuyInsurance
	opWithdraw
	opRestoreCredit
)

var journalOpNames = map[journalOp]string{
	opSetOperatingStatus:   "set_operating_status",
	opRegisterAirline:      "register_airline",
	opFundAirline:          "fund_airline",
	opRegisterFlight:       "register_flight",
	opRegisterOracle:       "register_oracle",
	opRequestFlightStatus:  "request_flight_status",
	opSubmitOracleResponse: "submit_oracle_response",
	opBuyInsurance:         "buy_insurance",
	opWithdraw:             "withdraw",
	opRestoreCredit:        "restore_credit",
}

func (o journalOp) String() string {
	if name, ok := journalOpNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(o))
}

// journalRecord is one accepted mutation. Replaying the records in order
// against an empty state reproduces the live state, including the index
// draws, since the draw nonce advances the same way.
type journalRecord struct {
	Caller    []byte    `cbor:"2,keyasint,omitempty"`
	Target    []byte    `cbor:"3,keyasint,omitempty"`
	Flight    string    `cbor:"4,keyasint,omitempty"`
	Timestamp uint64    `cbor:"5,keyasint,omitempty"`
	Amount    uint64    `cbor:"6,keyasint,omitempty"`
	Op        journalOp `cbor:"1,keyasint"`
	Index     uint8     `cbor:"7,keyasint,omitempty"`
	Status    uint8     `cbor:"8,keyasint,omitempty"`
	Flag      bool      `cbor:"9,keyasint,omitempty"`
	// seq is assigned on commit
	seq uint64
}

func (r *journalRecord) caller() common.Address {
	return common.BytesToAddress(r.Caller)
}

func (r *journalRecord) target() common.Address {
	return common.BytesToAddress(r.Target)
}

// flightKey returns the flight the record refers to. The airline is the
// target for every operation that names a flight.
func (r *journalRecord) flightKey() common.FlightKey {
	return common.FlightKey{
		Airline:   r.target(),
		Flight:    r.Flight,
		Timestamp: r.Timestamp,
	}
}

// genesisRecord fixes the values that every replay depends on
type genesisRecord struct {
	Owner []byte `cbor:"1,keyasint"`
	Seed  []byte `cbor:"2,keyasint"`
}

var journalEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func encodeJournalRecord(rec *journalRecord) ([]byte, error) {
	return journalEncMode.Marshal(rec)
}

func decodeJournalRecord(data []byte) (*journalRecord, error) {
	rec := &journalRecord{}
	if err := cbor.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode journal record: %w", err)
	}
	if _, ok := journalOpNames[rec.Op]; !ok {
		return nil, fmt.Errorf("decode journal record: unknown operation %d", rec.Op)
	}
	return rec, nil
}

func encodeGenesis(gen *genesisRecord) ([]byte, error) {
	return journalEncMode.Marshal(gen)
}

func decodeGenesis(data []byte) (*genesisRecord, error) {
	gen := &genesisRecord{}
	if err := cbor.Unmarshal(data, gen); err != nil {
		return nil, fmt.Errorf("decode genesis record: %w", err)
	}
	return gen, nil
}

// JournalEntry is a decoded journal record for display
type JournalEntry struct {
	Target    *common.Address `json:"target,omitempty"`
	Op        string          `json:"op"`
	Flight    string          `json:"flight,omitempty"`
	Caller    common.Address  `json:"caller"`
	Seq       uint64          `json:"seq"`
	Timestamp uint64          `json:"timestamp,omitempty"`
	Amount    common.Amount   `json:"amount,omitempty"`
	Index     uint8           `json:"index,omitempty"`
	Status    uint8           `json:"status,omitempty"`
	Flag      bool            `json:"flag,omitempty"`
}

// ReadJournal calls fn for every journal record after seq from, in order
func ReadJournal(
	db *database.Database,
	from uint64,
	fn func(JournalEntry) error,
) error {
	iter := db.JournalFrom(from + 1)
	defer iter.Close()
	for {
		item, err := iter.Next()
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}
		rec, err := decodeJournalRecord(item.Data)
		if err != nil {
			return fmt.Errorf("journal record %d: %w", item.Seq, err)
		}
		entry := JournalEntry{
			Seq:       item.Seq,
			Op:        rec.Op.String(),
			Caller:    rec.caller(),
			Flight:    rec.Flight,
			Timestamp: rec.Timestamp,
			Amount:    common.Amount(rec.Amount),
			Index:     rec.Index,
			Status:    rec.Status,
			Flag:      rec.Flag,
		}
		if len(rec.Target) > 0 {
			target := rec.target()
			entry.Target = &target
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}
