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

package common

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// UnitDecimals is the number of decimal places carried by one currency unit
const UnitDecimals = 6

// Unit is one whole currency unit expressed in base units
const Unit Amount = 1_000_000

// ErrAmountOverflow is returned when an arithmetic result does not fit in an Amount
var ErrAmountOverflow = errors.New("amount overflow")

// Amount is a fixed-point currency value counted in base units
//
//nolint:recvcheck
type Amount uint64

// Units returns n whole currency units
func Units(n uint64) Amount {
	return Amount(n) * Unit
}

// ParseAmount parses a decimal unit string such as "1.5" or "0.000001".
// Values with more precision than a base unit are rejected rather than rounded.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	if r.Sign() < 0 {
		return 0, fmt.Errorf("negative amount: %q", s)
	}
	r.Mul(r, new(big.Rat).SetUint64(uint64(Unit)))
	if !r.IsInt() {
		return 0, fmt.Errorf(
			"amount %q exceeds %d decimal places",
			s,
			UnitDecimals,
		)
	}
	n := r.Num()
	if !n.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return Amount(n.Uint64()), nil
}

// Add returns a+b, failing instead of wrapping
func (a Amount) Add(b Amount) (Amount, error) {
	if uint64(b) > math.MaxUint64-uint64(a) {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// MulRat returns a*num/den computed over exact rationals. Any fraction of a
// base unit left after the division is dropped.
func (a Amount) MulRat(num, den uint64) (Amount, error) {
	if den == 0 {
		return 0, errors.New("zero denominator")
	}
	r := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(uint64(a)),
		big.NewInt(1),
	)
	r.Mul(r, new(big.Rat).SetFrac(
		new(big.Int).SetUint64(num),
		new(big.Int).SetUint64(den),
	))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return Amount(q.Uint64()), nil
}

// String renders the amount in whole units with trailing zeros removed
func (a Amount) String() string {
	whole := uint64(a) / uint64(Unit)
	frac := uint64(a) % uint64(Unit)
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := fmt.Sprintf("%0*d", UnitDecimals, frac)
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fracStr, "0")
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	tmp, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// Value stores the amount as a base-unit string, since sqlite integers are signed
func (a Amount) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(a), 10), nil
}

func (a *Amount) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative amount in database: %d", v)
		}
		*a = Amount(v)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmp, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*a = Amount(tmp)
	return nil
}
