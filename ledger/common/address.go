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
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address identifies an airline, oracle, passenger or the contract owner
type Address = ethcommon.Address

// ZeroAddress is never a valid participant
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed hex address
func ParseAddress(s string) (Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr := ethcommon.HexToAddress(s)
	if addr == ZeroAddress {
		return ZeroAddress, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return addr, nil
}

// DeriveAddress returns a deterministic address for the given seed material.
// It is used for locally managed identities such as coordinator oracles.
func DeriveAddress(parts ...[]byte) Address {
	return ethcommon.BytesToAddress(crypto.Keccak256(parts...))
}

// BytesToAddress converts b to an address, keeping the last 20 bytes
func BytesToAddress(b []byte) Address {
	return ethcommon.BytesToAddress(b)
}
