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

package oracle

import (
	"encoding/binary"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tp26610/FlightSurety/ledger/common"
)

const (
	// IndexSpace is the exclusive upper bound of an oracle index
	IndexSpace = 10
	// IndexesPerOracle is the number of indexes drawn at registration
	IndexesPerOracle = 3
)

var indexSpace = big.NewInt(IndexSpace)

// Indexes holds the indexes assigned to an oracle. Duplicates are allowed.
type Indexes [IndexesPerOracle]uint8

// Contains reports whether index is one of the assigned indexes
func (i Indexes) Contains(index uint8) bool {
	return slices.Contains(i[:], index)
}

// DrawIndex derives an index in [0, IndexSpace) as
// keccak256(seed || identity || nonce || slot) mod IndexSpace
func DrawIndex(
	seed []byte,
	identity common.Address,
	nonce uint64,
	slot uint8,
) uint8 {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	hash := crypto.Keccak256(seed, identity.Bytes(), nonceBytes[:], []byte{slot})
	idx := new(big.Int).SetBytes(hash)
	return uint8(idx.Mod(idx, indexSpace).Uint64()) // #nosec G115
}
