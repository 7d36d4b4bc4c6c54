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

package types

import (
	"encoding/binary"
	"errors"
)

const (
	JournalBlobKeyPrefix = "j"
	GenesisBlobKey       = "genesis"
)

func JournalBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// JournalBlobKey returns the key of a journal record. Big-endian sequence
// numbers keep the records in order under iteration.
func JournalBlobKey(seq uint64) []byte {
	key := []byte(JournalBlobKeyPrefix)
	return append(key, JournalBlobKeyUint64ToBytes(seq)...)
}

// JournalSeqFromKey extracts the sequence number from a journal record key
func JournalSeqFromKey(key []byte) (uint64, error) {
	if len(key) != len(JournalBlobKeyPrefix)+8 ||
		string(key[:len(JournalBlobKeyPrefix)]) != JournalBlobKeyPrefix {
		return 0, errors.New("invalid journal key")
	}
	return binary.BigEndian.Uint64(key[len(JournalBlobKeyPrefix):]), nil
}
