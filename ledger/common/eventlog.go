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
	"slices"
	"sync"
)

// LogEntry is a single record in the event log. Seq starts at 1.
type LogEntry struct {
	Data any    `json:"data"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// EventLog is an append-only, in-order record of everything the ledger emitted
type EventLog struct {
	entries []LogEntry
	mu      sync.RWMutex
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append adds an entry and returns it with its assigned sequence number
func (l *EventLog) Append(eventType string, data any) LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := LogEntry{
		Seq:  uint64(len(l.entries)) + 1,
		Type: eventType,
		Data: data,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Since returns a copy of all entries with a sequence number greater than seq
func (l *EventLog) Since(seq uint64) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq >= uint64(len(l.entries)) {
		return nil
	}
	return slices.Clone(l.entries[seq:])
}

// Len returns the number of entries, which is also the last sequence number
func (l *EventLog) Len() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries))
}
