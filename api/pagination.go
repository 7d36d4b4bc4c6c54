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

package api

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultEventCount = 100
	MaxEventCount     = 1000
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// EventRange selects the event log entries after From, at most Count of them
type EventRange struct {
	From  uint64
	Count int
}

// ParseEventRange parses the from and count query parameters and applies
// defaults and bounds clamping
func ParseEventRange(r *http.Request) (EventRange, error) {
	params := EventRange{
		Count: DefaultEventCount,
	}
	query := r.URL.Query()
	if fromParam := query.Get("from"); fromParam != "" {
		from, err := strconv.ParseUint(fromParam, 10, 64)
		if err != nil {
			return EventRange{}, ErrInvalidPaginationParameters
		}
		params.From = from
	}
	if countParam := query.Get("count"); countParam != "" {
		count, err := strconv.Atoi(countParam)
		if err != nil {
			return EventRange{}, ErrInvalidPaginationParameters
		}
		params.Count = count
	}

	// Bounds clamping
	if params.Count < 1 {
		params.Count = 1
	}
	if params.Count > MaxEventCount {
		params.Count = MaxEventCount
	}
	return params, nil
}
