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

package coordinator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/tp26610/FlightSurety/ledger/common"
)

const (
	StatusModeRandom = "random"
	StatusModeFixed  = "fixed"
)

// StatusSource decides the status an oracle reports for a flight
type StatusSource interface {
	Status(ctx context.Context, flight common.FlightKey) (common.StatusCode, error)
}

// RandomStatus reports a uniformly chosen status code
type RandomStatus struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewRandomStatus returns a RandomStatus. A zero seed draws a random one.
func NewRandomStatus(seed uint64) *RandomStatus {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomStatus{
		rand: rand.New(rand.NewPCG(seed, seed)), // #nosec G404
	}
}

func (r *RandomStatus) Status(context.Context, common.FlightKey) (common.StatusCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.StatusCodes[r.rand.IntN(len(common.StatusCodes))], nil
}

// FixedStatus always reports the same status code
type FixedStatus common.StatusCode

func (f FixedStatus) Status(context.Context, common.FlightKey) (common.StatusCode, error) {
	return common.StatusCode(f), nil
}

// NewStatusSource returns the status source for a configured mode
func NewStatusSource(mode string, fixed common.StatusCode) (StatusSource, error) {
	switch strings.ToLower(mode) {
	case "", StatusModeRandom:
		return NewRandomStatus(0), nil
	case StatusModeFixed:
		if !fixed.Valid() {
			return nil, fmt.Errorf("%w: %d", common.ErrInvalidStatusCode, fixed)
		}
		return FixedStatus(fixed), nil
	default:
		return nil, fmt.Errorf("unknown status mode: %s", mode)
	}
}
