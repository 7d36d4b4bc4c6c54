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

package flight

import (
	"fmt"
	"unicode"

	"github.com/tp26610/FlightSurety/ledger/common"
)

// MaxDesignatorLength bounds the flight designator
const MaxDesignatorLength = 32

// AirlineChecker is the subset of airline governance the registry needs
type AirlineChecker interface {
	IsAirlineRegistered(common.Address) bool
}

// Flight is a read-only view of a registered flight
type Flight struct {
	Key        common.FlightKey  `json:"key"`
	StatusCode common.StatusCode `json:"statusCode"`
	Finalized  bool              `json:"finalized"`
}

type flightRecord struct {
	statusCode common.StatusCode
	finalized  bool
}

// Registry owns the flight table. Status is written only by Finalize.
type Registry struct {
	airlines AirlineChecker
	flights  map[common.FlightKey]*flightRecord
}

func NewRegistry(airlines AirlineChecker) *Registry {
	return &Registry{
		airlines: airlines,
		flights:  make(map[common.FlightKey]*flightRecord),
	}
}

// ValidateDesignator checks a flight designator such as "ND1309"
func ValidateDesignator(designator string) error {
	if designator == "" || len(designator) > MaxDesignatorLength {
		return fmt.Errorf("%w: %q", common.ErrInvalidFlight, designator)
	}
	for _, r := range designator {
		if r == '/' || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: %q", common.ErrInvalidFlight, designator)
		}
	}
	return nil
}

// RegisterFlight adds a flight with status UNKNOWN. The airline must be
// governance approved; funding is not required.
func (r *Registry) RegisterFlight(key common.FlightKey) error {
	if err := ValidateDesignator(key.Flight); err != nil {
		return err
	}
	if !r.airlines.IsAirlineRegistered(key.Airline) {
		return fmt.Errorf(
			"%w: airline %s is not registered",
			common.ErrUnauthorized,
			key.Airline.Hex(),
		)
	}
	if _, ok := r.flights[key]; ok {
		return fmt.Errorf(
			"%w: %s",
			common.ErrFlightAlreadyRegistered,
			key,
		)
	}
	r.flights[key] = &flightRecord{statusCode: common.StatusUnknown}
	return nil
}

func (r *Registry) IsFlightRegistered(key common.FlightKey) bool {
	_, ok := r.flights[key]
	return ok
}

// Flight returns the view of a registered flight
func (r *Registry) Flight(key common.FlightKey) (Flight, error) {
	rec, ok := r.flights[key]
	if !ok {
		return Flight{}, fmt.Errorf("%w: %s", common.ErrFlightNotRegistered, key)
	}
	return Flight{
		Key:        key,
		StatusCode: rec.statusCode,
		Finalized:  rec.finalized,
	}, nil
}

// Finalize records the quorum status of a flight. Only the first
// finalization is applied; later calls return false and leave the status as is.
func (r *Registry) Finalize(fin common.FlightStatusFinalized) (bool, error) {
	rec, ok := r.flights[fin.Flight]
	if !ok {
		return false, fmt.Errorf(
			"%w: %s",
			common.ErrFlightNotRegistered,
			fin.Flight,
		)
	}
	if rec.finalized {
		return false, nil
	}
	rec.statusCode = fin.StatusCode
	rec.finalized = true
	return true, nil
}

// Count returns the number of registered flights
func (r *Registry) Count() int {
	return len(r.flights)
}
