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
	"strconv"
)

// StatusCode is the reported state of a flight
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// StatusCodes lists every valid status code in ascending order
var StatusCodes = []StatusCode{
	StatusUnknown,
	StatusOnTime,
	StatusLateAirline,
	StatusLateWeather,
	StatusLateTechnical,
	StatusLateOther,
}

func (s StatusCode) Valid() bool {
	switch s {
	case StatusUnknown,
		StatusOnTime,
		StatusLateAirline,
		StatusLateWeather,
		StatusLateTechnical,
		StatusLateOther:
		return true
	default:
		return false
	}
}

func (s StatusCode) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	default:
		return "invalid(" + strconv.Itoa(int(s)) + ")"
	}
}

// FlightKey identifies a scheduled flight of an airline
type FlightKey struct {
	Airline   Address `json:"airline"`
	Flight    string  `json:"flight"`
	Timestamp uint64  `json:"timestamp"`
}

func (k FlightKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline.Hex(), k.Flight, k.Timestamp)
}

// FlightStatusFinalized is produced exactly once per flight, when an oracle
// request first reaches quorum. Settlement consumes it.
type FlightStatusFinalized struct {
	Flight     FlightKey  `json:"flight"`
	StatusCode StatusCode `json:"statusCode"`
}
