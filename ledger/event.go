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
	"github.com/tp26610/FlightSurety/event"
	"github.com/tp26610/FlightSurety/ledger/common"
	"github.com/tp26610/FlightSurety/ledger/governance"
	"github.com/tp26610/FlightSurety/ledger/insurance"
	"github.com/tp26610/FlightSurety/ledger/oracle"
)

const (
	OperatingStatusEventType       event.EventType = "ledger.operating_status"
	AirlineAdmissionEventType      event.EventType = "ledger.airline.admission"
	AirlineFundedEventType         event.EventType = "ledger.airline.funded"
	FlightRegisteredEventType      event.EventType = "ledger.flight.registered"
	OracleRegisteredEventType      event.EventType = "ledger.oracle.registered"
	OracleRequestEventType         event.EventType = "ledger.oracle.request"
	OracleReportEventType          event.EventType = "ledger.oracle.report"
	FlightStatusFinalizedEventType event.EventType = "ledger.flight.finalized"
	PolicyPurchasedEventType       event.EventType = "ledger.policy.purchased"
	PolicyCreditedEventType        event.EventType = "ledger.policy.credited"
	CreditWithdrawnEventType       event.EventType = "ledger.credit.withdrawn"
	CreditRestoredEventType        event.EventType = "ledger.credit.restored"
)

// OperatingStatusEvent is emitted when the owner toggles the kill switch
type OperatingStatusEvent struct {
	Caller      common.Address `json:"caller"`
	Operational bool           `json:"operational"`
}

// AirlineAdmissionEvent is emitted for every accepted RegisterAirline call,
// whether it registered the candidate or only recorded a vote
type AirlineAdmissionEvent = governance.Admission

type AirlineFundedEvent struct {
	Airline common.Address `json:"airline"`
	Amount  common.Amount  `json:"amount"`
}

type FlightRegisteredEvent struct {
	Flight common.FlightKey `json:"flight"`
}

type OracleRegisteredEvent struct {
	Oracle  common.Address `json:"oracle"`
	Indexes oracle.Indexes `json:"indexes"`
	Fee     common.Amount  `json:"fee"`
}

// OracleRequestEvent asks every oracle holding Index to report the status
// of Flight. It is emitted for each request, including repeats.
type OracleRequestEvent struct {
	Flight    common.FlightKey `json:"flight"`
	Requester common.Address   `json:"requester"`
	Index     uint8            `json:"index"`
	Reused    bool             `json:"reused"`
}

// OracleReportEvent is emitted for each response recorded on an open request
type OracleReportEvent struct {
	Flight     common.FlightKey  `json:"flight"`
	Oracle     common.Address    `json:"oracle"`
	Count      int               `json:"count"`
	Index      uint8             `json:"index"`
	StatusCode common.StatusCode `json:"statusCode"`
}

// FlightStatusFinalizedEvent is emitted once per flight
type FlightStatusFinalizedEvent = common.FlightStatusFinalized

type PolicyPurchasedEvent struct {
	Policy insurance.Policy `json:"policy"`
}

type PolicyCreditedEvent struct {
	Policy insurance.PolicyKey `json:"policy"`
	Amount common.Amount       `json:"amount"`
}

type CreditWithdrawnEvent struct {
	Passenger common.Address `json:"passenger"`
	Amount    common.Amount  `json:"amount"`
}

// CreditRestoredEvent is emitted when a withdrawal transfer failed and the
// debited amount was credited back
type CreditRestoredEvent struct {
	Passenger common.Address `json:"passenger"`
	Amount    common.Amount  `json:"amount"`
}

type pendingEvent struct {
	data any
	typ  event.EventType
}
