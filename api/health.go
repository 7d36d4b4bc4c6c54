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
	"context"
	"fmt"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
)

// HealthServiceName is reported by the gRPC health service
const HealthServiceName = "flightsurety.v0.Ledger"

// ledgerChecker reports NOT_SERVING once the engine has halted
type ledgerChecker struct {
	node LedgerNode
}

func (c *ledgerChecker) Check(
	_ context.Context,
	req *grpchealth.CheckRequest,
) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != HealthServiceName {
		return nil, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("unknown service %s", req.Service),
		)
	}
	if c.node.Stats().Halted {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
