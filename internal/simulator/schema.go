// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SimulateRequest is the params object of the simulateTransaction RPC method.
type SimulateRequest struct {
	// XDR encoded TransactionEnvelope
	Transaction string `json:"transaction"`
}

// RawSimulateResponse is the result object returned by simulateTransaction.
// Field names match the node's JSON exactly.
type RawSimulateResponse struct {
	ID           json.RawMessage `json:"id,omitempty"`
	LatestLedger *LedgerSequence `json:"latestLedger,omitempty"`
	Events       []string        `json:"events,omitempty"` // base64 DiagnosticEvent

	// Set only when the simulation failed.
	Error string `json:"error,omitempty"`

	Results         []RawHostFunctionResult `json:"results,omitempty"`
	TransactionData string                  `json:"transactionData,omitempty"` // base64 SorobanTransactionData
	MinResourceFee  *DecimalString          `json:"minResourceFee,omitempty"`
	Cost            *Cost                   `json:"cost,omitempty"`

	// Set when archived ledger entries must be restored first.
	RestorePreamble *RawRestorePreamble `json:"restorePreamble,omitempty"`
}

// RawHostFunctionResult is one entry of results, one per host function invocation.
type RawHostFunctionResult struct {
	XDR  string   `json:"xdr"`            // base64 ScVal
	Auth []string `json:"auth,omitempty"` // base64 SorobanAuthorizationEntry
}

type RawRestorePreamble struct {
	MinResourceFee  *DecimalString `json:"minResourceFee,omitempty"`
	TransactionData string         `json:"transactionData,omitempty"`
}

// Cost holds the CPU and memory counters of the simulated invocation.
type Cost struct {
	CPUInstructions json.Number `json:"cpuInsns"`
	MemoryBytes     json.Number `json:"memBytes"`
}

// DecimalString is a decimal quantity the node may send either quoted or bare.
// The text is kept verbatim.
type DecimalString string

func (d *DecimalString) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DecimalString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = DecimalString(n.String())
	return nil
}

func (d DecimalString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(d))
}

// LedgerSequence accepts a ledger number sent as a JSON number or string.
type LedgerSequence uint32

func (l *LedgerSequence) UnmarshalJSON(data []byte) error {
	text := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return err
	}
	*l = LedgerSequence(v)
	return nil
}
