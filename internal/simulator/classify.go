// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"bytes"
	"encoding/json"

	"github.com/stellar/go/xdr"

	"github.com/dotandev/erst/internal/errors"
)

// ParseSimulation decodes the JSON result of simulateTransaction and classifies it.
func ParseSimulation(data []byte) (Outcome, error) {
	var raw RawSimulateResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapMalformedResponse("invalid json: %v", err)
	}
	return Classify(raw)
}

// Classify interprets raw as exactly one Outcome variant. It does not modify raw.
func Classify(raw RawSimulateResponse) (Outcome, error) {
	env, err := envelopeOf(raw)
	if err != nil {
		return nil, err
	}

	if raw.Error != "" {
		return &Failure{Envelope: env, Error: raw.Error}, nil
	}

	// Restoration preempts normal execution: the outer fee, data, cost and
	// results describe an invocation that cannot run yet.
	if p := raw.RestorePreamble; p != nil {
		if p.TransactionData == "" || p.MinResourceFee == nil {
			return nil, errors.WrapMalformedResponse("restorePreamble requires minResourceFee and transactionData")
		}
		data, err := DecodeTransactionData(p.TransactionData)
		if err != nil {
			return nil, err
		}
		return &RestoreRequired{
			Envelope: env,
			RestorePreamble: RestorePreamble{
				MinResourceFee:  string(*p.MinResourceFee),
				TransactionData: data,
			},
		}, nil
	}

	if raw.TransactionData == "" || raw.MinResourceFee == nil {
		return nil, errors.WrapMalformedResponse("response has neither error nor transactionData/minResourceFee")
	}
	data, err := DecodeTransactionData(raw.TransactionData)
	if err != nil {
		return nil, err
	}

	success := &Success{
		Envelope:        env,
		MinResourceFee:  string(*raw.MinResourceFee),
		TransactionData: data,
		ResultCount:     len(raw.Results),
	}
	if raw.Cost != nil {
		success.Cost = *raw.Cost
	}
	if len(raw.Results) == 1 {
		result, err := decodeResult(raw.Results[0])
		if err != nil {
			return nil, err
		}
		success.Result = result
	}
	return success, nil
}

func envelopeOf(raw RawSimulateResponse) (Envelope, error) {
	id, err := parseID(raw.ID)
	if err != nil {
		return Envelope{}, err
	}
	if raw.LatestLedger == nil {
		return Envelope{}, errors.WrapMalformedResponse("missing latestLedger")
	}
	events := make([]string, len(raw.Events))
	copy(events, raw.Events)
	return Envelope{
		ID:           id,
		LatestLedger: uint32(*raw.LatestLedger),
		Events:       events,
	}, nil
}

func parseID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errors.WrapMalformedResponse("missing id")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", errors.WrapMalformedResponse("invalid id: %v", err)
		}
		return s, nil
	}
	return string(trimmed), nil
}

func decodeResult(r RawHostFunctionResult) (*HostFunctionResult, error) {
	auth := make([]xdr.SorobanAuthorizationEntry, 0, len(r.Auth))
	for _, s := range r.Auth {
		entry, err := DecodeAuthEntry(s)
		if err != nil {
			return nil, err
		}
		auth = append(auth, entry)
	}
	retval, err := DecodeReturnValue(r.XDR)
	if err != nil {
		return nil, err
	}
	return &HostFunctionResult{Auth: auth, Retval: retval}, nil
}
