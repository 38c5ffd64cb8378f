// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"github.com/stellar/go/xdr"

	"github.com/dotandev/erst/internal/errors"
)

func decodeBase64[T any](field, s string) (T, error) {
	var v T
	if err := xdr.SafeUnmarshalBase64(s, &v); err != nil {
		return v, errors.WrapDecodeError(field, err)
	}
	return v, nil
}

func DecodeAuthEntry(s string) (xdr.SorobanAuthorizationEntry, error) {
	return decodeBase64[xdr.SorobanAuthorizationEntry]("auth entry", s)
}

func DecodeTransactionData(s string) (xdr.SorobanTransactionData, error) {
	return decodeBase64[xdr.SorobanTransactionData]("transactionData", s)
}

func DecodeReturnValue(s string) (xdr.ScVal, error) {
	return decodeBase64[xdr.ScVal]("result xdr", s)
}

// DecodeEvents decodes the base64 diagnostic events of any outcome.
func DecodeEvents(events []string) ([]xdr.DiagnosticEvent, error) {
	out := make([]xdr.DiagnosticEvent, 0, len(events))
	for _, e := range events {
		ev, err := decodeBase64[xdr.DiagnosticEvent]("event", e)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Encode returns the base64 XDR form of v.
func Encode(v any) (string, error) {
	return xdr.MarshalBase64(v)
}
