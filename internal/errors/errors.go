// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package errors holds the error taxonomy shared by the simulation classifier,
// the transaction assembler and the RPC transport.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse           = errors.New("malformed simulation response")
	ErrUnsupportedTransactionShape = errors.New("unsupported transaction shape")
	ErrResultCountMismatch         = errors.New("simulation result count mismatch")
	ErrUnsupportedOutcome          = errors.New("unsupported simulation outcome")
	ErrFeeOverflow                 = errors.New("fee overflow")
	ErrMissingPassphrase           = errors.New("network passphrase is required")
	ErrRPC                         = errors.New("rpc error")
	ErrIncompatibleNode            = errors.New("incompatible rpc node")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func WrapMalformedResponse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// WrapDecodeError marks a codec failure on field as a malformed response.
func WrapDecodeError(field string, err error) error {
	return fmt.Errorf("%w: decoding %s: %w", ErrMalformedResponse, field, err)
}

func WrapUnsupportedTransactionShape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedTransactionShape, fmt.Sprintf(format, args...))
}

func WrapResultCountMismatch(invocations, results int) error {
	return fmt.Errorf("%w: transaction has %d host function invocation(s), simulation returned %d result(s)",
		ErrResultCountMismatch, invocations, results)
}

func WrapUnsupportedOutcome(kind string) error {
	return fmt.Errorf("%w: expected a successful simulation, got %s", ErrUnsupportedOutcome, kind)
}

func WrapFeeOverflow(fee int64) error {
	return fmt.Errorf("%w: %d does not fit in a uint32 transaction fee", ErrFeeOverflow, fee)
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %s returned code %d: %s", ErrRPC, e.Method, e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return ErrRPC
}

func WrapRPCError(method string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRPC, method, err)
}

func WrapIncompatibleNode(version, constraint string) error {
	return fmt.Errorf("%w: node version %s does not satisfy %s", ErrIncompatibleNode, version, constraint)
}
