// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"github.com/stellar/go/xdr"
)

// Kind names an Outcome variant.
type Kind int

const (
	KindSuccess Kind = iota
	KindRestoreRequired
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRestoreRequired:
		return "restore required"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a simulation. It is one of *Success,
// *RestoreRequired or *Failure; callers branch with a type switch.
type Outcome interface {
	Kind() Kind
	Common() Envelope
	isOutcome()
}

// Envelope carries the fields every simulation response has.
type Envelope struct {
	ID           string
	LatestLedger uint32
	Events       []string // base64 DiagnosticEvent, never nil
}

// HostFunctionResult is the decoded outcome of the single host function invocation.
type HostFunctionResult struct {
	Auth   []xdr.SorobanAuthorizationEntry // never nil
	Retval xdr.ScVal
}

type Success struct {
	Envelope
	Cost            Cost
	MinResourceFee  string
	TransactionData xdr.SorobanTransactionData
	// Result is nil unless the node returned exactly one result.
	Result *HostFunctionResult
	// ResultCount is the number of results the node returned.
	ResultCount int
}

type RestorePreamble struct {
	MinResourceFee  string
	TransactionData xdr.SorobanTransactionData
}

// RestoreRequired means some footprint entries are archived. The preamble
// describes the restore transaction that must land before the invocation.
type RestoreRequired struct {
	Envelope
	RestorePreamble RestorePreamble
}

type Failure struct {
	Envelope
	Error string
}

func (*Success) Kind() Kind         { return KindSuccess }
func (*RestoreRequired) Kind() Kind { return KindRestoreRequired }
func (*Failure) Kind() Kind         { return KindFailure }

func (s *Success) Common() Envelope         { return s.Envelope }
func (r *RestoreRequired) Common() Envelope { return r.Envelope }
func (f *Failure) Common() Envelope         { return f.Envelope }

func (*Success) isOutcome()         {}
func (*RestoreRequired) isOutcome() {}
func (*Failure) isOutcome()         {}
