// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package assembler merges a successful Soroban simulation into the
// transaction that was simulated, producing a new unsigned transaction.
package assembler

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/dotandev/erst/internal/errors"
	"github.com/dotandev/erst/internal/simulator"
)

// Assembled is the rebuilt transaction, ready for signing.
type Assembled struct {
	Transaction *txnbuild.Transaction
	// Hash is the hex transaction hash under the network passphrase.
	Hash string
	Fee  int64
}

// Assemble attaches the authorization entries and resource data of outcome to a
// copy of tx and raises its fee by the simulated minimum resource fee. tx must
// hold exactly one invoke-host-function operation and outcome must be a
// *simulator.Success. tx is never modified.
func Assemble(tx *txnbuild.Transaction, passphrase string, outcome simulator.Outcome) (*Assembled, error) {
	if passphrase == "" {
		return nil, errors.ErrMissingPassphrase
	}
	success, ok := outcome.(*simulator.Success)
	if !ok {
		kind := "nil outcome"
		if outcome != nil {
			kind = outcome.Kind().String()
		}
		return nil, errors.WrapUnsupportedOutcome(kind)
	}
	if tx == nil {
		return nil, errors.WrapUnsupportedTransactionShape("nil transaction")
	}

	original, err := copyEnvelope(tx)
	if err != nil {
		return nil, err
	}
	if original.Type != xdr.EnvelopeTypeEnvelopeTypeTx || original.V1 == nil {
		return nil, errors.WrapUnsupportedTransactionShape("envelope type %s is not a v1 transaction", original.Type)
	}
	src := original.V1.Tx

	if len(src.Operations) != 1 || src.Operations[0].Body.Type != xdr.OperationTypeInvokeHostFunction {
		return nil, errors.WrapUnsupportedTransactionShape("must contain exactly one invoke-host-function operation, got %d operation(s)", len(src.Operations))
	}
	invoke := src.Operations[0].Body.InvokeHostFunctionOp
	if invoke == nil {
		return nil, errors.WrapUnsupportedTransactionShape("invoke-host-function operation has no body")
	}

	// An InvokeHostFunctionOp carries exactly one host function. A simulation
	// without results is accepted and attaches no authorization.
	if success.ResultCount > 1 {
		return nil, errors.WrapResultCountMismatch(1, success.ResultCount)
	}
	auth := []xdr.SorobanAuthorizationEntry{}
	if success.Result != nil {
		auth = append(auth, success.Result.Auth...)
	}

	fee := ResourceAdjustedFee(int64(src.Fee), success.MinResourceFee)
	if fee > math.MaxUint32 {
		return nil, errors.WrapFeeOverflow(fee)
	}

	sorobanData := success.TransactionData
	op := xdr.Operation{
		SourceAccount: src.Operations[0].SourceAccount,
		Body: xdr.OperationBody{
			Type: xdr.OperationTypeInvokeHostFunction,
			InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
				HostFunction: invoke.HostFunction,
				Auth:         auth,
			},
		},
	}

	// The sequence number is carried over as is; nothing downstream bumps it.
	env := xdr.TransactionEnvelope{
		Type: xdr.EnvelopeTypeEnvelopeTypeTx,
		V1: &xdr.TransactionV1Envelope{
			Tx: xdr.Transaction{
				SourceAccount: src.SourceAccount,
				Fee:           xdr.Uint32(fee),
				SeqNum:        src.SeqNum,
				Cond:          src.Cond,
				Memo:          src.Memo,
				Operations:    []xdr.Operation{op},
				Ext: xdr.TransactionExt{
					V:           1,
					SorobanData: &sorobanData,
				},
			},
		},
	}

	out, err := fromEnvelope(env)
	if err != nil {
		return nil, err
	}
	hash, err := out.HashHex(passphrase)
	if err != nil {
		return nil, err
	}
	return &Assembled{Transaction: out, Hash: hash, Fee: fee}, nil
}

// ResourceAdjustedFee returns max(classicFee + minResourceFee, classicFee).
// minResourceFee is read with ParseFee.
func ResourceAdjustedFee(classicFee int64, minResourceFee string) int64 {
	resourceFee, _ := ParseFee(minResourceFee)
	if resourceFee > math.MaxInt64-classicFee {
		return math.MaxInt64
	}
	return max(classicFee+resourceFee, classicFee)
}

// ParseFee reads the leading base-10 integer of s after any leading
// whitespace, so "15.5" and "15 stroops" read as 15. A string with no leading
// digits reads as 0. Values past the int64 range saturate. exact reports
// whether s was a plain integer with nothing to ignore.
func ParseFee(s string) (fee int64, exact bool) {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(trimmed) && (trimmed[end] == '+' || trimmed[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	fee, err := strconv.ParseInt(trimmed[:end], 10, 64)
	if err != nil {
		// only a range error is possible here; ParseInt saturates fee
		return fee, false
	}
	return fee, end == len(s)
}

// copyEnvelope returns a deep copy of tx's envelope so nothing in the output
// aliases the input.
func copyEnvelope(tx *txnbuild.Transaction) (xdr.TransactionEnvelope, error) {
	var env xdr.TransactionEnvelope
	encoded, err := tx.Base64()
	if err != nil {
		return env, err
	}
	if err := xdr.SafeUnmarshalBase64(encoded, &env); err != nil {
		return env, err
	}
	return env, nil
}

func fromEnvelope(env xdr.TransactionEnvelope) (*txnbuild.Transaction, error) {
	encoded, err := xdr.MarshalBase64(env)
	if err != nil {
		return nil, err
	}
	generic, err := txnbuild.TransactionFromXDR(encoded)
	if err != nil {
		return nil, err
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, errors.WrapUnsupportedTransactionShape("rebuilt envelope is not a transaction")
	}
	return tx, nil
}

// AssembleGeneric unwraps a parsed envelope and assembles it. Fee-bump
// envelopes are rejected.
func AssembleGeneric(generic *txnbuild.GenericTransaction, passphrase string, outcome simulator.Outcome) (*Assembled, error) {
	if _, ok := generic.FeeBump(); ok {
		return nil, errors.WrapUnsupportedTransactionShape("fee-bump transactions cannot be assembled")
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, errors.WrapUnsupportedTransactionShape("envelope holds no transaction")
	}
	return Assemble(tx, passphrase, outcome)
}
