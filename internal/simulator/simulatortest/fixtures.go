// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package simulatortest builds Soroban transactions and simulateTransaction
// responses for tests.
package simulatortest

import (
	"encoding/json"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/erst/internal/simulator"
)

const (
	Passphrase = network.TestNetworkPassphrase
	Sequence   = int64(56199647068161)
	BaseFee    = int64(100)
)

func scAddress(t *testing.T, address string) xdr.ScAddress {
	t.Helper()
	accountID := xdr.MustAddress(address)
	return xdr.ScAddress{
		Type:      xdr.ScAddressTypeScAddressTypeAccount,
		AccountId: &accountID,
	}
}

// InvokeOp returns an invoke-contract operation calling fn with no arguments.
func InvokeOp(t *testing.T, address, fn string) *txnbuild.InvokeHostFunction {
	t.Helper()
	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: scAddress(t, address),
				FunctionName:    xdr.ScSymbol(fn),
				Args:            nil,
			},
		},
		Auth: nil,
	}
}

// Transaction builds an unsigned transaction whose sequence number is exactly
// Sequence, with a text memo and fixed time bounds.
func Transaction(t *testing.T, source *keypair.Full, ops ...txnbuild.Operation) *txnbuild.Transaction {
	t.Helper()
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: source.Address(), Sequence: Sequence},
		IncrementSequenceNum: false,
		Operations:           ops,
		BaseFee:              BaseFee,
		Memo:                 txnbuild.MemoText("erst"),
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(0, 1893456000),
		},
	})
	require.NoError(t, err)
	return tx
}

// InvokeTransaction builds a single invoke-host-function transaction.
func InvokeTransaction(t *testing.T, source *keypair.Full) *txnbuild.Transaction {
	t.Helper()
	return Transaction(t, source, InvokeOp(t, source.Address(), "test"))
}

// AuthEntry returns an address-credentialed authorization entry for a call of
// "test" on address.
func AuthEntry(t *testing.T, address string, nonce int64) xdr.SorobanAuthorizationEntry {
	t.Helper()
	addr := scAddress(t, address)
	return xdr.SorobanAuthorizationEntry{
		Credentials: xdr.SorobanCredentials{
			Type: xdr.SorobanCredentialsTypeSorobanCredentialsAddress,
			Address: &xdr.SorobanAddressCredentials{
				Address:                   addr,
				Nonce:                     xdr.Int64(nonce),
				SignatureExpirationLedger: 1,
				Signature:                 xdr.ScVal{Type: xdr.ScValTypeScvVoid},
			},
		},
		RootInvocation: xdr.SorobanAuthorizedInvocation{
			Function: xdr.SorobanAuthorizedFunction{
				Type: xdr.SorobanAuthorizedFunctionTypeSorobanAuthorizedFunctionTypeContractFn,
				ContractFn: &xdr.InvokeContractArgs{
					ContractAddress: addr,
					FunctionName:    "test",
				},
			},
		},
	}
}

// TransactionData returns a resource descriptor whose footprint reads the
// account ledger entry of address.
func TransactionData(t *testing.T, address string, resourceFee int64) xdr.SorobanTransactionData {
	t.Helper()
	accountID := xdr.MustAddress(address)
	return xdr.SorobanTransactionData{
		Resources: xdr.SorobanResources{
			Footprint: xdr.LedgerFootprint{
				ReadOnly: []xdr.LedgerKey{{
					Type:    xdr.LedgerEntryTypeAccount,
					Account: &xdr.LedgerKeyAccount{AccountId: accountID},
				}},
			},
			Instructions: 4378462,
			WriteBytes:   7048,
		},
		ResourceFee: xdr.Int64(resourceFee),
	}
}

// U32 returns an ScVal holding v.
func U32(v uint32) xdr.ScVal {
	u := xdr.Uint32(v)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}
}

func MustEncode(t *testing.T, v any) string {
	t.Helper()
	s, err := xdr.MarshalBase64(v)
	require.NoError(t, err)
	return s
}

// SuccessResponse is a successful simulation of one invocation carrying auth,
// with minResourceFee "15".
func SuccessResponse(t *testing.T, address string, auth ...xdr.SorobanAuthorizationEntry) simulator.RawSimulateResponse {
	t.Helper()
	ledger := simulator.LedgerSequence(3)
	fee := simulator.DecimalString("15")
	encodedAuth := make([]string, 0, len(auth))
	for _, a := range auth {
		encodedAuth = append(encodedAuth, MustEncode(t, a))
	}
	return simulator.RawSimulateResponse{
		ID:              json.RawMessage(`1`),
		LatestLedger:    &ledger,
		Events:          []string{},
		Results:         []simulator.RawHostFunctionResult{{XDR: MustEncode(t, U32(0)), Auth: encodedAuth}},
		TransactionData: MustEncode(t, TransactionData(t, address, 15)),
		MinResourceFee:  &fee,
		Cost:            &simulator.Cost{CPUInstructions: "0", MemoryBytes: "0"},
	}
}

// MustJSON marshals v for feeding ParseSimulation or an RPC stub.
func MustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
