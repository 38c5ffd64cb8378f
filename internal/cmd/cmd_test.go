// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/erst/internal/errors"
	"github.com/dotandev/erst/internal/simulator"
	"github.com/dotandev/erst/internal/simulator/simulatortest"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root, opts := newRootCmd()
	var out, status bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&status)
	root.SetArgs(args)
	err := execute(context.Background(), root, opts)
	return out.String(), status.String(), err
}

// simulationNode answers simulateTransaction with result and counts calls.
func simulationNode(t *testing.T, result any, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			ID     json.RawMessage `json:"id"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "simulateTransaction", req.Method)
		*calls++
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// traceCollector counts OTLP/HTTP trace exports.
func traceCollector(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var exports atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &exports
}

func writeSimulation(t *testing.T, raw simulator.RawSimulateResponse) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.json")
	require.NoError(t, os.WriteFile(path, simulatortest.MustJSON(t, raw), 0o600))
	return path
}

func decodeOutput(t *testing.T, out string) xdr.TransactionEnvelope {
	t.Helper()
	generic, err := txnbuild.TransactionFromXDR(strings.TrimSpace(out))
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)
	encoded, err := tx.Base64()
	require.NoError(t, err)
	var env xdr.TransactionEnvelope
	require.NoError(t, xdr.SafeUnmarshalBase64(encoded, &env))
	return env
}

func TestAssembleCommandFromFile(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	simPath := filepath.Join(t.TempDir(), "simulation.json")
	raw := simulatortest.SuccessResponse(t, kp.Address(), simulatortest.AuthEntry(t, kp.Address(), 1))
	require.NoError(t, os.WriteFile(simPath, simulatortest.MustJSON(t, raw), 0o600))

	out, status, err := runCmd(t, "assemble", envelope, "--simulation", simPath, "--cache=", "--network", "testnet")
	require.NoError(t, err)

	env := decodeOutput(t, out)
	assert.Equal(t, xdr.Uint32(115), env.V1.Tx.Fee)
	assert.Equal(t, xdr.SequenceNumber(simulatortest.Sequence), env.V1.Tx.SeqNum)
	assert.Len(t, env.V1.Tx.Operations[0].Body.InvokeHostFunctionOp.Auth, 1)
	assert.Contains(t, status, "fee:  115 stroops")
}

func TestAssembleCommandReadsEnvelopeFile(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	dir := t.TempDir()
	envPath := filepath.Join(dir, "tx.xdr")
	require.NoError(t, os.WriteFile(envPath, []byte(envelope+"\n"), 0o600))
	simPath := filepath.Join(dir, "simulation.json")
	require.NoError(t, os.WriteFile(simPath, simulatortest.MustJSON(t, simulatortest.SuccessResponse(t, kp.Address())), 0o600))

	out, _, err := runCmd(t, "assemble", "@"+envPath, "--simulation", simPath, "--cache=")
	require.NoError(t, err)
	assert.Equal(t, xdr.Uint32(115), decodeOutput(t, out).V1.Tx.Fee)
}

func TestAssembleCommandWithoutCache(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)

	_, _, err = runCmd(t, "assemble", envelope, "--cache=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache is disabled")
}

func TestPrepareCommandCachesSimulation(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	calls := 0
	node := simulationNode(t, simulatortest.SuccessResponse(t, kp.Address()), &calls)
	cache := filepath.Join(t.TempDir(), "cache", "simulations.db")

	out, _, err := runCmd(t, "prepare", envelope, "--rpc-url", node.URL, "--cache", cache)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	prepared := decodeOutput(t, out)
	assert.Equal(t, xdr.Uint32(115), prepared.V1.Tx.Fee)
	require.Equal(t, int32(1), prepared.V1.Tx.Ext.V)

	// assemble reuses the cached response without calling the node
	again, _, err := runCmd(t, "assemble", envelope, "--cache", cache)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, strings.TrimSpace(out), strings.TrimSpace(again))
}

func TestPrepareCommandRestoreRequired(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	raw := simulatortest.SuccessResponse(t, kp.Address())
	fee := simulator.DecimalString("4200")
	raw.RestorePreamble = &simulator.RawRestorePreamble{MinResourceFee: &fee, TransactionData: raw.TransactionData}
	calls := 0
	node := simulationNode(t, raw, &calls)

	_, _, err = runCmd(t, "prepare", envelope, "--rpc-url", node.URL, "--cache=")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOutcome))
	assert.Contains(t, err.Error(), "restore fee 4200")
}

func TestSimulateCommandReport(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	calls := 0
	node := simulationNode(t, simulatortest.SuccessResponse(t, kp.Address()), &calls)

	out, _, err := runCmd(t, "simulate", envelope, "--rpc-url", node.URL, "--cache=")
	require.NoError(t, err)
	assert.Contains(t, out, "Outcome:        success")
	assert.Contains(t, out, "Fee Impact: 15 stroops")

	out, _, err = runCmd(t, "simulate", envelope, "--rpc-url", node.URL, "--cache=", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"minResourceFee":"15"`)
}

func TestUnknownNetwork(t *testing.T) {
	_, _, err := runCmd(t, "version", "--network", "moon")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "erst dev\n", out)
}

func TestFailedCommandFlushesTraces(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	raw := simulatortest.SuccessResponse(t, kp.Address())
	fee := simulator.DecimalString("4200")
	raw.RestorePreamble = &simulator.RawRestorePreamble{MinResourceFee: &fee, TransactionData: raw.TransactionData}
	collector, exports := traceCollector(t)

	_, _, err = runCmd(t, "assemble", envelope, "--simulation", writeSimulation(t, raw), "--cache=", "--otlp-endpoint", collector.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOutcome))
	assert.GreaterOrEqual(t, exports.Load(), int32(1))
}

func TestTracesExportToInsecureHostPort(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, err := simulatortest.InvokeTransaction(t, kp).Base64()
	require.NoError(t, err)
	collector, exports := traceCollector(t)
	endpoint := strings.TrimPrefix(collector.URL, "http://")

	_, _, err = runCmd(t, "assemble", envelope,
		"--simulation", writeSimulation(t, simulatortest.SuccessResponse(t, kp.Address())),
		"--cache=", "--otlp-endpoint", endpoint, "--otlp-insecure")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, exports.Load(), int32(1))
}
