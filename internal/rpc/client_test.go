// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dotandev/erst/internal/errors"
	"github.com/dotandev/erst/internal/simulator"
	"github.com/dotandev/erst/internal/simulator/simulatortest"
)

type rpcRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// newNode serves canned results keyed by method name.
func newNode(t *testing.T, results map[string]any, seen *[]rpcRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = append(*seen, req)
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		result, ok := results[req.Method]
		switch {
		case !ok:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		default:
			if e, isErr := result.(rpcFailure); isErr {
				resp["error"] = map[string]any{"code": e.code, "message": e.message}
			} else {
				resp["result"] = result
			}
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type rpcFailure struct {
	code    int
	message string
}

func TestSimulateTransaction(t *testing.T) {
	kp := keypair.MustRandom()
	tx := simulatortest.InvokeTransaction(t, kp)
	auth := simulatortest.AuthEntry(t, kp.Address(), 1234)
	var seen []rpcRequest
	node := newNode(t, map[string]any{
		"simulateTransaction": simulatortest.SuccessResponse(t, kp.Address(), auth),
	}, &seen)

	sim, err := NewClient(node.URL).SimulateTransaction(context.Background(), tx)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "2.0", seen[0].Version)
	assert.Equal(t, "simulateTransaction", seen[0].Method)
	var params simulator.SimulateRequest
	require.NoError(t, json.Unmarshal(seen[0].Params, &params))
	blob, err := tx.Base64()
	require.NoError(t, err)
	assert.Equal(t, blob, params.Transaction)

	success, ok := sim.Outcome.(*simulator.Success)
	require.True(t, ok)
	assert.Equal(t, "15", success.MinResourceFee)
	require.Len(t, success.Result.Auth, 1)
	assert.NotEmpty(t, sim.Raw)
}

func TestSimulateTransactionFailureOutcome(t *testing.T) {
	kp := keypair.MustRandom()
	node := newNode(t, map[string]any{
		"simulateTransaction": map[string]any{
			"id":           1,
			"latestLedger": 10,
			"error":        "HostError: Error(WasmVm, MissingValue)",
		},
	}, nil)

	sim, err := NewClient(node.URL).SimulateTransaction(context.Background(), simulatortest.InvokeTransaction(t, kp))
	require.NoError(t, err)
	failure, ok := sim.Outcome.(*simulator.Failure)
	require.True(t, ok)
	assert.Contains(t, failure.Error, "MissingValue")
	assert.Empty(t, failure.Events)
}

func TestSimulateTransactionMalformed(t *testing.T) {
	kp := keypair.MustRandom()
	node := newNode(t, map[string]any{
		"simulateTransaction": map[string]any{"latestLedger": 10},
	}, nil)

	_, err := NewClient(node.URL).SimulateTransaction(context.Background(), simulatortest.InvokeTransaction(t, kp))
	assert.True(t, errors.Is(err, errors.ErrMalformedResponse))
}

func TestRPCErrorObject(t *testing.T) {
	node := newNode(t, map[string]any{
		"getNetwork": rpcFailure{code: 404, message: "not found"},
	}, nil)

	_, err := NewClient(node.URL).GetNetwork(context.Background())
	require.Error(t, err)
	var rpcErr *errors.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 404, rpcErr.Code)
	assert.Equal(t, "getNetwork", rpcErr.Method)
	assert.True(t, errors.Is(err, errors.ErrRPC))
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetNetwork(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRPC))
	assert.Contains(t, err.Error(), "502")
}

func TestGetNetwork(t *testing.T) {
	node := newNode(t, map[string]any{
		"getNetwork": map[string]any{
			"passphrase":      simulatortest.Passphrase,
			"protocolVersion": 22,
		},
	}, nil)

	info, err := NewClient(node.URL).GetNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simulatortest.Passphrase, info.Passphrase)
	assert.Equal(t, 22, info.ProtocolVersion)
}

func TestCallRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	node := newNode(t, map[string]any{
		"getNetwork": map[string]any{"passphrase": simulatortest.Passphrase},
	}, nil)
	client := NewClient(node.URL, WithTracerProvider(tp))

	_, err := client.GetNetwork(context.Background())
	require.NoError(t, err)
	_, err = client.GetVersionInfo(context.Background())
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "rpc.getNetwork", spans[0].Name())
	assert.Equal(t, "rpc.getVersionInfo", spans[1].Name())
	assert.Len(t, spans[1].Events(), 1)
}

func TestCheckVersion(t *testing.T) {
	node := newNode(t, map[string]any{
		"getVersionInfo": VersionInfo{Version: "21.4.1-a2f4be5b", ProtocolVersion: 21},
	}, nil)
	client := NewClient(node.URL)

	info, err := client.CheckVersion(context.Background(), DefaultVersionConstraint)
	require.NoError(t, err)
	assert.Equal(t, 21, info.ProtocolVersion)

	_, err = client.CheckVersion(context.Background(), ">= 22.0.0")
	assert.True(t, errors.Is(err, errors.ErrIncompatibleNode))
}

func TestSatisfiesConstraint(t *testing.T) {
	assert.NoError(t, SatisfiesConstraint("v20.0.0", DefaultVersionConstraint))
	assert.NoError(t, SatisfiesConstraint("23.0.4-5a1f4a9b", DefaultVersionConstraint))
	assert.True(t, errors.Is(SatisfiesConstraint("0.9.0", DefaultVersionConstraint), errors.ErrIncompatibleNode))
	assert.True(t, errors.Is(SatisfiesConstraint("garbage", DefaultVersionConstraint), errors.ErrIncompatibleNode))
	assert.Error(t, SatisfiesConstraint("1.0.0", "not a constraint"))
}
