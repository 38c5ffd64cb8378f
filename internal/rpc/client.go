// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package rpc talks JSON-RPC 2.0 to a Soroban RPC node.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dotandev/erst/internal/errors"
	"github.com/dotandev/erst/internal/simulator"
)

const tracerName = "github.com/dotandev/erst/internal/rpc"

// Client is a Soroban RPC client. It is safe for concurrent use.
type Client struct {
	url        string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *log.Entry
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient = &http.Client{Timeout: d} }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) { cl.tracer = tp.Tracer(tracerName) }
}

func WithLogger(l *log.Entry) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tracer:     otel.Tracer(tracerName),
		logger:     log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Simulation is the raw and classified result of simulateTransaction.
type Simulation struct {
	Raw     json.RawMessage
	Outcome simulator.Outcome
}

// SimulateTransaction asks the node to simulate tx without submitting it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *txnbuild.Transaction) (*Simulation, error) {
	envelope, err := tx.Base64()
	if err != nil {
		return nil, err
	}
	return c.SimulateEnvelope(ctx, envelope)
}

// SimulateEnvelope simulates a base64 transaction envelope.
func (c *Client) SimulateEnvelope(ctx context.Context, envelope string) (*Simulation, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "simulateTransaction", simulator.SimulateRequest{Transaction: envelope}, &raw); err != nil {
		return nil, err
	}
	outcome, err := simulator.ParseSimulation(raw)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(log.F{
		"outcome":       outcome.Kind().String(),
		"latest_ledger": outcome.Common().LatestLedger,
	}).Debug("simulation classified")
	return &Simulation{Raw: raw, Outcome: outcome}, nil
}

type NetworkInfo struct {
	Passphrase      string `json:"passphrase"`
	ProtocolVersion int    `json:"protocolVersion"`
	FriendbotURL    string `json:"friendbotUrl,omitempty"`
}

func (c *Client) GetNetwork(ctx context.Context) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.call(ctx, "getNetwork", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, method string, params, reply any) error {
	ctx, span := c.tracer.Start(ctx, "rpc."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", method),
	)

	err := c.do(ctx, method, params, reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithFields(log.F{"method": method, "error": err.Error()}).Warn("rpc call failed")
	}
	return err
}

func (c *Client) do(ctx context.Context, method string, params, reply any) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return errors.WrapRPCError(method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.WrapRPCError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("method", method).Debug("rpc request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapRPCError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WrapRPCError(method, fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			return &errors.RPCError{Method: method, Code: int(rpcErr.Code), Message: rpcErr.Message}
		}
		return errors.WrapRPCError(method, err)
	}
	return nil
}
