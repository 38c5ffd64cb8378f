// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"

	"github.com/dotandev/erst/internal/analytics"
	"github.com/dotandev/erst/internal/rpc"
	"github.com/dotandev/erst/internal/store"
)

// Cached simulations older than this are dropped on the next write.
const cacheRetention = 7 * 24 * time.Hour

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var printJSON bool

	cmd := &cobra.Command{
		Use:   "simulate <envelope | @file | ->",
		Short: "Simulate a transaction on the RPC node and cache the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			generic, envelope, err := parseEnvelope(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			sim, hash, err := simulate(cmd.Context(), opts, generic, envelope)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if printJSON {
				_, err := fmt.Fprintln(out, string(sim.Raw))
				return err
			}
			fmt.Fprintf(out, "Transaction: %s\n\n", hash)
			analytics.PrintResourceReport(out, analytics.NewResourceReport(sim.Outcome))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the raw simulateTransaction result")
	return cmd
}

// simulate runs simulateTransaction for envelope and caches the raw response
// under the transaction hash.
func simulate(ctx context.Context, opts *rootOptions, generic *txnbuild.GenericTransaction, envelope string) (*rpc.Simulation, string, error) {
	hash, err := hashOf(generic, opts.cfg.NetworkPassphrase)
	if err != nil {
		return nil, "", err
	}
	client, err := opts.client(ctx)
	if err != nil {
		return nil, "", err
	}

	stop := startSpinner("simulating")
	sim, err := client.SimulateEnvelope(ctx, envelope)
	stop()
	if err != nil {
		return nil, "", err
	}

	logger := log.DefaultLogger.WithFields(log.F{"tx": hash, "outcome": sim.Outcome.Kind().String()})
	if err := cacheSimulation(ctx, opts, hash, envelope, sim); err != nil {
		// cache failures are not fatal
		logger.WithField("error", err.Error()).Warn("could not cache simulation")
	}
	logger.Info("simulated transaction")
	return sim, hash, nil
}

func cacheSimulation(ctx context.Context, opts *rootOptions, hash, envelope string, sim *rpc.Simulation) error {
	s, err := opts.openStore()
	if err != nil || s == nil {
		return err
	}
	defer s.Close()
	if err := s.Put(ctx, store.Record{
		TxHash:       hash,
		Envelope:     envelope,
		Outcome:      sim.Outcome.Kind().String(),
		LatestLedger: sim.Outcome.Common().LatestLedger,
		Response:     sim.Raw,
	}); err != nil {
		return err
	}
	n, err := s.Prune(ctx, time.Now().Add(-cacheRetention))
	if err != nil {
		return err
	}
	if n > 0 {
		log.DefaultLogger.WithField("pruned", n).Debug("pruned stale simulations")
	}
	return nil
}

func loadCachedSimulation(ctx context.Context, opts *rootOptions, hash string) ([]byte, error) {
	s, err := opts.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no --simulation given and the simulation cache is disabled")
	}
	defer s.Close()
	rec, ok, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no cached simulation for transaction %s; run erst simulate first", hash)
	}
	return rec.Response, nil
}
