// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dotandev/erst/internal/assembler"
	"github.com/dotandev/erst/internal/errors"
	"github.com/dotandev/erst/internal/simulator"
	"github.com/dotandev/erst/internal/telemetry"
)

func newAssembleCmd(opts *rootOptions) *cobra.Command {
	var simulationPath string

	cmd := &cobra.Command{
		Use:   "assemble <envelope | @file | ->",
		Short: "Merge a simulation into a transaction, producing an unsigned envelope",
		Long: `Merge the authorization entries, resource data and resource fee of a
successful simulation into the transaction. The simulation is read from
--simulation, or from the cache filled by "erst simulate".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			generic, _, err := parseEnvelope(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			var raw []byte
			if simulationPath != "" {
				raw, err = os.ReadFile(simulationPath)
			} else {
				var hash string
				if hash, err = hashOf(generic, opts.cfg.NetworkPassphrase); err == nil {
					raw, err = loadCachedSimulation(ctx, opts, hash)
				}
			}
			if err != nil {
				return err
			}

			outcome, err := simulator.ParseSimulation(raw)
			if err != nil {
				return err
			}
			assembled, err := assemble(ctx, generic, opts.cfg.NetworkPassphrase, outcome)
			if err != nil {
				return err
			}
			return printAssembled(cmd.OutOrStdout(), cmd.ErrOrStderr(), assembled)
		},
	}
	cmd.Flags().StringVar(&simulationPath, "simulation", "", "file holding a simulateTransaction JSON result")
	return cmd
}

// assemble branches on the outcome kind and merges a success into generic.
func assemble(ctx context.Context, generic *txnbuild.GenericTransaction, passphrase string, outcome simulator.Outcome) (*assembler.Assembled, error) {
	_, span := telemetry.Tracer("github.com/dotandev/erst/internal/cmd").Start(ctx, "assemble")
	defer span.End()
	span.SetAttributes(attribute.String("simulation.outcome", outcome.Kind().String()))

	switch o := outcome.(type) {
	case *simulator.Failure:
		err := fmt.Errorf("simulation failed: %s: %w", o.Error, errors.WrapUnsupportedOutcome(o.Kind().String()))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	case *simulator.RestoreRequired:
		err := fmt.Errorf("archived ledger entries must be restored first (restore fee %s): %w",
			o.RestorePreamble.MinResourceFee, errors.WrapUnsupportedOutcome(o.Kind().String()))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	case *simulator.Success:
		if fee, exact := assembler.ParseFee(o.MinResourceFee); !exact {
			log.DefaultLogger.WithFields(log.F{"min_resource_fee": o.MinResourceFee, "used": fee}).
				Warn("minResourceFee is not a plain integer; using its leading digits")
		}
	}

	assembled, err := assembler.AssembleGeneric(generic, passphrase, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("tx.fee", assembled.Fee), attribute.String("tx.hash", assembled.Hash))
	return assembled, nil
}

// printAssembled writes the envelope to out and a summary to status.
func printAssembled(out, status io.Writer, assembled *assembler.Assembled) error {
	envelope, err := assembled.Transaction.Base64()
	if err != nil {
		return err
	}
	fmt.Fprintf(status, "hash: %s\nfee:  %d stroops\n", assembled.Hash, assembled.Fee)
	_, err = fmt.Fprintln(out, envelope)
	return err
}
