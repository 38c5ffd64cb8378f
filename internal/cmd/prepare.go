// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func newPrepareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <envelope | @file | ->",
		Short: "Simulate a transaction and assemble the result in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			generic, envelope, err := parseEnvelope(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			sim, _, err := simulate(ctx, opts, generic, envelope)
			if err != nil {
				return err
			}
			assembled, err := assemble(ctx, generic, opts.cfg.NetworkPassphrase, sim.Outcome)
			if err != nil {
				return err
			}
			return printAssembled(cmd.OutOrStdout(), cmd.ErrOrStderr(), assembled)
		},
	}
}
