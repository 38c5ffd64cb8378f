// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"
	"github.com/stellar/go/txnbuild"

	"github.com/dotandev/erst/internal/config"
	"github.com/dotandev/erst/internal/rpc"
	"github.com/dotandev/erst/internal/store"
	"github.com/dotandev/erst/internal/telemetry"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath   string
	rpcURL       string
	networkName  string
	passphrase   string
	cachePath    string
	otlpEndpoint string
	otlpInsecure bool
	rpcVersion   string
	verbose      bool

	cfg      config.Config
	shutdown func(context.Context) error
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "erst",
		Short:         "Simulate Soroban transactions and assemble them for signing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.rpcURL, "rpc-url", "", "Soroban RPC endpoint")
	flags.StringVar(&opts.networkName, "network", "", "network name: testnet, mainnet or futurenet")
	flags.StringVar(&opts.passphrase, "network-passphrase", "", "network passphrase (overrides --network)")
	flags.StringVar(&opts.cachePath, "cache", "", "sqlite simulation cache path; empty string disables")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector, host:port or http(s) URL")
	flags.BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "disable TLS for a host:port collector")
	flags.StringVar(&opts.rpcVersion, "rpc-version", "", "version constraint the RPC node must satisfy")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSimulateCmd(opts),
		newAssembleCmd(opts),
		newPrepareCmd(opts),
		newVersionCmd(),
	)
	return root, opts
}

func Execute() error {
	root, opts := newRootCmd()
	return execute(context.Background(), root, opts)
}

// execute runs root and flushes telemetry, also when the command fails.
func execute(ctx context.Context, root *cobra.Command, opts *rootOptions) error {
	err := root.ExecuteContext(ctx)
	if opts.shutdown != nil {
		if serr := opts.shutdown(ctx); serr != nil {
			log.DefaultLogger.WithField("error", serr.Error()).Warn("could not flush telemetry")
		}
		opts.shutdown = nil
	}
	return err
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("rpc-url") {
		cfg.RPCURL = o.rpcURL
	}
	if flags.Changed("network") {
		p, ok := config.Network(o.networkName)
		if !ok {
			return fmt.Errorf("unknown network %q", o.networkName)
		}
		cfg.NetworkPassphrase = p
	}
	if flags.Changed("network-passphrase") {
		cfg.NetworkPassphrase = o.passphrase
	}
	if flags.Changed("cache") {
		cfg.CachePath = o.cachePath
	}
	if flags.Changed("otlp-endpoint") {
		cfg.OTLPEndpoint = o.otlpEndpoint
	}
	if flags.Changed("otlp-insecure") {
		cfg.OTLPInsecure = o.otlpInsecure
	}
	if flags.Changed("rpc-version") {
		cfg.RPCVersion = o.rpcVersion
	}
	cfg.Verbose = cfg.Verbose || o.verbose
	o.cfg = cfg

	if cfg.Verbose {
		log.DefaultLogger.SetLevel(logrus.DebugLevel)
	} else {
		log.DefaultLogger.SetLevel(logrus.WarnLevel)
	}

	o.shutdown, err = telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName: telemetry.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	return err
}

func (o *rootOptions) client(ctx context.Context) (*rpc.Client, error) {
	client := rpc.NewClient(o.cfg.RPCURL, rpc.WithTimeout(o.cfg.Timeout))
	if o.cfg.RPCVersion != "" {
		info, err := client.CheckVersion(ctx, o.cfg.RPCVersion)
		if err != nil {
			return nil, err
		}
		log.DefaultLogger.WithField("version", info.Version).Debug("rpc node version accepted")
	}
	return client, nil
}

// openStore returns nil when caching is disabled.
func (o *rootOptions) openStore() (*store.SimulationStore, error) {
	if o.cfg.CachePath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(o.cfg.CachePath), 0o755); err != nil {
		return nil, err
	}
	return store.Open(o.cfg.CachePath)
}

// readInput returns arg, the contents of the file named by "@path", or stdin for "-".
func readInput(arg string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	switch {
	case arg == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(arg[1:])
	default:
		return strings.TrimSpace(arg), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func parseEnvelope(arg string, stdin io.Reader) (*txnbuild.GenericTransaction, string, error) {
	envelope, err := readInput(arg, stdin)
	if err != nil {
		return nil, "", err
	}
	generic, err := txnbuild.TransactionFromXDR(envelope)
	if err != nil {
		return nil, "", fmt.Errorf("parse transaction envelope: %w", err)
	}
	return generic, envelope, nil
}

func hashOf(generic *txnbuild.GenericTransaction, passphrase string) (string, error) {
	if tx, ok := generic.Transaction(); ok {
		return tx.HashHex(passphrase)
	}
	if fb, ok := generic.FeeBump(); ok {
		return fb.HashHex(passphrase)
	}
	return "", fmt.Errorf("envelope holds no transaction")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the erst version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "erst %s\n", Version)
			return err
		},
	}
}
