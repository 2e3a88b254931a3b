package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haimbb47/SkillForge/fhevmClient/api"
	"github.com/haimbb47/SkillForge/fhevmClient/config"
	"github.com/haimbb47/SkillForge/fhevmClient/controller"
	"github.com/haimbb47/SkillForge/fhevmClient/db"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/keycache"
	"github.com/haimbb47/SkillForge/fhevmClient/logger"
	"github.com/haimbb47/SkillForge/fhevmClient/metrics"
	"github.com/haimbb47/SkillForge/fhevmClient/network"
	"github.com/haimbb47/SkillForge/fhevmClient/relayersdk"
	"github.com/haimbb47/SkillForge/fhevmClient/session"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(versionCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the node home",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := cmd.Flags().GetString(flagHome)
			if err != nil {
				return err
			}
			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			cfg.NodeHome = home
			if err := config.Save(cfg, home); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", home)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Build the fhevm session and serve its state over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.Init(*cfg)

			mockChains, err := cfg.GetMockChains()
			if err != nil {
				return err
			}

			database, err := db.OpenFileDB(config.DatabaseDir(cfg), cfg.DatabaseFile, true)
			if err != nil {
				// The key material cache degrades to a no-op without a database.
				log.Warn().Err(err).Msg("key material cache unavailable")
				database = nil
			} else {
				defer database.Close()
			}

			m := metrics.New(prometheus.DefaultRegisterer)
			cache := keycache.New(database, log).WithObserver(m)

			retry := fherrors.DefaultRetryConfig()
			retry.MaxAttempts = cfg.MaxRetries
			retry.InitialDelay = cfg.RetryBackoff()

			// No bundle source: this host has no runtime able to execute the
			// relayer SDK, so production construction reports an environment
			// error and mock nodes need a builder.
			loader := relayersdk.NewLoader(relayersdk.NewHandle(), nil, cfg.RelayerSDKURL, logger.TraceTo(log), log)

			factory := session.NewFactory(session.FactoryConfig{
				Resolver: network.NewResolver(retry, log),
				Prober:   network.NewProber(log),
				Loader:   loader,
				Cache:    cache,
				Trace:    logger.TraceTo(log),
				Logger:   log,
			})

			ctrl := controller.New(controller.Config{
				Factory:    factory,
				MockChains: mockChains,
				Enabled:    cfg.IsEnabled(),
				Observer:   m,
				Logger:     log,
			})
			defer ctrl.Close()

			server := api.NewServer(log, cfg.QueryServerPort, ctrl, prometheus.DefaultGatherer)
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctrl.Update(network.URLTarget(cfg.RPCURL), cfg.ChainID)
			log.Info().Str("rpc_url", cfg.RPCURL).Int("port", cfg.QueryServerPort).Msg("skillforged started")

			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

func resolveCmd() *cobra.Command {
	var (
		rpcURL  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an RPC endpoint to a network descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if rpcURL == "" {
				rpcURL = cfg.RPCURL
			}
			mockChains, err := cfg.GetMockChains()
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout stays valid JSON.
			log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			desc, err := network.NewResolver(nil, log).Resolve(ctx, network.URLTarget(rpcURL), mockChains)
			if err != nil {
				return err
			}

			out := resolveOutput{Descriptor: desc}
			if desc.IsMock && desc.RPCURL != "" {
				md, err := network.NewProber(log).TryFetchMockMetadata(ctx, desc.RPCURL)
				if err != nil {
					out.ProbeError = err.Error()
				}
				out.RelayerMetadata = md
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "RPC endpoint to resolve (default: rpc_url from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "overall timeout")
	return cmd
}

type resolveOutput struct {
	*network.Descriptor
	RelayerMetadata *network.RelayerMetadata `json:"relayer_metadata,omitempty"`
	ProbeError      string                   `json:"probe_error,omitempty"`
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print skillforged version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", "skillforged")
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
		},
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
