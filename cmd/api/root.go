package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/evcharge/charging-stations-api/internal/platform/config"
	"github.com/evcharge/charging-stations-api/internal/platform/logging"
)

type rootFlags struct {
	envFile string
	addr    string
}

type runtime struct {
	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:           "api",
		Short:         "Charging stations REST gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.envFile)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			rt.cfg = cfg
			rt.logger = logger.With().Str("env", cfg.Environment).Logger()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), rt, flags.addr)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.PersistentFlags().StringVar(&flags.addr, "addr", "", "listen address (defaults to :$PORT)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), rt, flags.addr)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rt.cfg.Redacted())
		},
	})
	return rootCmd
}
