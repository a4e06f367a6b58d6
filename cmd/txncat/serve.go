package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mchalk/txncat/internal/config"
	"github.com/mchalk/txncat/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP server",
		Long: `Serve the local classifier and the Fina categorization proxy over HTTP.

The model is loaded once at startup; a load failure aborts the process.

Endpoints:
  GET  /health
  POST /ai/hf-classify
  POST /ai/fina-categorize`,
		RunE: runServe,
	}

	cmd.Flags().StringP("address", "a", "", "listen address (default 127.0.0.1:8010)")
	_ = viper.BindPFlag("server.address", cmd.Flags().Lookup("address"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	clf, cleanup, err := buildClassifier(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(clf, newCategorizer(cfg), cfg.Server.Address)
	return srv.Run(cmd.Context())
}
