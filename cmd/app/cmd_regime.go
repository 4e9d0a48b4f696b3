package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"MacroCompass/internal/di"

	"github.com/spf13/cobra"
)

// regimeCmd computes one regime without starting the server.
var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Compute the current regime once and print it as JSON",
	Long: `Run the full pipeline once, bypassing the cache and every backend.
Providers without credentials fall back to their fixed values, so the command
works offline.

Examples:
  macrocompass regime
  macrocompass regime --compact --timeout 30s`,
	RunE: runRegime,
}

var (
	regimeTimeout time.Duration
	regimeCompact bool
)

func init() {
	rootCmd.AddCommand(regimeCmd)

	regimeCmd.Flags().DurationVar(&regimeTimeout, "timeout", 2*time.Minute, "Overall deadline for the computation")
	regimeCmd.Flags().BoolVar(&regimeCompact, "compact", false, "Print single-line JSON")
}

func runRegime(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the JSON.
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	engine, err := di.InitializeRegimeEngine(cfg)
	if err != nil {
		return fmt.Errorf("pipeline initialization failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), regimeTimeout)
	defer cancel()

	res, err := engine.CalculateRegime(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if !regimeCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
