package main

import (
	"fmt"
	"os"

	"MacroCompass/internal/di"
	"MacroCompass/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd serves the dashboard when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "macrocompass",
	Short: "Macro regime scoring service",
	Long: `MacroCompass fetches macro series, market prices and news sentiment,
scores them into a single risk regime in [-1, 1] and serves the result as an
API, a live websocket feed and an embedded dashboard.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	// Run application (blocks until signal)
	return app.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
