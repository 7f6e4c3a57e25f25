package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ComputeOracle/internal/di"
	"ComputeOracle/pkg/config"
	"ComputeOracle/pkg/server"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "compute-oracle",
	Short: "Self-improving compute spot price forecaster",
	Long: `compute-oracle forecasts GPU spot prices with a language-model oracle,
grades every forecast against the next observed price and recalibrates its
causal graph from the result.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

// buildApp loads config (YAML plus environment overrides) and wires the app.
func buildApp() (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
