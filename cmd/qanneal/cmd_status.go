package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qanneal/internal/config"
	"qanneal/internal/credentials"
	"qanneal/internal/visualize"
)

var statusFlags struct {
	configPath string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration and environment readiness",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.configPath, "config", "", "Path to YAML/JSON config file")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if statusFlags.configPath != "" {
		loaded, err := config.LoadFromPath(statusFlags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:         %s\n", cfg.Backend)
	fmt.Fprintf(out, "Default reads:   %d\n", cfg.DefaultNumReads)
	fmt.Fprintf(out, "Default time:    %dus\n", cfg.DefaultAnnealingTime)
	if cfg.AnnealingTimeBudgetUS > 0 {
		fmt.Fprintf(out, "Time budget:     %dus\n", cfg.AnnealingTimeBudgetUS)
	} else {
		fmt.Fprintf(out, "Time budget:     unlimited\n")
	}
	if cfg.DBPath != "" {
		fmt.Fprintf(out, "Store:           sqlite (%s)\n", cfg.DBPath)
	} else {
		fmt.Fprintf(out, "Store:           in-memory\n")
	}

	token, source, err := credentials.Resolve()
	switch {
	case err != nil:
		fmt.Fprintf(out, "API token:       error (%v)\n", err)
	case token == "":
		fmt.Fprintf(out, "API token:       not configured\n")
	default:
		fmt.Fprintf(out, "API token:       present (from %s)\n", source)
	}
	if cfg.Backend == config.BackendHardware {
		fmt.Fprintf(out, "SAPI endpoint:   %s\n", cfg.SAPIBaseURL)
		fmt.Fprintf(out, "Solver:          %s\n", cfg.SolverName)
	}

	if visualize.BrowserAvailable() {
		fmt.Fprintf(out, "PNG rendering:   available\n")
	} else {
		fmt.Fprintf(out, "PNG rendering:   unavailable (no browser found; visualizations fall back to SVG)\n")
	}
	return nil
}
