// qanneal exposes quantum-annealing problem construction and solving as MCP
// tools, backed by a local simulated annealer or a remote hardware solver.
//
// Usage:
//
//	qanneal serve [--config=<path>] [--backend=<simulator|hardware>] [--db=<path>]
//	qanneal solve -f <problem.json> [--reads=N] [--time=US]
//	qanneal status [--config=<path>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "qanneal",
	Short: "Quantum annealing tool server for QUBO and Ising problems",
	Long: "qanneal builds and solves QUBO and Ising optimization problems\n" +
		"over MCP, using a local simulated annealer or a remote quantum solver.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
