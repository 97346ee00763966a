package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"qanneal/internal/anneal"
	"qanneal/internal/config"
	"qanneal/internal/credentials"
	"qanneal/internal/logging"
	mcpserver "qanneal/internal/mcp"
	"qanneal/internal/registry"
	"qanneal/internal/sapi"
)

var serveFlags struct {
	configPath string
	backend    string
	dbPath     string
	seed       int64
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout. MCP clients connect by spawning
this process and speaking the protocol on its standard streams.

The server monitors for parent process death. When the client disconnects
or restarts, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.configPath, "config", "", "Path to YAML/JSON config file")
	serveCmd.Flags().StringVar(&serveFlags.backend, "backend", "", "Solver backend: simulator or hardware (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.dbPath, "db", "", "SQLite path for persistent problem/result storage (overrides config; empty = in-memory)")
	serveCmd.Flags().Int64Var(&serveFlags.seed, "seed", 0, "Simulator RNG seed (0 = nondeterministic)")
}

func loadServeConfig() (*config.Config, error) {
	cfg := config.Default()
	if serveFlags.configPath != "" {
		loaded, err := config.LoadFromPath(serveFlags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if serveFlags.backend != "" {
		cfg.Backend = config.Backend(serveFlags.backend)
	}
	if serveFlags.dbPath != "" {
		cfg.DBPath = serveFlags.dbPath
	}
	if serveFlags.seed != 0 {
		cfg.Seed = serveFlags.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSampler(cfg *config.Config, logger *slog.Logger) (anneal.Sampler, error) {
	if cfg.Backend == config.BackendHardware {
		token, source, err := credentials.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolve credentials: %w", err)
		}
		if token == "" {
			return nil, fmt.Errorf("hardware backend selected but no API token found: set %s or %s",
				credentials.EnvVar, "~/.config/qanneal/dwave.json")
		}
		logger.Info("using hardware backend",
			"endpoint", cfg.SAPIBaseURL, "solver", cfg.SolverName, "token_source", source)
		return sapi.New(cfg.SAPIBaseURL, token,
			sapi.WithSolverName(cfg.SolverName),
			sapi.WithLogger(logging.New("sapi")))
	}
	logger.Info("using simulator backend", "seed", cfg.Seed)
	return &anneal.SimulatedAnnealer{Seed: cfg.Seed}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.New("serve")

	sampler, err := buildSampler(cfg, logger)
	if err != nil {
		return err
	}

	var store registry.Store
	if cfg.DBPath != "" {
		sqlStore, err := registry.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		logger.Info("using persistent store", "path", cfg.DBPath)
	}

	srv := mcpserver.NewServer(mcpserver.Options{
		Store:                  store,
		Sampler:                sampler,
		DefaultNumReads:        cfg.DefaultNumReads,
		DefaultAnnealingTimeUS: cfg.DefaultAnnealingTime,
		AnnealingTimeBudgetUS:  cfg.AnnealingTimeBudgetUS,
		Version:                version,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logger.Info("starting qanneal MCP server over stdio (parent watchdog active)",
		"backend", cfg.Backend, "solver", sampler.Name())
	return srv.Run(ctx, &sdkmcp.StdioTransport{})
}
