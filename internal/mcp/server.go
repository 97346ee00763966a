// Package mcp exposes the annealing operations as MCP tools. The server owns
// no solver logic itself: tool handlers translate wire arguments into the
// model/registry/sampler types and translate results back.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"qanneal/internal/anneal"
	"qanneal/internal/logging"
	"qanneal/internal/qubo"
	"qanneal/internal/registry"
)

// Options wires the server's collaborators. Zero values get sensible
// defaults so tests construct servers with a single line.
type Options struct {
	// Store holds problems and results. Defaults to a fresh MemStore.
	Store registry.Store
	// Sampler is the active backend. Defaults to the local simulator.
	Sampler anneal.Sampler
	// DefaultNumReads and DefaultAnnealingTimeUS apply when solve_problem
	// omits the parameters. Default 100 and 20.
	DefaultNumReads        int
	DefaultAnnealingTimeUS int
	// AnnealingTimeBudgetUS caps cumulative annealing time across solves.
	// Zero means unlimited.
	AnnealingTimeBudgetUS int64
	// Version is reported in the MCP handshake.
	Version string
}

// Server wraps the MCP SDK server around the problem registry and the
// configured sampler.
type Server struct {
	MCPServer *sdkmcp.Server

	store    registry.Store
	sampler  anneal.Sampler
	tracker  *timeTracker
	defaults anneal.Params
}

// NewServer creates the MCP server and registers the tool surface.
func NewServer(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = registry.NewMemStore()
	}
	if opts.Sampler == nil {
		opts.Sampler = &anneal.SimulatedAnnealer{}
	}
	if opts.DefaultNumReads == 0 {
		opts.DefaultNumReads = 100
	}
	if opts.DefaultAnnealingTimeUS == 0 {
		opts.DefaultAnnealingTimeUS = 20
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:   opts.Store,
		sampler: opts.Sampler,
		tracker: newTimeTracker(opts.AnnealingTimeBudgetUS),
		defaults: anneal.Params{
			NumReads:        opts.DefaultNumReads,
			AnnealingTimeUS: opts.DefaultAnnealingTimeUS,
		},
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "qanneal", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over the given transport until ctx is canceled.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_solvers",
		Description: "List the configured solver backends and their properties.",
	}, s.handleListSolvers)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "create_qubo",
		Description: "Create a Quadratic Unconstrained Binary Optimization (QUBO) problem from a coefficient map with keys like \"(0,1)\". Returns a problem ID for solve_problem.",
	}, s.handleCreateQUBO)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "create_ising",
		Description: "Create an Ising model problem from linear biases (h) and couplings (J, keys like \"(0,1)\"). Returns a problem ID for solve_problem.",
	}, s.handleCreateIsing)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "solve_problem",
		Description: "Solve a registered problem on the configured annealing backend. Blocks until the backend answers; pass timeout_ms to bound the wait.",
	}, s.handleSolveProblem)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_result",
		Description: "Fetch a stored solve result by result ID or problem ID (most recent solve for that problem).",
	}, s.handleGetResult)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "visualize_problem",
		Description: "Render a registered problem's coefficient graph as an image (SVG, or PNG when a browser is available).",
	}, s.handleVisualizeProblem)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "visualize_results",
		Description: "Render a solve result's energy histogram as an image (SVG, or PNG when a browser is available).",
	}, s.handleVisualizeResults)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_simulator_status",
		Description: "Report which backend is configured and whether quantum hardware is in use.",
	}, s.handleGetSimulatorStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_annealing_time_status",
		Description: "Report cumulative annealing-time consumption against the configured budget.",
	}, s.handleGetAnnealingTimeStatus)
}

// --- Tool input/output types ---

type listSolversOutput struct {
	Solvers []solverInfo `json:"solvers"`
}

type solverInfo struct {
	Name       string         `json:"name"`
	Active     bool           `json:"active"`
	Properties map[string]any `json:"properties"`
}

type createQUBOInput struct {
	Q           map[string]float64 `json:"Q" jsonschema:"QUBO coefficients keyed by stringified variable pair, e.g. \"(0,1)\": 2.0; \"(i,i)\" entries are linear terms"`
	Description string             `json:"description,omitempty" jsonschema:"optional human-readable description"`
}

type createIsingInput struct {
	H           map[string]float64 `json:"h" jsonschema:"linear biases keyed by variable index, e.g. \"0\": 1.0"`
	J           map[string]float64 `json:"J" jsonschema:"couplings keyed by stringified variable pair, e.g. \"(0,1)\": -1.0"`
	Description string             `json:"description,omitempty" jsonschema:"optional human-readable description"`
}

type createOutput struct {
	ProblemID    string `json:"problem_id"`
	Type         string `json:"type"`
	NumVariables int    `json:"num_variables"`
	Description  string `json:"description,omitempty"`
}

type solveProblemInput struct {
	ProblemID     string `json:"problem_id" jsonschema:"problem ID from create_qubo or create_ising"`
	NumReads      *int   `json:"num_reads,omitempty" jsonschema:"number of annealing reads, >= 1 (default 100)"`
	AnnealingTime *int   `json:"annealing_time,omitempty" jsonschema:"per-read annealing time in microseconds, >= 1 (default 20)"`
	TimeoutMS     int    `json:"timeout_ms,omitempty" jsonschema:"max wait for the backend in milliseconds (0 = wait forever)"`
}

type sampleOutput struct {
	Solution    map[string]int `json:"solution"`
	Energy      float64        `json:"energy"`
	Occurrences int            `json:"num_occurrences"`
}

type resultOutput struct {
	ResultID      string         `json:"result_id"`
	ProblemID     string         `json:"problem_id"`
	Solution      map[string]int `json:"solution"`
	Energy        float64        `json:"energy"`
	Samples       []sampleOutput `json:"samples"`
	NumReads      int            `json:"num_reads"`
	AnnealingTime int            `json:"annealing_time"`
	ExecutionTime float64        `json:"execution_time"`
	Solver        string         `json:"solver"`
	Status        string         `json:"status"`
}

type getResultInput struct {
	ResultID  string `json:"result_id,omitempty" jsonschema:"result ID from solve_problem"`
	ProblemID string `json:"problem_id,omitempty" jsonschema:"problem ID; resolves to its most recent result"`
}

type visualizeProblemInput struct {
	ProblemID string `json:"problem_id" jsonschema:"problem ID to render"`
	Width     int    `json:"width,omitempty" jsonschema:"image width in pixels (default 640)"`
	Height    int    `json:"height,omitempty" jsonschema:"image height in pixels (default 480)"`
	Format    string `json:"format,omitempty" jsonschema:"\"svg\" (default) or \"png\" (requires a local browser)"`
}

type visualizeResultsInput struct {
	ResultID  string `json:"result_id,omitempty" jsonschema:"result ID to render"`
	ProblemID string `json:"problem_id,omitempty" jsonschema:"problem ID; renders its most recent result"`
	Width     int    `json:"width,omitempty" jsonschema:"image width in pixels (default 640)"`
	Height    int    `json:"height,omitempty" jsonschema:"image height in pixels (default 480)"`
	Format    string `json:"format,omitempty" jsonschema:"\"svg\" (default) or \"png\" (requires a local browser)"`
}

type visualizeOutput struct {
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
}

type simulatorStatusOutput struct {
	Backend                  string `json:"backend"`
	UseSimulator             bool   `json:"use_simulator"`
	UsingSimulator           bool   `json:"using_simulator"`
	QuantumHardwareAvailable bool   `json:"quantum_hardware_available"`
}

type annealingTimeStatusOutput struct {
	MinAnnealingTimeUS   int   `json:"min_annealing_time_us"`
	TotalAnnealingTimeUS int64 `json:"total_annealing_time_us"`
	TimeLimitUS          int64 `json:"time_limit_us"`
	RemainingUS          int64 `json:"remaining_us"`
	Unlimited            bool  `json:"unlimited"`
}

// --- Tool handlers ---

func (s *Server) handleListSolvers(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, listSolversOutput, error) {
	return nil, listSolversOutput{
		Solvers: []solverInfo{{
			Name:       s.sampler.Name(),
			Active:     true,
			Properties: s.sampler.Properties(),
		}},
	}, nil
}

func (s *Server) handleCreateQUBO(_ context.Context, _ *sdkmcp.CallToolRequest, input createQUBOInput) (*sdkmcp.CallToolResult, createOutput, error) {
	model, err := qubo.FromQUBO(input.Q)
	if err != nil {
		return nil, createOutput{}, fmt.Errorf("create_qubo: %w", err)
	}
	return s.register(qubo.KindQUBO, model, input.Description)
}

func (s *Server) handleCreateIsing(_ context.Context, _ *sdkmcp.CallToolRequest, input createIsingInput) (*sdkmcp.CallToolResult, createOutput, error) {
	model, err := qubo.FromIsing(input.H, input.J)
	if err != nil {
		return nil, createOutput{}, fmt.Errorf("create_ising: %w", err)
	}
	return s.register(qubo.KindIsing, model, input.Description)
}

func (s *Server) register(kind qubo.Kind, model *qubo.Model, description string) (*sdkmcp.CallToolResult, createOutput, error) {
	p := registry.NewProblem(kind, model, description)
	if err := s.store.PutProblem(p); err != nil {
		return nil, createOutput{}, fmt.Errorf("register problem: %w", err)
	}
	logging.New("mcp").Info("problem registered",
		"problem_id", p.ID, "type", p.Kind, "num_variables", model.NumVariables())
	return nil, createOutput{
		ProblemID:    p.ID,
		Type:         string(p.Kind),
		NumVariables: model.NumVariables(),
		Description:  description,
	}, nil
}

func (s *Server) handleSolveProblem(ctx context.Context, _ *sdkmcp.CallToolRequest, input solveProblemInput) (*sdkmcp.CallToolResult, resultOutput, error) {
	problem, err := s.store.GetProblem(input.ProblemID)
	if err != nil {
		return nil, resultOutput{}, fmt.Errorf("solve_problem: %w", err)
	}

	params := s.defaults
	if input.NumReads != nil {
		params.NumReads = *input.NumReads
	}
	if input.AnnealingTime != nil {
		params.AnnealingTimeUS = *input.AnnealingTime
	}
	if err := params.Validate(); err != nil {
		return nil, resultOutput{}, fmt.Errorf("solve_problem: %w", err)
	}

	// Budget accounting happens before dispatch so an exhausted budget never
	// reaches the backend.
	cost := int64(params.NumReads) * int64(params.AnnealingTimeUS)
	if err := s.tracker.reserve(cost); err != nil {
		return nil, resultOutput{}, fmt.Errorf("solve_problem: %w", err)
	}

	if input.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(input.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	logger := logging.New("mcp")
	logger.Info("solve dispatched",
		"problem_id", problem.ID, "solver", s.sampler.Name(),
		"num_reads", params.NumReads, "annealing_time_us", params.AnnealingTimeUS)

	set, err := s.sampler.Sample(ctx, problem.Model, params)
	if err != nil {
		s.tracker.release(cost)
		return nil, resultOutput{}, fmt.Errorf("solve_problem: %w", err)
	}

	best, ok := set.Best()
	if !ok {
		s.tracker.release(cost)
		return nil, resultOutput{}, fmt.Errorf("solve_problem: %w", &anneal.SolverError{
			Solver: s.sampler.Name(), Msg: "backend returned an empty sample set",
		})
	}

	result := &registry.Result{
		ID:              registry.NewID(),
		ProblemID:       problem.ID,
		BestSample:      best.Assignment,
		BestEnergy:      best.Energy,
		Samples:         set.Samples,
		NumReads:        params.NumReads,
		AnnealingTimeUS: params.AnnealingTimeUS,
		ElapsedSeconds:  set.Elapsed.Seconds(),
		Solver:          s.sampler.Name(),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.PutResult(result); err != nil {
		s.tracker.release(cost)
		return nil, resultOutput{}, fmt.Errorf("store result: %w", err)
	}

	logger.Info("solve completed",
		"problem_id", problem.ID, "result_id", result.ID,
		"energy", result.BestEnergy, "samples", len(result.Samples),
		"elapsed", set.Elapsed)

	return nil, formatResult(result), nil
}

func (s *Server) handleGetResult(_ context.Context, _ *sdkmcp.CallToolRequest, input getResultInput) (*sdkmcp.CallToolResult, resultOutput, error) {
	id := input.ResultID
	if id == "" {
		id = input.ProblemID
	}
	if id == "" {
		return nil, resultOutput{}, errors.New("get_result: result_id or problem_id is required")
	}
	result, err := s.store.GetResult(id)
	if err != nil {
		return nil, resultOutput{}, fmt.Errorf("get_result: %w", err)
	}
	return nil, formatResult(result), nil
}

func (s *Server) handleGetSimulatorStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, simulatorStatusOutput, error) {
	props := s.sampler.Properties()
	hardware, _ := props["quantum_hardware"].(bool)
	return nil, simulatorStatusOutput{
		Backend:                  s.sampler.Name(),
		UseSimulator:             !hardware,
		UsingSimulator:           !hardware,
		QuantumHardwareAvailable: hardware,
	}, nil
}

func (s *Server) handleGetAnnealingTimeStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, annealingTimeStatusOutput, error) {
	total, limit, remaining := s.tracker.status()
	return nil, annealingTimeStatusOutput{
		MinAnnealingTimeUS:   1,
		TotalAnnealingTimeUS: total,
		TimeLimitUS:          limit,
		RemainingUS:          remaining,
		Unlimited:            limit == 0,
	}, nil
}
