// Package sapi is the remote-hardware sampler: a client for a D-Wave-style
// solver API that submits a quadratic model and polls for the answer. It
// implements anneal.Sampler so server wiring treats it exactly like the local
// simulator.
package sapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

// Client talks to one solver endpoint with a bearer token.
type Client struct {
	baseURL      string
	token        string
	solverName   string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient   *http.Client
	logger       *slog.Logger
	timeout      time.Duration
	solverName   string
	pollInterval time.Duration
}

// New creates a Client for the given solver API endpoint. The token is sent
// as an Authorization header on every request.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sapi: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	solverName := cfg.solverName
	if solverName == "" {
		solverName = "dwave"
	}

	pollInterval := cfg.pollInterval
	if pollInterval == 0 {
		pollInterval = 500 * time.Millisecond
	}

	return &Client{
		baseURL:      baseURL,
		token:        token,
		solverName:   solverName,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithSolverName selects a named solver on the remote endpoint.
func WithSolverName(name string) Option {
	return func(cfg *clientConfig) error {
		cfg.solverName = name
		return nil
	}
}

// WithPollInterval overrides the answer-polling cadence (tests use a short one).
func WithPollInterval(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return fmt.Errorf("sapi: poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// --- wire types ---

type submitRequest struct {
	Solver        string             `json:"solver"`
	Type          string             `json:"type"` // "qubo" or "ising"
	Linear        map[string]float64 `json:"linear"`
	Quadratic     map[string]float64 `json:"quadratic"`
	NumReads      int                `json:"num_reads"`
	AnnealingTime int                `json:"annealing_time"`
}

type problemStatus struct {
	ID           string      `json:"id"`
	Status       string      `json:"status"` // PENDING, IN_PROGRESS, COMPLETED, FAILED, CANCELLED
	ErrorMessage string      `json:"error_message,omitempty"`
	Answer       *wireAnswer `json:"answer,omitempty"`
}

type wireAnswer struct {
	Solutions   [][]int8  `json:"solutions"`
	Energies    []float64 `json:"energies"`
	Occurrences []int     `json:"num_occurrences"`
	Variables   []int     `json:"active_variables"`
}

type errorBody struct {
	Message string `json:"error_msg"`
}

// Name implements anneal.Sampler.
func (c *Client) Name() string { return c.solverName }

// Properties implements anneal.Sampler.
func (c *Client) Properties() map[string]any {
	return map[string]any{
		"kind":             "hardware",
		"endpoint":         c.baseURL,
		"solver":           c.solverName,
		"quantum_hardware": true,
		"supports_qubo":    true,
		"supports_ising":   true,
	}
}

// Sample implements anneal.Sampler: submit the model, poll until the remote
// solver reports COMPLETED or FAILED, and normalize the answer. All failure
// paths come back as *anneal.SolverError.
func (c *Client) Sample(ctx context.Context, m *qubo.Model, p anneal.Params) (*anneal.SampleSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	id, err := c.submit(ctx, m, p)
	if err != nil {
		return nil, err
	}

	for {
		st, err := c.status(ctx, id)
		if err != nil {
			return nil, err
		}
		switch st.Status {
		case "COMPLETED":
			set, err := c.normalize(st.Answer)
			if err != nil {
				return nil, err
			}
			set.Elapsed = time.Since(start)
			return set, nil
		case "FAILED", "CANCELLED":
			return nil, &anneal.SolverError{
				Solver: c.solverName,
				Msg:    fmt.Sprintf("remote solve %s: %s", strings.ToLower(st.Status), st.ErrorMessage),
			}
		}

		select {
		case <-ctx.Done():
			return nil, &anneal.SolverError{Solver: c.solverName, Msg: "waiting for answer", Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) submit(ctx context.Context, m *qubo.Model, p anneal.Params) (string, error) {
	req := submitRequest{
		Solver:        c.solverName,
		Type:          string(m.Kind),
		Linear:        make(map[string]float64, len(m.Linear)),
		Quadratic:     make(map[string]float64, len(m.Quadratic)),
		NumReads:      p.NumReads,
		AnnealingTime: p.AnnealingTimeUS,
	}
	for v, coeff := range m.Linear {
		req.Linear[strconv.Itoa(v)] = coeff
	}
	for pair, coeff := range m.Quadratic {
		req.Quadratic[fmt.Sprintf("%d,%d", pair.U, pair.V)] = coeff
	}

	var st problemStatus
	if err := c.doJSON(ctx, "POST", c.baseURL+"/problems", "submit problem", req, &st); err != nil {
		return "", err
	}
	if st.ID == "" {
		return "", &anneal.SolverError{Solver: c.solverName, Msg: "submit accepted but no problem id returned"}
	}
	return st.ID, nil
}

func (c *Client) status(ctx context.Context, id string) (*problemStatus, error) {
	var st problemStatus
	if err := c.doJSON(ctx, "GET", c.baseURL+"/problems/"+id, "poll problem", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// normalize maps the remote answer's parallel arrays into a SampleSet,
// preserving the remote ordering.
func (c *Client) normalize(a *wireAnswer) (*anneal.SampleSet, error) {
	if a == nil {
		return nil, &anneal.SolverError{Solver: c.solverName, Msg: "completed answer has no payload"}
	}
	if len(a.Energies) != len(a.Solutions) || len(a.Occurrences) != len(a.Solutions) {
		return nil, &anneal.SolverError{
			Solver: c.solverName,
			Msg: fmt.Sprintf("answer arrays disagree: %d solutions, %d energies, %d occurrences",
				len(a.Solutions), len(a.Energies), len(a.Occurrences)),
		}
	}

	samples := make([]anneal.Sample, 0, len(a.Solutions))
	for i, sol := range a.Solutions {
		if len(sol) != len(a.Variables) {
			return nil, &anneal.SolverError{
				Solver: c.solverName,
				Msg:    fmt.Sprintf("solution %d has %d values for %d variables", i, len(sol), len(a.Variables)),
			}
		}
		assignment := make(map[int]int8, len(sol))
		for j, val := range sol {
			assignment[a.Variables[j]] = val
		}
		samples = append(samples, anneal.Sample{
			Assignment:  assignment,
			Energy:      a.Energies[i],
			Occurrences: a.Occurrences[i],
		})
	}
	return &anneal.SampleSet{Samples: samples}, nil
}

// doJSON executes an HTTP request and decodes the JSON response into dst.
// Transport and remote errors become *anneal.SolverError so the dispatcher
// surfaces one error kind for backend failures.
func (c *Client) doJSON(ctx context.Context, method, url, operation string, body any, dst any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &anneal.SolverError{Solver: c.solverName, Msg: operation + ": encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &anneal.SolverError{Solver: c.solverName, Msg: operation + ": create request", Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "solver API request", "operation", operation, "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &anneal.SolverError{Solver: c.solverName, Msg: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		var eb errorBody
		msg := resp.Status
		if json.Unmarshal(respBody, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		} else if len(respBody) > 0 {
			msg = string(respBody)
		}
		return &anneal.SolverError{
			Solver: c.solverName,
			Msg:    fmt.Sprintf("%s: HTTP %d: %s", operation, resp.StatusCode, msg),
		}
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return &anneal.SolverError{Solver: c.solverName, Msg: operation + ": decode response", Err: err}
		}
	}
	return nil
}
