package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

var solveFlags struct {
	problemPath string
	numReads    int
	annealTime  int
	seed        int64
	allSamples  bool
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a problem file locally with the simulated annealer",
	Long: `Reads a problem from a JSON file and solves it with the local simulator,
without starting a server. The file holds either a QUBO:

	{"Q": {"(0,0)": -1, "(1,1)": -1, "(0,1)": 2}}

or an Ising model:

	{"h": {"0": 1, "1": 1}, "J": {"(0,1)": -1}}

The best assignment and its energy are printed as JSON on stdout.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveFlags.problemPath, "file", "f", "", "Problem JSON file (required)")
	solveCmd.Flags().IntVar(&solveFlags.numReads, "reads", 100, "Number of annealing reads")
	solveCmd.Flags().IntVar(&solveFlags.annealTime, "time", 20, "Per-read annealing time in microseconds")
	solveCmd.Flags().Int64Var(&solveFlags.seed, "seed", 0, "RNG seed (0 = nondeterministic)")
	solveCmd.Flags().BoolVar(&solveFlags.allSamples, "all", false, "Print the full sample set, not just the best")
	_ = solveCmd.MarkFlagRequired("file")
}

// problemFile is the on-disk problem shape. Exactly one of Q or h/J is set.
type problemFile struct {
	Q map[string]float64 `json:"Q"`
	H map[string]float64 `json:"h"`
	J map[string]float64 `json:"J"`
}

func loadProblemFile(path string) (*qubo.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem: %w", err)
	}
	var pf problemFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse problem: %w", err)
	}
	switch {
	case pf.Q != nil && (pf.H != nil || pf.J != nil):
		return nil, fmt.Errorf("problem file mixes QUBO (Q) and Ising (h/J) sections")
	case pf.Q != nil:
		return qubo.FromQUBO(pf.Q)
	case pf.H != nil || pf.J != nil:
		return qubo.FromIsing(pf.H, pf.J)
	default:
		return nil, fmt.Errorf("problem file has neither a Q nor an h/J section")
	}
}

func runSolve(cmd *cobra.Command, _ []string) error {
	model, err := loadProblemFile(solveFlags.problemPath)
	if err != nil {
		return err
	}

	sampler := &anneal.SimulatedAnnealer{Seed: solveFlags.seed}
	set, err := sampler.Sample(cmd.Context(), model, anneal.Params{
		NumReads:        solveFlags.numReads,
		AnnealingTimeUS: solveFlags.annealTime,
	})
	if err != nil {
		return err
	}
	best, ok := set.Best()
	if !ok {
		return fmt.Errorf("solver returned no samples")
	}

	type sampleJSON struct {
		Solution    map[string]int `json:"solution"`
		Energy      float64        `json:"energy"`
		Occurrences int            `json:"num_occurrences"`
	}
	toJSON := func(s anneal.Sample) sampleJSON {
		sol := make(map[string]int, len(s.Assignment))
		for v, val := range s.Assignment {
			sol[strconv.Itoa(v)] = int(val)
		}
		return sampleJSON{Solution: sol, Energy: s.Energy, Occurrences: s.Occurrences}
	}

	out := struct {
		Type          string       `json:"type"`
		NumVariables  int          `json:"num_variables"`
		Best          sampleJSON   `json:"best"`
		Samples       []sampleJSON `json:"samples,omitempty"`
		NumReads      int          `json:"num_reads"`
		ExecutionTime float64      `json:"execution_time"`
	}{
		Type:          string(model.Kind),
		NumVariables:  model.NumVariables(),
		Best:          toJSON(best),
		NumReads:      solveFlags.numReads,
		ExecutionTime: set.Elapsed.Seconds(),
	}
	if solveFlags.allSamples {
		for _, s := range set.Samples {
			out.Samples = append(out.Samples, toJSON(s))
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
