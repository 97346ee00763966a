package mcp

import (
	"strconv"

	"qanneal/internal/registry"
)

// formatResult serializes a stored result for transport. Assignments become
// string-keyed maps (JSON objects cannot key on integers) and the sample
// order is passed through untouched, so repeated calls for the same result
// are byte-identical once marshaled.
func formatResult(r *registry.Result) resultOutput {
	out := resultOutput{
		ResultID:      r.ID,
		ProblemID:     r.ProblemID,
		Solution:      formatAssignment(r.BestSample),
		Energy:        r.BestEnergy,
		Samples:       make([]sampleOutput, 0, len(r.Samples)),
		NumReads:      r.NumReads,
		AnnealingTime: r.AnnealingTimeUS,
		ExecutionTime: r.ElapsedSeconds,
		Solver:        r.Solver,
		Status:        "COMPLETED",
	}
	for _, s := range r.Samples {
		out.Samples = append(out.Samples, sampleOutput{
			Solution:    formatAssignment(s.Assignment),
			Energy:      s.Energy,
			Occurrences: s.Occurrences,
		})
	}
	return out
}

func formatAssignment(a map[int]int8) map[string]int {
	out := make(map[string]int, len(a))
	for v, val := range a {
		out[strconv.Itoa(v)] = int(val)
	}
	return out
}
