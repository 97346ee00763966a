package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"qanneal/internal/visualize"
)

func (s *Server) handleVisualizeProblem(ctx context.Context, _ *sdkmcp.CallToolRequest, input visualizeProblemInput) (*sdkmcp.CallToolResult, visualizeOutput, error) {
	problem, err := s.store.GetProblem(input.ProblemID)
	if err != nil {
		return nil, visualizeOutput{}, fmt.Errorf("visualize_problem: %w", err)
	}
	opts := visualize.Options{Width: input.Width, Height: input.Height}
	svg := visualize.ProblemSVG(problem.Model, opts)
	return s.imageResult(ctx, svg, input.Format, opts)
}

func (s *Server) handleVisualizeResults(ctx context.Context, _ *sdkmcp.CallToolRequest, input visualizeResultsInput) (*sdkmcp.CallToolResult, visualizeOutput, error) {
	id := input.ResultID
	if id == "" {
		id = input.ProblemID
	}
	if id == "" {
		return nil, visualizeOutput{}, fmt.Errorf("visualize_results: result_id or problem_id is required")
	}
	result, err := s.store.GetResult(id)
	if err != nil {
		return nil, visualizeOutput{}, fmt.Errorf("visualize_results: %w", err)
	}
	opts := visualize.Options{Width: input.Width, Height: input.Height}
	svg := visualize.ResultSVG(result.Samples, opts)
	return s.imageResult(ctx, svg, input.Format, opts)
}

// imageResult packages a rendered SVG as tool-call image content. PNG is
// attempted only on request and only when a local browser exists; otherwise
// the SVG is returned directly.
func (s *Server) imageResult(ctx context.Context, svg, format string, opts visualize.Options) (*sdkmcp.CallToolResult, visualizeOutput, error) {
	if format == "png" {
		if !visualize.BrowserAvailable() {
			return nil, visualizeOutput{}, fmt.Errorf("png output requires a local Chrome/Chromium; request svg instead")
		}
		png, err := visualize.RasterizePNG(ctx, svg, opts)
		if err != nil {
			return nil, visualizeOutput{}, fmt.Errorf("render png: %w", err)
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{
				&sdkmcp.ImageContent{Data: png, MIMEType: "image/png"},
			},
		}, visualizeOutput{Format: "png", Bytes: len(png)}, nil
	}

	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.ImageContent{Data: []byte(svg), MIMEType: "image/svg+xml"},
		},
	}, visualizeOutput{Format: "svg", Bytes: len(svg)}, nil
}
