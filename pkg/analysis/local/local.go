// Package local analyzes pipelines in process, without the analysis service.
package local

import (
	"context"

	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/cycles"
	"github.com/ritzau/pipeline-builder/pkg/graph"
	"github.com/ritzau/pipeline-builder/pkg/model"
)

// Analyzer computes the Result with the same rules as the analysis service:
// counts are taken from the payload as sent, cycle detection only follows
// edges between listed nodes.
type Analyzer struct{}

// New creates a local analyzer
func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Name() string {
	return "local"
}

func (a *Analyzer) Analyze(ctx context.Context, p *model.Pipeline) (*api.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := graph.FromPipeline(p)
	if err != nil {
		return nil, err
	}

	return &api.Result{
		NumNodes: len(p.Nodes),
		NumEdges: len(p.Edges),
		IsDAG:    cycles.IsDAG(g),
	}, nil
}

// Cycles lists the circular wiring of a pipeline, for reports
func Cycles(p *model.Pipeline) ([]cycles.Cycle, error) {
	g, err := graph.FromPipeline(p)
	if err != nil {
		return nil, err
	}
	return cycles.FindCycles(g), nil
}
