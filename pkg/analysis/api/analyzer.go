// Package api defines the contract between the builder and a pipeline analyzer.
package api

import (
	"context"

	"github.com/ritzau/pipeline-builder/pkg/model"
)

// Result is the analysis service response
type Result struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

// Analyzer computes a Result for an exported pipeline.
// Implementations must respect ctx for cancellation.
type Analyzer interface {
	// Name identifies the analyzer in logs and events (e.g. "local", "remote").
	Name() string

	// Analyze returns the summary of the pipeline; it never modifies p.
	Analyze(ctx context.Context, p *model.Pipeline) (*Result, error)
}
