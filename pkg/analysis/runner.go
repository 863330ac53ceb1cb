// Package analysis submits the current pipeline to an analyzer and reports progress.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/pubsub"
)

// Exporter provides the pipeline to submit
type Exporter interface {
	Export() *model.Pipeline
}

// Runner orchestrates a submission: export, analyze, publish
type Runner struct {
	source    Exporter
	analyzer  api.Analyzer
	publisher pubsub.Publisher // optional
	mu        sync.Mutex       // one submission at a time
}

// NewRunner creates a runner. publisher may be nil.
func NewRunner(source Exporter, analyzer api.Analyzer, publisher pubsub.Publisher) *Runner {
	return &Runner{
		source:    source,
		analyzer:  analyzer,
		publisher: publisher,
	}
}

// Submit exports the pipeline as it is now and hands it to the analyzer.
// Failures are returned unchanged apart from wrapping; nothing is retried.
func (r *Runner) Submit(ctx context.Context) (*api.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.source.Export()
	name := r.analyzer.Name()
	logging.InfoContext(ctx, "submitting pipeline", "analyzer", name,
		"nodes", len(p.Nodes), "edges", len(p.Edges))
	r.publish("submitting", pubsub.AnalysisStatus{State: "submitting", Analyzer: name})

	res, err := r.analyzer.Analyze(ctx, p)
	if err != nil {
		logging.ErrorContext(ctx, "submission failed", "analyzer", name, "error", err)
		r.publish("failed", pubsub.AnalysisStatus{State: "failed", Analyzer: name, Message: err.Error()})
		return nil, fmt.Errorf("%s analyzer: %w", name, err)
	}

	isDAG := res.IsDAG
	r.publish("done", pubsub.AnalysisStatus{
		State:    "done",
		Analyzer: name,
		NumNodes: res.NumNodes,
		NumEdges: res.NumEdges,
		IsDAG:    &isDAG,
	})
	logging.InfoContext(ctx, "submission complete", "analyzer", name, "isDAG", res.IsDAG)
	return res, nil
}

func (r *Runner) publish(eventType string, status pubsub.AnalysisStatus) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(pubsub.TopicAnalysis, eventType, status); err != nil {
		logging.Warn("failed to publish analysis status", "type", eventType, "error", err)
	}
}
