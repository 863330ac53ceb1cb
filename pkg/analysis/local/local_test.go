package local

import (
	"context"
	"testing"

	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ api.Analyzer = (*Analyzer)(nil)

func pipeline(edges ...[2]string) *model.Pipeline {
	p := model.NewPipeline()
	for _, id := range []string{"input-1", "text-1", "llm-1"} {
		p.Nodes = append(p.Nodes, &model.Node{ID: id})
	}
	for _, e := range edges {
		p.Edges = append(p.Edges, &model.Edge{Source: e[0], Target: e[1]})
	}
	return p
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name  string
		p     *model.Pipeline
		edges int
		dag   bool
	}{
		{"empty", model.NewPipeline(), 0, true},
		{"chain", pipeline([2]string{"input-1", "text-1"}, [2]string{"text-1", "llm-1"}), 2, true},
		{"cycle", pipeline([2]string{"text-1", "llm-1"}, [2]string{"llm-1", "text-1"}), 2, false},
		{"self loop", pipeline([2]string{"llm-1", "llm-1"}), 1, false},
		{"unknown source ignored", pipeline([2]string{"ghost", "text-1"}, [2]string{"text-1", "ghost"}), 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Analyze(context.Background(), tt.p)
			require.NoError(t, err)
			assert.Equal(t, len(tt.p.Nodes), res.NumNodes)
			assert.Equal(t, tt.edges, res.NumEdges)
			assert.Equal(t, tt.dag, res.IsDAG)
		})
	}
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Analyze(ctx, pipeline())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCycles(t *testing.T) {
	got, err := Cycles(pipeline([2]string{"text-1", "llm-1"}, [2]string{"llm-1", "text-1"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"llm-1", "text-1"}, got[0].Nodes)
}
