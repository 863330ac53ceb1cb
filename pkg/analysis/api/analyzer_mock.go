package api

import (
	"context"
	"sync"

	"github.com/ritzau/pipeline-builder/pkg/model"
)

// MockAnalyzer is a mock implementation of Analyzer for testing
type MockAnalyzer struct {
	MockResult *Result
	MockError  error

	mu    sync.Mutex
	calls []*model.Pipeline
}

func (m *MockAnalyzer) Name() string {
	return "mock"
}

func (m *MockAnalyzer) Analyze(ctx context.Context, p *model.Pipeline) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()
	return m.MockResult, m.MockError
}

// Calls returns the pipelines passed to Analyze so far
func (m *MockAnalyzer) Calls() []*model.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Pipeline, len(m.calls))
	copy(out, m.calls)
	return out
}
