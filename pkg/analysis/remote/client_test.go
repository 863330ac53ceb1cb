package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ api.Analyzer = (*Client)(nil)

func samplePipeline() *model.Pipeline {
	return &model.Pipeline{
		Nodes: []*model.Node{
			{ID: "input-1", Type: model.NodeTypeInput, Data: map[string]any{"inputName": "topic"}},
			{ID: "text-1", Type: model.NodeTypeText, Data: map[string]any{"text": "{{topic}}"}},
		},
		Edges: []*model.Edge{
			{ID: "input-1-text-1-topic", Source: "input-1", SourceHandle: "input-1-topic", Target: "text-1", TargetHandle: "text-1-topic"},
		},
	}
}

func TestAnalyze_Success(t *testing.T) {
	var received model.Pipeline
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pipelines/parse", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"num_nodes":2,"num_edges":1,"is_dag":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/pipelines/parse")
	defer c.Close()

	res, err := c.Analyze(context.Background(), samplePipeline())
	require.NoError(t, err)
	assert.Equal(t, &api.Result{NumNodes: 2, NumEdges: 1, IsDAG: true}, res)

	require.Len(t, received.Edges, 1)
	assert.Equal(t, "input-1-topic", received.Edges[0].SourceHandle)
	assert.Equal(t, "topic", received.Nodes[0].StringField("inputName"))
}

func TestAnalyze_StatusError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"node 1: graph: node without id"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Analyze(context.Background(), samplePipeline())

	var serr *StatusError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Equal(t, "node 1: graph: node without id", serr.Detail)
	assert.Contains(t, serr.Error(), "400")
	assert.Equal(t, int32(1), hits.Load(), "no retry")
}

func TestAnalyze_ValidationDetailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","nodes"],"msg":"field required"}]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Analyze(context.Background(), samplePipeline())

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Contains(t, serr.Detail, "field required")
}

func TestAnalyze_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Analyze(context.Background(), samplePipeline())

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
	assert.Contains(t, serr.Body, "upstream exploded")
}

func TestAnalyze_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, WithTimeout(time.Second)).Analyze(context.Background(), samplePipeline())
	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}

func TestAnalyze_EmptyEndpoint(t *testing.T) {
	_, err := New("").Analyze(context.Background(), samplePipeline())
	assert.True(t, errors.Is(err, ErrEmptyEndpoint))
}

func TestSetEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"num_nodes":0,"num_edges":0,"is_dag":true}`))
	}))
	defer srv.Close()

	c := New("")
	c.SetEndpoint(srv.URL)
	assert.Equal(t, srv.URL, c.Endpoint())

	res, err := c.Analyze(context.Background(), model.NewPipeline())
	require.NoError(t, err)
	assert.True(t, res.IsDAG)
}
