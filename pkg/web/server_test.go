package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/analysis"
	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/analysis/remote"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/pubsub"
	"github.com/ritzau/pipeline-builder/pkg/store"
	"github.com/ritzau/pipeline-builder/pkg/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server    *Server
	store     *store.Store
	analyzer  *api.MockAnalyzer
	publisher *pubsub.SSEPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	pub := pubsub.NewSSEPublisher(pubsub.DefaultTopics())
	t.Cleanup(func() { pub.Close() })
	mock := &api.MockAnalyzer{MockResult: &api.Result{NumNodes: 0, NumEdges: 0, IsDAG: true}}
	runner := analysis.NewRunner(st, mock, pub)
	srv := NewServer(st, runner, pub, WithEndpoint(func() string { return "http://localhost:8000" }))
	return &fixture{server: srv, store: st, analyzer: mock, publisher: pub}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateNodeAndGraph(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput, Position: model.Position{X: 10, Y: 20}})
	require.Equal(t, http.StatusCreated, rec.Code)
	n := decodeBody[model.Node](t, rec)
	assert.Equal(t, "input-1", n.ID)
	assert.Equal(t, 10.0, n.Position.X)

	rec = f.do(t, "GET", "/api/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	p := decodeBody[model.Pipeline](t, rec)
	require.Len(t, p.Nodes, 1)
	assert.Empty(t, p.Edges)
}

func TestCreateNodeRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/nodes", createNodeRequest{Type: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown node type")
}

func TestInvalidBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("POST", "/api/connect", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNodeKinds(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/node-kinds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var kinds []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	assert.NotEmpty(t, kinds)
	assert.Equal(t, "input", kinds[0]["type"])
}

func TestFieldUpdateWiresReference(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeText})

	rec := f.do(t, "PUT", "/api/nodes/input-1/fields/inputName", fieldRequest{Value: "topic"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "PUT", "/api/nodes/text-1/fields/text", fieldRequest{Value: "Write about {{topic}}"})
	require.Equal(t, http.StatusOK, rec.Code)
	update := decodeBody[store.FieldUpdate](t, rec)
	require.Len(t, update.Reconciled, 1)
	assert.Equal(t, []string{"input-1-text-1-topic"}, update.Reconciled[0].Created)

	rec = f.do(t, "GET", "/api/variables", nil)
	vars := decodeBody[[]model.Variable](t, rec)
	require.Len(t, vars, 1)
	assert.Equal(t, "topic", vars[0].Name)

	rec = f.do(t, "GET", "/api/variables?q=xyz", nil)
	assert.Empty(t, decodeBody[[]model.Variable](t, rec))

	rec = f.do(t, "GET", "/api/variables?q=OPI", nil)
	assert.Equal(t, variables.Filter(f.store.AvailableVariables(), "OPI"), decodeBody[[]model.Variable](t, rec))
	assert.Len(t, decodeBody[[]model.Variable](t, rec), 1)

	rec = f.do(t, "GET", "/api/nodes/text-1/handles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "text-1-topic")
}

func TestUpdateFieldUnknownNode(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "PUT", "/api/nodes/text-9/fields/text", fieldRequest{Value: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAutoConnectAndReconcile(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeText})
	f.do(t, "PUT", "/api/nodes/text-1/fields/text", fieldRequest{Value: "{{later}}"})

	rec := f.do(t, "POST", "/api/nodes/text-1/variables/later/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.WireUnresolved, decodeBody[store.Wiring](t, rec).Outcome)

	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.store.UpdateField("input-1", "inputName", "later")

	rec = f.do(t, "POST", "/api/nodes/text-1/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[store.Reconciliation](t, rec)
	assert.Equal(t, []string{"later"}, report.References)
	assert.Empty(t, report.Unresolved)
	assert.Len(t, f.store.Edges(), 1)

	rec = f.do(t, "POST", "/api/nodes/missing-1/reconcile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPruneStale(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeText})
	f.do(t, "PUT", "/api/nodes/input-1/fields/inputName", fieldRequest{Value: "topic"})
	f.do(t, "PUT", "/api/nodes/text-1/fields/text", fieldRequest{Value: "{{topic}}"})
	f.do(t, "PUT", "/api/nodes/text-1/fields/text", fieldRequest{Value: "nothing"})

	rec := f.do(t, "POST", "/api/edges/prune-stale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string][]string](t, rec)
	assert.Equal(t, []string{"input-1-text-1-topic"}, got["removed"])
	assert.Empty(t, f.store.Edges())
}

func TestConnectAndChanges(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeOutput})

	rec := f.do(t, "POST", "/api/connect", model.Connection{
		Source: "input-1", SourceHandle: "input-1-value",
		Target: "output-1", TargetHandle: "output-1-value",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	edge := decodeBody[model.Edge](t, rec)
	assert.Equal(t, "reactflow__edge-input-1input-1-value-output-1output-1-value", edge.ID)
	assert.True(t, edge.Animated)

	rec = f.do(t, "POST", "/api/edges/changes", []model.EdgeChange{{Type: model.ChangeRemove, ID: edge.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.store.Edges())

	rec = f.do(t, "POST", "/api/nodes/changes", []model.NodeChange{{Type: model.ChangeRemove, ID: "input-1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string][]model.Node](t, rec)
	require.Len(t, got["nodes"], 1)
	assert.Equal(t, "output-1", got["nodes"][0].ID)

	rec = f.do(t, "POST", "/api/nodes/changes", []model.NodeChange{{Type: "explode", ID: "output-1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.store.Nodes(), 1)
}

func TestNodeChangesAcceptCanvasMeasurements(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})

	rec := f.do(t, "POST", "/api/nodes/changes", []model.NodeChange{
		{Type: model.ChangePosition, ID: "input-1", Position: &model.Position{X: 5, Y: 7}},
		{Type: model.ChangeDimensions, ID: "input-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	n, ok := f.store.Node("input-1")
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 5, Y: 7}, n.Position)
}

func TestRequestLogNamesRoute(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stdout) })

	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeText})
	rec := f.do(t, "POST", "/api/nodes/text-1/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, buf.String(), "route=/api/nodes/{id}/reconcile")
	assert.Contains(t, buf.String(), "nodeID=text-1")
}

func TestAutocompleteFlow(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeText})
	f.do(t, "PUT", "/api/nodes/input-1/fields/inputName", fieldRequest{Value: "topic"})

	rec := f.do(t, "POST", "/api/nodes/text-1/fields/text/autocomplete/select", selectRequest{Name: "topic"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, "POST", "/api/nodes/text-1/fields/text/autocomplete", inputRequest{Text: "About {{to", Cursor: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "open", snap["state"])
	assert.Equal(t, "to", snap["searchTerm"])

	rec = f.do(t, "POST", "/api/nodes/text-1/fields/text/autocomplete/select", selectRequest{Name: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/nodes/text-1/fields/text/autocomplete/select", selectRequest{Name: "topic"})
	require.Equal(t, http.StatusOK, rec.Code)
	sel := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "About {{topic}}", sel["text"])
	assert.Len(t, f.store.Edges(), 1)

	rec = f.do(t, "POST", "/api/nodes/text-1/fields/text/autocomplete/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "POST", "/api/nodes/text-7/fields/text/autocomplete", inputRequest{Text: "{{"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/nodes", createNodeRequest{Type: model.NodeTypeInput})
	f.analyzer.MockResult = &api.Result{NumNodes: 1, NumEdges: 0, IsDAG: true}

	rec := f.do(t, "POST", "/api/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Contains(t, got["message"], "Number of Nodes: 1")
	assert.Contains(t, got["message"], "Your pipeline is valid!")

	calls := f.analyzer.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Nodes, 1)
}

func TestSubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.MockResult = nil
	f.analyzer.MockError = errors.Join(remote.ErrUnreachable, errors.New("connection refused"))

	rec := f.do(t, "POST", "/api/submit", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Contains(t, got["message"], "Error submitting pipeline")
	assert.Contains(t, got["message"], "Make sure the analysis service is running on http://localhost:8000")
	assert.NotEmpty(t, got["error"])
}

func TestUnknownRouteAndTopic(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/api/subscribe/nope", nil).Code)
}

func TestSubscribeStreamsGraphChanges(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	// The graph topic replays its latest event to new subscribers
	_, err := f.store.CreateNode(model.NodeTypeInput, model.Position{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/subscribe/graph", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var event pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, pubsub.TopicGraph, event.Topic)
	var change pubsub.GraphChange
	require.NoError(t, json.Unmarshal(event.Data, &change))
	assert.Equal(t, "input-1", change.NodeID)
	assert.Equal(t, 1, change.Nodes)
}
