package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ritzau/pipeline-builder/pkg/autocomplete"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/output"
	"github.com/ritzau/pipeline-builder/pkg/store"
	"github.com/ritzau/pipeline-builder/pkg/variables"
)

type createNodeRequest struct {
	Type     model.NodeType `json:"type"`
	Position model.Position `json:"position"`
}

type fieldRequest struct {
	Value any `json:"value"`
}

type inputRequest struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
}

type selectRequest struct {
	Name string `json:"name"`
}

type submitResponse struct {
	Result  any    `json:"result,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnknownNodeType),
		errors.Is(err, store.ErrUnknownChange),
		errors.Is(err, store.ErrInvalidChange),
		errors.Is(err, autocomplete.ErrNotCandidate):
		return http.StatusBadRequest
	case errors.Is(err, autocomplete.ErrNotOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Export())
}

func (s *Server) handleNodeKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Registry().Kinds())
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	vars := variables.Filter(s.store.AvailableVariables(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, vars)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := s.store.CreateNode(req.Type, req.Position)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleHandles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n, ok := s.store.Node(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", store.ErrNodeNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, s.store.Registry().Handles(n))
}

func (s *Server) handleNodeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []model.NodeChange
	if !decode(w, r, &changes) {
		return
	}
	if err := s.store.ApplyNodeChanges(changes); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	for _, c := range changes {
		if c.Type == model.ChangeRemove {
			s.sessions.Forget(c.ID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": s.store.Nodes()})
}

func (s *Server) handleEdgeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []model.EdgeChange
	if !decode(w, r, &changes) {
		return
	}
	if err := s.store.ApplyEdgeChanges(changes); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": s.store.Edges()})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var conn model.Connection
	if !decode(w, r, &conn) {
		return
	}
	edge, err := s.store.Connect(conn)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req fieldRequest
	if !decode(w, r, &req) {
		return
	}
	update, err := s.store.UpdateField(vars["id"], vars["field"], req.Value)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleAutoConnect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wiring, err := s.store.AutoConnectVariable(vars["id"], vars["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, wiring)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Reconcile(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePruneStale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"removed": s.store.PruneStaleEdges()})
}

// engineFor returns the autocomplete engine of an existing node's field
func (s *Server) engineFor(w http.ResponseWriter, r *http.Request, create bool) (*autocomplete.Engine, bool) {
	vars := mux.Vars(r)
	id, field := vars["id"], vars["field"]
	if _, ok := s.store.Node(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", store.ErrNodeNotFound, id))
		return nil, false
	}
	if create {
		return s.sessions.Engine(id, field), true
	}
	engine, ok := s.sessions.Lookup(id, field)
	if !ok {
		writeError(w, http.StatusConflict, autocomplete.ErrNotOpen)
		return nil, false
	}
	return engine, true
}

func (s *Server) handleAutocompleteInput(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engineFor(w, r, true)
	if !ok {
		return
	}
	var req inputRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, engine.Input(req.Text, req.Cursor))
}

func (s *Server) handleAutocompleteSelect(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engineFor(w, r, false)
	if !ok {
		return
	}
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := engine.Select(req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleAutocompleteCancel(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engineFor(w, r, false)
	if !ok {
		return
	}
	engine.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Submit(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, submitResponse{
			Message: output.SubmitErrorMessage(s.endpoint(), err),
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Result:  res,
		Message: output.AnalysisMessage(res),
	})
}
