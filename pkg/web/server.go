// Package web exposes the builder over HTTP: the canvas operations as JSON
// endpoints and the change streams as server-sent events.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/pipeline-builder/pkg/analysis"
	"github.com/ritzau/pipeline-builder/pkg/autocomplete"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/pubsub"
	"github.com/ritzau/pipeline-builder/pkg/store"
)

// Server represents the web server
type Server struct {
	router    *mux.Router
	store     *store.Store
	sessions  *autocomplete.Sessions
	runner    *analysis.Runner
	publisher pubsub.Publisher
	endpoint  func() string // where submissions go, for error messages
	topics    map[string]bool
}

// Option configures a Server
type Option func(*Server)

// WithEndpoint reports the analyzer location in submission errors
func WithEndpoint(endpoint func() string) Option {
	return func(s *Server) { s.endpoint = endpoint }
}

// NewServer creates the server and starts forwarding store events to the graph topic
func NewServer(st *store.Store, runner *analysis.Runner, publisher pubsub.Publisher, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		store:     st,
		sessions:  autocomplete.NewSessions(st),
		runner:    runner,
		publisher: publisher,
		endpoint:  func() string { return "" },
		topics: map[string]bool{
			pubsub.TopicGraph:    true,
			pubsub.TopicAnalysis: true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	st.Observe(s.publishStoreEvent)
	s.setupRoutes()
	return s
}

func (s *Server) publishStoreEvent(e store.Event) {
	change := pubsub.GraphChange{NodeID: e.NodeID, Nodes: e.Nodes, Edges: e.Edges}
	if err := s.publisher.Publish(pubsub.TopicGraph, string(e.Type), change); err != nil {
		logging.Warn("failed to publish graph change", "type", e.Type, "error", err)
	}
}

// Handler returns the root handler, including request logging
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(mux.MiddlewareFunc(logging.Requests(routeLabels)))

	api := s.router.PathPrefix("/api").Subrouter()

	// SSE subscription endpoint
	api.HandleFunc("/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// Graph
	api.HandleFunc("/graph", s.handleGraph).Methods("GET")
	api.HandleFunc("/node-kinds", s.handleNodeKinds).Methods("GET")
	api.HandleFunc("/variables", s.handleVariables).Methods("GET")

	// Canvas operations - more specific routes must come first
	api.HandleFunc("/nodes/changes", s.handleNodeChanges).Methods("POST")
	api.HandleFunc("/nodes", s.handleCreateNode).Methods("POST")
	api.HandleFunc("/nodes/{id}/handles", s.handleHandles).Methods("GET")
	api.HandleFunc("/nodes/{id}/fields/{field}", s.handleUpdateField).Methods("PUT")
	api.HandleFunc("/nodes/{id}/fields/{field}/autocomplete", s.handleAutocompleteInput).Methods("POST")
	api.HandleFunc("/nodes/{id}/fields/{field}/autocomplete/select", s.handleAutocompleteSelect).Methods("POST")
	api.HandleFunc("/nodes/{id}/fields/{field}/autocomplete/cancel", s.handleAutocompleteCancel).Methods("POST")
	api.HandleFunc("/nodes/{id}/variables/{name}/connect", s.handleAutoConnect).Methods("POST")
	api.HandleFunc("/nodes/{id}/reconcile", s.handleReconcile).Methods("POST")
	api.HandleFunc("/edges/changes", s.handleEdgeChanges).Methods("POST")
	api.HandleFunc("/edges/prune-stale", s.handlePruneStale).Methods("POST")
	api.HandleFunc("/connect", s.handleConnect).Methods("POST")

	// Submission
	api.HandleFunc("/submit", s.handleSubmit).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path))
	})
}

// routeLabels names requests by route template so log lines group per endpoint
func routeLabels(r *http.Request) []any {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			path = tpl
		}
	}
	labels := []any{"route", path}
	vars := mux.Vars(r)
	if id := vars["id"]; id != "" {
		labels = append(labels, "nodeID", id)
	}
	if topic := vars["topic"]; topic != "" {
		labels = append(labels, "topic", topic)
	}
	return labels
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !s.topics[topic] {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown topic %q", topic))
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the stream (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start serves on port until ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("web server shutdown failed", "error", err)
		}
	}()

	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
