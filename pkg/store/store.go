// Package store holds the authoritative node and edge collections of a pipeline
// and the commands that mutate them.
//
// A Store is an explicit value: callers create one with New and pass it to whatever
// needs it. Every command takes the write lock for its whole duration, so readers
// always observe either the state before a command or the state after it, never
// a partially applied batch. Nodes and edges are copy-on-write: a command that
// changes a node installs a fresh *model.Node and leaves every other pointer alone.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/ritzau/pipeline-builder/pkg/ids"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/nodes"
	"github.com/ritzau/pipeline-builder/pkg/variables"
)

var (
	ErrNodeNotFound    = errors.New("store: node not found")
	ErrUnknownNodeType = errors.New("store: unknown node type")
	ErrUnknownChange   = errors.New("store: unknown change type")
	ErrInvalidChange   = errors.New("store: invalid change")
)

// EventType names the command that produced an Event
type EventType string

const (
	EventNodesChanged EventType = "nodes_changed"
	EventEdgesChanged EventType = "edges_changed"
	EventConnected    EventType = "connected"
	EventFieldUpdated EventType = "field_updated"
	EventAutoWired    EventType = "auto_wired"
	EventPruned       EventType = "pruned"
)

// Event is delivered to listeners after a command has been committed
type Event struct {
	Type   EventType `json:"type"`
	NodeID string    `json:"nodeId,omitempty"`
	Nodes  int       `json:"nodes"`
	Edges  int       `json:"edges"`
}

// Listener receives committed events. It runs on the caller's goroutine after
// the store lock has been released, so it may read from the store.
type Listener func(Event)

// Option configures a Store
type Option func(*Store)

// WithRegistry sets the node kind registry (default: nodes.NewDefaultRegistry)
func WithRegistry(r *nodes.Registry) Option {
	return func(s *Store) { s.registry = r }
}

// WithAllocator sets the id allocator (default: a fresh ids.Allocator)
func WithAllocator(a *ids.Allocator) Option {
	return func(s *Store) { s.allocator = a }
}

// Store is the graph state container
type Store struct {
	mu        sync.RWMutex
	nodes     []*model.Node
	edges     []*model.Edge
	created   map[string]uint64 // node id -> creation sequence
	seq       uint64
	registry  *nodes.Registry
	allocator *ids.Allocator
	listeners []Listener
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		nodes:   make([]*model.Node, 0),
		edges:   make([]*model.Edge, 0),
		created: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = nodes.NewDefaultRegistry()
	}
	if s.allocator == nil {
		s.allocator = ids.NewAllocator()
	}
	return s
}

// Registry returns the node kind registry used by the store
func (s *Store) Registry() *nodes.Registry {
	return s.registry
}

// Observe registers a listener for committed events
func (s *Store) Observe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(e Event) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	e.Nodes = len(s.nodes)
	e.Edges = len(s.edges)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

// Nodes returns the current node collection in iteration order.
// The returned nodes must not be modified.
func (s *Store) Nodes() []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns the current edge collection.
// The returned edges must not be modified.
func (s *Store) Edges() []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Node returns the node with the given id
func (s *Store) Node(id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOfNodeLocked(id); i >= 0 {
		return s.nodes[i], true
	}
	return nil, false
}

// Export returns the current collections in the submission shape
func (s *Store) Export() *model.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &model.Pipeline{
		Nodes: make([]*model.Node, len(s.nodes)),
		Edges: make([]*model.Edge, len(s.edges)),
	}
	copy(p.Nodes, s.nodes)
	copy(p.Edges, s.edges)
	return p
}

// NextID allocates a fresh id for a node of the given type
func (s *Store) NextID(t model.NodeType) string {
	return s.allocator.Next(string(t))
}

// CreateNode allocates an id for a registered node type and adds the node.
// This is the path taken when a node is dropped onto the canvas.
func (s *Store) CreateNode(t model.NodeType, pos model.Position) (*model.Node, error) {
	if _, ok := s.registry.Kind(t); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}

	id := s.NextID(t)
	n := &model.Node{
		ID:       id,
		Type:     t,
		Position: pos,
		Data: map[string]any{
			"id":       id,
			"nodeType": string(t),
		},
	}
	s.mu.Lock()
	stored := s.addNodeLocked(n)
	s.mu.Unlock()
	if stored == nil {
		// Unreachable while ids come from the allocator.
		return nil, fmt.Errorf("store: allocated id %q already in use", id)
	}

	s.notify(Event{Type: EventNodesChanged, NodeID: id})
	return stored, nil
}

// AddNode appends a copy of n. It is a no-op returning false when a node with the
// same id already exists.
func (s *Store) AddNode(n *model.Node) bool {
	s.mu.Lock()
	added := s.addNodeLocked(n) != nil
	s.mu.Unlock()

	if !added {
		logging.Debug("ignoring duplicate node", "nodeID", n.ID)
		return false
	}
	s.notify(Event{Type: EventNodesChanged, NodeID: n.ID})
	return true
}

// addNodeLocked returns the stored copy, or nil when the id is taken
func (s *Store) addNodeLocked(n *model.Node) *model.Node {
	if s.indexOfNodeLocked(n.ID) >= 0 {
		return nil
	}
	c := s.adopt(n)
	s.nodes = append(s.nodes, c)
	return c
}

// adopt copies n into the store, assigns its creation sequence and keeps the
// allocator ahead of ids that follow the "<type>-<n>" convention.
func (s *Store) adopt(n *model.Node) *model.Node {
	c := n.Clone()
	s.seq++
	s.created[c.ID] = s.seq
	if t, num, ok := splitID(c.ID); ok {
		s.allocator.Observe(t, num)
	}
	return c
}

var idPattern = regexp.MustCompile(`^(.+)-(\d+)$`)

func splitID(id string) (string, int, bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// rank orders declarers for name resolution: the first created node wins
func (s *Store) rank(nodeID string) uint64 {
	return s.created[nodeID]
}

func (s *Store) indexOfNodeLocked(id string) int {
	for i, n := range s.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nodeLocked(id string) *model.Node {
	if i := s.indexOfNodeLocked(id); i >= 0 {
		return s.nodes[i]
	}
	return nil
}

// AvailableVariables returns the variable catalog derived from the current nodes,
// in node iteration order
func (s *Store) AvailableVariables() []model.Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return variables.Catalog(s.nodes, s.registry)
}
