package store

import (
	"fmt"

	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/nodes"
	"github.com/ritzau/pipeline-builder/pkg/variables"
)

// Outcome is the result of wiring one reference
type Outcome string

const (
	WireCreated    Outcome = "created"    // a new edge was appended
	WireExisting   Outcome = "existing"   // an identical wiring was already present
	WireUnresolved Outcome = "unresolved" // no node declares the name
)

// Wiring reports what AutoConnectVariable did
type Wiring struct {
	Variable string  `json:"variable"`
	Outcome  Outcome `json:"outcome"`
	EdgeID   string  `json:"edgeId,omitempty"`
	SourceID string  `json:"sourceId,omitempty"`
}

// Reconciliation reports one pass of reference extraction and wiring for a node
type Reconciliation struct {
	NodeID     string   `json:"nodeId"`
	References []string `json:"references"`
	Created    []string `json:"created"`
	Resolved   []string `json:"resolved"`
	Unresolved []string `json:"unresolved"`
}

// FieldUpdate reports everything UpdateField changed
type FieldUpdate struct {
	NodeID     string           `json:"nodeId"`
	Field      string           `json:"field"`
	Stale      []string         `json:"stale"` // edges that became stale with this write
	Reconciled []Reconciliation `json:"reconciled"`
}

// UpdateField replaces one entry of a node's data. The node is replaced by a copy;
// every other node keeps its identity and data map.
//
// After the write, handle ids of the node are re-derived and incident edges are
// re-flagged as stale or not. If the field is the node's variable field, the node
// is reconciled; if it is a declarator's name field, every wiring node is.
// Reconciliation only appends edges, it never writes fields.
func (s *Store) UpdateField(nodeID, field string, value any) (*FieldUpdate, error) {
	s.mu.Lock()
	i := s.indexOfNodeLocked(nodeID)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}

	updated := s.nodes[i].Clone()
	updated.Data[field] = value
	s.nodes[i] = updated

	report := &FieldUpdate{
		NodeID:     nodeID,
		Field:      field,
		Stale:      s.refreshStaleLocked(map[string]bool{nodeID: true}),
		Reconciled: make([]Reconciliation, 0),
	}

	if kind, ok := s.registry.Kind(updated.Type); ok {
		switch {
		case kind.WiresVariables && field == kind.VariableField:
			report.Reconciled = append(report.Reconciled, s.reconcileLocked(updated))
		case kind.Declares != "" && field == kind.NameField:
			for _, n := range s.wiringNodesLocked() {
				report.Reconciled = append(report.Reconciled, s.reconcileLocked(n))
			}
		}
	}
	s.mu.Unlock()

	logging.Debug("updated field", "nodeID", nodeID, "field", field,
		"stale", len(report.Stale), "reconciled", len(report.Reconciled))
	s.notify(Event{Type: EventFieldUpdated, NodeID: nodeID})
	return report, nil
}

// Reconcile extracts the references of a node's variable field and wires each one.
// Nodes whose kind does not wire variables produce an empty report.
func (s *Store) Reconcile(nodeID string) (*Reconciliation, error) {
	s.mu.Lock()
	n := s.nodeLocked(nodeID)
	if n == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	rec := s.reconcileLocked(n)
	s.mu.Unlock()

	if len(rec.Created) > 0 {
		s.notify(Event{Type: EventAutoWired, NodeID: nodeID})
	}
	return &rec, nil
}

func (s *Store) reconcileLocked(n *model.Node) Reconciliation {
	rec := Reconciliation{
		NodeID:     n.ID,
		References: s.registry.References(n),
		Created:    make([]string, 0),
		Resolved:   make([]string, 0),
		Unresolved: make([]string, 0),
	}
	if rec.References == nil {
		rec.References = make([]string, 0)
	}

	for _, name := range rec.References {
		w := s.autoConnectLocked(n.ID, name)
		switch w.Outcome {
		case WireCreated:
			rec.Created = append(rec.Created, w.EdgeID)
			rec.Resolved = append(rec.Resolved, name)
		case WireExisting:
			rec.Resolved = append(rec.Resolved, name)
		case WireUnresolved:
			rec.Unresolved = append(rec.Unresolved, name)
		}
	}
	return rec
}

func (s *Store) wiringNodesLocked() []*model.Node {
	var out []*model.Node
	for _, n := range s.nodes {
		if k, ok := s.registry.Kind(n.Type); ok && k.WiresVariables {
			out = append(out, n)
		}
	}
	return out
}

// AutoConnectVariable wires a reference in targetID to the node declaring variableName.
//
// An unresolvable name is not an error: the outcome is WireUnresolved and nothing
// changes. Repeating the call is idempotent because an edge with the same
// (source, sourceHandle, target, targetHandle) is never appended twice.
func (s *Store) AutoConnectVariable(targetID, variableName string) (Wiring, error) {
	s.mu.Lock()
	if s.nodeLocked(targetID) == nil {
		s.mu.Unlock()
		return Wiring{}, fmt.Errorf("%w: %q", ErrNodeNotFound, targetID)
	}
	w := s.autoConnectLocked(targetID, variableName)
	s.mu.Unlock()

	if w.Outcome == WireCreated {
		s.notify(Event{Type: EventAutoWired, NodeID: targetID})
	}
	return w, nil
}

func (s *Store) autoConnectLocked(targetID, name string) Wiring {
	decl, ok := variables.Resolve(s.nodes, s.registry, name, s.rank)
	if !ok {
		logging.Debug("unresolved variable reference", "nodeID", targetID, "variable", name)
		return Wiring{Variable: name, Outcome: WireUnresolved}
	}

	sourceHandle := nodes.HandleID(decl.NodeID, name)
	targetHandle := nodes.HandleID(targetID, name)

	for _, e := range s.edges {
		if e.SameWiring(decl.NodeID, sourceHandle, targetID, targetHandle) {
			return Wiring{Variable: name, Outcome: WireExisting, EdgeID: e.ID, SourceID: decl.NodeID}
		}
	}

	e := styledEdge(&model.Edge{
		ID:           fmt.Sprintf("%s-%s-%s", decl.NodeID, targetID, name),
		Source:       decl.NodeID,
		SourceHandle: sourceHandle,
		Target:       targetID,
		TargetHandle: targetHandle,
	})
	e.Stale = s.isStaleLocked(e)
	s.edges = append(s.edges, e)

	logging.Debug("auto-wired variable", "variable", name, "source", decl.NodeID, "target", targetID)
	return Wiring{Variable: name, Outcome: WireCreated, EdgeID: e.ID, SourceID: decl.NodeID}
}

// isStaleLocked reports whether an edge names a handle its node no longer renders.
// Empty handles and nodes of unregistered kinds are never considered stale.
func (s *Store) isStaleLocked(e *model.Edge) bool {
	return !s.handleLiveLocked(e.Source, e.SourceHandle, model.HandleSource) ||
		!s.handleLiveLocked(e.Target, e.TargetHandle, model.HandleTarget)
}

func (s *Store) handleLiveLocked(nodeID, handleID string, t model.HandleType) bool {
	if handleID == "" {
		return true
	}
	n := s.nodeLocked(nodeID)
	if n == nil {
		return false
	}
	if _, ok := s.registry.Kind(n.Type); !ok {
		return true
	}
	return s.registry.HasHandle(n, handleID, t)
}

// refreshStaleLocked recomputes the stale flag of every edge touching one of the
// given nodes and returns the ids of edges that just became stale.
func (s *Store) refreshStaleLocked(nodeIDs map[string]bool) []string {
	newlyStale := make([]string, 0)
	if len(nodeIDs) == 0 {
		return newlyStale
	}

	for i, e := range s.edges {
		if !nodeIDs[e.Source] && !nodeIDs[e.Target] {
			continue
		}
		stale := s.isStaleLocked(e)
		if stale == e.Stale {
			continue
		}
		flagged := *e
		flagged.Stale = stale
		s.edges[i] = &flagged
		if stale {
			newlyStale = append(newlyStale, e.ID)
		}
	}
	return newlyStale
}

// PruneStaleEdges removes every edge currently flagged stale and returns their ids.
// Stale edges are otherwise kept: deleting a reference from text never retracts
// its edge on its own.
func (s *Store) PruneStaleEdges() []string {
	s.mu.Lock()
	removed := make([]string, 0)
	kept := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.Stale {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	s.mu.Unlock()

	if len(removed) > 0 {
		logging.Info("pruned stale edges", "count", len(removed))
		s.notify(Event{Type: EventPruned})
	}
	return removed
}
