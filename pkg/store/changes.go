package store

import (
	"fmt"

	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
)

// ApplyNodeChanges applies a batch of node patches atomically.
//
// The batch is validated before anything is written: an unknown change type or a
// malformed entry rejects the whole batch. Adds of an existing id, and position or
// selection changes for unknown ids, are skipped. Dimension reports are accepted
// and dropped. Removing a node also removes every edge attached to it.
func (s *Store) ApplyNodeChanges(changes []model.NodeChange) error {
	for i, c := range changes {
		if err := validateNodeChange(c); err != nil {
			return fmt.Errorf("node change %d: %w", i, err)
		}
	}

	s.mu.Lock()
	touched := make(map[string]bool)
	for _, c := range changes {
		switch c.Type.Normalize() {
		case model.ChangeAdd:
			if s.addNodeLocked(c.Item) == nil {
				logging.Debug("ignoring duplicate node", "nodeID", c.Item.ID)
			}

		case model.ChangeRemove:
			s.removeNodeLocked(c.ID)

		case model.ChangePosition:
			if c.Position == nil {
				continue
			}
			if i := s.indexOfNodeLocked(c.ID); i >= 0 {
				moved := *s.nodes[i]
				moved.Position = *c.Position
				s.nodes[i] = &moved
			}

		case model.ChangeSelect:
			if i := s.indexOfNodeLocked(c.ID); i >= 0 {
				sel := *s.nodes[i]
				sel.Selected = c.Selected
				s.nodes[i] = &sel
			}

		case model.ChangeReplace:
			if i := s.indexOfNodeLocked(c.Item.ID); i >= 0 {
				r := c.Item.Clone()
				s.nodes[i] = r
				touched[r.ID] = true
			}
		}
	}
	s.refreshStaleLocked(touched)
	s.mu.Unlock()

	logging.Debug("applied node changes", "count", len(changes))
	s.notify(Event{Type: EventNodesChanged})
	return nil
}

func validateNodeChange(c model.NodeChange) error {
	switch c.Type.Normalize() {
	case model.ChangeAdd, model.ChangeReplace:
		if c.Item == nil || c.Item.ID == "" {
			return fmt.Errorf("%w: %s requires an item with an id", ErrInvalidChange, c.Type)
		}
	case model.ChangeRemove, model.ChangePosition, model.ChangeSelect, model.ChangeDimensions:
		if c.ID == "" {
			return fmt.Errorf("%w: %s requires an id", ErrInvalidChange, c.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChange, c.Type)
	}
	return nil
}

func (s *Store) removeNodeLocked(id string) {
	i := s.indexOfNodeLocked(id)
	if i < 0 {
		return
	}

	kept := make([]*model.Node, 0, len(s.nodes)-1)
	kept = append(kept, s.nodes[:i]...)
	kept = append(kept, s.nodes[i+1:]...)
	s.nodes = kept
	delete(s.created, id)

	edges := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	s.edges = edges
}

// ApplyEdgeChanges applies a batch of edge patches atomically.
// An added edge must reference existing nodes; otherwise the whole batch is rejected.
func (s *Store) ApplyEdgeChanges(changes []model.EdgeChange) error {
	s.mu.Lock()
	for i, c := range changes {
		if err := s.validateEdgeChangeLocked(c); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("edge change %d: %w", i, err)
		}
	}

	for _, c := range changes {
		switch c.Type.Normalize() {
		case model.ChangeAdd:
			e := cloneEdge(c.Item)
			e.Stale = s.isStaleLocked(e)
			s.edges = append(s.edges, e)

		case model.ChangeRemove:
			s.removeEdgeLocked(c.ID)

		case model.ChangeSelect:
			for i, e := range s.edges {
				if e.ID == c.ID {
					sel := *e
					sel.Selected = c.Selected
					s.edges[i] = &sel
				}
			}

		case model.ChangeReplace:
			for i, e := range s.edges {
				if e.ID == c.Item.ID {
					r := cloneEdge(c.Item)
					r.Stale = s.isStaleLocked(r)
					s.edges[i] = r
				}
			}
		}
	}
	s.mu.Unlock()

	logging.Debug("applied edge changes", "count", len(changes))
	s.notify(Event{Type: EventEdgesChanged})
	return nil
}

func (s *Store) validateEdgeChangeLocked(c model.EdgeChange) error {
	switch c.Type.Normalize() {
	case model.ChangeAdd, model.ChangeReplace:
		if c.Item == nil || c.Item.ID == "" {
			return fmt.Errorf("%w: %s requires an item with an id", ErrInvalidChange, c.Type)
		}
		return s.checkEndpointsLocked(c.Item.Source, c.Item.Target)
	case model.ChangeRemove, model.ChangeSelect:
		if c.ID == "" {
			return fmt.Errorf("%w: %s requires an id", ErrInvalidChange, c.Type)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChange, c.Type)
	}
}

func (s *Store) checkEndpointsLocked(source, target string) error {
	if s.nodeLocked(source) == nil {
		return fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if s.nodeLocked(target) == nil {
		return fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}
	return nil
}

func (s *Store) removeEdgeLocked(id string) {
	edges := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	s.edges = edges
}

// Connect appends an edge for a user-drawn connection. The edge always gets the
// smoothstep/animated/arrow treatment. Connections are not deduplicated.
func (s *Store) Connect(conn model.Connection) (*model.Edge, error) {
	s.mu.Lock()
	if err := s.checkEndpointsLocked(conn.Source, conn.Target); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	e := styledEdge(&model.Edge{
		ID:           fmt.Sprintf("reactflow__edge-%s%s-%s%s", conn.Source, conn.SourceHandle, conn.Target, conn.TargetHandle),
		Source:       conn.Source,
		SourceHandle: conn.SourceHandle,
		Target:       conn.Target,
		TargetHandle: conn.TargetHandle,
	})
	e.Stale = s.isStaleLocked(e)
	s.edges = append(s.edges, e)
	s.mu.Unlock()

	logging.Debug("connected nodes", "source", conn.Source, "target", conn.Target, "edgeID", e.ID)
	s.notify(Event{Type: EventConnected, NodeID: conn.Target})
	return e, nil
}

// styledEdge applies the fixed visual treatment shared by manual and automatic wiring
func styledEdge(e *model.Edge) *model.Edge {
	e.Type = "smoothstep"
	e.Animated = true
	e.MarkerEnd = &model.Marker{Type: model.MarkerArrow, Height: "20px", Width: "20px"}
	return e
}

func cloneEdge(e *model.Edge) *model.Edge {
	c := *e
	if e.MarkerEnd != nil {
		m := *e.MarkerEnd
		c.MarkerEnd = &m
	}
	if e.Data != nil {
		c.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			c.Data[k] = v
		}
	}
	return &c
}
