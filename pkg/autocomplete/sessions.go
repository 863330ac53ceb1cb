package autocomplete

import "sync"

type sessionKey struct {
	nodeID string
	field  string
}

// Sessions holds one engine per edited field
type Sessions struct {
	mu      sync.Mutex
	source  Source
	engines map[sessionKey]*Engine
}

// NewSessions creates an empty session table
func NewSessions(source Source) *Sessions {
	return &Sessions{
		source:  source,
		engines: make(map[sessionKey]*Engine),
	}
}

// Engine returns the engine of a field, creating it on first use
func (s *Sessions) Engine(nodeID, field string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{nodeID, field}
	e, ok := s.engines[key]
	if !ok {
		e = NewEngine(s.source, nodeID, field)
		s.engines[key] = e
	}
	return e
}

// Lookup returns the engine of a field if one exists
func (s *Sessions) Lookup(nodeID, field string) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[sessionKey{nodeID, field}]
	return e, ok
}

// Forget drops every engine of a node
func (s *Sessions) Forget(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.engines {
		if k.nodeID == nodeID {
			delete(s.engines, k)
		}
	}
}
