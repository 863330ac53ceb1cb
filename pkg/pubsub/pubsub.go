// Package pubsub fans out builder events to streaming clients.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed is returned by a publisher after Close
var ErrClosed = errors.New("pubsub: publisher is closed")

// Topics served by the builder
const (
	TopicGraph    = "graph"    // every committed store mutation
	TopicAnalysis = "analysis" // submission progress and results
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "field_updated", "submitted", "failed"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GraphChange is the payload of TopicGraph events
type GraphChange struct {
	NodeID string `json:"nodeId,omitempty"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// AnalysisStatus is the payload of TopicAnalysis events
type AnalysisStatus struct {
	State    string `json:"state"` // submitting, done, failed
	Analyzer string `json:"analyzer"`
	Message  string `json:"message,omitempty"`
	NumNodes int    `json:"num_nodes,omitempty"`
	NumEdges int    `json:"num_edges,omitempty"`
	IsDAG    *bool  `json:"is_dag,omitempty"`
}

// DefaultTopics returns the buffering used by the builder: late subscribers to the
// graph topic get the latest change, analysis subscribers get the recent history.
func DefaultTopics() map[string]TopicConfig {
	return map[string]TopicConfig{
		TopicGraph:    {BufferSize: 1},
		TopicAnalysis: {BufferSize: 10, ReplayAll: true},
	}
}
