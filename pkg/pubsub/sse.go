package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/pipeline-builder/pkg/logging"
)

// subscriberBuffer is how many events a slow client may lag behind before events are dropped
const subscriberBuffer = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// topic is the state of one named stream
type topic struct {
	config  TopicConfig
	version int
	history []Event
	subs    map[*sseSubscription]struct{}
}

func (t *topic) record(e Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.history = append(t.history, e)
	if over := len(t.history) - t.config.BufferSize; over > 0 {
		t.history = append([]Event(nil), t.history[over:]...)
	}
}

// replay is what a new subscriber receives before live events
func (t *topic) replay() []Event {
	if len(t.history) == 0 {
		return nil
	}
	if t.config.ReplayAll {
		return append([]Event(nil), t.history...)
	}
	return []Event{t.history[len(t.history)-1]}
}

// SSEPublisher implements Publisher for Server-Sent Events streams.
// All topic state, including each subscription's channel, is guarded by mu:
// events are sent and channels closed only while holding it.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

// NewSSEPublisher creates a publisher. Topics missing from topics are unbuffered.
func NewSSEPublisher(topics map[string]TopicConfig) *SSEPublisher {
	p := &SSEPublisher{topics: make(map[string]*topic)}
	for name, cfg := range topics {
		p.topicLocked(name).config = cfg
	}
	return p
}

func (p *SSEPublisher) topicLocked(name string) *topic {
	t, ok := p.topics[name]
	if !ok {
		t = &topic{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// Subscribe creates a subscription that first receives the topic's buffered
// history, then live events. It is closed when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	t := p.topicLocked(name)
	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	backlog := t.replay()
	for _, e := range backlog {
		select {
		case sub.events <- e:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", name, "version", e.Version)
		}
	}
	t.subs[sub] = struct{}{}
	p.mu.Unlock()

	if len(backlog) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", name, "count", len(backlog))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic. Subscribers that are
// too far behind miss the event rather than block the publisher.
func (p *SSEPublisher) Publish(name string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.topicLocked(name)
	t.version++
	event := Event{
		Topic:   name,
		Type:    eventType,
		Data:    payload,
		Version: t.version,
	}
	t.record(event)

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", name, "type", eventType)
		}
	}
	return nil
}

// Close ends every subscription. Publish and Subscribe fail afterwards.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			sub.closeLocked()
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
	sub.closeLocked()
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool // guarded by publisher.mu
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events is closed when the subscription ends
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close ends the subscription; it is safe to call more than once
func (s *sseSubscription) Close() error {
	s.publisher.unsubscribe(s)
	return nil
}

func (s *sseSubscription) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// WriteSSE writes an event as one SSE frame: "data: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", frame)
	return err
}
