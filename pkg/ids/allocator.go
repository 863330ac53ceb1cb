package ids

import (
	"fmt"
	"sync"
)

// Allocator issues human-readable node ids of the form "<type>-<n>".
// Counters are kept per type for the lifetime of the allocator and are never
// decremented, so an id is never handed out twice even after its node is removed.
type Allocator struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewAllocator creates an allocator with every counter at zero
func NewAllocator() *Allocator {
	return &Allocator{
		counters: make(map[string]int),
	}
}

// Next increments the counter for nodeType and returns the formatted id
func (a *Allocator) Next(nodeType string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counters[nodeType]++
	return fmt.Sprintf("%s-%d", nodeType, a.counters[nodeType])
}

// Observe advances the counter for nodeType so that it is at least n.
// Used when nodes with externally chosen ids ("input-7") enter the graph.
func (a *Allocator) Observe(nodeType string, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > a.counters[nodeType] {
		a.counters[nodeType] = n
	}
}
