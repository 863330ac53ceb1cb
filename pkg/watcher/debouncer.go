package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/logging"
)

// Debouncer batches rapid file system events so an editor's save burst causes
// one reload
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	quiet := time.NewTimer(d.quietPeriod)
	quiet.Stop()
	maxWait := time.NewTimer(d.maxWait)
	maxWait.Stop()
	waiting := false

	accumulated := make(map[ChangeType][]string)
	eventCount := 0

	flush := func() {
		quiet.Stop()
		maxWait.Stop()
		waiting = false
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Removals first so that remove-then-recreate ends in a modification
		for _, t := range []ChangeType{ChangeTypeRemoved, ChangeTypeModified} {
			if paths := accumulated[t]; len(paths) > 0 {
				d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			close(d.output)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				close(d.output)
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			quiet.Reset(d.quietPeriod)
			if !waiting {
				maxWait.Reset(d.maxWait)
				waiting = true
			}

		case <-quiet.C:
			flush()

		case <-maxWait.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
