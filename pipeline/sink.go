// Package pipeline wires the three processing stages together: a file
// ingestor feeding raw lines, a parser worker pool producing enriched
// events, and a batching indexer that persists events and drives the alert
// engine. The orchestrator owns queue lifecycle and graceful shutdown.
package pipeline

import (
	"sync"

	"github.com/justapithecus/palisade/types"
)

// Sink abstracts persistence for the indexing stage.
// Implementations may write to SQLite, forward elsewhere, or stub for testing.
type Sink interface {
	// WriteEvents persists a batch of events.
	// Must preserve ordering within the batch.
	// Returns error on failure; the indexer counts the failure and moves on.
	WriteEvents(events []*types.Event) error

	// WriteAlert persists a single fired alert.
	WriteAlert(a *types.Alert) error
}

// StubSink is a test sink that accepts writes without persisting.
// Tracks write statistics for test assertions.
type StubSink struct {
	mu sync.Mutex

	// EventsWritten is the total count of events written.
	EventsWritten int64
	// EventBatches is the number of WriteEvents calls.
	EventBatches int64

	// WrittenEvents stores all written events for inspection.
	WrittenEvents []*types.Event
	// WrittenAlerts stores all written alerts for inspection.
	WrittenAlerts []*types.Alert

	// ErrorOnWrite, if non-nil, is returned by WriteEvents and WriteAlert.
	ErrorOnWrite error

	batchSizes []int
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteEvents records the events without persisting.
func (s *StubSink) WriteEvents(events []*types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.EventsWritten += int64(len(events))
	s.EventBatches++
	s.WrittenEvents = append(s.WrittenEvents, events...)
	s.batchSizes = append(s.batchSizes, len(events))
	return nil
}

// WriteAlert records the alert without persisting.
func (s *StubSink) WriteAlert(a *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.WrittenAlerts = append(s.WrittenAlerts, a)
	return nil
}

// Stats returns the write counters under lock.
func (s *StubSink) Stats() (events, batches, alerts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EventsWritten, s.EventBatches, int64(len(s.WrittenAlerts))
}

// BatchSizes returns the size of each WriteEvents call in order.
func (s *StubSink) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batchSizes...)
}
