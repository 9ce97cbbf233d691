// Package metrics provides per-run metrics collection and periodic CSV
// sampling.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies; every pipeline stage increments it
// directly, and the Sampler reads point-in-time snapshots for its CSV rows.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Ingestion
	LinesIngested int64

	// Parsing
	EventsParsed int64
	ParseDrops   int64

	// Indexing
	EventsIndexed  int64
	BatchesFlushed int64
	StoreErrors    int64

	// Alerting
	AlertsFired int64
	NotifyDrops int64

	// Dimensions (informational, set at construction)
	RunID string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	linesIngested int64

	eventsParsed int64
	parseDrops   int64

	eventsIndexed  int64
	batchesFlushed int64
	storeErrors    int64

	alertsFired int64
	notifyDrops int64

	runID string
}

// NewCollector creates a Collector labeled with the run identifier.
func NewCollector(runID string) *Collector {
	return &Collector{runID: runID}
}

// AddLinesIngested records n raw lines read from the input.
func (c *Collector) AddLinesIngested(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.linesIngested += n
	c.mu.Unlock()
}

// IncEventsParsed records one successfully parsed event.
func (c *Collector) IncEventsParsed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsParsed++
	c.mu.Unlock()
}

// IncParseDrops records one line rejected by both grammars.
func (c *Collector) IncParseDrops() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.parseDrops++
	c.mu.Unlock()
}

// AddEventsIndexed records n events committed to storage.
func (c *Collector) AddEventsIndexed(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsIndexed += n
	c.mu.Unlock()
}

// IncBatchesFlushed records one committed batch.
func (c *Collector) IncBatchesFlushed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.batchesFlushed++
	c.mu.Unlock()
}

// IncStoreErrors records one failed storage write.
func (c *Collector) IncStoreErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeErrors++
	c.mu.Unlock()
}

// IncAlertsFired records one alert raised by the engine.
func (c *Collector) IncAlertsFired() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.alertsFired++
	c.mu.Unlock()
}

// IncNotifyDrops records one alert the notifier could not deliver.
func (c *Collector) IncNotifyDrops() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyDrops++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
// Nil-receiver safe; returns a zero Snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		LinesIngested:  c.linesIngested,
		EventsParsed:   c.eventsParsed,
		ParseDrops:     c.parseDrops,
		EventsIndexed:  c.eventsIndexed,
		BatchesFlushed: c.batchesFlushed,
		StoreErrors:    c.storeErrors,
		AlertsFired:    c.alertsFired,
		NotifyDrops:    c.notifyDrops,
		RunID:          c.runID,
	}
}
