package pipeline

import (
	"context"
	"time"

	"github.com/justapithecus/palisade/adapter"
	"github.com/justapithecus/palisade/alert"
	"github.com/justapithecus/palisade/log"
	"github.com/justapithecus/palisade/metrics"
	"github.com/justapithecus/palisade/types"
)

// notifyTimeout bounds each best-effort alert publish so a slow downstream
// cannot stall indexing.
const notifyTimeout = 2 * time.Second

// Indexer drains parsed events, commits them in fixed-size batches, and
// evaluates the alert engine after every flush. Fired alerts are persisted,
// pushed onto the alert queue for the metrics sampler, and published to the
// optional notifier.
type Indexer struct {
	sink      Sink
	engine    *alert.Engine
	notifier  adapter.Notifier // nil disables notification
	in        <-chan *types.Event
	alerts    chan<- *types.Alert
	batchSize int
	collector *metrics.Collector
	logger    *log.Logger
	runID     string
	now       func() time.Time
}

// NewIndexer creates an indexer. notifier may be nil.
func NewIndexer(
	sink Sink,
	engine *alert.Engine,
	notifier adapter.Notifier,
	in <-chan *types.Event,
	alerts chan<- *types.Alert,
	batchSize int,
	collector *metrics.Collector,
	logger *log.Logger,
	runID string,
) *Indexer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Indexer{
		sink:      sink,
		engine:    engine,
		notifier:  notifier,
		in:        in,
		alerts:    alerts,
		batchSize: batchSize,
		collector: collector,
		logger:    logger.WithStage("indexer"),
		runID:     runID,
		now:       time.Now,
	}
}

// Run accumulates events until the input channel closes or the context is
// canceled. A partial batch is flushed before returning, in both cases, so
// accepted events are not lost on shutdown. The alert channel is closed on
// return.
func (ix *Indexer) Run(ctx context.Context) error {
	defer close(ix.alerts)

	batch := make([]*types.Event, 0, ix.batchSize)

	for {
		select {
		case <-ctx.Done():
			ix.flush(ctx, batch)
			return &StageError{Stage: "indexer", Kind: StageErrorCanceled, Err: ctx.Err()}

		case ev, ok := <-ix.in:
			if !ok {
				ix.flush(ctx, batch)
				return nil
			}

			ev.IndexedAt = ix.now()
			batch = append(batch, ev)
			if len(batch) >= ix.batchSize {
				ix.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// flush commits one batch and runs an alert evaluation pass. A failed commit
// drops the batch; events are not retried, only counted.
func (ix *Indexer) flush(ctx context.Context, batch []*types.Event) {
	if len(batch) == 0 {
		return
	}

	if err := ix.sink.WriteEvents(batch); err != nil {
		ix.collector.IncStoreErrors()
		recordStoreError()
		ix.logger.Error("batch write failed", map[string]any{
			"batch_size": len(batch),
			"error":      err.Error(),
		})
		return
	}

	ix.collector.AddEventsIndexed(int64(len(batch)))
	ix.collector.IncBatchesFlushed()
	recordBatchFlushed(len(batch))

	// Observations are keyed by index time, not the log-line timestamp, so
	// replayed files with historical timestamps still trip the window.
	for _, ev := range batch {
		if ev.Suspicious {
			ix.engine.Observe(ev.IP, ev.IndexedAt)
		}
	}

	for _, a := range ix.engine.Evaluate(ix.now()) {
		ix.emit(ctx, a)
	}
}

// emit persists one alert and fans it out to the sampler queue and notifier.
func (ix *Indexer) emit(ctx context.Context, a *types.Alert) {
	if err := ix.sink.WriteAlert(a); err != nil {
		ix.collector.IncStoreErrors()
		recordStoreError()
		ix.logger.Error("alert write failed", map[string]any{
			"alert_id": a.ID,
			"ip":       a.IP,
			"error":    err.Error(),
		})
	}

	ix.collector.IncAlertsFired()
	recordAlertFired()
	ix.logger.Warn("alert fired", map[string]any{
		"alert_id": a.ID,
		"type":     string(a.Type),
		"ip":       a.IP,
		"count":    a.Count,
	})

	// Non-blocking hand-off to the sampler; a full queue drops the copy, the
	// persisted row remains authoritative.
	select {
	case ix.alerts <- a:
	default:
		ix.logger.Debug("alert queue full", map[string]any{"alert_id": a.ID})
	}

	if ix.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := ix.notifier.Publish(notifyCtx, adapter.FromAlert(a, ix.runID)); err != nil {
		ix.collector.IncNotifyDrops()
		recordNotifyDrop()
		ix.logger.Warn("alert notify failed", map[string]any{
			"alert_id": a.ID,
			"error":    err.Error(),
		})
	}
}
