package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/justapithecus/palisade/adapter"
	"github.com/justapithecus/palisade/alert"
	"github.com/justapithecus/palisade/log"
	"github.com/justapithecus/palisade/metrics"
	"github.com/justapithecus/palisade/types"
)

// ShutdownGrace is how long the orchestrator waits for stages to join after
// cancellation before abandoning them.
const ShutdownGrace = 2 * time.Second

// Queue sizing. The raw queue scales with the worker count so a stalled pool
// backpressures the ingestor; the parsed queue holds a handful of batches;
// the alert queue is deep enough that the sampler never makes the indexer
// wait.
const (
	rawQueuePerWorker  = 100
	parsedQueueBatches = 10
	alertQueueSize     = 1024
)

// Config carries everything a run needs. Zero values fall back to defaults
// where one exists; InputPath and Sink are required.
type Config struct {
	RunID     string
	InputPath string
	Workers   int
	Rate      int           // lines/sec, 0 = unlimited
	BatchSize int
	RunTime   time.Duration // 0 = single pass over the input

	AlertWindow    time.Duration
	AlertThreshold int

	SampleInterval time.Duration
	MetricsOut     io.Writer // CSV destination, required

	Sink     Sink
	Notifier adapter.Notifier // optional
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Duration time.Duration
	Metrics  metrics.Snapshot

	// AlertsDrained is the sampler's count of alerts consumed off the queue.
	AlertsDrained int64

	// ResidualRaw and ResidualParsed are queue depths at shutdown. Both are
	// zero after a clean drain; non-zero values mean the run was interrupted.
	ResidualRaw    int
	ResidualParsed int

	// Interrupted is true when the run ended by cancellation rather than by
	// the run-time budget.
	Interrupted bool
}

// Pipeline owns the queues and stage goroutines for one run.
type Pipeline struct {
	cfg       Config
	collector *metrics.Collector
	logger    *log.Logger
}

// New creates a pipeline for a single run.
func New(cfg Config, collector *metrics.Collector, logger *log.Logger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Pipeline{cfg: cfg, collector: collector, logger: logger}
}

// Run executes the full ingest-parse-index cycle and blocks until every
// stage has joined or the shutdown grace expires.
//
// Clean termination cascades through channel closes: the ingestor closes the
// raw queue when its budget expires or its input is exhausted, the pool
// closes the parsed queue once
// its workers drain, and the indexer flushes the final partial batch and
// closes the alert queue. Cancellation short-circuits all stages at once.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	qRaw := make(chan types.RawMessage, p.cfg.Workers*rawQueuePerWorker)
	qParsed := make(chan *types.Event, p.cfg.BatchSize*parsedQueueBatches)
	qAlerts := make(chan *types.Alert, alertQueueSize)

	engine := alert.NewEngine(p.cfg.AlertWindow, p.cfg.AlertThreshold, alert.DefaultRingSize)

	ingestor := NewIngestor(p.cfg.InputPath, p.cfg.Rate, p.cfg.RunTime, qRaw, p.collector, p.logger)
	pool := NewParserPool(p.cfg.Workers, qRaw, qParsed, p.collector, p.logger)
	indexer := NewIndexer(p.cfg.Sink, engine, p.cfg.Notifier, qParsed, qAlerts, p.cfg.BatchSize, p.collector, p.logger, p.cfg.RunID)

	depths := func() (int, int) {
		raw, parsed := len(qRaw), len(qParsed)
		recordQueueDepths(raw, parsed)
		return raw, parsed
	}
	proc, err := metrics.NewProcessStats()
	if err != nil {
		p.logger.Warn("process stats unavailable", map[string]any{"error": err.Error()})
		proc = nil
	}
	sampler := metrics.NewSampler(p.cfg.MetricsOut, p.collector, depths, proc, qAlerts, p.cfg.SampleInterval)

	// The sampler ends when the indexer closes the alert queue; its context
	// only needs to cover forced shutdown.
	samplerCtx, samplerCancel := context.WithCancel(context.Background())
	defer samplerCancel()

	ingestorDone := make(chan error, 1)
	poolDone := make(chan error, 1)
	indexerDone := make(chan error, 1)
	samplerDone := make(chan int64, 1)

	go func() { ingestorDone <- ingestor.Run(ctx) }()
	go func() { poolDone <- pool.Run(ctx) }()
	go func() { indexerDone <- indexer.Run(ctx) }()
	go func() {
		drained, err := sampler.Run(samplerCtx)
		if err != nil {
			p.logger.Error("metrics sampler failed", map[string]any{"error": err.Error()})
		}
		samplerDone <- drained
	}()

	var ingestErr, poolErr, indexErr error
	interrupted := false

	// Stage joins follow the pipeline order. Each wait is bounded by the
	// grace period once the run has been interrupted.
	ingestErr = p.join(ctx, "ingestor", ingestorDone, &interrupted)
	poolErr = p.join(ctx, "parser", poolDone, &interrupted)
	indexErr = p.join(ctx, "indexer", indexerDone, &interrupted)

	// Indexer exit (or abandonment) ends the sampler.
	samplerCancel()
	var drained int64
	select {
	case drained = <-samplerDone:
	case <-time.After(ShutdownGrace):
		p.logger.Warn("abandoning stage after grace", map[string]any{"stage": "sampler"})
	}

	res := &Result{
		RunID:          p.cfg.RunID,
		Duration:       time.Since(started),
		Metrics:        p.collector.Snapshot(),
		AlertsDrained:  drained,
		ResidualRaw:    len(qRaw),
		ResidualParsed: len(qParsed),
		Interrupted:    interrupted,
	}

	for _, err := range []error{ingestErr, poolErr, indexErr} {
		if err != nil && !IsCanceledError(err) {
			return res, err
		}
	}
	return res, nil
}

// join waits for one stage, bounded by the grace period if the run context
// is already canceled. A canceled stage marks the run interrupted but is not
// itself a failure.
func (p *Pipeline) join(ctx context.Context, stage string, done <-chan error, interrupted *bool) error {
	var err error
	if ctx.Err() == nil {
		select {
		case err = <-done:
		case <-ctx.Done():
			// Run interrupted mid-wait; fall through to the bounded wait.
			select {
			case err = <-done:
			case <-time.After(ShutdownGrace):
				p.logger.Warn("abandoning stage after grace", map[string]any{"stage": stage})
				*interrupted = true
				return nil
			}
		}
	} else {
		select {
		case err = <-done:
		case <-time.After(ShutdownGrace):
			p.logger.Warn("abandoning stage after grace", map[string]any{"stage": stage})
			*interrupted = true
			return nil
		}
	}

	if IsCanceledError(err) {
		*interrupted = true
	}
	return err
}
