package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics holds the Prometheus view of pipeline counters, registered
// lazily so binaries that never start a pipeline register nothing.
type promMetrics struct {
	once sync.Once

	linesIngested prometheus.Counter
	eventsParsed  prometheus.Counter
	parseDrops    prometheus.Counter

	eventsIndexed  prometheus.Counter
	batchesFlushed prometheus.Counter
	storeErrors    prometheus.Counter

	alertsFired prometheus.Counter
	notifyDrops prometheus.Counter

	batchSize prometheus.Histogram

	rawQueueDepth    prometheus.Gauge
	parsedQueueDepth prometheus.Gauge
}

var pipeMetrics promMetrics

func (m *promMetrics) init() {
	m.once.Do(func() {
		m.linesIngested = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_lines_ingested_total", Help: "Raw log lines read from the input file"})
		m.eventsParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_events_parsed_total", Help: "Lines successfully parsed into events"})
		m.parseDrops = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_parse_drops_total", Help: "Lines rejected by both log grammars"})

		m.eventsIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_events_indexed_total", Help: "Events committed to storage"})
		m.batchesFlushed = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_batches_flushed_total", Help: "Committed event batches"})
		m.storeErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_store_errors_total", Help: "Failed storage writes"})

		m.alertsFired = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_alerts_fired_total", Help: "Alerts raised by the sliding-window engine"})
		m.notifyDrops = prometheus.NewCounter(prometheus.CounterOpts{Name: "palisade_notify_drops_total", Help: "Alerts the notifier failed to deliver"})

		m.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "palisade_batch_size",
			Help:    "Size of committed event batches",
			Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000},
		})

		m.rawQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{Name: "palisade_raw_queue_depth", Help: "Lines waiting for the parser pool"})
		m.parsedQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{Name: "palisade_parsed_queue_depth", Help: "Events waiting for the indexer"})

		prometheus.MustRegister(
			m.linesIngested, m.eventsParsed, m.parseDrops,
			m.eventsIndexed, m.batchesFlushed, m.storeErrors,
			m.alertsFired, m.notifyDrops,
			m.batchSize,
			m.rawQueueDepth, m.parsedQueueDepth,
		)
	})
}

// record helpers - used by the stages alongside the run collector
func recordLineIngested() { pipeMetrics.init(); pipeMetrics.linesIngested.Inc() }
func recordEventParsed()  { pipeMetrics.init(); pipeMetrics.eventsParsed.Inc() }
func recordParseDrop()    { pipeMetrics.init(); pipeMetrics.parseDrops.Inc() }
func recordStoreError()   { pipeMetrics.init(); pipeMetrics.storeErrors.Inc() }
func recordAlertFired()   { pipeMetrics.init(); pipeMetrics.alertsFired.Inc() }
func recordNotifyDrop()   { pipeMetrics.init(); pipeMetrics.notifyDrops.Inc() }

func recordQueueDepths(raw, parsed int) {
	pipeMetrics.init()
	pipeMetrics.rawQueueDepth.Set(float64(raw))
	pipeMetrics.parsedQueueDepth.Set(float64(parsed))
}

func recordBatchFlushed(size int) {
	pipeMetrics.init()
	pipeMetrics.eventsIndexed.Add(float64(size))
	pipeMetrics.batchesFlushed.Inc()
	pipeMetrics.batchSize.Observe(float64(size))
}
