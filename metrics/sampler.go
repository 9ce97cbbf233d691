package metrics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/justapithecus/palisade/types"
)

// DefaultSampleInterval is how often the sampler writes a CSV row.
const DefaultSampleInterval = 5 * time.Second

// csvHeader is the fixed column set. Consumers parse by position, so the
// order is part of the file format.
var csvHeader = []string{
	"timestamp",
	"runtime_sec",
	"events_processed",
	"ingestion_queue_size",
	"parsed_queue_size",
	"cpu_percent",
	"memory_mb",
	"throughput_eps",
	"alerts_count",
}

// QueueDepths reports the instantaneous backlog of the two pipeline queues.
type QueueDepths func() (raw, parsed int)

// ProcessStats reports the sampling process's CPU percentage and resident
// memory in MB. Injectable so tests run without real process inspection.
type ProcessStats func() (cpuPercent, memMB float64)

// NewProcessStats returns a ProcessStats backed by the current process.
//
// CPU percent is measured as usage since the previous call, so the first
// sample reads 0.
func NewProcessStats() (ProcessStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("metrics: inspect process: %w", err)
	}
	// Prime the CPU delta baseline.
	_, _ = proc.Percent(0)

	return func() (float64, float64) {
		cpu, err := proc.Percent(0)
		if err != nil {
			cpu = 0
		}
		var memMB float64
		if mi, err := proc.MemoryInfo(); err == nil {
			memMB = float64(mi.RSS) / (1024 * 1024)
		}
		return cpu, memMB
	}, nil
}

// Sampler periodically appends one CSV row of pipeline health to its writer.
//
// It is also the terminal consumer of the alert channel: alerts drained
// between ticks accumulate into the alerts_count column, which is a running
// total, not a per-interval delta.
type Sampler struct {
	collector *Collector
	depths    QueueDepths
	proc      ProcessStats
	interval  time.Duration

	w      *csv.Writer
	alerts <-chan *types.Alert

	alertsSeen int64
	started    time.Time
	now        func() time.Time
}

// NewSampler creates a sampler writing rows to w. Interval <= 0 falls back
// to DefaultSampleInterval. proc may be nil, in which case CPU and memory
// columns read 0.
func NewSampler(
	w io.Writer,
	collector *Collector,
	depths QueueDepths,
	proc ProcessStats,
	alerts <-chan *types.Alert,
	interval time.Duration,
) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if proc == nil {
		proc = func() (float64, float64) { return 0, 0 }
	}
	return &Sampler{
		collector: collector,
		depths:    depths,
		proc:      proc,
		interval:  interval,
		w:         csv.NewWriter(w),
		alerts:    alerts,
		now:       time.Now,
	}
}

// WithClock overrides the sampler's clock. Test hook.
func (s *Sampler) WithClock(now func() time.Time) *Sampler {
	s.now = now
	return s
}

// Run writes the header, then one row per interval until ctx is canceled or
// the alert channel closes, then a final row capturing end-of-run state.
//
// Returns the total number of alerts drained.
func (s *Sampler) Run(ctx context.Context) (int64, error) {
	s.started = s.now()

	if err := s.w.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("metrics: write header: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return 0, fmt.Errorf("metrics: flush header: %w", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drainAlerts()
			err := s.writeRow()
			return s.alertsSeen, err

		case _, ok := <-s.alerts:
			if !ok {
				// Producer finished; emit the closing row.
				err := s.writeRow()
				return s.alertsSeen, err
			}
			s.alertsSeen++

		case <-ticker.C:
			s.drainAlerts()
			if err := s.writeRow(); err != nil {
				return s.alertsSeen, err
			}
		}
	}
}

// drainAlerts consumes every alert currently buffered without blocking.
func (s *Sampler) drainAlerts() {
	for {
		select {
		case _, ok := <-s.alerts:
			if !ok {
				return
			}
			s.alertsSeen++
		default:
			return
		}
	}
}

// writeRow appends one sample and flushes, so a crash never loses more than
// the current row.
func (s *Sampler) writeRow() error {
	now := s.now()
	runtimeSec := now.Sub(s.started).Seconds()

	snap := s.collector.Snapshot()
	rawDepth, parsedDepth := 0, 0
	if s.depths != nil {
		rawDepth, parsedDepth = s.depths()
	}

	// Parsed events still queued have been processed by the parser stage even
	// though the indexer has not committed them yet.
	processed := snap.EventsIndexed + int64(parsedDepth)

	throughput := 0.0
	if runtimeSec > 0 {
		throughput = float64(processed) / runtimeSec
	}

	cpu, memMB := s.proc()

	row := []string{
		now.UTC().Format(time.RFC3339),
		strconv.FormatFloat(runtimeSec, 'f', 1, 64),
		strconv.FormatInt(processed, 10),
		strconv.Itoa(rawDepth),
		strconv.Itoa(parsedDepth),
		strconv.FormatFloat(cpu, 'f', 1, 64),
		strconv.FormatFloat(memMB, 'f', 1, 64),
		strconv.FormatFloat(throughput, 'f', 1, 64),
		strconv.FormatInt(s.alertsSeen, 10),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("metrics: write row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("metrics: flush row: %w", err)
	}
	return nil
}
