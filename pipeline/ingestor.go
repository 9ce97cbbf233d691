package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/justapithecus/palisade/log"
	"github.com/justapithecus/palisade/metrics"
	"github.com/justapithecus/palisade/types"
)

// Rate-shaping constants. A bounded rate is delivered in ten chunks per
// second; an unbounded rate still yields between chunks so downstream stages
// get scheduled.
const (
	ratedChunkPause     = 100 * time.Millisecond
	unboundedChunkSize  = 100
	unboundedChunkPause = 10 * time.Millisecond
)

// Ingestor replays a log file into the raw queue. With a positive run-time
// budget the file loops back to the start at EOF until the budget expires; a
// zero budget reads the file once and stops at EOF.
type Ingestor struct {
	path      string
	rate      int           // lines per second, 0 = unlimited
	budget    time.Duration // total replay time, 0 = single pass
	out       chan<- types.RawMessage
	collector *metrics.Collector
	logger    *log.Logger
	now       func() time.Time
}

// NewIngestor creates an ingestor replaying the file at path into out.
func NewIngestor(
	path string,
	rate int,
	budget time.Duration,
	out chan<- types.RawMessage,
	collector *metrics.Collector,
	logger *log.Logger,
) *Ingestor {
	return &Ingestor{
		path:      path,
		rate:      rate,
		budget:    budget,
		out:       out,
		collector: collector,
		logger:    logger.WithStage("ingestor"),
		now:       time.Now,
	}
}

// shape returns the chunk size and inter-chunk pause for the configured rate.
func (i *Ingestor) shape() (int, time.Duration) {
	if i.rate <= 0 {
		return unboundedChunkSize, unboundedChunkPause
	}
	chunk := i.rate / 10
	if chunk < 1 {
		chunk = 1
	}
	return chunk, ratedChunkPause
}

// Run replays lines until the budget expires, the context is canceled, or
// EOF on a zero-budget single pass. The output channel is closed on return so
// downstream stages drain and exit.
//
// Returns nil on a clean stop, StageErrorInput if the file cannot be read,
// StageErrorCanceled on cancellation.
func (i *Ingestor) Run(ctx context.Context) error {
	defer close(i.out)

	f, err := os.Open(i.path)
	if err != nil {
		return &StageError{Stage: "ingestor", Kind: StageErrorInput, Err: err}
	}
	defer f.Close()

	var deadline time.Time
	if i.budget > 0 {
		deadline = i.now().Add(i.budget)
	}

	chunkSize, pause := i.shape()
	i.logger.Info("ingestor started", map[string]any{
		"path":       i.path,
		"rate":       i.rate,
		"budget_sec": i.budget.Seconds(),
		"chunk":      chunkSize,
	})

	scanner := newLineScanner(f)
	linesThisPass := 0
	linesInChunk := 0
	totalLines := int64(0)

	for {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: "ingestor", Kind: StageErrorCanceled, Err: err}
		}
		if !deadline.IsZero() && !i.now().Before(deadline) {
			i.logger.Info("ingestor budget reached", map[string]any{"lines": totalLines})
			return nil
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return &StageError{Stage: "ingestor", Kind: StageErrorInput, Err: fmt.Errorf("scan %s: %w", i.path, err)}
			}
			if linesThisPass == 0 {
				// Empty input; looping would spin forever.
				i.logger.Warn("ingestor input empty", map[string]any{"path": i.path})
				return nil
			}
			if i.budget == 0 {
				i.logger.Info("ingestor input exhausted", map[string]any{"lines": totalLines})
				return nil
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return &StageError{Stage: "ingestor", Kind: StageErrorInput, Err: fmt.Errorf("rewind %s: %w", i.path, err)}
			}
			scanner = newLineScanner(f)
			linesThisPass = 0
			continue
		}

		msg := types.RawMessage{Line: scanner.Text(), IngestedAt: i.now()}
		select {
		case <-ctx.Done():
			return &StageError{Stage: "ingestor", Kind: StageErrorCanceled, Err: ctx.Err()}
		case i.out <- msg:
		}

		i.collector.AddLinesIngested(1)
		recordLineIngested()
		linesThisPass++
		totalLines++

		linesInChunk++
		if linesInChunk >= chunkSize {
			linesInChunk = 0
			select {
			case <-ctx.Done():
				return &StageError{Stage: "ingestor", Kind: StageErrorCanceled, Err: ctx.Err()}
			case <-time.After(pause):
			}
		}
	}
}

// newLineScanner builds a scanner tolerant of long log lines.
func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return s
}
