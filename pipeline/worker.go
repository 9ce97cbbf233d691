package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/palisade/enrich"
	"github.com/justapithecus/palisade/log"
	"github.com/justapithecus/palisade/logparse"
	"github.com/justapithecus/palisade/metrics"
	"github.com/justapithecus/palisade/types"
)

// ParserPool fans raw lines out to a fixed set of parser workers. Each
// worker parses, enriches, and forwards events; lines matching neither
// grammar are dropped and counted.
type ParserPool struct {
	workers   int
	in        <-chan types.RawMessage
	out       chan<- *types.Event
	collector *metrics.Collector
	logger    *log.Logger
	now       func() time.Time
}

// NewParserPool creates a pool of the given size reading from in and
// writing to out. Size < 1 is clamped to 1.
func NewParserPool(
	workers int,
	in <-chan types.RawMessage,
	out chan<- *types.Event,
	collector *metrics.Collector,
	logger *log.Logger,
) *ParserPool {
	if workers < 1 {
		workers = 1
	}
	return &ParserPool{
		workers:   workers,
		in:        in,
		out:       out,
		collector: collector,
		logger:    logger.WithStage("parser"),
		now:       time.Now,
	}
}

// Run starts the workers and blocks until the input channel closes or the
// context is canceled. The output channel is closed on return.
func (p *ParserPool) Run(ctx context.Context) error {
	defer close(p.out)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return &StageError{Stage: "parser", Kind: StageErrorCanceled, Err: err}
	}
	return nil
}

// work is one worker's loop. Each worker owns its IP memo cache so the hot
// path takes no shared lock beyond the output channel.
func (p *ParserPool) work(ctx context.Context, id int) {
	cache := enrich.NewIPCache(enrich.DefaultIPCacheSize)
	parsed, dropped := int64(0), int64(0)

	defer func() {
		p.logger.Debug("parser worker finished", map[string]any{
			"worker":  id,
			"parsed":  parsed,
			"dropped": dropped,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.in:
			if !ok {
				return
			}

			ev, ok := logparse.Parse(msg.Line, p.now)
			if !ok {
				dropped++
				p.collector.IncParseDrops()
				recordParseDrop()
				continue
			}

			ev.IngestedAt = msg.IngestedAt
			ev.Browser, ev.OS = enrich.ClassifyUserAgent(ev.UserAgent)
			ev.IPClass = cache.Classify(ev.IP)
			ev.Suspicious = enrich.Suspicious(ev.Status, ev.URL)

			select {
			case <-ctx.Done():
				return
			case p.out <- ev:
				parsed++
				p.collector.IncEventsParsed()
				recordEventParsed()
			}
		}
	}
}
