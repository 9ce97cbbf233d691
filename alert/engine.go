// Package alert tracks suspicious events per source address over a sliding
// window and raises alerts when an address crosses the threshold.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/palisade/types"
)

// Engine defaults.
const (
	DefaultWindow    = 60 * time.Second
	DefaultThreshold = 5
	DefaultRingSize  = 100
)

// ring is a fixed-capacity circular buffer of observation times. Once full,
// each append overwrites the oldest entry.
type ring struct {
	times []time.Time
	head  int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{times: make([]time.Time, capacity)}
}

func (r *ring) append(t time.Time) {
	r.times[r.head] = t
	r.head = (r.head + 1) % len(r.times)
	if r.size < len(r.times) {
		r.size++
	}
}

// countSince returns how many retained observations fall inside the window
// [cutoff, now], inclusive at the cutoff.
func (r *ring) countSince(cutoff time.Time) int {
	n := 0
	for i := 0; i < r.size; i++ {
		if !r.times[i].Before(cutoff) {
			n++
		}
	}
	return n
}

// Engine accumulates suspicious-event timestamps keyed by source IP.
//
// Observe is called by the indexer for each suspicious event; Evaluate is
// called once per batch flush and returns one alert per address over the
// threshold. Both are safe for concurrent use, though the pipeline drives the
// engine from a single goroutine.
type Engine struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	ringSize  int
	rings     map[string]*ring
}

// NewEngine creates an engine with the given window, threshold and per-IP
// ring capacity. Non-positive arguments fall back to the defaults.
func NewEngine(window time.Duration, threshold, ringSize int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	return &Engine{
		window:    window,
		threshold: threshold,
		ringSize:  ringSize,
		rings:     make(map[string]*ring),
	}
}

// Observe records a suspicious event for ip at the given time. Events with an
// empty source address are not tracked.
func (e *Engine) Observe(ip string, at time.Time) {
	if ip == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rings[ip]
	if !ok {
		r = newRing(e.ringSize)
		e.rings[ip] = r
	}
	r.append(at)
}

// Evaluate scans every tracked address and returns an alert for each one with
// at least threshold observations inside the window ending at now.
//
// Alerts repeat on consecutive evaluations while an address stays hot; there
// is no suppression. Observations are never deleted by evaluation, only
// overwritten by ring wraparound, so an address can re-fire after going
// quiet and returning.
func (e *Engine) Evaluate(now time.Time) []*types.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-e.window)

	var alerts []*types.Alert
	for ip, r := range e.rings {
		count := r.countSince(cutoff)
		if count < e.threshold {
			continue
		}
		alerts = append(alerts, &types.Alert{
			ID:          uuid.NewString(),
			Type:        types.AlertHighErrorRate,
			IP:          ip,
			Count:       count,
			WindowStart: cutoff,
			WindowEnd:   now,
			CreatedAt:   now,
		})
	}
	return alerts
}

// TrackedIPs returns the number of addresses currently holding a ring.
func (e *Engine) TrackedIPs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rings)
}
