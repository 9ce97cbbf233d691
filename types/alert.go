package types

import "time"

// AlertType identifies the detection rule that fired.
type AlertType string

// Alert type constants. The set is closed; new detections add constants here.
const (
	// AlertHighErrorRate fires when a single IP produces at least the
	// threshold count of suspicious events inside the sliding window.
	AlertHighErrorRate AlertType = "HIGH_ERROR_RATE"
)

// Alert is a detection firing persisted in the alerts table and forwarded to
// the metrics collector via the alert queue.
//
// The engine re-fires on every batch flush while the window stays hot; rows
// for the same burst differ only in their window end and count.
type Alert struct {
	// ID is a UUID assigned by the alert engine.
	ID string
	// Type is the detection rule identifier.
	Type AlertType
	// IP is the offending source address.
	IP string
	// Count is the number of suspicious events observed in the window.
	// Always >= the engine threshold.
	Count int
	// WindowStart is the older edge of the sliding window.
	WindowStart time.Time
	// WindowEnd is the newer edge of the sliding window (evaluation time).
	WindowEnd time.Time
	// CreatedAt is when the detection fired.
	CreatedAt time.Time
}

// Window returns the window length covered by the alert.
func (a *Alert) Window() time.Duration {
	return a.WindowEnd.Sub(a.WindowStart)
}
