// Package adapter defines the alert notification boundary.
//
// Notifiers push fired alerts to downstream systems. The pipeline owns
// notifier lifecycle; users provide configuration only. Delivery is best
// effort: a failed publish is counted and logged, never retried by the
// caller, and never blocks indexing.
package adapter

import (
	"context"
	"time"

	"github.com/justapithecus/palisade/types"
)

// AlertEvent is the payload published when an alert fires.
type AlertEvent struct {
	EventType   string `json:"event_type"` // always "alert_fired"
	AlertID     string `json:"alert_id"`
	AlertType   string `json:"alert_type"`
	IP          string `json:"ip"`
	EventCount  int    `json:"event_count"`
	WindowStart string `json:"window_start"` // ISO 8601
	WindowEnd   string `json:"window_end"`   // ISO 8601
	CreatedAt   string `json:"created_at"`   // ISO 8601
	RunID       string `json:"run_id,omitempty"`
}

// FromAlert converts an alert into its wire payload.
func FromAlert(a *types.Alert, runID string) *AlertEvent {
	return &AlertEvent{
		EventType:   "alert_fired",
		AlertID:     a.ID,
		AlertType:   string(a.Type),
		IP:          a.IP,
		EventCount:  a.Count,
		WindowStart: a.WindowStart.UTC().Format(time.RFC3339),
		WindowEnd:   a.WindowEnd.UTC().Format(time.RFC3339),
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		RunID:       runID,
	}
}

// Notifier publishes alert events to a downstream system.
type Notifier interface {
	// Publish sends one alert event downstream.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AlertEvent) error

	// Close releases notifier resources.
	Close() error
}
