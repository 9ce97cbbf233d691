package store

import (
	"database/sql"
	"fmt"
)

// IPCount is one row of the top-talkers breakdown.
type IPCount struct {
	IP    string `db:"ip"`
	Count int64  `db:"n"`
}

// StatusCount is one row of the status-code distribution.
type StatusCount struct {
	Status int   `db:"status"`
	Count  int64 `db:"n"`
}

// Summary aggregates a finished run straight from the database.
type Summary struct {
	TotalEvents       int64
	SuspiciousEvents  int64
	TotalAlerts       int64
	AvgLatencySeconds float64
	MinLatencySeconds float64
	MaxLatencySeconds float64
	TopIPs            []IPCount
	StatusCounts      []StatusCount
}

// latencySQL measures the ingest-to-index delay. julianday returns
// fractional days, hence the 86400 multiplier.
const latencySQL = `
SELECT
	AVG((julianday(indexed_at) - julianday(ingested_at)) * 86400.0) AS avg,
	MIN((julianday(indexed_at) - julianday(ingested_at)) * 86400.0) AS min,
	MAX((julianday(indexed_at) - julianday(ingested_at)) * 86400.0) AS max
FROM events
WHERE ingested_at != '' AND indexed_at != ''`

// Summarize computes run totals from the events and alerts tables.
func (s *Store) Summarize() (*Summary, error) {
	sum := &Summary{}

	if err := s.db.Get(&sum.TotalEvents, `SELECT COUNT(*) FROM events`); err != nil {
		return nil, fmt.Errorf("store: count events: %w", err)
	}
	if err := s.db.Get(&sum.SuspiciousEvents, `SELECT COUNT(*) FROM events WHERE suspicious = 1`); err != nil {
		return nil, fmt.Errorf("store: count suspicious: %w", err)
	}
	if err := s.db.Get(&sum.TotalAlerts, `SELECT COUNT(*) FROM alerts`); err != nil {
		return nil, fmt.Errorf("store: count alerts: %w", err)
	}

	var latency struct {
		Avg sql.NullFloat64 `db:"avg"`
		Min sql.NullFloat64 `db:"min"`
		Max sql.NullFloat64 `db:"max"`
	}
	if err := s.db.Get(&latency, latencySQL); err != nil {
		return nil, fmt.Errorf("store: latency stats: %w", err)
	}
	sum.AvgLatencySeconds = latency.Avg.Float64
	sum.MinLatencySeconds = latency.Min.Float64
	sum.MaxLatencySeconds = latency.Max.Float64

	err := s.db.Select(&sum.TopIPs,
		`SELECT ip, COUNT(*) AS n FROM events WHERE ip != '' GROUP BY ip ORDER BY n DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("store: top ips: %w", err)
	}

	err = s.db.Select(&sum.StatusCounts,
		`SELECT status, COUNT(*) AS n FROM events GROUP BY status ORDER BY n DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: status counts: %w", err)
	}

	return sum, nil
}
