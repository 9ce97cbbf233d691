package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/justapithecus/palisade/metrics"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string `json:"run_id"`
	Outcome    string `json:"outcome"` // "completed" or "interrupted"
	DurationMs int64  `json:"duration_ms"`
	ExitCode   int    `json:"exit_code"`

	LinesIngested  int64 `json:"lines_ingested"`
	EventsParsed   int64 `json:"events_parsed"`
	ParseDrops     int64 `json:"parse_drops"`
	EventsIndexed  int64 `json:"events_indexed"`
	BatchesFlushed int64 `json:"batches_flushed"`
	StoreErrors    int64 `json:"store_errors"`
	AlertsFired    int64 `json:"alerts_fired"`
	NotifyDrops    int64 `json:"notify_drops"`

	AlertsDrained  int64 `json:"alerts_drained"`
	ResidualRaw    int   `json:"residual_raw"`
	ResidualParsed int   `json:"residual_parsed"`

	Metrics *metrics.Snapshot `json:"metrics"`
}

// BuildRunReport composes a RunReport from a run result.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *Result, exitCode int) *RunReport {
	outcome := "completed"
	if result.Interrupted {
		outcome = "interrupted"
	}
	snap := result.Metrics

	return &RunReport{
		RunID:          result.RunID,
		Outcome:        outcome,
		DurationMs:     result.Duration.Milliseconds(),
		ExitCode:       exitCode,
		LinesIngested:  snap.LinesIngested,
		EventsParsed:   snap.EventsParsed,
		ParseDrops:     snap.ParseDrops,
		EventsIndexed:  snap.EventsIndexed,
		BatchesFlushed: snap.BatchesFlushed,
		StoreErrors:    snap.StoreErrors,
		AlertsFired:    snap.AlertsFired,
		NotifyDrops:    snap.NotifyDrops,
		AlertsDrained:  result.AlertsDrained,
		ResidualRaw:    result.ResidualRaw,
		ResidualParsed: result.ResidualParsed,
		Metrics:        &snap,
	}
}

// WriteFile writes the report as indented JSON to path.
func (r *RunReport) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
