package types

import "time"

// IPClass buckets a source address by prefix.
type IPClass string

// IP class constants.
const (
	IPClassPrivate   IPClass = "private"
	IPClassLocalhost IPClass = "localhost"
	IPClassPublic    IPClass = "public"
)

// RawMessage is an unparsed log line queued between the ingestor and the
// parser pool. It is never persisted.
type RawMessage struct {
	// Line is the raw log line as read; the parser trims whitespace.
	Line string
	// IngestedAt is the wall-clock instant the ingestor read the line.
	IngestedAt time.Time
}

// Event is a parsed and enriched access-log record.
//
// Events flow from the parser pool to the indexer and are persisted in the
// events table.
type Event struct {
	// ID is the monotonic rowid assigned by the store on insert. Zero while
	// the event is in flight through the pipeline.
	ID int64
	// IP is the source address. Empty for error-format lines without a
	// "client <ip>" context.
	IP string
	// Timestamp is the instant parsed from the log line. Falls back to
	// wall-clock now when the line's timestamp is unparseable.
	Timestamp time.Time
	// Method is the HTTP method, or "LOG" for error-format lines.
	Method string
	// URL is the request path. Error-format lines carry the message
	// truncated to 100 characters.
	URL string
	// Status is the HTTP status, or synthesized for error-format lines
	// (400 on error level, 200 otherwise).
	Status int
	// Bytes is the response size. Zero when missing or non-numeric.
	Bytes int64
	// Referer is the referer header, or the bracketed context of an
	// error-format line.
	Referer string
	// UserAgent is the user-agent header. Error-format lines carry the
	// log level here (legacy schema compatibility).
	UserAgent string
	// Browser is the user-agent browser family.
	Browser string
	// OS is the user-agent operating system family.
	OS string
	// IPClass is the source address bucket.
	IPClass IPClass
	// Suspicious marks events with error statuses or attack patterns.
	Suspicious bool
	// IngestedAt is set by the ingestor when the line was read.
	IngestedAt time.Time
	// IndexedAt is set by the indexer at batch formation.
	IndexedAt time.Time
}

// Latency returns the ingest-to-index latency. Zero when the event has not
// been indexed yet.
func (e *Event) Latency() time.Duration {
	if e.IndexedAt.IsZero() {
		return 0
	}
	return e.IndexedAt.Sub(e.IngestedAt)
}
