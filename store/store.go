// Package store persists events and alerts to a local SQLite database.
//
// The writer opens the database in WAL mode with NORMAL synchronous so batch
// inserts from the indexer do not block readers. All timestamps are stored as
// RFC 3339 text, which SQLite's date functions parse natively.
package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/justapithecus/palisade/types"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not map to a
	// bindvar style on its own.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ip          TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	method      TEXT,
	url         TEXT,
	status      INTEGER,
	bytes       INTEGER,
	referer     TEXT,
	user_agent  TEXT,
	browser     TEXT,
	os          TEXT,
	ip_class    TEXT,
	suspicious  INTEGER,
	ingested_at TEXT NOT NULL,
	indexed_at  TEXT
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	alert_type   TEXT NOT NULL,
	ip           TEXT,
	count        INTEGER,
	window_start TEXT,
	window_end   TEXT,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp  ON events (timestamp);
CREATE INDEX IF NOT EXISTS idx_events_ip         ON events (ip);
CREATE INDEX IF NOT EXISTS idx_events_status     ON events (status);
CREATE INDEX IF NOT EXISTS idx_events_suspicious ON events (suspicious);
`

// Event ids are assigned by the autoincrement column, never by the caller.
const insertEvent = `
INSERT INTO events (
	ip, timestamp, method, url, status, bytes, referer, user_agent,
	browser, os, ip_class, suspicious, ingested_at, indexed_at
) VALUES (
	:ip, :timestamp, :method, :url, :status, :bytes, :referer, :user_agent,
	:browser, :os, :ip_class, :suspicious, :ingested_at, :indexed_at
)`

const insertAlert = `
INSERT OR REPLACE INTO alerts (
	id, alert_type, ip, count, window_start, window_end, created_at
) VALUES (
	:id, :alert_type, :ip, :count, :window_start, :window_end, :created_at
)`

// eventRow is the flat database shape of a types.Event.
type eventRow struct {
	IP         string `db:"ip"`
	Timestamp  string `db:"timestamp"`
	Method     string `db:"method"`
	URL        string `db:"url"`
	Status     int    `db:"status"`
	Bytes      int64  `db:"bytes"`
	Referer    string `db:"referer"`
	UserAgent  string `db:"user_agent"`
	Browser    string `db:"browser"`
	OS         string `db:"os"`
	IPClass    string `db:"ip_class"`
	Suspicious int    `db:"suspicious"`
	IngestedAt string `db:"ingested_at"`
	IndexedAt  string `db:"indexed_at"`
}

type alertRow struct {
	ID          string `db:"id"`
	AlertType   string `db:"alert_type"`
	IP          string `db:"ip"`
	EventCount  int    `db:"count"`
	WindowStart string `db:"window_start"`
	WindowEnd   string `db:"window_end"`
	CreatedAt   string `db:"created_at"`
}

func newEventRow(e *types.Event) eventRow {
	suspicious := 0
	if e.Suspicious {
		suspicious = 1
	}
	return eventRow{
		IP:         e.IP,
		Timestamp:  formatTime(e.Timestamp),
		Method:     e.Method,
		URL:        e.URL,
		Status:     e.Status,
		Bytes:      e.Bytes,
		Referer:    e.Referer,
		UserAgent:  e.UserAgent,
		Browser:    e.Browser,
		OS:         e.OS,
		IPClass:    string(e.IPClass),
		Suspicious: suspicious,
		IngestedAt: formatTime(e.IngestedAt),
		IndexedAt:  formatTime(e.IndexedAt),
	}
}

func newAlertRow(a *types.Alert) alertRow {
	return alertRow{
		ID:          a.ID,
		AlertType:   string(a.Type),
		IP:          a.IP,
		EventCount:  a.Count,
		WindowStart: formatTime(a.WindowStart),
		WindowEnd:   formatTime(a.WindowEnd),
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Store wraps the SQLite handle used by the indexing stage.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens the database at path for writing, applies the WAL
// pragmas, and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", writerDSN(path))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite allows one writer; serialize access through a single conn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing database for queries only.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("store: open read-only %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func writerDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
}

func readOnlyDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// WriteEvents inserts a batch of events in a single transaction.
// An empty batch is a no-op.
func (s *Store) WriteEvents(events []*types.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("store: begin batch: %w", err)
	}

	for _, e := range events {
		row := newEventRow(e)
		if _, err := tx.NamedExec(insertEvent, &row); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: insert event from %s: %w", e.IP, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit batch: %w", err)
	}
	return nil
}

// WriteAlert persists a single alert.
func (s *Store) WriteAlert(a *types.Alert) error {
	row := newAlertRow(a)
	if _, err := s.db.NamedExec(insertAlert, &row); err != nil {
		return fmt.Errorf("store: insert alert %s: %w", a.ID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
