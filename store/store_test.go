package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/palisade/iox"
	"github.com/justapithecus/palisade/store"
	"github.com/justapithecus/palisade/types"
)

func openTemp(t *testing.T) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "palisade.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(iox.CloseFunc(s))
	return s
}

func sampleEvent(ip string, status int, suspicious bool, at time.Time) *types.Event {
	return &types.Event{
		IP:         ip,
		Timestamp:  at,
		Method:     "GET",
		URL:        "/index.html",
		Status:     status,
		Bytes:      512,
		UserAgent:  "curl/7.0",
		Browser:    "Other",
		OS:         "Other",
		IPClass:    types.IPClassPublic,
		Suspicious: suspicious,
		IngestedAt: at,
		IndexedAt:  at.Add(50 * time.Millisecond),
	}
}

func TestStore_WriteEventsRoundTrip(t *testing.T) {
	s := openTemp(t)
	at := time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC)

	events := []*types.Event{
		sampleEvent("1.1.1.1", 200, false, at),
		sampleEvent("1.1.1.1", 404, true, at),
		sampleEvent("2.2.2.2", 500, true, at),
	}
	if err := s.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", sum.TotalEvents)
	}
	if sum.SuspiciousEvents != 2 {
		t.Errorf("SuspiciousEvents = %d, want 2", sum.SuspiciousEvents)
	}
}

func TestStore_EmptyBatchIsNoop(t *testing.T) {
	s := openTemp(t)

	if err := s.WriteEvents(nil); err != nil {
		t.Fatalf("WriteEvents(nil): %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalEvents != 0 {
		t.Errorf("TotalEvents = %d, want 0", sum.TotalEvents)
	}
}

func TestStore_WriteAlert(t *testing.T) {
	s := openTemp(t)
	now := time.Now().UTC()

	a := &types.Alert{
		ID:          uuid.NewString(),
		Type:        types.AlertHighErrorRate,
		IP:          "1.2.3.4",
		Count:       7,
		WindowStart: now.Add(-60 * time.Second),
		WindowEnd:   now,
		CreatedAt:   now,
	}
	if err := s.WriteAlert(a); err != nil {
		t.Fatalf("WriteAlert: %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalAlerts != 1 {
		t.Errorf("TotalAlerts = %d, want 1", sum.TotalAlerts)
	}
}

func TestStore_SummaryLatencyAndTopIPs(t *testing.T) {
	s := openTemp(t)
	at := time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC)

	var events []*types.Event
	for i := 0; i < 4; i++ {
		events = append(events, sampleEvent("9.9.9.9", 200, false, at))
	}
	events = append(events, sampleEvent("8.8.8.8", 200, false, at))
	if err := s.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	// Each sample event indexes 50ms after ingest.
	if sum.AvgLatencySeconds < 0.01 || sum.AvgLatencySeconds > 0.2 {
		t.Errorf("AvgLatencySeconds = %f, want about 0.05", sum.AvgLatencySeconds)
	}
	if len(sum.TopIPs) == 0 || sum.TopIPs[0].IP != "9.9.9.9" {
		t.Fatalf("TopIPs = %+v, want 9.9.9.9 first", sum.TopIPs)
	}
	if sum.TopIPs[0].Count != 4 {
		t.Errorf("TopIPs[0].Count = %d, want 4", sum.TopIPs[0].Count)
	}
}

func TestStore_ReadOnlySeesWriterData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palisade.db")

	w, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	at := time.Now().UTC()
	if err := w.WriteEvents([]*types.Event{sampleEvent("1.1.1.1", 200, false, at)}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := store.OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	sum, err := r.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d, want 1", sum.TotalEvents)
	}
}

func TestStore_EventIDsAssignedByStore(t *testing.T) {
	s := openTemp(t)
	at := time.Now().UTC()

	// The store owns event identity: writing the same in-memory event twice
	// produces two rows with distinct autoincrement ids.
	ev := sampleEvent("1.1.1.1", 200, false, at)
	if err := s.WriteEvents([]*types.Event{ev}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := s.WriteEvents([]*types.Event{ev}); err != nil {
		t.Fatalf("WriteEvents (repeat): %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2 autoincrement rows", sum.TotalEvents)
	}
}

func TestStore_AlertReinsertIsIdempotent(t *testing.T) {
	s := openTemp(t)
	now := time.Now().UTC()

	a := &types.Alert{
		ID:          uuid.NewString(),
		Type:        types.AlertHighErrorRate,
		IP:          "1.2.3.4",
		Count:       5,
		WindowStart: now.Add(-60 * time.Second),
		WindowEnd:   now,
		CreatedAt:   now,
	}
	if err := s.WriteAlert(a); err != nil {
		t.Fatalf("WriteAlert: %v", err)
	}
	if err := s.WriteAlert(a); err != nil {
		t.Fatalf("WriteAlert (repeat): %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalAlerts != 1 {
		t.Errorf("TotalAlerts = %d, want 1 after re-insert of same id", sum.TotalAlerts)
	}
}
