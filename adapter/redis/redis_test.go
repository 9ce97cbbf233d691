package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/palisade/adapter"
	"github.com/justapithecus/palisade/types"
)

func testEvent() *adapter.AlertEvent {
	return adapter.FromAlert(&types.Alert{
		ID:          "alert-001",
		Type:        types.AlertHighErrorRate,
		IP:          "1.2.3.4",
		Count:       7,
		WindowStart: time.Date(2023, 7, 9, 11, 59, 0, 0, time.UTC),
		WindowEnd:   time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC),
	}, "run-001")
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Publish to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := n.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("expected channel %s, got %s", DefaultChannel, msg.Channel)
	}

	var received adapter.AlertEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if received.AlertID != "alert-001" {
		t.Errorf("expected alert-001, got %s", received.AlertID)
	}
	if received.AlertType != string(types.AlertHighErrorRate) {
		t.Errorf("expected HIGH_ERROR_RATE, got %s", received.AlertType)
	}
	if received.RunID != "run-001" {
		t.Errorf("expected run-001, got %s", received.RunID)
	}
}

func TestPublish_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := New(Config{URL: "redis://" + mr.Addr(), Channel: "custom:alerts", Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe("custom:alerts")
	ch := asyncReceive(sub)

	if err := n.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != "custom:alerts" {
		t.Errorf("expected custom:alerts, got %s", msg.Channel)
	}
}

func TestPublish_FailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	n, err := New(Config{URL: "redis://" + addr, Retries: 0, Timeout: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if err := n.Publish(context.Background(), testEvent()); err == nil {
		t.Fatal("expected error against closed server, got nil")
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty URL, got nil")
	}
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	if _, err := New(Config{URL: "not-a-url"}); err == nil {
		t.Fatal("expected error for invalid URL, got nil")
	}
}
