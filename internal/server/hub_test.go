package server

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
)

func recvEvent(t *testing.T, ch chan []byte) map[string]any {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		return payload
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for hub broadcast")
		return nil
	}
}

func TestHubPublishEventShape(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Attach("sess-1")
	defer hub.Detach("sess-1", ch)

	hub.PublishAnalysis("sess-1", analysis.Result{
		Timestamp: 1.5,
		Text:      "test line",
		Sentiment: 0.4,
	}, scoring.Metrics{Overall: 62.0})

	payload := recvEvent(t, ch)
	if payload["type"] != "analysis_result" {
		t.Fatalf("expected event type analysis_result, got %#v", payload["type"])
	}
	if payload["version"] == nil || payload["timestamp"] == nil {
		t.Fatalf("missing envelope fields: %v", payload)
	}
	if payload["session_id"] != "sess-1" {
		t.Fatalf("expected session id in event, got %#v", payload["session_id"])
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", payload["data"])
	}
	if data["overall_score"] != 62.0 {
		t.Fatalf("expected overall_score 62, got %#v", data["overall_score"])
	}
}

func TestHubIsolatesSessions(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Attach("sess-a")
	b := hub.Attach("sess-b")
	defer hub.Detach("sess-a", a)
	defer hub.Detach("sess-b", b)

	hub.PublishProgress("sess-a", 3, 55.0, "stable")

	recvEvent(t, a)
	select {
	case msg := <-b:
		t.Fatalf("session b received session a's event: %s", string(msg))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliveryOrderPerSubscriber(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Attach("sess-1")
	defer hub.Detach("sess-1", ch)

	for i := 0; i < 5; i++ {
		hub.PublishProgress("sess-1", i, float64(i), "stable")
	}

	for i := 0; i < 5; i++ {
		payload := recvEvent(t, ch)
		data := payload["data"].(map[string]any)
		if int(data["analyzed_chunks"].(float64)) != i {
			t.Fatalf("event %d arrived out of order: %v", i, data)
		}
	}
}

func TestHubDropsUnresponsiveSubscriber(t *testing.T) {
	hub := NewHub(nil)
	slow := hub.Attach("sess-1")
	fast := hub.Attach("sess-1")
	defer hub.Detach("sess-1", fast)

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer; i++ {
		hub.PublishProgress("sess-1", i, 0, "stable")
	}
	for i := 0; i < subscriberBuffer; i++ {
		recvEvent(t, fast)
	}
	if hub.Subscribers("sess-1") != 2 {
		t.Fatalf("expected both subscribers before overflow, got %d", hub.Subscribers("sess-1"))
	}

	// One more publish overflows the slow buffer: slow is removed and
	// closed, fast still gets the event.
	hub.PublishProgress("sess-1", 99, 0, "stable")
	recvEvent(t, fast)

	if hub.Subscribers("sess-1") != 1 {
		t.Fatalf("expected slow subscriber removed, got %d", hub.Subscribers("sess-1"))
	}

	// Drain slow until close; the channel must be closed, not leaked.
	closed := false
	for !closed {
		select {
		case _, ok := <-slow:
			if !ok {
				closed = true
			}
		case <-time.After(1 * time.Second):
			t.Fatal("slow subscriber channel never closed")
		}
	}
}

func TestHubDetachIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Attach("sess-1")

	hub.Detach("sess-1", ch)
	hub.Detach("sess-1", ch)

	if hub.Subscribers("sess-1") != 0 {
		t.Fatalf("expected zero subscribers, got %d", hub.Subscribers("sess-1"))
	}
	if hub.SessionCount() != 0 {
		t.Fatalf("expected empty session set, got %d", hub.SessionCount())
	}
}

func TestHubDetachAllClosesEverySubscriber(t *testing.T) {
	hub := NewHub(nil)
	subs := make([]chan []byte, 3)
	for i := range subs {
		subs[i] = hub.Attach("sess-1")
	}

	hub.PublishSessionEnded("sess-1", scoring.Summary{OverallScore: 70})
	hub.DetachAll("sess-1")

	for i, ch := range subs {
		payload := recvEvent(t, ch)
		if payload["type"] != "session_ended" {
			t.Fatalf("subscriber %d: expected session_ended, got %#v", i, payload["type"])
		}
		if _, ok := <-ch; ok {
			t.Fatalf("subscriber %d channel not closed after DetachAll", i)
		}
	}
	if hub.SessionCount() != 0 {
		t.Fatalf("expected no sessions after DetachAll, got %d", hub.SessionCount())
	}
}

func TestHubSendTargetsOneSubscriber(t *testing.T) {
	hub := NewHub(nil)
	target := hub.Attach("sess-1")
	other := hub.Attach("sess-1")
	defer hub.Detach("sess-1", target)
	defer hub.Detach("sess-1", other)

	if ok := hub.Send("sess-1", target, PongEvent{Event: newEvent("pong", time.Time{})}); !ok {
		t.Fatal("Send to live subscriber failed")
	}

	payload := recvEvent(t, target)
	if payload["type"] != "pong" {
		t.Fatalf("expected pong, got %#v", payload["type"])
	}
	select {
	case msg := <-other:
		t.Fatalf("co-subscriber received targeted send: %s", string(msg))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSendToDetachedSubscriber(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Attach("sess-1")
	hub.Detach("sess-1", ch)

	if ok := hub.Send("sess-1", ch, PongEvent{Event: newEvent("pong", time.Time{})}); ok {
		t.Fatal("Send succeeded on a detached subscriber")
	}
}

func TestHubConcurrentPublishAndDetach(t *testing.T) {
	hub := NewHub(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			id := fmt.Sprintf("sess-%d", i%5)
			ch := hub.Attach(id)
			hub.PublishProgress(id, i, 0, "stable")
			hub.DetachAll(id)
			_ = ch
		}
	}()

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("sess-%d", i%5)
		hub.PublishProgress(id, i, 0, "stable")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent hub usage deadlocked")
	}
}
