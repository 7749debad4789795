package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/transcribe"
)

const subscriberBuffer = 64

// Hub routes events to the subscribers of each session. Delivery is best
// effort: a subscriber that cannot keep up with its buffer is presumed
// dead, removed, and closed, without stalling delivery to co-subscribers
// or blocking the pipeline. Per subscriber, delivery order equals publish
// order; across subscribers there is no ordering guarantee.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[chan []byte]struct{}
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sessions: make(map[string]map[chan []byte]struct{}),
		log:      log,
	}
}

// Attach registers a new subscriber for a session and returns its outbound
// channel. The first subscriber creates the set; there is no backlog
// replay, only events published after attachment.
func (h *Hub) Attach(sessionID string) chan []byte {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[chan []byte]struct{})
		h.sessions[sessionID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

// Detach removes one subscriber. Detaching an already-removed subscriber
// is a no-op; the channel is closed exactly once.
func (h *Hub) Detach(sessionID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(sessionID, ch)
}

// DetachAll removes and closes every subscriber of a session.
func (h *Hub) DetachAll(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.sessions[sessionID] {
		close(ch)
	}
	delete(h.sessions, sessionID)
}

// Publish delivers one event to every current subscriber of a session.
// Sends happen under the read lock and channels close only under the write
// lock, so a send never races a close.
func (h *Hub) Publish(sessionID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event marshal failed", "session_id", sessionID, "error", err)
		return
	}

	var dead []chan []byte
	h.mu.RLock()
	for ch := range h.sessions[sessionID] {
		select {
		case ch <- payload:
		default:
			dead = append(dead, ch)
		}
	}
	h.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, ch := range dead {
		h.detachLocked(sessionID, ch)
	}
	h.mu.Unlock()
	h.log.Info("dropped unresponsive subscribers", "session_id", sessionID, "count", len(dead))
}

// Send queues one event for a single subscriber, used for connection-scoped
// messages (snapshot, pong, error events). Returns false if the subscriber
// is gone or cannot accept the event.
func (h *Hub) Send(sessionID string, ch chan []byte, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event marshal failed", "session_id", sessionID, "error", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.sessions[sessionID][ch]; !ok {
		return false
	}
	select {
	case ch <- payload:
		return true
	default:
		return false
	}
}

// Subscribers reports the current subscriber count for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// SessionCount reports how many sessions have at least one subscriber.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) detachLocked(sessionID string, ch chan []byte) {
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// PublishAnalysis broadcasts one scored transcript line.
func (h *Hub) PublishAnalysis(sessionID string, res analysis.Result, m scoring.Metrics) {
	h.Publish(sessionID, AnalysisResultEvent{
		Event:     newEvent("analysis_result", time.Now().UTC()),
		SessionID: sessionID,
		Data:      analysisPayload(res, m),
	})
}

// PublishTranscription broadcasts one scored audio unit.
func (h *Hub) PublishTranscription(sessionID string, tr transcribe.Result, res analysis.Result, m scoring.Metrics) {
	h.Publish(sessionID, TranscriptionResultEvent{
		Event:     newEvent("transcription_result", time.Now().UTC()),
		SessionID: sessionID,
		Data:      transcriptionPayload(tr, res, m),
	})
}

// PublishProgress broadcasts the session's running aggregate state.
func (h *Hub) PublishProgress(sessionID string, analyzed int, average float64, trend string) {
	h.Publish(sessionID, ProgressUpdateEvent{
		Event:     newEvent("progress_update", time.Now().UTC()),
		SessionID: sessionID,
		Data: ProgressPayload{
			AnalyzedChunks: analyzed,
			AverageScore:   average,
			Trend:          trend,
		},
	})
}

// PublishSessionEnded broadcasts the final performance summary.
func (h *Hub) PublishSessionEnded(sessionID string, summary scoring.Summary) {
	h.Publish(sessionID, SessionEndedEvent{
		Event:        newEvent("session_ended", time.Now().UTC()),
		SessionID:    sessionID,
		FinalSummary: summary,
	})
}
