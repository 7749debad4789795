package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hirelens/interview-pulse/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundMessage is the wire shape of client-to-server stream messages.
type inboundMessage struct {
	Type      string  `json:"type"`
	Text      string  `json:"text,omitempty"`
	AudioData string  `json:"audio_data,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

func registerWSRoute(mux *http.ServeMux, hub *Hub, svc SessionService, log *slog.Logger) {
	mux.HandleFunc("GET /ws/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")

		snap, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, session.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, "session not found")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		ch := hub.Attach(sessionID)
		defer hub.Detach(sessionID, ch)

		hub.Send(sessionID, ch, ConnectionEvent{
			Event:     newEvent("connection", time.Now().UTC()),
			Connected: true,
		})
		hub.Send(sessionID, ch, SessionSnapshotEvent{
			Event: newEvent("session_snapshot", time.Now().UTC()),
			Data:  snap,
		})

		// Single writer: all outbound traffic for this connection flows
		// through the subscriber channel. The goroutine exits when the
		// channel closes (detach or session end).
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for msg := range ch {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		readLoop(conn, hub, ch, sessionID, svc)

		hub.Detach(sessionID, ch)
		<-writeDone
	})
}

func readLoop(conn *websocket.Conn, hub *Hub, ch chan []byte, sessionID string, svc SessionService) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// A malformed message is answered, not fatal: the connection
			// stays open.
			sendError(hub, ch, sessionID, "malformed message: expected JSON with a type field")
			continue
		}

		switch msg.Type {
		case "transcript_line":
			if err := svc.SubmitTranscript(sessionID, msg.Text, msg.Timestamp); err != nil {
				sendError(hub, ch, sessionID, submitErrorMessage(err))
			}
		case "audio_chunk":
			data, err := base64.StdEncoding.DecodeString(msg.AudioData)
			if err != nil {
				sendError(hub, ch, sessionID, "invalid audio_data: expected base64")
				continue
			}
			if err := svc.SubmitAudio(sessionID, data, msg.Timestamp); err != nil {
				sendError(hub, ch, sessionID, submitErrorMessage(err))
			}
		case "ping":
			hub.Send(sessionID, ch, PongEvent{Event: newEvent("pong", time.Now().UTC())})
		default:
			sendError(hub, ch, sessionID, "unknown message type: "+msg.Type)
		}
	}
}

func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session not found"
	case errors.Is(err, session.ErrEnded):
		return "session already ended"
	case errors.Is(err, session.ErrNoTranscriber):
		return "no transcriber configured"
	default:
		return "submit failed"
	}
}

func sendError(hub *Hub, ch chan []byte, sessionID, message string) {
	hub.Send(sessionID, ch, ErrorEvent{
		Event:   newEvent("error", time.Now().UTC()),
		Message: message,
	})
}
