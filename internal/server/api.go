package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hirelens/interview-pulse/internal/session"
	"github.com/hirelens/interview-pulse/internal/storage"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SessionService is the registry surface the server depends on.
type SessionService interface {
	Start(ctx context.Context, meetingID, jobRole string, jobRequirements []string, candidateID string) (session.Snapshot, error)
	Get(ctx context.Context, id string) (session.Snapshot, error)
	End(ctx context.Context, id string) (session.Snapshot, error)
	Scores(id string) (session.ScoreReport, error)
	SubmitTranscript(id, text string, timestamp float64) error
	SubmitAudio(id string, data []byte, timestamp float64) error
	ActiveCount() int
}

// Archive is the optional durable store behind the archive routes.
type Archive interface {
	GetSession(id string) (storage.ArchivedSession, error)
	GetResults(sessionID string) ([]storage.ArchivedResult, error)
	GetSessionsByDate(date string) ([]storage.ArchivedSession, error)
	GetDates() ([]string, error)
}

type startSessionRequest struct {
	MeetingID       string   `json:"meeting_id"`
	JobRole         string   `json:"job_role"`
	JobRequirements []string `json:"job_requirements"`
	CandidateID     string   `json:"candidate_id"`
}

func registerAPIRoutes(mux *http.ServeMux, hub *Hub, svc SessionService, archive Archive, log *slog.Logger) {
	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.MeetingID) == "" {
			writeJSONError(w, http.StatusBadRequest, "meeting_id is required")
			return
		}

		snap, err := svc.Start(r.Context(), req.MeetingID, req.JobRole, req.JobRequirements, req.CandidateID)
		if err != nil {
			log.Error("start session failed", "meeting_id", req.MeetingID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "start session failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"session_id": snap.ID,
			"message":    "Interview session started",
		})
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		snap, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			writeLookupError(w, err, log)
			return
		}

		payload := map[string]any{
			"success": true,
			"session": snap,
		}
		if report, err := svc.Scores(sessionID); err == nil {
			payload["scores"] = report.Summary
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.HandleFunc("GET /api/sessions/{id}/scores", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		report, err := svc.Scores(sessionID)
		if err != nil {
			writeLookupError(w, err, log)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":             true,
			"current_score":       report.CurrentScore,
			"trend":               report.Trend,
			"performance_summary": report.Summary,
			"score_history":       report.History,
		})
	})

	mux.HandleFunc("POST /api/sessions/{id}/end", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		snap, err := svc.End(r.Context(), sessionID)
		if err != nil {
			writeLookupError(w, err, log)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       "Session ended successfully",
			"final_summary": snap.FinalSummary,
		})
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":              "healthy",
			"active_sessions":     svc.ActiveCount(),
			"subscribed_sessions": hub.SessionCount(),
			"timestamp":           time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	if archive == nil {
		return
	}

	mux.HandleFunc("GET /api/archive/sessions", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		sessions, err := archive.GetSessionsByDate(date)
		if err != nil {
			log.Error("list archived sessions failed", "date", date, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "list sessions failed")
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/archive/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		sess, err := archive.GetSession(sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSONError(w, http.StatusNotFound, "session not found")
				return
			}
			log.Error("archived session lookup failed", "session_id", sessionID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}

		results, err := archive.GetResults(sessionID)
		if err != nil {
			log.Error("archived results lookup failed", "session_id", sessionID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "results lookup failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"session": sess,
			"results": results,
		})
	})

	mux.HandleFunc("GET /api/archive/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := archive.GetDates()
		if err != nil {
			log.Error("list archive dates failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "list dates failed")
			return
		}
		writeJSON(w, http.StatusOK, dates)
	})
}

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func writeLookupError(w http.ResponseWriter, err error, log *slog.Logger) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	log.Error("session lookup failed", "error", err)
	writeJSONError(w, http.StatusInternalServerError, "session lookup failed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
