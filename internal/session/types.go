package session

import (
	"context"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/transcribe"
)

// Session status values. The only transitions are active -> completed and
// active -> expired; a session never re-enters active.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// Snapshot is the externally visible view of one session. It is what gets
// persisted to the keyed store and returned from the control surface.
type Snapshot struct {
	ID              string           `json:"session_id"`
	MeetingID       string           `json:"meeting_id"`
	CandidateID     string           `json:"candidate_id,omitempty"`
	JobRole         string           `json:"job_role"`
	JobRequirements []string         `json:"job_requirements"`
	Status          string           `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	FinalSummary    *scoring.Summary `json:"final_summary,omitempty"`
}

// ScoreReport is the detailed scoring view for one live session.
type ScoreReport struct {
	CurrentScore float64           `json:"current_score"`
	Trend        string            `json:"trend"`
	Summary      scoring.Summary   `json:"performance_summary"`
	History      []scoring.Metrics `json:"score_history"`
}

// Analyzer is the analysis-worker boundary. It never fails: every unit of
// text yields a result, defaulted on upstream trouble.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string, timestamp float64) analysis.Result
}

// Transcriber is the speech-to-text boundary. Empty text is a valid
// non-error result (silence).
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (transcribe.Result, error)
}

// SnapshotStore persists session snapshots with expiry. The pipeline does
// not depend on it being durable, only available; TTL expiry is how
// sessions move from active to expired.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Load(ctx context.Context, id string) (Snapshot, error)
}

// Archiver records sessions and per-utterance results durably for post-hoc
// reporting. All methods are best effort from the pipeline's perspective.
type Archiver interface {
	CreateSession(snap Snapshot) error
	EndSession(id string, endedAt time.Time, status string) error
	AppendResult(sessionID string, res analysis.Result, m scoring.Metrics) error
}

// Broadcaster fans pipeline output out to a session's subscribers.
type Broadcaster interface {
	PublishAnalysis(sessionID string, res analysis.Result, m scoring.Metrics)
	PublishTranscription(sessionID string, tr transcribe.Result, res analysis.Result, m scoring.Metrics)
	PublishProgress(sessionID string, analyzed int, average float64, trend string)
	PublishSessionEnded(sessionID string, summary scoring.Summary)
	DetachAll(sessionID string)
}
