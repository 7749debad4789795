package server

import (
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/session"
	"github.com/hirelens/interview-pulse/internal/transcribe"
)

const EventVersion = 1

// Event is the envelope every outbound message carries.
type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

// AnalysisPayload is the broadcast view of one scored transcript line.
type AnalysisPayload struct {
	Timestamp       float64            `json:"timestamp"`
	Text            string             `json:"text"`
	SentimentScore  float64            `json:"sentiment_score"`
	EmotionScores   map[string]float64 `json:"emotion_scores"`
	ConfidenceScore float64            `json:"confidence_score"`
	Keywords        []string           `json:"keywords"`
	TechnicalSkills []string           `json:"technical_skills"`
	SoftSkills      []string           `json:"soft_skills"`
	OverallScore    float64            `json:"overall_score"`
	StressLevel     float64            `json:"stress_level"`
	EngagementScore float64            `json:"engagement_score"`
}

// TranscriptionPayload is the broadcast view of one scored audio unit.
type TranscriptionPayload struct {
	Timestamp      float64            `json:"timestamp"`
	Text           string             `json:"text"`
	Confidence     float64            `json:"confidence"`
	SentimentScore float64            `json:"sentiment_score"`
	EmotionScores  map[string]float64 `json:"emotion_scores"`
	OverallScore   float64            `json:"overall_score"`
	StressLevel    float64            `json:"stress_level"`
}

// ProgressPayload summarizes the session's running state after each unit.
type ProgressPayload struct {
	AnalyzedChunks int     `json:"analyzed_chunks"`
	AverageScore   float64 `json:"average_score"`
	Trend          string  `json:"trend"`
}

type AnalysisResultEvent struct {
	Event
	SessionID string          `json:"session_id"`
	Data      AnalysisPayload `json:"data"`
}

type TranscriptionResultEvent struct {
	Event
	SessionID string               `json:"session_id"`
	Data      TranscriptionPayload `json:"data"`
}

type ProgressUpdateEvent struct {
	Event
	SessionID string          `json:"session_id"`
	Data      ProgressPayload `json:"data"`
}

type SessionEndedEvent struct {
	Event
	SessionID    string          `json:"session_id"`
	FinalSummary scoring.Summary `json:"final_summary"`
}

type SessionSnapshotEvent struct {
	Event
	Data session.Snapshot `json:"data"`
}

type ErrorEvent struct {
	Event
	Message string `json:"message"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

type PongEvent struct {
	Event
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

func analysisPayload(res analysis.Result, m scoring.Metrics) AnalysisPayload {
	return AnalysisPayload{
		Timestamp:       res.Timestamp,
		Text:            res.Text,
		SentimentScore:  res.Sentiment,
		EmotionScores:   res.Emotions,
		ConfidenceScore: res.Confidence,
		Keywords:        res.Keywords,
		TechnicalSkills: res.TechnicalSkills,
		SoftSkills:      res.SoftSkills,
		OverallScore:    m.Overall,
		StressLevel:     m.Stress,
		EngagementScore: m.Engagement,
	}
}

func transcriptionPayload(tr transcribe.Result, res analysis.Result, m scoring.Metrics) TranscriptionPayload {
	return TranscriptionPayload{
		Timestamp:      res.Timestamp,
		Text:           tr.Text,
		Confidence:     tr.Confidence,
		SentimentScore: res.Sentiment,
		EmotionScores:  res.Emotions,
		OverallScore:   m.Overall,
		StressLevel:    m.Stress,
	}
}
