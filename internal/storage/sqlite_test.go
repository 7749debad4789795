package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/session"
)

func newTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	archive, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("archive init failed: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func testSnapshot(id string, startedAt time.Time) session.Snapshot {
	return session.Snapshot{
		ID:              id,
		MeetingID:       "meeting-" + id,
		CandidateID:     "cand-1",
		JobRole:         "Backend Engineer",
		JobRequirements: []string{"python", "docker"},
		Status:          session.StatusActive,
		StartedAt:       startedAt,
	}
}

func TestArchiveSessionRoundTrip(t *testing.T) {
	archive := newTestArchive(t)
	started := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	if err := archive.CreateSession(testSnapshot("s1", started)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := archive.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.MeetingID != "meeting-s1" || got.JobRole != "Backend Engineer" {
		t.Fatalf("unexpected session %+v", got)
	}
	if len(got.JobRequirements) != 2 || got.JobRequirements[0] != "python" {
		t.Fatalf("job requirements lost: %v", got.JobRequirements)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("started_at %s, expected %s", got.StartedAt, started)
	}
	if got.EndedAt != nil {
		t.Fatal("new session has ended_at")
	}
	if got.Status != session.StatusActive {
		t.Fatalf("status %q, expected active", got.Status)
	}
}

func TestArchiveCreateRequiresID(t *testing.T) {
	archive := newTestArchive(t)
	if err := archive.CreateSession(session.Snapshot{}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestArchiveEndSession(t *testing.T) {
	archive := newTestArchive(t)
	started := time.Now().UTC().Truncate(time.Millisecond)
	ended := started.Add(45 * time.Minute)

	if err := archive.CreateSession(testSnapshot("s1", started)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := archive.EndSession("s1", ended, session.StatusCompleted); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	got, err := archive.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != session.StatusCompleted {
		t.Fatalf("status %q, expected completed", got.Status)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Fatalf("ended_at %v, expected %s", got.EndedAt, ended)
	}
}

func TestArchiveEndUnknownSession(t *testing.T) {
	archive := newTestArchive(t)
	err := archive.EndSession("absent", time.Now(), session.StatusCompleted)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestArchiveResultsRoundTrip(t *testing.T) {
	archive := newTestArchive(t)
	if err := archive.CreateSession(testSnapshot("s1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		res := analysis.Result{
			Timestamp:       float64(i),
			Text:            "answer",
			Sentiment:       0.4,
			Emotions:        map[string]float64{"joy": 0.6},
			Confidence:      0.7,
			Stress:          0.2,
			Keywords:        []string{"answer"},
			TechnicalSkills: []string{"python"},
			Clarity:         0.5,
		}
		m := scoring.Metrics{Timestamp: float64(i), Overall: float64(50 + i)}
		if err := archive.AppendResult("s1", res, m); err != nil {
			t.Fatalf("AppendResult failed: %v", err)
		}
	}

	results, err := archive.GetResults("s1")
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected three results, got %d", len(results))
	}
	for i, r := range results {
		if r.Metrics.Overall != float64(50+i) {
			t.Fatalf("result %d out of insertion order: %+v", i, r.Metrics)
		}
	}
	if results[0].Result.Emotions["joy"] != 0.6 {
		t.Fatalf("emotion scores lost: %+v", results[0].Result)
	}
}

func TestAppendResultFlatColumns(t *testing.T) {
	archive := newTestArchive(t)
	if err := archive.CreateSession(testSnapshot("s1", time.Now().UTC())); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	m := scoring.Metrics{
		Timestamp:  3.5,
		Overall:    68.0,
		Confidence: 72.0,
		Stress:     31.0,
		Clarity:    64.0,
	}
	res := analysis.Result{Timestamp: 3.5, Text: " padded answer ", Sentiment: 0.25}
	if err := archive.AppendResult("s1", res, m); err != nil {
		t.Fatalf("AppendResult failed: %v", err)
	}

	var text string
	var sentiment, confidence, stress, clarity float64
	row := archive.db.QueryRow(
		`SELECT text, sentiment, confidence, stress, clarity FROM results WHERE session_id = ?`, "s1")
	if err := row.Scan(&text, &sentiment, &confidence, &stress, &clarity); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if text != "padded answer" {
		t.Fatalf("text column %q, expected trimmed text", text)
	}
	if sentiment != 0.25 || confidence != 72.0 || stress != 31.0 || clarity != 64.0 {
		t.Fatalf("columns [%f %f %f %f] do not match metrics", sentiment, confidence, stress, clarity)
	}
}

func TestArchiveDateListing(t *testing.T) {
	archive := newTestArchive(t)

	day1 := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	for i, started := range []time.Time{day1, day2, day2} {
		snap := testSnapshot(string(rune('a'+i)), started)
		if err := archive.CreateSession(snap); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	dates, err := archive.GetDates()
	if err != nil {
		t.Fatalf("GetDates failed: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2026-08-29" || dates[1] != "2026-08-28" {
		t.Fatalf("unexpected dates %v", dates)
	}

	sessions, err := archive.GetSessionsByDate("2026-08-29")
	if err != nil {
		t.Fatalf("GetSessionsByDate failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions on 2026-08-29, got %d", len(sessions))
	}

	none, err := archive.GetSessionsByDate("1999-01-01")
	if err != nil {
		t.Fatalf("GetSessionsByDate failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no sessions, got %d", len(none))
	}
}
