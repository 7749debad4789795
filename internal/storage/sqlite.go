package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/session"
)

// ArchivedSession is the durable record of one interview session.
type ArchivedSession struct {
	ID              string     `json:"id"`
	MeetingID       string     `json:"meeting_id"`
	CandidateID     string     `json:"candidate_id,omitempty"`
	JobRole         string     `json:"job_role"`
	JobRequirements []string   `json:"job_requirements"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Status          string     `json:"status"`
}

// ArchivedResult pairs one analyzed utterance with its scored metrics.
type ArchivedResult struct {
	Result  analysis.Result `json:"result"`
	Metrics scoring.Metrics `json:"metrics"`
}

type SQLiteArchive struct {
	db *sql.DB
}

func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "interview-pulse.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	archive := &SQLiteArchive{db: db}
	if err := archive.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return archive, nil
}

func (a *SQLiteArchive) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := a.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			meeting_id TEXT NOT NULL,
			candidate_id TEXT NOT NULL DEFAULT '',
			job_role TEXT NOT NULL DEFAULT '',
			job_requirements TEXT NOT NULL DEFAULT '[]',
			started_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			timestamp REAL NOT NULL,
			text TEXT NOT NULL,
			sentiment REAL NOT NULL,
			confidence REAL NOT NULL,
			stress REAL NOT NULL,
			clarity REAL NOT NULL,
			result_json TEXT NOT NULL,
			metrics_json TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}

	if _, err := a.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}
	if _, err := a.db.Exec("CREATE INDEX IF NOT EXISTS idx_results_session_id ON results(session_id, id)"); err != nil {
		return fmt.Errorf("create results index: %w", err)
	}

	return nil
}

func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *SQLiteArchive) CreateSession(snap session.Snapshot) error {
	if strings.TrimSpace(snap.ID) == "" {
		return errors.New("session id is required")
	}

	reqs, err := json.Marshal(snap.JobRequirements)
	if err != nil {
		return fmt.Errorf("encode job requirements: %w", err)
	}

	_, err = a.db.Exec(
		`INSERT INTO sessions(id, meeting_id, candidate_id, job_role, job_requirements, started_at, status)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.MeetingID,
		snap.CandidateID,
		snap.JobRole,
		string(reqs),
		snap.StartedAt.UTC().Format(time.RFC3339Nano),
		snap.Status,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", snap.ID, err)
	}
	return nil
}

func (a *SQLiteArchive) EndSession(id string, endedAt time.Time, status string) error {
	res, err := a.db.Exec(
		`UPDATE sessions SET ended_at = ?, status = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano),
		status,
		id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (a *SQLiteArchive) AppendResult(sessionID string, res analysis.Result, m scoring.Metrics) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result for session %s: %w", sessionID, err)
	}
	metricsJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metrics for session %s: %w", sessionID, err)
	}

	_, err = a.db.Exec(
		`INSERT INTO results(session_id, timestamp, text, sentiment, confidence, stress, clarity, result_json, metrics_json)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		res.Timestamp,
		strings.TrimSpace(res.Text),
		res.Sentiment,
		m.Confidence,
		m.Stress,
		m.Clarity,
		string(resJSON),
		string(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("append result for session %s: %w", sessionID, err)
	}
	return nil
}

func (a *SQLiteArchive) GetSession(id string) (ArchivedSession, error) {
	row := a.db.QueryRow(
		`SELECT id, meeting_id, candidate_id, job_role, job_requirements, started_at, ended_at, status
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row.Scan)
	if err != nil {
		return ArchivedSession{}, fmt.Errorf("query session %s: %w", id, err)
	}
	return sess, nil
}

func (a *SQLiteArchive) GetSessionsByDate(date string) ([]ArchivedSession, error) {
	rows, err := a.db.Query(
		`SELECT id, meeting_id, candidate_id, job_role, job_requirements, started_at, ended_at, status
		 FROM sessions
		 WHERE substr(started_at, 1, 10) = ?
		 ORDER BY started_at DESC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions by date %s: %w", date, err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]ArchivedSession, 0, 16)
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

func (a *SQLiteArchive) GetDates() ([]string, error) {
	rows, err := a.db.Query(
		`SELECT DISTINCT substr(started_at, 1, 10) AS date FROM sessions ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

func (a *SQLiteArchive) GetResults(sessionID string) ([]ArchivedResult, error) {
	rows, err := a.db.Query(
		`SELECT result_json, metrics_json FROM results WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ArchivedResult, 0, 32)
	for rows.Next() {
		var resJSON, metricsJSON string
		if err := rows.Scan(&resJSON, &metricsJSON); err != nil {
			return nil, fmt.Errorf("scan result for session %s: %w", sessionID, err)
		}

		var ar ArchivedResult
		if err := json.Unmarshal([]byte(resJSON), &ar.Result); err != nil {
			return nil, fmt.Errorf("decode result for session %s: %w", sessionID, err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &ar.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics for session %s: %w", sessionID, err)
		}

		results = append(results, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows for session %s: %w", sessionID, err)
	}

	return results, nil
}

func scanSession(scan func(dest ...any) error) (ArchivedSession, error) {
	var sess ArchivedSession
	var reqs string
	var startedAt string
	var endedAt sql.NullString
	if err := scan(&sess.ID, &sess.MeetingID, &sess.CandidateID, &sess.JobRole, &reqs, &startedAt, &endedAt, &sess.Status); err != nil {
		return ArchivedSession{}, err
	}

	if err := json.Unmarshal([]byte(reqs), &sess.JobRequirements); err != nil {
		return ArchivedSession{}, fmt.Errorf("decode job requirements: %w", err)
	}

	parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return ArchivedSession{}, fmt.Errorf("parse started_at: %w", err)
	}
	sess.StartedAt = parsedStart

	if endedAt.Valid {
		parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return ArchivedSession{}, fmt.Errorf("parse ended_at: %w", err)
		}
		sess.EndedAt = &parsedEnd
	}

	return sess, nil
}
