package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirelens/interview-pulse/internal/scoring"
	"github.com/hirelens/interview-pulse/internal/transcribe"
)

// Config tunes the registry and every session it creates.
type Config struct {
	Weights      scoring.Weights
	FlushSeconds float64
	SampleRate   int
	TrendWindow  int
	QueueSize    int
	ActiveTTL    time.Duration
	CompletedTTL time.Duration
	IdleTimeout  time.Duration
	UnitTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.FlushSeconds <= 0 {
		c.FlushSeconds = 2.0
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.TrendWindow <= 0 {
		c.TrendWindow = 5
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
	if c.ActiveTTL <= 0 {
		c.ActiveTTL = time.Hour
	}
	if c.CompletedTTL <= 0 {
		c.CompletedTTL = 24 * time.Hour
	}
	if c.UnitTimeout <= 0 {
		c.UnitTimeout = 30 * time.Second
	}
}

// work is one queued pipeline unit: either a transcript line or one
// flushed batch of audio.
type work struct {
	text      string
	pcm       []byte
	timestamp float64
}

type liveSession struct {
	mu     sync.RWMutex
	closed bool

	snap    Snapshot
	scorer  *scoring.Scorer
	buffer  *ChunkBuffer
	queue   chan work
	drained chan struct{}
	idle    *IdleTimer
}

// enqueue hands one unit to the session's consumer, blocking until the
// consumer has room. Transcript lines and the final flush go through here:
// every accepted unit reaches the scorer, so history stays 1:1 with input.
// Sends run under the read lock and close takes the write lock, so a send
// never races the channel close. Returns false once the session is closed.
func (s *liveSession) enqueue(w work) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	s.queue <- w
	return true
}

// enqueueAudio sheds the unit instead of blocking when the queue is full.
// A stalled transcriber then costs audio recency, never a queued unit and
// never the reader loop. The second result reports whether the unit was
// queued.
func (s *liveSession) enqueueAudio(w work) (alive, queued bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, false
	}
	select {
	case s.queue <- w:
		return true, true
	default:
		return true, false
	}
}

func (s *liveSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

func (s *liveSession) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Registry owns the set of live sessions and mediates every lifecycle
// transition. Each session gets its own scorer, chunk buffer, and a
// single-consumer work queue, so two units of the same session are never
// analyzed concurrently while different sessions run fully in parallel.
type Registry struct {
	cfg         Config
	analyzer    Analyzer
	transcriber Transcriber
	snapshots   SnapshotStore
	archive     Archiver
	hub         Broadcaster
	log         *slog.Logger

	mu        sync.RWMutex
	sessions  map[string]*liveSession
	completed map[string]Snapshot
}

// NewRegistry wires the pipeline's collaborators. transcriber, snapshots,
// and archive may be nil: audio submission, snapshot persistence, and
// archival degrade individually without taking the pipeline down.
func NewRegistry(cfg Config, analyzer Analyzer, transcriber Transcriber, snapshots SnapshotStore, archive Archiver, hub Broadcaster, log *slog.Logger) *Registry {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		cfg:         cfg,
		analyzer:    analyzer,
		transcriber: transcriber,
		snapshots:   snapshots,
		archive:     archive,
		hub:         hub,
		log:         log,
		sessions:    make(map[string]*liveSession),
		completed:   make(map[string]Snapshot),
	}
}

// Start creates a new active session and returns its snapshot.
func (r *Registry) Start(ctx context.Context, meetingID, jobRole string, jobRequirements []string, candidateID string) (Snapshot, error) {
	snap := Snapshot{
		ID:              uuid.NewString(),
		MeetingID:       meetingID,
		CandidateID:     candidateID,
		JobRole:         jobRole,
		JobRequirements: append([]string(nil), jobRequirements...),
		Status:          StatusActive,
		StartedAt:       time.Now().UTC(),
	}

	s := &liveSession{
		snap:    snap,
		scorer:  scoring.NewScorer(r.cfg.Weights, jobRequirements),
		buffer:  NewChunkBuffer(r.cfg.FlushSeconds, r.cfg.SampleRate),
		queue:   make(chan work, r.cfg.QueueSize),
		drained: make(chan struct{}),
	}
	s.idle = NewIdleTimer(r.cfg.IdleTimeout, func() {
		endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := r.End(endCtx, snap.ID); err != nil {
			r.log.Warn("idle session end failed", "session_id", snap.ID, "error", err)
		}
	})

	r.mu.Lock()
	r.sessions[snap.ID] = s
	r.mu.Unlock()

	go r.run(s)
	s.idle.Touch()

	r.persist(ctx, snap, r.cfg.ActiveTTL)
	if r.archive != nil {
		if err := r.archive.CreateSession(snap); err != nil {
			r.log.Warn("archive session create failed", "session_id", snap.ID, "error", err)
		}
	}

	r.log.Info("session started",
		"session_id", snap.ID,
		"meeting_id", meetingID,
		"job_role", jobRole)
	return snap, nil
}

// Get returns the current snapshot for a session: live sessions from the
// registry, completed or pre-restart ones from the keyed store. A TTL-
// expired key is indistinguishable from an unknown id and yields
// ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Snapshot, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		return s.snapshot(), nil
	}
	if r.snapshots == nil {
		return r.completedSnapshot(id)
	}
	return r.snapshots.Load(ctx, id)
}

// completedSnapshot is the fallback end-state lookup when no keyed store is
// configured. Entries age out on access after CompletedTTL, mirroring the
// store's passive expiry.
func (r *Registry) completedSnapshot(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.completed[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if snap.EndedAt != nil && time.Since(*snap.EndedAt) > r.cfg.CompletedTTL {
		delete(r.completed, id)
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// SubmitTranscript enqueues one transcript line for analysis. Text mode
// does not buffer: each line is its own unit.
func (r *Registry) SubmitTranscript(id, text string, timestamp float64) error {
	s, err := r.live(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.idle.Touch()
	if !s.enqueue(work{text: text, timestamp: timestamp}) {
		return ErrEnded
	}
	return nil
}

// SubmitAudio buffers one audio fragment and enqueues a unit whenever the
// buffer crosses its flush threshold.
func (r *Registry) SubmitAudio(id string, data []byte, timestamp float64) error {
	if r.transcriber == nil {
		return ErrNoTranscriber
	}
	s, err := r.live(id)
	if err != nil {
		return err
	}

	s.idle.Touch()
	unit, ready := s.buffer.Add(data, timestamp)
	if !ready {
		return nil
	}
	alive, queued := s.enqueueAudio(work{pcm: unit.Data, timestamp: unit.Timestamp})
	if !alive {
		return ErrEnded
	}
	if !queued {
		r.log.Warn("audio unit shed, work queue full", "session_id", id)
	}
	return nil
}

// Scores reports the live scoring state for a session.
func (r *Registry) Scores(id string) (ScoreReport, error) {
	s, err := r.live(id)
	if err != nil {
		return ScoreReport{}, err
	}
	return ScoreReport{
		CurrentScore: s.scorer.Average(0),
		Trend:        s.scorer.Trend(r.cfg.TrendWindow),
		Summary:      s.scorer.Summary(),
		History:      s.scorer.History(50),
	}, nil
}

// End transitions a session to completed: it drains the chunk buffer
// through one final flush-and-score pass, freezes the history, persists
// the snapshot with the extended TTL, broadcasts session_ended once, and
// detaches all subscribers. Ending an already-completed or unknown-but-
// persisted session is idempotent and broadcasts nothing.
func (r *Registry) End(ctx context.Context, id string) (Snapshot, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		if r.snapshots == nil {
			return r.completedSnapshot(id)
		}
		if snap, err := r.snapshots.Load(ctx, id); err == nil {
			return snap, nil
		}
		return Snapshot{}, ErrNotFound
	}

	s.idle.Stop()

	if unit, ready := s.buffer.Flush(); ready {
		s.enqueue(work{pcm: unit.Data, timestamp: unit.Timestamp})
	}
	s.close()

	select {
	case <-s.drained:
	case <-ctx.Done():
		r.log.Warn("session drain interrupted", "session_id", id, "error", ctx.Err())
	}

	summary := s.scorer.Summary()
	endedAt := time.Now().UTC()

	s.mu.Lock()
	s.snap.Status = StatusCompleted
	s.snap.EndedAt = &endedAt
	s.snap.FinalSummary = &summary
	snap := s.snap
	s.mu.Unlock()

	if r.snapshots == nil {
		r.mu.Lock()
		r.completed[id] = snap
		r.mu.Unlock()
	}
	r.persist(ctx, snap, r.cfg.CompletedTTL)
	if r.archive != nil {
		if err := r.archive.EndSession(id, endedAt, StatusCompleted); err != nil {
			r.log.Warn("archive session end failed", "session_id", id, "error", err)
		}
	}

	if r.hub != nil {
		r.hub.PublishSessionEnded(id, summary)
		r.hub.DetachAll(id)
	}

	r.log.Info("session ended",
		"session_id", id,
		"analysis_points", summary.TotalPoints,
		"overall_score", summary.OverallScore)
	return snap, nil
}

// Shutdown ends every live session, flushing buffered audio first.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		if _, err := r.End(ctx, id); err != nil {
			r.log.Warn("session shutdown end failed", "session_id", id, "error", err)
		}
	}
}

// ActiveCount reports how many sessions are currently live.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) live(id string) (*liveSession, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// run is the session's single consumer: every unit passes through
// transcribe (audio only), analyze, score, archive, broadcast in order.
func (r *Registry) run(s *liveSession) {
	for w := range s.queue {
		r.process(s, w)
	}
	close(s.drained)
}

func (r *Registry) process(s *liveSession, w work) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.UnitTimeout)
	defer cancel()

	id := s.snapshot().ID

	var tr transcribe.Result
	text := w.text
	fromAudio := w.pcm != nil

	if fromAudio {
		if r.transcriber == nil {
			r.log.Warn("audio unit dropped, no transcriber configured", "session_id", id)
			return
		}
		result, err := r.transcriber.Transcribe(ctx, w.pcm, r.cfg.SampleRate)
		if err != nil {
			r.log.Warn("transcription failed", "session_id", id, "error", err)
			result = transcribe.Result{}
		}
		if strings.TrimSpace(result.Text) == "" {
			// Silence is a valid result; nothing to analyze.
			return
		}
		tr = result
		text = result.Text
	}

	res := r.analyzer.AnalyzeText(ctx, text, w.timestamp)
	m := s.scorer.Score(res)

	if r.archive != nil {
		if err := r.archive.AppendResult(id, res, m); err != nil {
			r.log.Warn("archive result append failed", "session_id", id, "error", err)
		}
	}

	if r.hub != nil {
		if fromAudio {
			r.hub.PublishTranscription(id, tr, res, m)
		} else {
			r.hub.PublishAnalysis(id, res, m)
		}
		r.hub.PublishProgress(id, s.scorer.Len(), s.scorer.Average(0), s.scorer.Trend(r.cfg.TrendWindow))
	}
}

func (r *Registry) persist(ctx context.Context, snap Snapshot, ttl time.Duration) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Save(ctx, snap, ttl); err != nil {
		r.log.Warn("session snapshot persist failed", "session_id", snap.ID, "error", err)
	}
}
