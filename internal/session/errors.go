package session

import "errors"

// ErrNotFound is returned for unknown or expired session ids. It is a
// normal negative-lookup result, surfaced to clients as a 404.
var ErrNotFound = errors.New("session not found")

// ErrEnded is returned when a chunk or transcript is submitted to a
// session that has already completed.
var ErrEnded = errors.New("session already ended")

// ErrNoTranscriber is returned for audio submissions when no speech-to-text
// backend is configured. Transcript submissions still work.
var ErrNoTranscriber = errors.New("no transcriber configured")
