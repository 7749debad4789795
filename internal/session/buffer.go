package session

import "sync"

const bytesPerSample = 2 // 16-bit mono PCM

// Unit is one flushed batch of audio, stamped with the timestamp of its
// first chunk.
type Unit struct {
	Data      []byte
	Timestamp float64
}

// ChunkBuffer accumulates audio fragments for one session until enough
// audio has arrived for a useful transcription pass. Add and Flush
// serialize on one mutex so a flush never races an in-progress append.
// Consumption is destructive: the buffer is cleared on every flush.
type ChunkBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	total     int
	startTS   float64
	threshold int
}

// NewChunkBuffer sizes the flush threshold as flushSeconds of 16-bit mono
// audio at sampleRate.
func NewChunkBuffer(flushSeconds float64, sampleRate int) *ChunkBuffer {
	if flushSeconds <= 0 {
		flushSeconds = 2.0
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &ChunkBuffer{threshold: int(flushSeconds * float64(sampleRate) * bytesPerSample)}
}

// Add appends one chunk in arrival order and, when the accumulated size
// reaches the threshold, returns exactly one flushed unit. Add never fails;
// data is copied so the caller may reuse its slice.
func (b *ChunkBuffer) Add(data []byte, timestamp float64) (Unit, bool) {
	if len(data) == 0 {
		return Unit{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		b.startTS = timestamp
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	b.chunks = append(b.chunks, owned)
	b.total += len(owned)

	if b.total < b.threshold {
		return Unit{}, false
	}
	return b.flushLocked(), true
}

// Flush drains any partial buffer, used at session end so no audio is lost
// on graceful termination. An empty buffer yields no unit, so calling Flush
// twice in a row produces at most one.
func (b *ChunkBuffer) Flush() (Unit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return Unit{}, false
	}
	return b.flushLocked(), true
}

// Len reports the buffered byte count.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *ChunkBuffer) flushLocked() Unit {
	data := make([]byte, 0, b.total)
	for _, c := range b.chunks {
		data = append(data, c...)
	}
	unit := Unit{Data: data, Timestamp: b.startTS}

	b.chunks = nil
	b.total = 0
	b.startTS = 0
	return unit
}
