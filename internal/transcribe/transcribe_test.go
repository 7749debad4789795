package transcribe

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200)
	wav := EncodeWAV(pcm, 16000)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("bad container magic: %q %q", wav[0:4], wav[8:12])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Fatalf("riff size %d, expected %d", got, 36+len(pcm))
	}

	if !bytes.Equal(wav[12:16], []byte("fmt ")) {
		t.Fatalf("missing fmt chunk: %q", wav[12:16])
	}
	if format := binary.LittleEndian.Uint16(wav[20:22]); format != 1 {
		t.Fatalf("audio format %d, expected PCM (1)", format)
	}
	if channels := binary.LittleEndian.Uint16(wav[22:24]); channels != 1 {
		t.Fatalf("channels %d, expected mono", channels)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("sample rate %d, expected 16000", rate)
	}
	if byteRate := binary.LittleEndian.Uint32(wav[28:32]); byteRate != 32000 {
		t.Fatalf("byte rate %d, expected 32000", byteRate)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Fatalf("bit depth %d, expected 16", bits)
	}

	if !bytes.Equal(wav[36:40], []byte("data")) {
		t.Fatalf("missing data chunk: %q", wav[36:40])
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != uint32(len(pcm)) {
		t.Fatalf("data size %d, expected %d", size, len(pcm))
	}
}

func TestEncodeWAVDefaultsSampleRate(t *testing.T) {
	wav := EncodeWAV([]byte{0, 0}, 0)
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("sample rate %d, expected default 16000", rate)
	}
}

func TestWhisperConfidence(t *testing.T) {
	if got := whisperConfidence(nil); got != 0 {
		t.Fatalf("no segments should yield 0 confidence, got %f", got)
	}
	if got := whisperConfidence([]float64{0.2, 0.4}); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("confidence %f, expected 0.7", got)
	}
	if got := whisperConfidence([]float64{1.5, 1.5}); got != 0 {
		t.Fatalf("confidence below zero should clamp to 0, got %f", got)
	}
}
