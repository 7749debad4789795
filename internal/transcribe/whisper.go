package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber posts audio units to the OpenAI transcription API.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisper(apiKey, model string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: openai.NewClient(apiKey), model: model}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, nil
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(EncodeWAV(pcm, sampleRate)),
		FilePath: "chunk.wav",
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, fmt.Errorf("whisper transcription: %w", err)
	}

	probs := make([]float64, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		probs = append(probs, seg.NoSpeechProb)
	}

	return Result{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: whisperConfidence(probs),
	}, nil
}

// whisperConfidence folds per-segment no-speech probabilities into a single
// [0,1] confidence. No segments means no confidence signal.
func whisperConfidence(probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var noSpeech float64
	for _, p := range probs {
		noSpeech += p
	}
	confidence := 1 - noSpeech/float64(len(probs))
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
