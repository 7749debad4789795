package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// DeepgramTranscriber posts audio units to the Deepgram pre-recorded API.
type DeepgramTranscriber struct {
	client *prerecorded.Client
	model  string
}

func NewDeepgram(apiKey, model string) *DeepgramTranscriber {
	if model == "" {
		model = "nova-2"
	}
	c := listen.NewREST(apiKey, &interfaces.ClientOptions{})
	return &DeepgramTranscriber{client: prerecorded.New(c), model: model}
}

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, nil
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.model,
		Language:    "en-US",
		Punctuate:   true,
		SmartFormat: true,
		Encoding:    "linear16",
		SampleRate:  sampleRate,
		Channels:    pcmChannels,
	}

	res, err := t.client.FromStream(ctx, bytes.NewReader(pcm), options)
	if err != nil {
		return Result{}, fmt.Errorf("deepgram transcription: %w", err)
	}

	if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return Result{}, nil
	}

	alt := res.Results.Channels[0].Alternatives[0]
	return Result{
		Text:       strings.TrimSpace(alt.Transcript),
		Confidence: alt.Confidence,
	}, nil
}
