package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const emotionSystemPrompt = `You classify the emotional content of a spoken interview answer.
Respond with a JSON object mapping each of these labels to an intensity between 0 and 1:
joy, optimism, confidence, trust, surprise, fear, sadness, anger, disgust.
Intensities are independent and do not need to sum to 1. Respond with JSON only.`

// EmotionClassifier maps text to per-emotion intensities using an OpenAI
// chat model. Failures are returned to the caller, which treats them as a
// degraded sub-signal rather than a pipeline error.
type EmotionClassifier struct {
	client *openai.Client
	model  string
}

func NewEmotionClassifier(apiKey, model string) *EmotionClassifier {
	return &EmotionClassifier{client: openai.NewClient(apiKey), model: model}
}

func (c *EmotionClassifier) Emotions(ctx context.Context, text string) (map[string]float64, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: emotionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("emotion completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("emotion completion: no choices in response")
	}

	var scores map[string]float64
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &scores); err != nil {
		return nil, fmt.Errorf("parse emotion scores: %w", err)
	}

	for label, v := range scores {
		scores[label] = clamp(v, 0, 1)
	}
	return scores, nil
}
