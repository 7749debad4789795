package analysis

// Result is the normalized output of one analysis pass over one unit of
// transcript text. It is always produced: on model failure every sub-signal
// falls back to its neutral default instead of surfacing an error.
type Result struct {
	Timestamp       float64            `json:"timestamp"`
	Text            string             `json:"text"`
	Sentiment       float64            `json:"sentiment_score"`
	Emotions        map[string]float64 `json:"emotion_scores"`
	Confidence      float64            `json:"confidence_score"`
	Stress          float64            `json:"stress_level"`
	Keywords        []string           `json:"keywords"`
	TechnicalSkills []string           `json:"technical_skills"`
	SoftSkills      []string           `json:"soft_skills"`
	Clarity         float64            `json:"communication_clarity"`
}

// Unit is one (text, timestamp) pair for batch analysis.
type Unit struct {
	Text      string
	Timestamp float64
}

func zeroResult(text string, timestamp float64) Result {
	return Result{
		Timestamp:       timestamp,
		Text:            text,
		Emotions:        map[string]float64{},
		Keywords:        []string{},
		TechnicalSkills: []string{},
		SoftSkills:      []string{},
	}
}
