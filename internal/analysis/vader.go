package analysis

import (
	"context"

	"github.com/jonreiter/govader"
)

// VaderModel scores sentiment locally with the VADER lexicon. It needs no
// network access, which makes it the default model: sentiment keeps working
// even when every remote service is down.
type VaderModel struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderModel() *VaderModel {
	return &VaderModel{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Sentiment returns the VADER compound score, already in [-1, 1].
func (m *VaderModel) Sentiment(_ context.Context, text string) (float64, error) {
	return m.analyzer.PolarityScores(text).Compound, nil
}
