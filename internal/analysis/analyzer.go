package analysis

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
)

// SentimentModel scores text on a continuous [-1, 1] scale.
type SentimentModel interface {
	Sentiment(ctx context.Context, text string) (float64, error)
}

// EmotionModel maps text to per-emotion intensities in [0, 1]. The mapping
// is not required to sum to 1.
type EmotionModel interface {
	Emotions(ctx context.Context, text string) (map[string]float64, error)
}

const maxKeywords = 10

var (
	wordPattern       = regexp.MustCompile(`[A-Za-z0-9_]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	specialPattern    = regexp.MustCompile(`[^\w\s.,!?;:]`)
	repeatDotPattern  = regexp.MustCompile(`[.]{2,}`)
	repeatBangPattern = regexp.MustCompile(`[!]{2,}`)
	repeatQPattern    = regexp.MustCompile(`[?]{2,}`)
	sentencePattern   = regexp.MustCompile(`[.!?]+`)
)

// Analyzer turns one unit of text into one Result. Each sub-signal calls out
// independently and defaults to a neutral value on failure, so AnalyzeText
// never returns an error. Either model may be nil (degraded mode).
type Analyzer struct {
	sentiment SentimentModel
	emotions  EmotionModel
	log       *slog.Logger
}

func NewAnalyzer(sentiment SentimentModel, emotions EmotionModel, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{sentiment: sentiment, emotions: emotions, log: log}
}

// AnalyzeText runs all five sub-signals over one text unit. Blank input
// short-circuits to an all-zero result without touching the models.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string, timestamp float64) Result {
	cleaned := cleanText(text)
	if strings.TrimSpace(cleaned) == "" {
		return zeroResult(text, timestamp)
	}

	var (
		wg            sync.WaitGroup
		sentiment     float64
		emotionScores map[string]float64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment = a.analyzeSentiment(ctx, cleaned)
	}()
	go func() {
		defer wg.Done()
		emotionScores = a.analyzeEmotions(ctx, cleaned)
	}()
	wg.Wait()

	return Result{
		Timestamp:       timestamp,
		Text:            text,
		Sentiment:       sentiment,
		Emotions:        emotionScores,
		Confidence:      confidenceScore(sentiment, emotionScores),
		Stress:          stressLevel(emotionScores, sentiment),
		Keywords:        extractKeywords(cleaned),
		TechnicalSkills: extractTechnicalSkills(cleaned),
		SoftSkills:      ExtractSoftSkills(cleaned),
		Clarity:         communicationClarity(cleaned),
	}
}

// AnalyzeBatch analyzes many units with unordered completion. Results come
// back in completion order, one per input; batch analysis is best effort
// and never fails as a whole.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, units []Unit) []Result {
	if len(units) == 0 {
		return nil
	}

	out := make(chan Result, len(units))
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u Unit) {
			defer wg.Done()
			out <- a.AnalyzeText(ctx, u.Text, u.Timestamp)
		}(u)
	}
	wg.Wait()
	close(out)

	results := make([]Result, 0, len(units))
	for r := range out {
		results = append(results, r)
	}
	return results
}

func (a *Analyzer) analyzeSentiment(ctx context.Context, text string) float64 {
	if a.sentiment == nil {
		return 0
	}
	score, err := a.sentiment.Sentiment(ctx, text)
	if err != nil {
		a.log.Warn("sentiment analysis failed, defaulting to neutral", "error", err)
		return 0
	}
	return clamp(score, -1, 1)
}

func (a *Analyzer) analyzeEmotions(ctx context.Context, text string) map[string]float64 {
	if a.emotions == nil {
		return map[string]float64{}
	}
	scores, err := a.emotions.Emotions(ctx, text)
	if err != nil {
		a.log.Warn("emotion analysis failed, defaulting to empty", "error", err)
		return map[string]float64{}
	}
	if scores == nil {
		return map[string]float64{}
	}
	return scores
}

// confidenceScore derives confidence from sentiment strength adjusted by
// emotion balance: |sentiment| + 0.3*(confident - uncertain), clamped [0,1].
func confidenceScore(sentiment float64, emotions map[string]float64) float64 {
	confidence := math.Abs(sentiment)
	if len(emotions) > 0 {
		confidence += 0.3 * (sumEmotions(emotions, confidentEmotions) - sumEmotions(emotions, uncertainEmotions))
	}
	return clamp(confidence, 0, 1)
}

// stressLevel sums negative-affect intensities, adding half of the sentiment
// magnitude when sentiment is negative, clamped [0,1].
func stressLevel(emotions map[string]float64, sentiment float64) float64 {
	stress := sumEmotions(emotions, stressEmotions)
	if sentiment < 0 {
		stress += 0.5 * math.Abs(sentiment)
	}
	return clamp(stress, 0, 1)
}

func sumEmotions(scores map[string]float64, labels []string) float64 {
	var total float64
	for _, label := range labels {
		total += scores[label]
	}
	return total
}

func extractKeywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, maxKeywords)
	for _, word := range words {
		if len(word) <= 3 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func extractTechnicalSkills(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, 4)
	for _, skill := range technicalKeywords {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}

// ExtractSoftSkills reports which soft-skill mentions appear in the text.
func ExtractSoftSkills(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, 4)
	for _, skill := range softSkillKeywords {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}

// communicationClarity is a structural heuristic: sentence length near a
// 17.5-word optimum (weight 0.4), long-word ratio (0.3), and unique-word
// ratio (0.3), clamped to [0,1].
func communicationClarity(text string) float64 {
	sentences := 0
	for _, s := range sentencePattern.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	words := wordPattern.FindAllString(text, -1)
	if sentences == 0 || len(words) == 0 {
		return 0
	}

	avgLen := float64(len(words)) / float64(sentences)
	sentenceScore := math.Max(0, 1-math.Abs(avgLen-17.5)/17.5)

	longWords := 0
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) > 6 {
			longWords++
		}
		unique[strings.ToLower(w)] = struct{}{}
	}
	complexity := float64(longWords) / float64(len(words))
	variety := float64(len(unique)) / float64(len(words))

	return clamp(sentenceScore*0.4+complexity*0.3+variety*0.3, 0, 1)
}

func cleanText(text string) string {
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = specialPattern.ReplaceAllString(text, "")
	text = repeatDotPattern.ReplaceAllString(text, ".")
	text = repeatBangPattern.ReplaceAllString(text, "!")
	text = repeatQPattern.ReplaceAllString(text, "?")
	return strings.TrimSpace(text)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
