package scoring

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
)

// Weights control the contribution of each sub-dimension to the overall
// score. They are expected to sum to 1.0; the scorer does not re-normalize
// a configuration that doesn't.
type Weights struct {
	Sentiment  float64 `yaml:"sentiment" json:"sentiment"`
	Stability  float64 `yaml:"emotion_stability" json:"emotion_stability"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	Keyword    float64 `yaml:"keyword_match" json:"keyword_match"`
	Clarity    float64 `yaml:"communication_clarity" json:"communication_clarity"`
	Technical  float64 `yaml:"technical" json:"technical"`
}

func DefaultWeights() Weights {
	return Weights{
		Sentiment:  0.25,
		Stability:  0.20,
		Confidence: 0.20,
		Keyword:    0.15,
		Clarity:    0.10,
		Technical:  0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.Sentiment + w.Stability + w.Confidence + w.Keyword + w.Clarity + w.Technical
}

func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Metrics is the weighted projection of one analysis result, with every
// dimension scaled to 0-100. Entries are append-only once pushed to history.
type Metrics struct {
	Timestamp    float64 `json:"timestamp"`
	Overall      float64 `json:"overall_score"`
	Sentiment    float64 `json:"sentiment_score"`
	Stability    float64 `json:"emotion_stability"`
	Confidence   float64 `json:"confidence_score"`
	KeywordMatch float64 `json:"keyword_match_score"`
	Clarity      float64 `json:"communication_clarity"`
	Technical    float64 `json:"technical_score"`
	Stress       float64 `json:"stress_level"`
	Engagement   float64 `json:"engagement_score"`
}

// Summary is a point-in-time performance snapshot derived from the most
// recent history entry, not a rolling judgment.
type Summary struct {
	OverallScore    float64  `json:"overall_score"`
	Trend           string   `json:"trend"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
	TotalPoints     int      `json:"total_analysis_points"`
}

// Trend classifications.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
	TrendNoData           = "no_data"
)

const defaultTrendWindow = 5

// Emotion label groups for the stability and engagement dimensions.
var (
	positiveEmotions      = []string{"joy", "optimism", "confidence", "trust"}
	negativeEmotions      = []string{"fear", "anger", "sadness", "disgust", "surprise"}
	engagementEmotions    = []string{"joy", "optimism", "confidence", "excitement"}
	disengagementEmotions = []string{"boredom", "sadness", "fear", "anger"}
)

// skillCategories group the technical keyword space for the technical score:
// the mean over categories of (matches/size), each category capped at 1.0.
var skillCategories = map[string][]string{
	"programming": {"python", "javascript", "java", "c++", "typescript"},
	"frameworks":  {"react", "angular", "vue", "node.js", "django"},
	"databases":   {"sql", "mongodb", "postgresql", "mysql", "redis"},
	"cloud":       {"aws", "azure", "gcp", "docker", "kubernetes"},
	"tools":       {"git", "jenkins", "ci/cd", "devops", "testing"},
}

// Scorer converts analysis results into weighted metrics and maintains one
// session's ordered score history. History order is insertion order, not
// timestamp order: a late-arriving earlier-timestamped unit is appended at
// the end. All methods are safe for concurrent use; appends serialize.
type Scorer struct {
	mu           sync.Mutex
	weights      Weights
	requirements []string
	history      []Metrics

	now func() float64
}

func NewScorer(weights Weights, jobRequirements []string) *Scorer {
	if weights.IsZero() {
		weights = DefaultWeights()
	}
	reqs := make([]string, 0, len(jobRequirements))
	for _, r := range jobRequirements {
		r = strings.TrimSpace(strings.ToLower(r))
		if r != "" {
			reqs = append(reqs, r)
		}
	}
	return &Scorer{
		weights:      weights,
		requirements: reqs,
		now:          func() float64 { return float64(time.Now().UnixNano()) / float64(time.Second) },
	}
}

// Score computes the weighted metrics for one result and appends them to
// history. The append is 1:1 with input count: a computation that produces
// a non-finite overall score records an all-zero entry for that timestamp
// instead of dropping the point, so trend math stays stable.
func (s *Scorer) Score(res analysis.Result) Metrics {
	sentiment := normalizeSentiment(res.Sentiment)
	stability := emotionStability(res.Emotions)
	keyword := s.keywordMatch(res.Keywords, res.TechnicalSkills)
	technical := technicalScore(res.TechnicalSkills)
	engagement := engagementScore(res.Emotions)

	overall := sentiment*s.weights.Sentiment +
		stability*s.weights.Stability +
		res.Confidence*s.weights.Confidence +
		keyword*s.weights.Keyword +
		res.Clarity*s.weights.Clarity +
		technical*s.weights.Technical
	overall = math.Max(0, math.Min(100, overall*100))

	m := Metrics{
		Timestamp:    res.Timestamp,
		Overall:      overall,
		Sentiment:    sentiment * 100,
		Stability:    stability * 100,
		Confidence:   res.Confidence * 100,
		KeywordMatch: keyword * 100,
		Clarity:      res.Clarity * 100,
		Technical:    technical * 100,
		Stress:       res.Stress * 100,
		Engagement:   engagement * 100,
	}
	if math.IsNaN(m.Overall) || math.IsInf(m.Overall, 0) {
		m = Metrics{Timestamp: res.Timestamp}
	}

	s.mu.Lock()
	s.history = append(s.history, m)
	s.mu.Unlock()

	return m
}

// Average returns the mean overall score of history entries whose timestamp
// is within the last windowSeconds. A non-positive window means the whole
// history. No entries in the window yields 0.0, not an absent value.
func (s *Scorer) Average(windowSeconds float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return 0
	}

	var sum float64
	count := 0
	cutoff := math.Inf(-1)
	if windowSeconds > 0 {
		cutoff = s.now() - windowSeconds
	}
	for _, m := range s.history {
		if m.Timestamp >= cutoff {
			sum += m.Overall
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Trend fits an ordinary least-squares slope over the last window overall
// scores. Slope > 2 is improving, < -2 declining, otherwise stable. Fewer
// entries than the window yields "insufficient_data".
func (s *Scorer) Trend(window int) string {
	if window <= 0 {
		window = defaultTrendWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) < window {
		return TrendInsufficientData
	}

	recent := s.history[len(s.history)-window:]
	if len(recent) < 2 {
		return TrendStable
	}

	n := float64(len(recent))
	var sumX, sumY, sumXY, sumX2 float64
	for i, m := range recent {
		x := float64(i)
		sumX += x
		sumY += m.Overall
		sumXY += x * m.Overall
		sumX2 += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)

	switch {
	case slope > 2:
		return TrendImproving
	case slope < -2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Summary derives strengths, weaknesses, and recommendations from the most
// recent entry against fixed cutoffs.
func (s *Scorer) Summary() Summary {
	s.mu.Lock()
	empty := len(s.history) == 0
	var latest Metrics
	if !empty {
		latest = s.history[len(s.history)-1]
	}
	total := len(s.history)
	s.mu.Unlock()

	if empty {
		return Summary{
			Trend:           TrendNoData,
			Strengths:       []string{},
			Weaknesses:      []string{},
			Recommendations: []string{},
		}
	}

	summary := Summary{
		OverallScore:    s.Average(0),
		Trend:           s.Trend(0),
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
		TotalPoints:     total,
	}

	if latest.Confidence > 70 {
		summary.Strengths = append(summary.Strengths, "High confidence")
	}
	if latest.Clarity > 70 {
		summary.Strengths = append(summary.Strengths, "Clear communication")
	}
	if latest.Technical > 70 {
		summary.Strengths = append(summary.Strengths, "Strong technical knowledge")
	}

	if latest.Stress > 60 {
		summary.Weaknesses = append(summary.Weaknesses, "High stress levels")
		summary.Recommendations = append(summary.Recommendations, "Consider stress management techniques")
	}
	if latest.Clarity < 50 {
		summary.Weaknesses = append(summary.Weaknesses, "Communication clarity needs improvement")
	}
	if latest.Confidence < 50 {
		summary.Weaknesses = append(summary.Weaknesses, "Confidence building needed")
	}
	if latest.Clarity < 60 {
		summary.Recommendations = append(summary.Recommendations, "Practice clear and concise communication")
	}
	if latest.Confidence < 60 {
		summary.Recommendations = append(summary.Recommendations, "Build confidence through preparation and practice")
	}

	return summary
}

// History returns a copy of the most recent limit entries in insertion
// order. A non-positive limit returns the whole history.
func (s *Scorer) History(limit int) []Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.history) > limit {
		start = len(s.history) - limit
	}
	out := make([]Metrics, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

func (s *Scorer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func normalizeSentiment(sentiment float64) float64 {
	return (sentiment + 1) / 2
}

// emotionStability is the positive share of affect: positive/(positive+negative),
// defaulting to 0.5 when no affect is detected.
func emotionStability(emotions map[string]float64) float64 {
	if len(emotions) == 0 {
		return 0.5
	}
	positive := sumLabels(emotions, positiveEmotions)
	negative := sumLabels(emotions, negativeEmotions)
	if positive+negative == 0 {
		return 0.5
	}
	return positive / (positive + negative)
}

// keywordMatch is the matched/required ratio when job requirements are
// configured (case-insensitive substring, either direction, capped at 1.0);
// otherwise technical-skill count over 10.
func (s *Scorer) keywordMatch(keywords, technicalSkills []string) float64 {
	if len(s.requirements) == 0 {
		return math.Min(1, float64(len(technicalSkills))/10)
	}

	mentioned := make([]string, 0, len(keywords)+len(technicalSkills))
	for _, k := range keywords {
		mentioned = append(mentioned, strings.ToLower(k))
	}
	for _, k := range technicalSkills {
		mentioned = append(mentioned, strings.ToLower(k))
	}

	matches := 0
	for _, req := range s.requirements {
		for _, m := range mentioned {
			if strings.Contains(m, req) || strings.Contains(req, m) {
				matches++
				break
			}
		}
	}
	return math.Min(1, float64(matches)/float64(len(s.requirements)))
}

func technicalScore(technicalSkills []string) float64 {
	if len(technicalSkills) == 0 {
		return 0
	}

	skills := make(map[string]struct{}, len(technicalSkills))
	for _, s := range technicalSkills {
		skills[strings.ToLower(s)] = struct{}{}
	}

	var total float64
	for _, category := range skillCategories {
		matches := 0
		for _, skill := range category {
			if _, ok := skills[skill]; ok {
				matches++
			}
		}
		total += math.Min(1, float64(matches)/float64(len(category)))
	}
	return total / float64(len(skillCategories))
}

// engagementScore maps net engagement affect to [0,1], neutral 0.5.
func engagementScore(emotions map[string]float64) float64 {
	if len(emotions) == 0 {
		return 0.5
	}
	net := sumLabels(emotions, engagementEmotions) - sumLabels(emotions, disengagementEmotions)
	return math.Max(0, math.Min(1, (net+1)/2))
}

func sumLabels(scores map[string]float64, labels []string) float64 {
	var total float64
	for _, label := range labels {
		total += scores[label]
	}
	return total
}
