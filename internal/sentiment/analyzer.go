// Package sentiment scores news articles with a keyword analyzer and rolls
// the per-article scores up into one recency-weighted score per symbol.
package sentiment

import (
	"strings"
	"time"
	"unicode"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

// defaultPositiveWords and defaultNegativeWords are used when the config does
// not override the keyword lists.
var (
	defaultPositiveWords = []string{
		"surge", "rally", "gain", "gains", "beat", "beats", "upgrade",
		"bullish", "soar", "soars", "jump", "jumps", "growth", "profit",
		"strong", "record", "outperform", "upside", "breakout", "momentum",
	}
	defaultNegativeWords = []string{
		"fall", "falls", "drop", "drops", "miss", "misses", "downgrade",
		"bearish", "plunge", "plunges", "crash", "loss", "losses", "weak",
		"underperform", "lawsuit", "recall", "decline", "selloff", "fear",
	}
)

// matches needed for full per-article confidence.
const fullConfidenceMatches = 5

// Label thresholds on the score axis.
const labelThreshold = 0.2

// ArticleScore is the analyzer's verdict on one article.
type ArticleScore struct {
	ArticleID  string
	Score      float64
	Confidence float64
	Label      types.SentimentLabel
	Matches    int
	ScoredAt   time.Time
}

// Analyzer scores article text against positive and negative keyword lists.
type Analyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewAnalyzer creates an analyzer. Empty word lists fall back to the built-in
// defaults.
func NewAnalyzer(positiveWords, negativeWords []string) *Analyzer {
	if len(positiveWords) == 0 {
		positiveWords = defaultPositiveWords
	}

	if len(negativeWords) == 0 {
		negativeWords = defaultNegativeWords
	}

	return &Analyzer{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[strings.ToLower(word)] = struct{}{}
	}

	return set
}

// Score scores one article from its title and description. The score is
// (positive-negative)/(positive+negative) in [-1, 1]; confidence grows with
// the match count and saturates at 1.
func (a *Analyzer) Score(article types.Article, now time.Time) ArticleScore {
	var positive, negative int

	for _, token := range tokenize(article.Title + " " + article.Description) {
		if _, ok := a.positive[token]; ok {
			positive++
		}

		if _, ok := a.negative[token]; ok {
			negative++
		}
	}

	matches := positive + negative

	var score float64
	if matches > 0 {
		score = float64(positive-negative) / float64(matches)
	}

	confidence := float64(matches) / fullConfidenceMatches
	if confidence > 1 {
		confidence = 1
	}

	return ArticleScore{
		ArticleID:  article.ID,
		Score:      score,
		Confidence: confidence,
		Label:      LabelFor(score),
		Matches:    matches,
		ScoredAt:   now,
	}
}

// LabelFor maps a score to its label: bullish above +0.2, bearish below -0.2,
// neutral between.
func LabelFor(score float64) types.SentimentLabel {
	switch {
	case score >= labelThreshold:
		return types.SentimentLabelBullish
	case score <= -labelThreshold:
		return types.SentimentLabelBearish
	default:
		return types.SentimentLabelNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
