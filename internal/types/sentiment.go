package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

type SentimentLabel string

const (
	SentimentLabelBullish SentimentLabel = "bullish"
	SentimentLabelBearish SentimentLabel = "bearish"
	SentimentLabelNeutral SentimentLabel = "neutral"
)

// Article is one news item fetched for a symbol.
type Article struct {
	ID          string    `yaml:"id" json:"id" csv:"id" validate:"required"`
	Source      string    `yaml:"source" json:"source" csv:"source"`
	Title       string    `yaml:"title" json:"title" csv:"title" validate:"required"`
	Description string    `yaml:"description" json:"description" csv:"description"`
	URL         string    `yaml:"url" json:"url" csv:"url"`
	PublishedAt time.Time `yaml:"published_at" json:"published_at" csv:"published_at"`
}

// Validate validates the Article struct. Articles without an ID or title are
// reported as malformed so callers skip the unit and continue.
func (a *Article) Validate() error {
	validate := validator.New()
	if err := validate.Struct(a); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedArticle, "invalid article", err)
	}

	return nil
}

// SentimentScore is the per-symbol rollup of recent article sentiment. The
// latest aggregation overwrites the previous one.
type SentimentScore struct {
	Symbol string `yaml:"symbol" json:"symbol" csv:"symbol"`
	// Score is in [-1, 1]; positive is bullish.
	Score float64 `yaml:"score" json:"score" csv:"score"`
	// Confidence is in [0, 1].
	Confidence     float64        `yaml:"confidence" json:"confidence" csv:"confidence"`
	Label          SentimentLabel `yaml:"label" json:"label" csv:"label"`
	ArticleCount   int            `yaml:"article_count" json:"article_count" csv:"article_count"`
	KeywordMatches int            `yaml:"keyword_matches" json:"keyword_matches" csv:"keyword_matches"`
	AsOf           time.Time      `yaml:"as_of" json:"as_of" csv:"as_of"`
}

// IsStale reports whether the score is older than the staleness window and
// must be treated as absent.
func (s *SentimentScore) IsStale(now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}

	return now.Sub(s.AsOf) > window
}
