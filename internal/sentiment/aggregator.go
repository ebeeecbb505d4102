package sentiment

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

// oldestWeight is the recency weight of the oldest retained article; the
// newest always weighs 1.0 and weights fall linearly between them.
const oldestWeight = 0.5

// Aggregator keeps the most recent article scores per symbol and produces the
// per-symbol sentiment rollup. It is mutated only on the event processor's
// consumer path, so it carries no lock.
type Aggregator struct {
	maxArticles int
	scores      map[string][]ArticleScore
	lastAdd     map[string]time.Time
}

// NewAggregator creates an aggregator retaining up to maxArticles scores per
// symbol.
func NewAggregator(maxArticles int) *Aggregator {
	if maxArticles <= 0 {
		maxArticles = 10
	}

	return &Aggregator{
		maxArticles: maxArticles,
		scores:      make(map[string][]ArticleScore),
		lastAdd:     make(map[string]time.Time),
	}
}

// Add records one scored article for a symbol, evicting the oldest entry
// beyond the retention limit.
func (g *Aggregator) Add(symbol string, score ArticleScore) {
	entries := append(g.scores[symbol], score)
	if len(entries) > g.maxArticles {
		entries = entries[len(entries)-g.maxArticles:]
	}

	g.scores[symbol] = entries
	g.lastAdd[symbol] = score.ScoredAt
}

// Snapshot returns the recency-weighted rollup for a symbol, or None when no
// articles have been scored for it. Weights run linearly from 1.0 (newest)
// down to 0.5 (oldest retained).
func (g *Aggregator) Snapshot(symbol string) optional.Option[types.SentimentScore] {
	entries := g.scores[symbol]
	if len(entries) == 0 {
		return optional.None[types.SentimentScore]()
	}

	var (
		weightSum     float64
		scoreSum      float64
		confidenceSum float64
		matches       int
	)

	n := len(entries)

	for i, entry := range entries {
		// entries are ordered oldest first
		weight := 1.0
		if n > 1 {
			age := float64(n-1-i) / float64(n-1)
			weight = 1.0 - (1.0-oldestWeight)*age
		}

		weightSum += weight
		scoreSum += weight * entry.Score
		confidenceSum += weight * entry.Confidence
		matches += entry.Matches
	}

	score := scoreSum / weightSum

	return optional.Some(types.SentimentScore{
		Symbol:         symbol,
		Score:          score,
		Confidence:     confidenceSum / weightSum,
		Label:          LabelFor(score),
		ArticleCount:   n,
		KeywordMatches: matches,
		AsOf:           g.lastAdd[symbol],
	})
}
