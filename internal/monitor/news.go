package monitor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/bus"
	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/metrics"
	"github.com/rxtech-lab/argo-signals/internal/sentiment"
	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// ArticleFetcher is the slice of the news client the monitor depends on.
type ArticleFetcher interface {
	FetchForSymbol(ctx context.Context, symbol string) ([]types.Article, error)
}

// NewsConfig configures the news monitor.
type NewsConfig struct {
	Symbols  []string      `validate:"required,min=1,dive,required"`
	Interval time.Duration `validate:"required,gt=0"`
	// DedupWindow is how long a published article URL suppresses re-delivery.
	DedupWindow time.Duration       `validate:"required,gt=0"`
	MaxRetries  int                 `validate:"gte=0"`
	Fetcher     ArticleFetcher      `validate:"required"`
	Analyzer    *sentiment.Analyzer `validate:"required"`
	Bus         bus.Publisher       `validate:"required"`
	Logger      *logger.Logger      `validate:"required"`
}

// NewsMonitor fetches, deduplicates and scores articles every interval,
// publishing one NewsEvent per new article. It runs regardless of market
// hours; sentiment accrues while the market is closed.
type NewsMonitor struct {
	config   NewsConfig
	fetcher  ArticleFetcher
	analyzer *sentiment.Analyzer
	bus      bus.Publisher
	logger   *logger.Logger
	// seen maps article IDs to first publication time for dedup expiry.
	seen map[string]time.Time
}

// NewNewsMonitor creates a news monitor from validated configuration.
func NewNewsMonitor(config NewsConfig) (*NewsMonitor, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid news monitor configuration", err)
	}

	return &NewsMonitor{
		config:   config,
		fetcher:  config.Fetcher,
		analyzer: config.Analyzer,
		bus:      config.Bus,
		logger:   config.Logger,
		seen:     make(map[string]time.Time),
	}, nil
}

// Run drives the monitor until the context ends or the bus closes. Fetch
// failures skip the cycle for that symbol; they never stop the monitor.
func (m *NewsMonitor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := m.cycle(ctx); err != nil {
			return nil
		}

		if !sleep(ctx, m.config.Interval) {
			return nil
		}
	}
}

// cycle fetches and scores one round of articles across all symbols. Only a
// closed bus aborts it.
func (m *NewsMonitor) cycle(ctx context.Context) error {
	m.expireSeen(time.Now().UTC())

	for _, symbol := range m.config.Symbols {
		articles, err := m.fetchArticles(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			metrics.FetchFailuresTotal.WithLabelValues("news").Inc()
			m.logger.Warn("news fetch failed, skipping cycle",
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		if err := m.publishNew(symbol, articles); err != nil {
			return err
		}
	}

	return nil
}

// fetchArticles retries transient failures with bounded exponential backoff.
func (m *NewsMonitor) fetchArticles(ctx context.Context, symbol string) ([]types.Article, error) {
	var articles []types.Article

	operation := func() error {
		fetched, err := m.fetcher.FetchForSymbol(ctx, symbol)
		if err != nil {
			if !errors.IsTransient(err) {
				return backoff.Permanent(err)
			}

			return err
		}

		articles = fetched

		return nil
	}

	if err := backoff.Retry(operation, retryPolicy(ctx, m.config.MaxRetries)); err != nil {
		return nil, err
	}

	return articles, nil
}

// publishNew scores unseen articles and publishes one NewsEvent per article.
func (m *NewsMonitor) publishNew(symbol string, articles []types.Article) error {
	now := time.Now().UTC()

	for _, article := range articles {
		if _, dup := m.seen[article.ID]; dup {
			continue
		}

		m.seen[article.ID] = now

		verdict := m.analyzer.Score(article, now)
		score := types.SentimentScore{
			Symbol:         symbol,
			Score:          verdict.Score,
			Confidence:     verdict.Confidence,
			Label:          verdict.Label,
			ArticleCount:   1,
			KeywordMatches: verdict.Matches,
			AsOf:           now,
		}

		if err := m.bus.Publish(types.NewNewsEvent(article, score)); err != nil {
			return err
		}

		metrics.EventsPublishedTotal.WithLabelValues(string(types.EventKindNews)).Inc()
		m.logger.Debug("published news event",
			zap.String("symbol", symbol),
			zap.String("article", article.ID),
			zap.Float64("score", verdict.Score),
			zap.String("label", string(verdict.Label)),
		)
	}

	return nil
}

// expireSeen drops dedup entries older than the window so the map stays
// bounded by news volume within it.
func (m *NewsMonitor) expireSeen(now time.Time) {
	cutoff := now.Add(-m.config.DedupWindow)

	for id, seenAt := range m.seen {
		if seenAt.Before(cutoff) {
			delete(m.seen, id)
		}
	}
}
