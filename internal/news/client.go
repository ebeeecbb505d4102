// Package news fetches articles from the NewsAPI /v2/everything endpoint.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

const (
	everythingPath = "/everything"
	// lookbackDays bounds how far back the "from" query parameter reaches.
	lookbackDays = 2
)

// Config holds the configuration for the news client.
type Config struct {
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`
	// PageSize is how many articles one fetch requests, most recent first.
	PageSize int `validate:"required,gte=1,lte=100"`
	// RatePerMinute caps outgoing requests across all symbols.
	RatePerMinute  int `validate:"required,gte=1"`
	TimeoutSeconds int `validate:"required,gte=1"`
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Client queries NewsAPI for per-symbol articles. It is safe for concurrent
// use; the rate limiter is shared across callers.
type Client struct {
	config  Config
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a news client with the given configuration.
func NewClient(config Config) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid news client configuration", err)
	}

	return &Client{
		config: config,
		http: resty.New().
			SetBaseURL(config.BaseURL).
			SetTimeout(config.Timeout()),
		limiter: rate.NewLimiter(rate.Limit(float64(config.RatePerMinute)/60), 1),
	}, nil
}

// articleEnvelope is the NewsAPI response shape for /v2/everything.
type articleEnvelope struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	Articles     []articleJSON `json:"articles"`
}

type articleJSON struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// FetchForSymbol returns the most recent articles mentioning the symbol.
// Articles missing a URL or title are dropped; the article URL doubles as
// the dedup identity.
func (c *Client) FetchForSymbol(ctx context.Context, symbol string) ([]types.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransientIO, "rate limit wait cancelled", err)
	}

	from := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        fmt.Sprintf("(%s OR \"$%s\") AND (stock OR option OR trading OR market)", symbol, symbol),
			"from":     from,
			"sortBy":   "publishedAt",
			"language": "en",
			"pageSize": fmt.Sprintf("%d", c.config.PageSize),
			"apiKey":   c.config.APIKey,
		}).
		Get(everythingPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTransientIO, err, "news request for %s failed", symbol)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, errors.Newf(errors.ErrCodeRateLimited, "news API rate limited: %s", resp.String())
	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, errors.Newf(errors.ErrCodeTransientIO, "news API returned HTTP %d", resp.StatusCode())
	case resp.IsError():
		return nil, errors.Newf(errors.ErrCodeNewsFetchFailed, "news API returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	var envelope articleEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFormat, err, "malformed news payload for %s", symbol)
	}

	if envelope.Status != "ok" {
		return nil, errors.Newf(errors.ErrCodeNewsFetchFailed, "news API error %s: %s", envelope.Code, envelope.Message)
	}

	articles := make([]types.Article, 0, len(envelope.Articles))

	for _, raw := range envelope.Articles {
		article := types.Article{
			ID:          raw.URL,
			Source:      raw.Source.Name,
			Title:       raw.Title,
			Description: raw.Description,
			URL:         raw.URL,
			PublishedAt: raw.PublishedAt,
		}

		if err := article.Validate(); err != nil {
			continue
		}

		articles = append(articles, article)
	}

	return articles, nil
}
