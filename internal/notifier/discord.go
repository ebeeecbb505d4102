package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

const (
	colorBullish = 0x00FF00
	colorBearish = 0xFF0000

	emojiBullish = "🚀"
	emojiBearish = "🐻"

	retryCount       = 3
	retryWaitMin     = 500 * time.Millisecond
	retryWaitMax     = 5 * time.Second
	maxEmbedFieldLen = 1024
)

// Config holds the configuration for the Discord notifier.
type Config struct {
	WebhookURL     string `validate:"omitempty,url"`
	Username       string `validate:"required"`
	TimeoutSeconds int    `validate:"required,gte=1"`
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Discord posts notifications to a Discord webhook. Requests are retried on
// network errors, 429 and 5xx responses.
type Discord struct {
	config Config
	http   *resty.Client
}

var _ Notifier = (*Discord)(nil)

// NewDiscord creates a Discord notifier with the given configuration.
func NewDiscord(config Config) (*Discord, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid notifier configuration", err)
	}

	client := resty.New().
		SetTimeout(config.Timeout()).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWaitMin).
		SetRetryMaxWaitTime(retryWaitMax).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if err != nil {
				return true
			}

			return response.StatusCode() == http.StatusTooManyRequests ||
				response.StatusCode() >= http.StatusInternalServerError
		})

	return &Discord{
		config: config,
		http:   client,
	}, nil
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Content  string  `json:"content,omitempty"`
	Embeds   []embed `json:"embeds,omitempty"`
}

// SendTradeAlert implements Notifier.
func (d *Discord) SendTradeAlert(ctx context.Context, signal types.Signal) error {
	color := colorBullish
	emoji := emojiBullish
	optionType := "CALL"

	if signal.Direction == types.DirectionShort {
		color = colorBearish
		emoji = emojiBearish
		optionType = "PUT"
	}

	targets := make([]string, 0, len(signal.Targets))
	for _, target := range signal.Targets {
		targets = append(targets, fmt.Sprintf("%.2f", target))
	}

	summary := fmt.Sprintf(
		"Entry: %.2f\nStop: %.2f\nTargets: %s\nSize: %.2f shares ($%.2f risk)\nContract: %s",
		signal.Entry,
		signal.Stop,
		strings.Join(targets, " / "),
		signal.PositionSize,
		signal.RiskAmount,
		signal.Contract,
	)

	boxField := fmt.Sprintf(
		"Top: %.2f\nBottom: %.2f\nRisk distance: %.2f",
		signal.BoxTop,
		signal.BoxBottom,
		riskDistance(signal),
	)

	sentimentField := fmt.Sprintf(
		"Score: %.2f (%s)\nArticles: %d\nKeyword matches: %d",
		signal.Sentiment.Score,
		signal.Sentiment.Label,
		signal.Sentiment.ArticleCount,
		signal.Sentiment.KeywordMatches,
	)

	payload := webhookPayload{
		Username: d.config.Username,
		Content:  fmt.Sprintf("New %s signal for %s %s", signal.Direction, signal.Symbol, optionType),
		Embeds: []embed{
			{
				Title:       fmt.Sprintf("%s %s %s SIGNAL", emoji, signal.Symbol, optionType),
				Description: summary,
				Color:       color,
				Timestamp:   signal.GeneratedAt.UTC().Format(time.RFC3339),
				Footer: &embedFooter{
					Text: fmt.Sprintf("Confidence: %.1f%% %s", signal.Confidence*100, confidenceStars(signal.Confidence)),
				},
				Fields: []embedField{
					{Name: "Box", Value: truncateField(boxField)},
					{Name: "Sentiment", Value: truncateField(sentimentField)},
				},
			},
		},
	}

	return d.post(ctx, payload)
}

// SendSystem implements Notifier.
func (d *Discord) SendSystem(ctx context.Context, title string, message string) error {
	payload := webhookPayload{
		Username: d.config.Username,
		Content:  fmt.Sprintf("**%s**\n%s", title, message),
	}

	return d.post(ctx, payload)
}

// SendOutcome implements Notifier.
func (d *Discord) SendOutcome(ctx context.Context, outcome types.TradeOutcome) error {
	color := colorBullish
	title := fmt.Sprintf("✅ %s TARGET HIT", outcome.Signal.Symbol)

	if outcome.Result == types.OutcomeResultStopLoss {
		color = colorBearish
		title = fmt.Sprintf("🛑 %s STOPPED OUT", outcome.Signal.Symbol)
	}

	description := fmt.Sprintf(
		"Direction: %s\nEntry: %.2f\nExit: %.2f\nPnL: $%s\nHeld: %s",
		outcome.Signal.Direction,
		outcome.Signal.Entry,
		outcome.ExitPrice,
		outcome.PnL.StringFixed(2),
		outcome.ClosedAt.Sub(outcome.OpenedAt).Round(time.Second),
	)

	payload := webhookPayload{
		Username: d.config.Username,
		Embeds: []embed{
			{
				Title:       title,
				Description: description,
				Color:       color,
				Timestamp:   outcome.ClosedAt.UTC().Format(time.RFC3339),
			},
		},
	}

	return d.post(ctx, payload)
}

// post delivers one webhook payload.
func (d *Discord) post(ctx context.Context, payload webhookPayload) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.config.WebhookURL)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "discord webhook request failed", err)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeNotificationFailed, "discord webhook returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// confidenceStars maps a confidence level to a one-to-five star rating.
func confidenceStars(confidence float64) string {
	stars := 1

	switch {
	case confidence >= 0.9:
		stars = 5
	case confidence >= 0.8:
		stars = 4
	case confidence >= 0.7:
		stars = 3
	case confidence >= 0.6:
		stars = 2
	}

	return strings.Repeat("⭐", stars)
}

func riskDistance(signal types.Signal) float64 {
	distance := signal.Entry - signal.Stop
	if signal.Direction == types.DirectionShort {
		distance = signal.Stop - signal.Entry
	}

	return distance
}

// truncateField keeps an embed field inside Discord's length limit.
func truncateField(value string) string {
	if len(value) <= maxEmbedFieldLen {
		return value
	}

	return value[:maxEmbedFieldLen]
}
