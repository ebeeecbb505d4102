package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/bus"
	"github.com/rxtech-lab/argo-signals/internal/clock"
	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/metrics"
	"github.com/rxtech-lab/argo-signals/internal/notifier"
	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
	"github.com/rxtech-lab/argo-signals/pkg/marketdata"
)

// Price source selection.
const (
	SourcePoll   = "poll"
	SourceStream = "stream"
)

// PriceConfig configures the price monitor.
type PriceConfig struct {
	Symbols []string `validate:"required,min=1,dive,required"`
	// Source selects polling the provider or consuming the bar stream.
	Source         string        `validate:"required,oneof=poll stream"`
	Interval       time.Duration `validate:"required,gt=0"`
	MaxRetries     int           `validate:"gte=0"`
	RequestTimeout time.Duration `validate:"required,gt=0"`
	// ClosedHoldoff is the re-check delay after an unavailable clock or an
	// unresolvable next open.
	ClosedHoldoff time.Duration          `validate:"required,gt=0"`
	Provider      marketdata.Provider    `validate:"required"`
	Streamer      marketdata.BarStreamer `validate:"required_if=Source stream"`
	Clock         clock.Clock            `validate:"required"`
	Bus           bus.Publisher          `validate:"required"`
	Notifier      notifier.Notifier      `validate:"required"`
	Logger        *logger.Logger         `validate:"required"`
}

// PriceMonitor publishes one PriceEvent per closed candle while the market is
// open. Its lifecycle is driven entirely by the market clock: while closed it
// performs zero data-fetch calls and sleeps until the next open.
type PriceMonitor struct {
	config    PriceConfig
	provider  marketdata.Provider
	streamer  marketdata.BarStreamer
	clock     clock.Clock
	bus       bus.Publisher
	notifier  notifier.Notifier
	logger    *logger.Logger
	lastClose map[string]float64
}

// NewPriceMonitor creates a price monitor from validated configuration.
func NewPriceMonitor(config PriceConfig) (*PriceMonitor, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid price monitor configuration", err)
	}

	return &PriceMonitor{
		config:    config,
		provider:  config.Provider,
		streamer:  config.Streamer,
		clock:     config.Clock,
		bus:       config.Bus,
		notifier:  config.Notifier,
		logger:    config.Logger,
		lastClose: make(map[string]float64),
	}, nil
}

// Run drives the monitor until the context ends or the bus closes. It never
// returns a fetch error; upstream failures degrade, they do not stop it.
func (m *PriceMonitor) Run(ctx context.Context) error {
	if m.config.Source == SourceStream {
		return m.runStream(ctx)
	}

	return m.runPoll(ctx)
}

func (m *PriceMonitor) runPoll(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		now := time.Now()

		open, err := m.clock.IsOpen(now)
		if err != nil {
			// Fail-safe: an unreadable calendar means no fetching.
			m.logger.Warn("market clock unavailable, holding off", zap.Error(err))

			if !sleep(ctx, m.config.ClosedHoldoff) {
				return nil
			}

			continue
		}

		if !open {
			if !m.sleepUntilOpen(ctx, now) {
				return nil
			}

			continue
		}

		if err := m.pollOnce(ctx); err != nil {
			return nil
		}

		if !sleep(ctx, m.config.Interval) {
			return nil
		}
	}
}

// pollOnce fetches one candle per symbol and publishes the results. Only a
// closed bus aborts the cycle; per-symbol failures degrade and continue.
func (m *PriceMonitor) pollOnce(ctx context.Context) error {
	for _, symbol := range m.config.Symbols {
		candle, err := m.fetchQuote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			m.degraded(ctx, symbol, err)

			continue
		}

		if err := m.publishCandle(candle); err != nil {
			return err
		}
	}

	return nil
}

// fetchQuote retries transient failures with bounded exponential backoff.
// Non-transient errors abort the retry loop immediately.
func (m *PriceMonitor) fetchQuote(ctx context.Context, symbol string) (types.Candle, error) {
	var candle types.Candle

	operation := func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
		defer cancel()

		quote, err := m.provider.GetQuote(fetchCtx, symbol)
		if err != nil {
			if !errors.IsTransient(err) {
				return backoff.Permanent(err)
			}

			return err
		}

		candle = quote

		return nil
	}

	if err := backoff.Retry(operation, retryPolicy(ctx, m.config.MaxRetries)); err != nil {
		return types.Candle{}, err
	}

	return candle, nil
}

func (m *PriceMonitor) publishCandle(candle types.Candle) error {
	change := m.changePct(candle)

	event := types.NewPriceEvent(candle, change)
	if err := m.bus.Publish(event); err != nil {
		return err
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(types.EventKindPrice)).Inc()
	m.logger.Debug("published price event",
		zap.String("symbol", candle.Symbol),
		zap.Float64("close", candle.Close),
		zap.Float64("change_pct", change),
		zap.String("priority", string(event.Priority)),
	)

	return nil
}

// changePct is the close-over-close move versus the previous candle for the
// symbol, zero on first observation.
func (m *PriceMonitor) changePct(candle types.Candle) float64 {
	last, seen := m.lastClose[candle.Symbol]
	m.lastClose[candle.Symbol] = candle.Close

	if !seen || last <= 0 {
		return 0
	}

	return (candle.Close - last) / last
}

// degraded reports an exhausted fetch: warning log, failure metric, system
// notification.
func (m *PriceMonitor) degraded(ctx context.Context, subject string, cause error) {
	metrics.FetchFailuresTotal.WithLabelValues("price").Inc()
	m.logger.Warn("price data degraded", zap.String("subject", subject), zap.Error(cause))

	message := fmt.Sprintf("Price data for %s failed after retries: %v", subject, cause)
	if err := m.notifier.SendSystem(ctx, "Degraded market data", message); err != nil {
		m.logger.Warn("degraded-data notification failed", zap.Error(err))
	}
}

// sleepUntilOpen parks the monitor until the clock's next reported open.
func (m *PriceMonitor) sleepUntilOpen(ctx context.Context, now time.Time) bool {
	next, err := m.clock.NextTransition(now)
	if err != nil {
		m.logger.Warn("cannot resolve next market open", zap.Error(err))

		return sleep(ctx, m.config.ClosedHoldoff)
	}

	wait := next.Sub(now)
	if wait <= 0 {
		wait = m.config.ClosedHoldoff
	}

	m.logger.Info("market closed, price monitor sleeping", zap.Time("until", next))

	return sleep(ctx, wait)
}

// runStream consumes the realtime bar stream, reconnecting with bounded
// backoff whenever a connection ends in error.
func (m *PriceMonitor) runStream(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	// Reconnect for as long as the process runs.
	policy.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		delivered, err := m.consumeStream(ctx)
		if err == nil || errors.IsBusClosed(err) {
			return nil
		}

		if delivered {
			policy.Reset()
			metrics.FetchFailuresTotal.WithLabelValues("price").Inc()
			m.logger.Warn("bar stream disconnected, reconnecting", zap.Error(err))
		} else {
			// A connection that never produced a bar is degraded data, not
			// just a blip.
			m.degraded(ctx, "bar stream", err)
		}

		if !sleep(ctx, policy.NextBackOff()) {
			return nil
		}
	}
}

// consumeStream publishes bars from one stream connection. It reports whether
// any bar arrived before the connection ended.
func (m *PriceMonitor) consumeStream(ctx context.Context) (bool, error) {
	delivered := false

	for candle, err := range m.streamer.StreamBars(ctx, m.config.Symbols) {
		if err != nil {
			return delivered, err
		}

		delivered = true

		if err := m.publishCandle(candle); err != nil {
			return delivered, err
		}
	}

	return delivered, nil
}
