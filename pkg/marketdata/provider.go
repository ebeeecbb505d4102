// Package marketdata provides the market data providers behind the price
// monitor: quote polling, historical candles for warmup, market status, and
// the realtime bar stream.
package marketdata

import (
	"context"
	"iter"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// Provider is the pull-based market data interface. All timestamps on
// returned candles are normalized to UTC.
type Provider interface {
	// Name returns the provider type for logging and metrics labels.
	Name() ProviderType
	// GetQuote returns the most recent closed candle for the symbol.
	GetQuote(ctx context.Context, symbol string) (types.Candle, error)
	// GetHistorical returns candles for the symbol over [from, to],
	// oldest first.
	GetHistorical(ctx context.Context, symbol string, timeframe types.Timeframe, from time.Time, to time.Time) ([]types.Candle, error)
	// IsMarketOpen reports the venue's own market status.
	IsMarketOpen(ctx context.Context) (bool, error)
}

// BarStreamer yields realtime bars as an iterator. The iterator stops on
// context cancellation; a connection failure yields one final error before
// stopping, and callers reconnect by ranging over a fresh StreamBars call.
type BarStreamer interface {
	StreamBars(ctx context.Context, symbols []string) iter.Seq2[types.Candle, error]
}

// ClientConfig holds the configuration for the provider factory. Timeframe
// sets the bar resolution quotes are served at.
type ClientConfig struct {
	Provider         ProviderType    `validate:"required,oneof=polygon binance"`
	Timeframe        types.Timeframe `validate:"required"`
	PolygonAPIKey    string          `validate:"required_if=Provider polygon"`
	BinanceAPIKey    string
	BinanceAPISecret string
}

// NewProvider creates a market data provider from validated configuration.
func NewProvider(config ClientConfig) (Provider, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data configuration", err)
	}

	switch config.Provider {
	case ProviderPolygon:
		return NewPolygonProvider(config.PolygonAPIKey, config.Timeframe)
	case ProviderBinance:
		return NewBinanceProvider(config.BinanceAPIKey, config.BinanceAPISecret, config.Timeframe)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", config.Provider)
	}
}
