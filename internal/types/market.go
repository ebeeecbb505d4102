package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// Timeframe is the bar interval of a candle.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe1Day  Timeframe = "1d"
)

// Duration returns the wall-clock length of one bar.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1Min:
		return time.Minute
	case Timeframe5Min:
		return 5 * time.Minute
	case Timeframe15Min:
		return 15 * time.Minute
	case Timeframe1Hour:
		return time.Hour
	case Timeframe1Day:
		return 24 * time.Hour
	default:
		return 0
	}
}

// IsValid reports whether the timeframe is one of the supported intervals.
func (t Timeframe) IsValid() bool {
	return t.Duration() > 0
}

// Candle is a closed OHLCV bar for a symbol. Immutable once constructed;
// ordered by Time within a symbol+timeframe.
type Candle struct {
	Id        string    `yaml:"id" json:"id" csv:"id"`
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Timeframe Timeframe `yaml:"timeframe" json:"timeframe" csv:"timeframe"`
	Time      time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Open      float64   `yaml:"open" json:"open" csv:"open" validate:"required,gt=0"`
	High      float64   `yaml:"high" json:"high" csv:"high" validate:"required,gt=0"`
	Low       float64   `yaml:"low" json:"low" csv:"low" validate:"required,gt=0"`
	Close     float64   `yaml:"close" json:"close" csv:"close" validate:"required,gt=0"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume" validate:"gte=0"`
}

// Validate validates the Candle struct. Non-positive prices are reported as
// a malformed-candle data format error so callers skip the bar and continue.
func (c *Candle) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedCandle, "invalid candle", err)
	}

	return nil
}

// RangePct returns the bar range (high-low) relative to the low.
func (c *Candle) RangePct() float64 {
	if c.Low <= 0 {
		return 0
	}

	return (c.High - c.Low) / c.Low
}

// ChangePct returns the close-over-close move relative to a previous candle.
func (c *Candle) ChangePct(prev *Candle) float64 {
	if prev == nil || prev.Close <= 0 {
		return 0
	}

	return (c.Close - prev.Close) / prev.Close
}
