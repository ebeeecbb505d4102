// Package testhelper provides scripted market data for pipeline tests.
package testhelper

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
	"github.com/rxtech-lab/argo-signals/pkg/marketdata"
)

// ScriptedProvider serves a test-controlled candle sequence. GetQuote blocks
// until a candle is released or the context ends, so tests decide exactly
// when the pipeline sees each bar.
type ScriptedProvider struct {
	history []types.Candle
	quotes  chan types.Candle
}

var _ marketdata.Provider = (*ScriptedProvider)(nil)

// NewScriptedProvider creates a provider whose GetHistorical returns the
// given warmup candles and whose GetQuote waits for Release.
func NewScriptedProvider(history []types.Candle) *ScriptedProvider {
	return &ScriptedProvider{
		history: history,
		quotes:  make(chan types.Candle, 64),
	}
}

// Release queues candles for GetQuote, one per poll.
func (p *ScriptedProvider) Release(candles ...types.Candle) {
	for _, candle := range candles {
		p.quotes <- candle
	}
}

// Name implements marketdata.Provider.
func (p *ScriptedProvider) Name() marketdata.ProviderType {
	return marketdata.ProviderPolygon
}

// GetQuote implements marketdata.Provider.
func (p *ScriptedProvider) GetQuote(ctx context.Context, _ string) (types.Candle, error) {
	select {
	case candle := <-p.quotes:
		return candle, nil
	case <-ctx.Done():
		return types.Candle{}, errors.Wrap(errors.ErrCodeTransientIO, "quote wait cancelled", ctx.Err())
	}
}

// GetHistorical implements marketdata.Provider.
func (p *ScriptedProvider) GetHistorical(_ context.Context, _ string, _ types.Timeframe, _ time.Time, _ time.Time) ([]types.Candle, error) {
	return p.history, nil
}

// IsMarketOpen implements marketdata.Provider.
func (p *ScriptedProvider) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

// CandleScript builds sequential one-minute bars for one symbol.
type CandleScript struct {
	symbol string
	base   time.Time
	seq    int
}

// NewCandleScript starts a bar sequence at the given time.
func NewCandleScript(symbol string, start time.Time) *CandleScript {
	return &CandleScript{
		symbol: symbol,
		base:   start,
	}
}

// Next returns the next bar in the sequence with the given shape.
func (s *CandleScript) Next(open, high, low, closePrice, volume float64) types.Candle {
	s.seq++

	return types.Candle{
		Id:        fmt.Sprintf("%s-%d", s.symbol, s.seq),
		Symbol:    s.symbol,
		Timeframe: types.Timeframe1Min,
		Time:      s.base.Add(time.Duration(s.seq) * time.Minute),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
}

// Repeat returns count bars of the same shape.
func (s *CandleScript) Repeat(count int, open, high, low, closePrice, volume float64) []types.Candle {
	candles := make([]types.Candle, 0, count)
	for i := 0; i < count; i++ {
		candles = append(candles, s.Next(open, high, low, closePrice, volume))
	}

	return candles
}
