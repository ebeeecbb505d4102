package monitor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
	"github.com/rxtech-lab/argo-signals/pkg/marketdata"
)

// recordingPublisher captures published events in place of the real bus.
type recordingPublisher struct {
	events    []*types.Event
	err       error
	onPublish func(total int)
}

func (p *recordingPublisher) Publish(event *types.Event) error {
	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)
	if p.onPublish != nil {
		p.onPublish(len(p.events))
	}

	return nil
}

// recordingNotifier captures system notifications.
type recordingNotifier struct {
	systems  []string
	onSystem func()
}

func (n *recordingNotifier) SendTradeAlert(_ context.Context, _ types.Signal) error {
	return nil
}

func (n *recordingNotifier) SendSystem(_ context.Context, title string, message string) error {
	n.systems = append(n.systems, title+": "+message)
	if n.onSystem != nil {
		n.onSystem()
	}

	return nil
}

func (n *recordingNotifier) SendOutcome(_ context.Context, _ types.TradeOutcome) error {
	return nil
}

// fakeClock returns scripted market-hours answers.
type fakeClock struct {
	open    bool
	openErr error
	next    time.Time
	nextErr error
}

func (c *fakeClock) IsOpen(_ time.Time) (bool, error) {
	return c.open, c.openErr
}

func (c *fakeClock) NextTransition(_ time.Time) (time.Time, error) {
	return c.next, c.nextErr
}

// quoteResult scripts one GetQuote outcome.
type quoteResult struct {
	candle types.Candle
	err    error
}

// scriptedProvider returns queued quotes in call order and a non-transient
// fetch error once the script runs out.
type scriptedProvider struct {
	quotes []quoteResult
	calls  int
}

func (p *scriptedProvider) Name() marketdata.ProviderType {
	return marketdata.ProviderPolygon
}

func (p *scriptedProvider) GetQuote(_ context.Context, symbol string) (types.Candle, error) {
	index := p.calls
	p.calls++

	if index >= len(p.quotes) {
		return types.Candle{}, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "no scripted quote %d", index)
	}

	result := p.quotes[index]
	if result.err != nil {
		return types.Candle{}, result.err
	}

	candle := result.candle
	candle.Symbol = symbol

	return candle, nil
}

func (p *scriptedProvider) GetHistorical(_ context.Context, _ string, _ types.Timeframe, _ time.Time, _ time.Time) ([]types.Candle, error) {
	return nil, nil
}

func (p *scriptedProvider) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

// streamFrame scripts one yielded stream item.
type streamFrame struct {
	candle types.Candle
	err    error
}

// scriptedStreamer plays one script per connection; connections beyond the
// scripts end immediately.
type scriptedStreamer struct {
	scripts [][]streamFrame
	calls   int
}

func (s *scriptedStreamer) StreamBars(_ context.Context, _ []string) iter.Seq2[types.Candle, error] {
	var script []streamFrame
	if s.calls < len(s.scripts) {
		script = s.scripts[s.calls]
	}

	s.calls++

	return func(yield func(types.Candle, error) bool) {
		for _, frame := range script {
			if !yield(frame.candle, frame.err) {
				return
			}
		}
	}
}

// fakeFetcher serves fixed articles (or errors) per symbol.
type fakeFetcher struct {
	articles map[string][]types.Article
	errs     map[string]error
	calls    int
}

func (f *fakeFetcher) FetchForSymbol(_ context.Context, symbol string) ([]types.Article, error) {
	f.calls++

	if err := f.errs[symbol]; err != nil {
		return nil, err
	}

	return f.articles[symbol], nil
}

func quoteCandle(symbol string, closePrice float64) types.Candle {
	now := time.Now().UTC().Truncate(time.Minute)

	return types.Candle{
		Id:        fmt.Sprintf("%s-%d", symbol, now.UnixMilli()),
		Symbol:    symbol,
		Timeframe: types.Timeframe1Min,
		Time:      now,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
		Volume:    1000,
	}
}

func newsArticle(id string, title string) types.Article {
	return types.Article{
		ID:          id,
		Source:      "Reuters",
		Title:       title,
		URL:         "https://news.example.com/" + id,
		PublishedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
}
