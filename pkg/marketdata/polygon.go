package marketdata

import (
	"context"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// quoteLookbackBars is how many recent bars GetQuote scans for the latest
// closed one.
const quoteLookbackBars = 5

// PolygonAggsIterator is the aggregate iterator surface of the polygon SDK.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the slice of the polygon REST API the provider calls.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
	GetMarketStatus(ctx context.Context, options ...models.RequestOption) (*models.GetMarketStatusResponse, error)
}

// polygonRESTClient adapts *polygon.Client to PolygonAPIClient.
type polygonRESTClient struct {
	client *polygon.Client
}

var _ PolygonAPIClient = (*polygonRESTClient)(nil)

func (c *polygonRESTClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

func (c *polygonRESTClient) GetMarketStatus(ctx context.Context, options ...models.RequestOption) (*models.GetMarketStatusResponse, error) {
	return c.client.GetMarketStatus(ctx, options...)
}

// PolygonProvider serves US equity bars from the polygon aggregates API.
type PolygonProvider struct {
	client    PolygonAPIClient
	timeframe types.Timeframe
}

var _ Provider = (*PolygonProvider)(nil)

// NewPolygonProvider creates a polygon-backed provider. The timeframe sets
// the bar resolution of GetQuote.
func NewPolygonProvider(apiKey string, timeframe types.Timeframe) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is required")
	}

	if _, _, err := polygonTimespan(timeframe); err != nil {
		return nil, err
	}

	return &PolygonProvider{
		client:    &polygonRESTClient{client: polygon.New(apiKey)},
		timeframe: timeframe,
	}, nil
}

// NewPolygonProviderWithAPI wires a provider to a custom API client.
func NewPolygonProviderWithAPI(api PolygonAPIClient, timeframe types.Timeframe) *PolygonProvider {
	return &PolygonProvider{
		client:    api,
		timeframe: timeframe,
	}
}

// Name implements Provider.
func (p *PolygonProvider) Name() ProviderType {
	return ProviderPolygon
}

// GetQuote returns the most recent closed bar at the provider's timeframe. A
// bar whose interval still spans the current instant is skipped as forming.
func (p *PolygonProvider) GetQuote(ctx context.Context, symbol string) (types.Candle, error) {
	multiplier, timespan, err := polygonTimespan(p.timeframe)
	if err != nil {
		return types.Candle{}, err
	}

	now := time.Now().UTC()
	from := now.Add(-time.Duration(quoteLookbackBars+1) * p.timeframe.Duration())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(now),
	}.WithLimit(quoteLookbackBars + 1).WithOrder(models.Desc)

	iter := p.client.ListAggs(ctx, params)

	for iter.Next() {
		agg := iter.Item()

		start := time.Time(agg.Timestamp).UTC()
		if start.Add(p.timeframe.Duration()).After(now) {
			continue
		}

		return polygonCandle(symbol, p.timeframe, agg), nil
	}

	if err := iter.Err(); err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeTransientIO, err, "polygon quote for %s failed", symbol)
	}

	return types.Candle{}, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "no closed polygon bar for %s", symbol)
}

// GetHistorical returns aggregates covering [from, to], oldest first.
func (p *PolygonProvider) GetHistorical(ctx context.Context, symbol string, timeframe types.Timeframe, from time.Time, to time.Time) ([]types.Candle, error) {
	multiplier, timespan, err := polygonTimespan(timeframe)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithLimit(50000).WithOrder(models.Asc)

	iter := p.client.ListAggs(ctx, params)
	candles := make([]types.Candle, 0)

	for iter.Next() {
		candles = append(candles, polygonCandle(symbol, timeframe, iter.Item()))
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTransientIO, err, "polygon aggregates for %s failed", symbol)
	}

	return candles, nil
}

// IsMarketOpen queries the polygon market status endpoint.
func (p *PolygonProvider) IsMarketOpen(ctx context.Context) (bool, error) {
	status, err := p.client.GetMarketStatus(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeTransientIO, "polygon market status failed", err)
	}

	return strings.EqualFold(status.Market, "open"), nil
}

func polygonCandle(symbol string, timeframe types.Timeframe, agg models.Agg) types.Candle {
	ts := time.Time(agg.Timestamp).UTC()

	return types.Candle{
		Id:        candleID(symbol, ts.UnixMilli()),
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      ts,
		Open:      agg.Open,
		High:      agg.High,
		Low:       agg.Low,
		Close:     agg.Close,
		Volume:    agg.Volume,
	}
}
