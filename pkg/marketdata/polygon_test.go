package marketdata

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++

		return true
	}

	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}

	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	iterator  *mockPolygonIterator
	params    *models.ListAggsParams
	status    *models.GetMarketStatusResponse
	statusErr error
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.params = params

	return m.iterator
}

func (m *mockPolygonAPIClient) GetMarketStatus(_ context.Context, _ ...models.RequestOption) (*models.GetMarketStatusResponse, error) {
	return m.status, m.statusErr
}

type PolygonProviderTestSuite struct {
	suite.Suite

	api *mockPolygonAPIClient
}

func TestPolygonProviderSuite(t *testing.T) {
	suite.Run(t, new(PolygonProviderTestSuite))
}

func (suite *PolygonProviderTestSuite) SetupTest() {
	suite.api = &mockPolygonAPIClient{}
}

func (suite *PolygonProviderTestSuite) newProvider(timeframe types.Timeframe) *PolygonProvider {
	return NewPolygonProviderWithAPI(suite.api, timeframe)
}

func (suite *PolygonProviderTestSuite) TestNewPolygonProviderRequiresKey() {
	_, err := NewPolygonProvider("", types.Timeframe1Min)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *PolygonProviderTestSuite) TestNewPolygonProviderRejectsUnknownTimeframe() {
	_, err := NewPolygonProvider("test-key", types.Timeframe("9s"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *PolygonProviderTestSuite) TestGetQuoteSkipsFormingBar() {
	now := time.Now().UTC()
	formingStart := now.Truncate(time.Minute)
	closedStart := formingStart.Add(-2 * time.Minute)

	suite.api.iterator = &mockPolygonIterator{aggs: []models.Agg{
		{Timestamp: models.Millis(formingStart), Open: 101, High: 102, Low: 100.5, Close: 101.5, Volume: 50},
		{Timestamp: models.Millis(closedStart), Open: 100.1, High: 101.5, Low: 100, Close: 101, Volume: 1350},
	}}

	provider := suite.newProvider(types.Timeframe1Min)

	candle, err := provider.GetQuote(context.Background(), "SPY")
	suite.Require().NoError(err)

	suite.Equal(candleID("SPY", closedStart.UnixMilli()), candle.Id)
	suite.True(candle.Time.Equal(closedStart))
	suite.Equal(types.Timeframe1Min, candle.Timeframe)
	suite.InDelta(101.0, candle.Close, 1e-9)
	suite.InDelta(1350.0, candle.Volume, 1e-9)

	suite.Require().NotNil(suite.api.params)
	suite.Equal("SPY", suite.api.params.Ticker)
	suite.Equal(quoteLookbackBars+1, *suite.api.params.Limit)
}

func (suite *PolygonProviderTestSuite) TestGetQuoteErrorsWhenOnlyFormingBars() {
	suite.api.iterator = &mockPolygonIterator{aggs: []models.Agg{
		{Timestamp: models.Millis(time.Now().UTC().Truncate(time.Minute)), Open: 101, High: 102, Low: 100.5, Close: 101.5, Volume: 50},
	}}

	provider := suite.newProvider(types.Timeframe1Min)

	_, err := provider.GetQuote(context.Background(), "SPY")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *PolygonProviderTestSuite) TestGetQuoteWrapsIteratorError() {
	suite.api.iterator = &mockPolygonIterator{err: io.ErrUnexpectedEOF}

	provider := suite.newProvider(types.Timeframe1Min)

	_, err := provider.GetQuote(context.Background(), "SPY")
	suite.Require().Error(err)
	suite.True(errors.IsTransient(err))
}

func (suite *PolygonProviderTestSuite) TestGetHistoricalMapsAggs() {
	from := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)

	suite.api.iterator = &mockPolygonIterator{aggs: []models.Agg{
		{Timestamp: models.Millis(from), Open: 100.1, High: 101.5, Low: 100, Close: 101, Volume: 1350},
		{Timestamp: models.Millis(from.Add(5 * time.Minute)), Open: 101, High: 102, Low: 100.8, Close: 101.8, Volume: 900},
	}}

	provider := suite.newProvider(types.Timeframe1Min)

	candles, err := provider.GetHistorical(context.Background(), "SPY", types.Timeframe5Min, from, from.Add(10*time.Minute))
	suite.Require().NoError(err)
	suite.Require().Len(candles, 2)

	suite.Equal("SPY-1710252000000", candles[0].Id)
	suite.Equal(types.Timeframe5Min, candles[0].Timeframe)
	suite.Equal(time.Date(2024, 3, 12, 14, 5, 0, 0, time.UTC), candles[1].Time)
	suite.InDelta(101.8, candles[1].Close, 1e-9)

	suite.Require().NotNil(suite.api.params)
	suite.Equal(50000, *suite.api.params.Limit)
}

func (suite *PolygonProviderTestSuite) TestGetHistoricalWrapsIteratorError() {
	suite.api.iterator = &mockPolygonIterator{err: io.ErrUnexpectedEOF}

	provider := suite.newProvider(types.Timeframe1Min)

	_, err := provider.GetHistorical(context.Background(), "SPY", types.Timeframe1Min, time.Now().Add(-time.Hour), time.Now())
	suite.Require().Error(err)
	suite.True(errors.IsTransient(err))
}

func (suite *PolygonProviderTestSuite) TestIsMarketOpen() {
	provider := suite.newProvider(types.Timeframe1Min)

	suite.api.status = &models.GetMarketStatusResponse{Market: "open"}
	open, err := provider.IsMarketOpen(context.Background())
	suite.Require().NoError(err)
	suite.True(open)

	suite.api.status = &models.GetMarketStatusResponse{Market: "extended-hours"}
	open, err = provider.IsMarketOpen(context.Background())
	suite.Require().NoError(err)
	suite.False(open)
}

func (suite *PolygonProviderTestSuite) TestIsMarketOpenWrapsStatusError() {
	suite.api.statusErr = io.ErrUnexpectedEOF

	provider := suite.newProvider(types.Timeframe1Min)

	_, err := provider.IsMarketOpen(context.Background())
	suite.Require().Error(err)
	suite.True(errors.IsTransient(err))
}
