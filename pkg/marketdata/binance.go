package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// klinePageSize is the binance klines page limit; a shorter page marks the
// last one.
const klinePageSize = 500

// BinanceProvider serves crypto bars from the binance klines API. The venue
// trades around the clock, so IsMarketOpen is always true.
type BinanceProvider struct {
	client    *binance.Client
	timeframe types.Timeframe
}

var _ Provider = (*BinanceProvider)(nil)

// NewBinanceProvider creates a binance-backed provider. Credentials are
// optional for public market data.
func NewBinanceProvider(apiKey string, apiSecret string, timeframe types.Timeframe) (Provider, error) {
	if _, err := binanceInterval(timeframe); err != nil {
		return nil, err
	}

	return &BinanceProvider{
		client:    binance.NewClient(apiKey, apiSecret),
		timeframe: timeframe,
	}, nil
}

// Name implements Provider.
func (b *BinanceProvider) Name() ProviderType {
	return ProviderBinance
}

// GetQuote returns the most recent closed kline at the provider's timeframe.
// The final kline of a response is still forming, so the one before it is
// preferred when available.
func (b *BinanceProvider) GetQuote(ctx context.Context, symbol string) (types.Candle, error) {
	interval, err := binanceInterval(b.timeframe)
	if err != nil {
		return types.Candle{}, err
	}

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(2).
		Do(ctx)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeTransientIO, err, "binance quote for %s failed", symbol)
	}

	if len(klines) == 0 {
		return types.Candle{}, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "no binance kline for %s", symbol)
	}

	kline := klines[len(klines)-1]
	if len(klines) >= 2 {
		kline = klines[len(klines)-2]
	}

	return parseKline(symbol, b.timeframe, kline)
}

// GetHistorical pages through klines covering [from, to], oldest first.
// Klines with unparseable fields are skipped.
func (b *BinanceProvider) GetHistorical(ctx context.Context, symbol string, timeframe types.Timeframe, from time.Time, to time.Time) ([]types.Candle, error) {
	interval, err := binanceInterval(timeframe)
	if err != nil {
		return nil, err
	}

	endMillis := to.UnixMilli()
	startMillis := from.UnixMilli()
	candles := make([]types.Candle, 0)

	for {
		klines, err := b.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(startMillis).
			EndTime(endMillis).
			Limit(klinePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeTransientIO, err, "binance klines for %s failed", symbol)
		}

		for _, kline := range klines {
			candle, err := parseKline(symbol, timeframe, kline)
			if err != nil {
				continue
			}

			candles = append(candles, candle)
		}

		if len(klines) < klinePageSize {
			break
		}

		// Resume just past the last kline to avoid duplicates.
		startMillis = klines[len(klines)-1].CloseTime + 1
		if startMillis >= endMillis {
			break
		}
	}

	return candles, nil
}

// IsMarketOpen implements Provider. Crypto venues have no session close.
func (b *BinanceProvider) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

func parseKline(symbol string, timeframe types.Timeframe, kline *binance.Kline) (types.Candle, error) {
	open, err := parseKlineField("open", kline.Open)
	if err != nil {
		return types.Candle{}, err
	}

	high, err := parseKlineField("high", kline.High)
	if err != nil {
		return types.Candle{}, err
	}

	low, err := parseKlineField("low", kline.Low)
	if err != nil {
		return types.Candle{}, err
	}

	closePrice, err := parseKlineField("close", kline.Close)
	if err != nil {
		return types.Candle{}, err
	}

	volume, err := parseKlineField("volume", kline.Volume)
	if err != nil {
		return types.Candle{}, err
	}

	return types.Candle{
		Id:        candleID(symbol, kline.OpenTime),
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      time.UnixMilli(kline.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func parseKlineField(name string, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "binance kline %s %q", name, raw)
	}

	return value, nil
}
