package marketdata

import (
	"fmt"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// polygonTimespan maps a timeframe to the polygon aggregate multiplier and
// timespan pair.
func polygonTimespan(timeframe types.Timeframe) (int, models.Timespan, error) {
	switch timeframe {
	case types.Timeframe1Min:
		return 1, models.Minute, nil
	case types.Timeframe5Min:
		return 5, models.Minute, nil
	case types.Timeframe15Min:
		return 15, models.Minute, nil
	case types.Timeframe1Hour:
		return 1, models.Hour, nil
	case types.Timeframe1Day:
		return 1, models.Day, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported polygon timeframe: %s", timeframe)
	}
}

// binanceInterval maps a timeframe to the binance kline interval string.
func binanceInterval(timeframe types.Timeframe) (string, error) {
	switch timeframe {
	case types.Timeframe1Min, types.Timeframe5Min, types.Timeframe15Min, types.Timeframe1Hour, types.Timeframe1Day:
		return string(timeframe), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported binance interval: %s", timeframe)
	}
}

// candleID builds the deterministic bar identity used by providers.
func candleID(symbol string, unixMilli int64) string {
	return fmt.Sprintf("%s-%d", symbol, unixMilli)
}
