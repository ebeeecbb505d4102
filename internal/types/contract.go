package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

type OptionRight string

const (
	OptionRightCall OptionRight = "C"
	OptionRightPut  OptionRight = "P"
)

// OptionContract is a decoded OCC option symbol.
type OptionContract struct {
	Underlying string
	Expiry     time.Time
	Right      OptionRight
	Strike     float64
}

// occ strike field width: strike price in thousandths of a dollar, zero padded.
const occStrikeDigits = 8

// FormatOptionSymbol builds an OCC option symbol, e.g. AAPL231215C00180000.
func FormatOptionSymbol(underlying string, expiry time.Time, right OptionRight, strike float64) string {
	milli := int64(math.Round(strike * 1000))

	return fmt.Sprintf("%s%s%s%0*d", strings.ToUpper(underlying), expiry.Format("060102"), right, occStrikeDigits, milli)
}

// ParseOptionSymbol decodes an OCC option symbol produced by
// FormatOptionSymbol.
func ParseOptionSymbol(symbol string) (OptionContract, error) {
	// underlying (>=1) + date (6) + right (1) + strike (8)
	minLen := 1 + 6 + 1 + occStrikeDigits
	if len(symbol) < minLen {
		return OptionContract{}, errors.Newf(errors.ErrCodeInvalidParameter, "option symbol too short: %q", symbol)
	}

	strikePart := symbol[len(symbol)-occStrikeDigits:]

	milli, err := strconv.ParseInt(strikePart, 10, 64)
	if err != nil {
		return OptionContract{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid strike in option symbol %q", symbol)
	}

	rightPart := symbol[len(symbol)-occStrikeDigits-1 : len(symbol)-occStrikeDigits]

	right := OptionRight(rightPart)
	if right != OptionRightCall && right != OptionRightPut {
		return OptionContract{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid right %q in option symbol %q", rightPart, symbol)
	}

	datePart := symbol[len(symbol)-occStrikeDigits-7 : len(symbol)-occStrikeDigits-1]

	expiry, err := time.Parse("060102", datePart)
	if err != nil {
		return OptionContract{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid expiry in option symbol %q", symbol)
	}

	underlying := symbol[:len(symbol)-occStrikeDigits-7]
	if underlying == "" {
		return OptionContract{}, errors.Newf(errors.ErrCodeInvalidParameter, "missing underlying in option symbol %q", symbol)
	}

	return OptionContract{
		Underlying: underlying,
		Expiry:     expiry,
		Right:      right,
		Strike:     float64(milli) / 1000,
	}, nil
}

// NextOptionExpiry returns the next Friday strictly after now, at midnight in
// now's location. A Friday rolls to the following week.
func NextOptionExpiry(now time.Time) time.Time {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}

	next := now.AddDate(0, 0, days)

	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, now.Location())
}

/// SuggestedContract builds the nearest-strike weekly contract for a signal:
// a call for long, a put for short, strike rounded to the nearest dollar.
func SuggestedContract(symbol string, direction Direction, price float64, now time.Time) string {
	right := OptionRightCall
	if direction == DirectionShort {
		right = OptionRightPut
	}

	return FormatOptionSymbol(symbol, NextOptionExpiry(now), right, math.Round(price))
}
