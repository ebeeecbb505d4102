// Package clock answers whether the market is open and when the session state
// next changes, from a configured trading calendar.
package clock

import (
	"time"

	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// Clock is the market-hours oracle used to gate the price monitor. Both
// methods are pure functions of the calendar; on an unresolvable calendar
// they return a ClockUnavailable error and callers must treat the market as
// closed.
type Clock interface {
	IsOpen(now time.Time) (bool, error)
	NextTransition(now time.Time) (time.Time, error)
}

// Config describes the trading calendar.
type Config struct {
	// Timezone is the IANA zone of the exchange, e.g. America/New_York.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`
	// OpenTime and CloseTime bound the regular session, formatted as HH:MM.
	OpenTime  string `yaml:"open_time" json:"open_time" validate:"required"`
	CloseTime string `yaml:"close_time" json:"close_time" validate:"required"`
	// Holidays are full-day closures, formatted as YYYY-MM-DD in the
	// exchange zone.
	Holidays []string `yaml:"holidays" json:"holidays"`
}

// DefaultConfig returns the regular US equity session.
func DefaultConfig() Config {
	return Config{
		Timezone:  "America/New_York",
		OpenTime:  "09:30",
		CloseTime: "16:00",
		Holidays:  nil,
	}
}

// MarketClock implements Clock for a single regular session per trading day,
// with weekends and configured holidays closed.
type MarketClock struct {
	location *time.Location
	openMin  int
	closeMin int
	holidays map[string]struct{}
}

var _ Clock = (*MarketClock)(nil)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// maxScanDays bounds the search for the next trading day.
	maxScanDays = 366
)

// NewMarketClock builds a MarketClock from config. Any unresolvable calendar
// input (unknown timezone, malformed session bounds, open not before close,
// malformed holiday) yields a ClockUnavailable error.
func NewMarketClock(config Config) (*MarketClock, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeClockUnavailable, err, "cannot load timezone %q", config.Timezone)
	}

	openMin, err := parseSessionTime(config.OpenTime)
	if err != nil {
		return nil, err
	}

	closeMin, err := parseSessionTime(config.CloseTime)
	if err != nil {
		return nil, err
	}

	if openMin >= closeMin {
		return nil, errors.Newf(errors.ErrCodeClockUnavailable, "session open %q must be before close %q", config.OpenTime, config.CloseTime)
	}

	holidays := make(map[string]struct{}, len(config.Holidays))

	for _, day := range config.Holidays {
		if _, err := time.ParseInLocation(dateLayout, day, location); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeClockUnavailable, err, "invalid holiday date %q", day)
		}

		holidays[day] = struct{}{}
	}

	return &MarketClock{
		location: location,
		openMin:  openMin,
		closeMin: closeMin,
		holidays: holidays,
	}, nil
}

func parseSessionTime(value string) (int, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeClockUnavailable, err, "invalid session time %q", value)
	}

	return t.Hour()*60 + t.Minute(), nil
}

// IsOpen reports whether the regular session is in progress at now. The
// session interval is [open, close): the open minute is open, the close
// minute is closed.
func (c *MarketClock) IsOpen(now time.Time) (bool, error) {
	if err := c.available(); err != nil {
		return false, err
	}

	local := now.In(c.location)
	if !c.isTradingDay(local) {
		return false, nil
	}

	open, close := c.sessionBounds(local)

	return !local.Before(open) && local.Before(close), nil
}

// NextTransition returns the next instant the session state flips: the
// session close when the market is open, otherwise the next trading day's
// open.
func (c *MarketClock) NextTransition(now time.Time) (time.Time, error) {
	if err := c.available(); err != nil {
		return time.Time{}, err
	}

	local := now.In(c.location)

	if c.isTradingDay(local) {
		open, close := c.sessionBounds(local)
		if !local.Before(open) && local.Before(close) {
			return close, nil
		}

		if local.Before(open) {
			return open, nil
		}
	}

	for i := 1; i <= maxScanDays; i++ {
		day := local.AddDate(0, 0, i)
		if !c.isTradingDay(day) {
			continue
		}

		open, _ := c.sessionBounds(day)

		return open, nil
	}

	return time.Time{}, errors.New(errors.ErrCodeClockUnavailable, "no trading day found within the scan horizon")
}

func (c *MarketClock) available() error {
	if c.location == nil || c.openMin >= c.closeMin {
		return errors.New(errors.ErrCodeClockUnavailable, "trading calendar is not resolvable")
	}

	return nil
}

func (c *MarketClock) isTradingDay(local time.Time) bool {
	weekday := local.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}

	_, holiday := c.holidays[local.Format(dateLayout)]

	return !holiday
}

func (c *MarketClock) sessionBounds(local time.Time) (time.Time, time.Time) {
	year, month, day := local.Date()
	open := time.Date(year, month, day, c.openMin/60, c.openMin%60, 0, 0, c.location)
	close := time.Date(year, month, day, c.closeMin/60, c.closeMin%60, 0, 0, c.location)

	return open, close
}

// AlwaysOpen is a Clock for venues without sessions, such as crypto markets.
type AlwaysOpen struct{}

var _ Clock = (*AlwaysOpen)(nil)

// IsOpen implements Clock.
func (AlwaysOpen) IsOpen(_ time.Time) (bool, error) {
	return true, nil
}

// NextTransition implements Clock. An always-open market has no transitions;
// the current instant is returned.
func (AlwaysOpen) NextTransition(now time.Time) (time.Time, error) {
	return now, nil
}
