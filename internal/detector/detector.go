// Package detector finds box consolidations in a candle stream and walks each
// box through FORMING, CONFIRMED, RETESTED and INVALIDATED.
package detector

import (
	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

// Detector is the stateful box state machine for one symbol+timeframe. It is
// mutated only on the event processor's consumer path, so it carries no lock.
//
// A rolling window holds the most recent MinConsolidationCandles candles;
// older candles are evicted into a baseline-volume buffer whose mean is the
// baseline volume. A full window whose range condition holds becomes a
// FORMING candidate; the candidate confirms when the window's average volume
// clears the baseline multiple. Confirmed boxes are monitored for retests and
// breakouts; when retest and breakout coincide on one candle the breakout
// wins.
type Detector struct {
	config    types.DetectorConfig
	symbol    string
	timeframe types.Timeframe

	window    []types.Candle
	baseline  []float64
	candidate *types.Box
	active    *types.Box

	warmingUp bool
}

// New creates a detector for one symbol+timeframe.
func New(symbol string, timeframe types.Timeframe, config types.DetectorConfig) *Detector {
	return &Detector{
		config:    config,
		symbol:    symbol,
		timeframe: timeframe,
		window:    make([]types.Candle, 0, config.MinConsolidationCandles),
		baseline:  make([]float64, 0, config.BaselineLookback),
	}
}

// ActiveBox returns the current CONFIRMED or RETESTED box, if any.
func (d *Detector) ActiveBox() optional.Option[types.Box] {
	if d.active == nil {
		return optional.None[types.Box]()
	}

	return optional.Some(*d.active)
}

// Warmup feeds historical candles through the detector while suppressing
// emitted transitions, so windows and the volume baseline are primed before
// live events flow. Malformed candles are skipped. Returns how many candles
// were applied.
func (d *Detector) Warmup(candles []types.Candle) int {
	d.warmingUp = true
	defer func() { d.warmingUp = false }()

	applied := 0

	for _, candle := range candles {
		if _, err := d.Process(candle); err != nil {
			continue
		}

		applied++
	}

	return applied
}

// Process applies one closed candle and returns the box transition it caused,
// if any. At most one transition is reported per candle. Candles that fail
// validation are rejected with a malformed-candle error and leave the state
// untouched.
func (d *Detector) Process(candle types.Candle) (optional.Option[types.BoxUpdate], error) {
	none := optional.None[types.BoxUpdate]()

	if err := candle.Validate(); err != nil {
		return none, err
	}

	if d.active != nil {
		update, done := d.monitorActive(candle)
		if done {
			return update, nil
		}
	}

	return d.form(candle), nil
}

// monitorActive checks the active box against the candle. done reports that
// the candle is fully handled; when false (RETESTED box, no breakout) the
// candle also participates in forming a successor box.
func (d *Detector) monitorActive(candle types.Candle) (optional.Option[types.BoxUpdate], bool) {
	none := optional.None[types.BoxUpdate]()
	tolerance := d.config.RetestTolerance

	// Breakout beats retest when one candle satisfies both.
	if candle.Close > d.active.Top*(1+tolerance) || candle.Close < d.active.Bottom*(1-tolerance) {
		box := *d.active
		box.State = types.BoxStateInvalidated

		d.active = nil
		d.candidate = nil
		// The breakout candle seeds the next window.
		d.window = append(d.window[:0], candle)

		return d.emit(types.BoxUpdate{Box: box, Transition: types.BoxStateInvalidated}), true
	}

	if d.active.State == types.BoxStateConfirmed {
		if side, ok := d.retestSide(candle); ok {
			d.active.State = types.BoxStateRetested
			d.active.RetestSide = side
			d.active.RetestedAt = optional.Some(candle.Time)
			// The window resets so a successor forms only from fresh candles.
			d.window = d.window[:0]
			d.candidate = nil
			d.pushBaseline(candle.Volume)

			return d.emit(types.BoxUpdate{Box: *d.active, Transition: types.BoxStateRetested}), true
		}

		// No new box may begin forming while the box is CONFIRMED; the
		// candle only refreshes the volume baseline.
		d.pushBaseline(candle.Volume)

		return none, true
	}

	// RETESTED: further retests do not change state, and the candle keeps
	// building the successor window.
	return none, false
}

// retestSide reports whether the candle retests a boundary: a touch within
// tolerance of the boundary with a close back inside the box. The bottom is
// checked first.
func (d *Detector) retestSide(candle types.Candle) (types.RetestSide, bool) {
	tolerance := d.config.RetestTolerance

	closeInside := candle.Close >= d.active.Bottom && candle.Close <= d.active.Top
	if !closeInside {
		return types.RetestSideNone, false
	}

	if candle.Low <= d.active.Bottom*(1+tolerance) {
		return types.RetestSideBottom, true
	}

	if candle.High >= d.active.Top*(1-tolerance) {
		return types.RetestSideTop, true
	}

	return types.RetestSideNone, false
}

// form advances the rolling window and the FORMING candidate.
func (d *Detector) form(candle types.Candle) optional.Option[types.BoxUpdate] {
	none := optional.None[types.BoxUpdate]()

	d.window = append(d.window, candle)
	if len(d.window) > d.config.MinConsolidationCandles {
		d.pushBaseline(d.window[0].Volume)
		d.window = d.window[1:]
	}

	if len(d.window) < d.config.MinConsolidationCandles {
		return none
	}

	top, bottom := d.windowBounds()

	if (top-bottom)/bottom > d.config.BoxSizeThreshold {
		// Range condition broke: the candidate is discarded without ever
		// confirming.
		d.candidate = nil

		return none
	}

	created := false

	if d.candidate == nil {
		d.candidate = &types.Box{
			ID:         uuid.New().String(),
			Symbol:     d.symbol,
			Timeframe:  d.timeframe,
			State:      types.BoxStateForming,
			RetestSide: types.RetestSideNone,
		}
		created = true
	}

	d.candidate.Top = top
	d.candidate.Bottom = bottom
	d.candidate.FormedAt = d.window[0].Time
	d.candidate.CandleCount = len(d.window)

	ratio := d.volumeRatio()
	if ratio >= d.config.VolumeThresholdMultiplier {
		d.candidate.State = types.BoxStateConfirmed
		d.candidate.ConfirmedAt = candle.Time
		d.candidate.VolumeRatio = ratio

		// A newly confirmed box supersedes a lingering RETESTED one.
		d.active = d.candidate
		d.candidate = nil
		d.window = d.window[:0]

		return d.emit(types.BoxUpdate{Box: *d.active, Transition: types.BoxStateConfirmed})
	}

	if created {
		return d.emit(types.BoxUpdate{Box: *d.candidate, Transition: types.BoxStateForming})
	}

	return none
}

// emit suppresses transitions during warmup.
func (d *Detector) emit(update types.BoxUpdate) optional.Option[types.BoxUpdate] {
	if d.warmingUp {
		return optional.None[types.BoxUpdate]()
	}

	return optional.Some(update)
}

func (d *Detector) windowBounds() (float64, float64) {
	top := d.window[0].High
	bottom := d.window[0].Low

	for _, candle := range d.window[1:] {
		if candle.High > top {
			top = candle.High
		}

		if candle.Low < bottom {
			bottom = candle.Low
		}
	}

	return top, bottom
}

// volumeRatio compares the window's average volume to the baseline mean. With
// an empty baseline (cold start) the window average is its own baseline, so
// the ratio cannot exceed 1.
func (d *Detector) volumeRatio() float64 {
	var windowSum float64
	for _, candle := range d.window {
		windowSum += candle.Volume
	}

	windowAvg := windowSum / float64(len(d.window))

	baselineAvg := windowAvg

	if len(d.baseline) > 0 {
		var baselineSum float64
		for _, volume := range d.baseline {
			baselineSum += volume
		}

		baselineAvg = baselineSum / float64(len(d.baseline))
	}

	if baselineAvg <= 0 {
		return 0
	}

	return windowAvg / baselineAvg
}

func (d *Detector) pushBaseline(volume float64) {
	d.baseline = append(d.baseline, volume)
	if len(d.baseline) > d.config.BaselineLookback {
		d.baseline = d.baseline[1:]
	}
}
