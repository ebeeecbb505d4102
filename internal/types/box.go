package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type BoxState string

const (
	// BoxStateForming is a candidate consolidation whose range condition holds
	// but whose volume condition has not yet been met.
	BoxStateForming BoxState = "FORMING"
	// BoxStateConfirmed is a consolidation whose range and volume conditions
	// both held; its boundaries are frozen.
	BoxStateConfirmed BoxState = "CONFIRMED"
	// BoxStateRetested is a confirmed box whose boundary was touched within
	// tolerance with a close back inside the box.
	BoxStateRetested BoxState = "RETESTED"
	// BoxStateInvalidated is a box broken by a decisive close outside a
	// boundary; it is evicted and never trades.
	BoxStateInvalidated BoxState = "INVALIDATED"
)

type RetestSide string

const (
	RetestSideNone   RetestSide = "none"
	RetestSideTop    RetestSide = "top"
	RetestSideBottom RetestSide = "bottom"
)

// Box is a consolidation range detected for a symbol+timeframe. Only the
// detector that owns the symbol mutates it.
type Box struct {
	ID          string     `yaml:"id" json:"id" csv:"id"`
	Symbol      string     `yaml:"symbol" json:"symbol" csv:"symbol"`
	Timeframe   Timeframe  `yaml:"timeframe" json:"timeframe" csv:"timeframe"`
	Top         float64    `yaml:"top" json:"top" csv:"top"`
	Bottom      float64    `yaml:"bottom" json:"bottom" csv:"bottom"`
	FormedAt    time.Time  `yaml:"formed_at" json:"formed_at" csv:"formed_at"`
	ConfirmedAt time.Time  `yaml:"confirmed_at" json:"confirmed_at" csv:"confirmed_at"`
	CandleCount int        `yaml:"candle_count" json:"candle_count" csv:"candle_count"`
	VolumeRatio float64    `yaml:"volume_ratio" json:"volume_ratio" csv:"volume_ratio"`
	State       BoxState   `yaml:"state" json:"state" csv:"state"`
	RetestSide  RetestSide `yaml:"retest_side" json:"retest_side" csv:"retest_side"`
	// RetestedAt is set on the first retest only; later retests keep it.
	RetestedAt optional.Option[time.Time] `yaml:"retested_at" json:"retested_at" csv:"retested_at"`
}

// Range returns the absolute height of the box.
func (b *Box) Range() float64 {
	return b.Top - b.Bottom
}

// IsTradeable reports whether the box can back a signal.
func (b *Box) IsTradeable() bool {
	return b.State == BoxStateConfirmed || b.State == BoxStateRetested
}

// BoxUpdate is a single state change reported by the detector for one candle.
type BoxUpdate struct {
	Box        Box
	Transition BoxState
}
