package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal is a fully specified trade decision. Created at most once per
// qualifying box lifecycle; immutable; consumed exactly once by the agent.
type Signal struct {
	ID        string    `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Direction Direction `yaml:"direction" json:"direction" csv:"direction" validate:"required,oneof=LONG SHORT"`
	Entry     float64   `yaml:"entry" json:"entry" csv:"entry" validate:"required,gt=0"`
	Stop      float64   `yaml:"stop" json:"stop" csv:"stop" validate:"required,gt=0"`
	// Targets are ordered nearest first, one per configured reward ratio.
	Targets      []float64 `yaml:"targets" json:"targets" csv:"targets" validate:"required,min=1,dive,gt=0"`
	RiskAmount   float64   `yaml:"risk_amount" json:"risk_amount" csv:"risk_amount" validate:"required,gt=0"`
	PositionSize float64   `yaml:"position_size" json:"position_size" csv:"position_size" validate:"required,gt=0"`
	// Confidence blends technical strength and sentiment confidence, in [0, 1].
	Confidence  float64   `yaml:"confidence" json:"confidence" csv:"confidence" validate:"gte=0,lte=1"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at" csv:"generated_at" validate:"required"`
	SourceBoxID string    `yaml:"source_box_id" json:"source_box_id" csv:"source_box_id" validate:"required"`
	// BoxTop and BoxBottom snapshot the source box boundaries for formatting.
	BoxTop    float64        `yaml:"box_top" json:"box_top" csv:"box_top"`
	BoxBottom float64        `yaml:"box_bottom" json:"box_bottom" csv:"box_bottom"`
	Sentiment SentimentScore `yaml:"sentiment" json:"sentiment" csv:"sentiment"`
	// Contract is the suggested OCC option symbol, e.g. AAPL231215C00180000.
	Contract string `yaml:"contract" json:"contract" csv:"contract"`
}

// Validate validates the Signal struct.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid signal", err)
	}

	return nil
}

// FinalTarget returns the furthest target, which closes the position when
// touched.
func (s *Signal) FinalTarget() float64 {
	if len(s.Targets) == 0 {
		return 0
	}

	return s.Targets[len(s.Targets)-1]
}

type OutcomeResult string

const (
	OutcomeResultStopLoss  OutcomeResult = "stop_loss"
	OutcomeResultTargetHit OutcomeResult = "target_hit"
)

// TradeOutcome records the close of a tracked position: which exit fired, at
// what price, and the realized profit or loss.
type TradeOutcome struct {
	Signal    Signal          `yaml:"signal" json:"signal"`
	Result    OutcomeResult   `yaml:"result" json:"result"`
	ExitPrice float64         `yaml:"exit_price" json:"exit_price"`
	PnL       decimal.Decimal `yaml:"pnl" json:"pnl"`
	OpenedAt  time.Time       `yaml:"opened_at" json:"opened_at"`
	ClosedAt  time.Time       `yaml:"closed_at" json:"closed_at"`
}

// IsWin reports whether the outcome realized a non-negative PnL.
func (o *TradeOutcome) IsWin() bool {
	return !o.PnL.IsNegative()
}
