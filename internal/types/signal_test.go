package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestDirectionConstants() {
	suite.Equal(Direction("LONG"), DirectionLong)
	suite.Equal(Direction("SHORT"), DirectionShort)
}

func validSignal() Signal {
	return Signal{
		ID:           uuid.New().String(),
		Symbol:       "AAPL",
		Direction:    DirectionLong,
		Entry:        101.5,
		Stop:         99.65,
		Targets:      []float64{105.2, 107.05, 108.9},
		RiskAmount:   25,
		PositionSize: 13.51,
		Confidence:   0.74,
		GeneratedAt:  time.Date(2024, 3, 12, 15, 4, 0, 0, time.UTC),
		SourceBoxID:  uuid.New().String(),
		BoxTop:       102,
		BoxBottom:    100,
		Sentiment: SentimentScore{
			Symbol:       "AAPL",
			Score:        0.6,
			Confidence:   0.8,
			Label:        SentimentLabelBullish,
			ArticleCount: 4,
			AsOf:         time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC),
		},
		Contract: "AAPL240315C00102000",
	}
}

func (suite *SignalTestSuite) TestSignalValidate() {
	signal := validSignal()
	suite.NoError(signal.Validate())
}

func (suite *SignalTestSuite) TestSignalValidateMissingSymbol() {
	signal := validSignal()
	signal.Symbol = ""
	suite.Error(signal.Validate())
}

func (suite *SignalTestSuite) TestSignalValidateBadDirection() {
	signal := validSignal()
	signal.Direction = Direction("SIDEWAYS")
	suite.Error(signal.Validate())
}

func (suite *SignalTestSuite) TestSignalValidateNoTargets() {
	signal := validSignal()
	signal.Targets = nil
	suite.Error(signal.Validate())
}

func (suite *SignalTestSuite) TestSignalValidateConfidenceRange() {
	signal := validSignal()
	signal.Confidence = 1.2
	suite.Error(signal.Validate())
}

func (suite *SignalTestSuite) TestFinalTarget() {
	signal := validSignal()
	suite.Equal(108.9, signal.FinalTarget())
}

func (suite *SignalTestSuite) TestFinalTargetEmpty() {
	signal := Signal{}
	suite.Equal(0.0, signal.FinalTarget())
}

func (suite *SignalTestSuite) TestTradeOutcomeWin() {
	outcome := TradeOutcome{
		Signal:    validSignal(),
		Result:    OutcomeResultTargetHit,
		ExitPrice: 108.9,
		PnL:       decimal.NewFromFloat(99.97),
		OpenedAt:  time.Date(2024, 3, 12, 15, 4, 0, 0, time.UTC),
		ClosedAt:  time.Date(2024, 3, 12, 15, 40, 0, 0, time.UTC),
	}

	suite.True(outcome.IsWin())
	suite.Equal(OutcomeResultTargetHit, outcome.Result)
}

func (suite *SignalTestSuite) TestTradeOutcomeLoss() {
	outcome := TradeOutcome{
		Signal:    validSignal(),
		Result:    OutcomeResultStopLoss,
		ExitPrice: 99.65,
		PnL:       decimal.NewFromFloat(-25),
		ClosedAt:  time.Date(2024, 3, 12, 15, 20, 0, 0, time.UTC),
	}

	suite.False(outcome.IsWin())
	suite.Equal(OutcomeResultStopLoss, outcome.Result)
}

func (suite *SignalTestSuite) TestTradeOutcomeZeroPnLIsWin() {
	outcome := TradeOutcome{PnL: decimal.Zero}
	suite.True(outcome.IsWin())
}
