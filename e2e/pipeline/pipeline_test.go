package pipeline_test

import (
	"time"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

const (
	bullishTitleA = "SPY beats estimates with record growth and strong breakout momentum"
	bullishTitleB = "Analysts see SPY rally extending record momentum with strong upside"
	bearishTitleA = "SPY plunges as lawsuit fuels selloff fear and weak decline"
	bearishTitleB = "Bearish downgrade sees SPY drop on loss and crash worries"
)

// TestBreakoutSignalReachesDiscord drives the full live path: the news
// monitor scores articles from the fake NewsAPI, the price monitor polls the
// scripted provider into a confirmed box, and the resulting signal and its
// eventual target-hit outcome arrive as Discord webhooks.
func (suite *PipelineE2ETestSuite) TestBreakoutSignalReachesDiscord() {
	published := time.Now().UTC().Add(-5 * time.Minute)
	suite.feed.add("https://news.example.com/a1", bullishTitleA, published)
	suite.feed.add("https://news.example.com/a2", bullishTitleB, published)

	suite.startPipeline()

	// Five tight bars on elevated volume confirm a [100, 102] box.
	suite.provider.Release(suite.script.Repeat(5, 100.5, 102, 100, 101.5, 1500)...)

	suite.Require().Eventually(func() bool {
		_, ok := suite.recorder.find("New LONG signal for SPY CALL")

		return ok
	}, 10*time.Second, 20*time.Millisecond, "trade alert never reached the webhook")

	alert, _ := suite.recorder.find("New LONG signal for SPY CALL")
	suite.Require().Len(alert.Embeds, 1)
	suite.Equal("🚀 SPY CALL SIGNAL", alert.Embeds[0].Title)
	suite.Contains(alert.Embeds[0].Description, "Entry: 101.50")
	suite.Contains(alert.Embeds[0].Description, "Stop: 99.65")
	suite.Contains(alert.Embeds[0].Description, "Targets: 105.20 / 107.05 / 108.90")
	suite.Require().NotNil(alert.Embeds[0].Footer)
	suite.Contains(alert.Embeds[0].Footer.Text, "Confidence: 83.5%")

	suite.Require().Len(alert.Embeds[0].Fields, 2)
	suite.Contains(alert.Embeds[0].Fields[0].Value, "Top: 102.00")
	suite.Contains(alert.Embeds[0].Fields[0].Value, "Bottom: 100.00")
	suite.Contains(alert.Embeds[0].Fields[1].Value, "Articles: 2")

	requests, lastQuery := suite.feed.queries()
	suite.Positive(requests)
	suite.Contains(lastQuery, "SPY")

	// A bar through the final target closes the position.
	suite.provider.Release(suite.script.Next(108, 109.5, 107.5, 109, 2000))

	suite.Require().Eventually(func() bool {
		_, ok := suite.recorder.find("SPY TARGET HIT")

		return ok
	}, 10*time.Second, 20*time.Millisecond, "outcome never reached the webhook")

	outcome, _ := suite.recorder.find("SPY TARGET HIT")
	suite.Require().Len(outcome.Embeds, 1)
	suite.Contains(outcome.Embeds[0].Description, "Direction: LONG")
	suite.Contains(outcome.Embeds[0].Description, "Exit: 108.90")
	suite.Contains(outcome.Embeds[0].Description, "PnL: $100.00")

	suite.stopPipeline()

	status := suite.ledger.Status()
	suite.Empty(status.Open)
	suite.Equal(1, status.Wins)
	suite.Equal(0, status.Losses)
	suite.Equal("100.00", status.RealizedPnL.StringFixed(2))
}

// TestShutdownDrainsQueuedEvents closes the bus with events still queued and
// checks the processor works through all of them before exiting.
func (suite *PipelineE2ETestSuite) TestShutdownDrainsQueuedEvents() {
	at := time.Now().UTC().Add(-20 * time.Minute)
	events := []*types.Event{
		suite.scoredNewsEvent("d1", bullishTitleA, at),
		suite.scoredNewsEvent("d2", bullishTitleB, at),
	}

	for _, candle := range suite.script.Repeat(5, 100.5, 102, 100, 101.5, 1500) {
		events = append(events, types.NewPriceEvent(candle, 0))
	}

	suite.drainManually(events...)

	_, found := suite.recorder.find("New LONG signal for SPY CALL")
	suite.True(found, "queued events were dropped instead of drained")

	status := suite.ledger.Status()
	suite.Len(status.Open, 1)
	suite.Equal("SPY", status.Open[0].Signal.Symbol)
}

// TestWeakSentimentWithholdsSignal confirms a box on a single scored article:
// below the article minimum, no signal may be emitted.
func (suite *PipelineE2ETestSuite) TestWeakSentimentWithholdsSignal() {
	at := time.Now().UTC().Add(-20 * time.Minute)
	events := []*types.Event{
		suite.scoredNewsEvent("w1", bullishTitleA, at),
	}

	for _, candle := range suite.script.Repeat(5, 100.5, 102, 100, 101.5, 1500) {
		events = append(events, types.NewPriceEvent(candle, 0))
	}

	suite.drainManually(events...)

	_, found := suite.recorder.find("New LONG signal")
	suite.False(found, "signal emitted despite a single supporting article")
	suite.Empty(suite.ledger.Status().Open)
}

// TestBearishSentimentEmitsShortSignal checks the short side: bearish
// sentiment over a confirmed box produces a PUT alert stopped above the box.
func (suite *PipelineE2ETestSuite) TestBearishSentimentEmitsShortSignal() {
	at := time.Now().UTC().Add(-20 * time.Minute)
	events := []*types.Event{
		suite.scoredNewsEvent("b1", bearishTitleA, at),
		suite.scoredNewsEvent("b2", bearishTitleB, at),
	}

	for _, candle := range suite.script.Repeat(5, 100.5, 102, 100, 101.5, 1500) {
		events = append(events, types.NewPriceEvent(candle, 0))
	}

	suite.drainManually(events...)

	alert, found := suite.recorder.find("New SHORT signal for SPY PUT")
	suite.Require().True(found, "short alert never reached the webhook")
	suite.Require().Len(alert.Embeds, 1)
	suite.Equal("🐻 SPY PUT SIGNAL", alert.Embeds[0].Title)
	suite.Contains(alert.Embeds[0].Description, "Entry: 101.50")
	suite.Contains(alert.Embeds[0].Description, "Stop: 102.36")

	status := suite.ledger.Status()
	suite.Require().Len(status.Open, 1)
	suite.Equal(types.DirectionShort, status.Open[0].Signal.Direction)
}
