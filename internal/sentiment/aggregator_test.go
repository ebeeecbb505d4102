package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

type AggregatorTestSuite struct {
	suite.Suite
	aggregator *Aggregator
	base       time.Time
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func (suite *AggregatorTestSuite) SetupTest() {
	suite.aggregator = NewAggregator(10)
	suite.base = time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
}

func (suite *AggregatorTestSuite) addScore(symbol string, score, confidence float64, matches int, at time.Time) {
	suite.aggregator.Add(symbol, ArticleScore{
		ArticleID:  "a",
		Score:      score,
		Confidence: confidence,
		Label:      LabelFor(score),
		Matches:    matches,
		ScoredAt:   at,
	})
}

func (suite *AggregatorTestSuite) TestSnapshotUnknownSymbol() {
	suite.True(suite.aggregator.Snapshot("AAPL").IsNone())
}

func (suite *AggregatorTestSuite) TestSnapshotSingleArticle() {
	suite.addScore("AAPL", 0.6, 0.8, 4, suite.base)

	snapshot := suite.aggregator.Snapshot("AAPL")
	suite.Require().True(snapshot.IsSome())

	score := snapshot.Unwrap()
	suite.Equal("AAPL", score.Symbol)
	suite.InDelta(0.6, score.Score, 1e-9)
	suite.InDelta(0.8, score.Confidence, 1e-9)
	suite.Equal(types.SentimentLabelBullish, score.Label)
	suite.Equal(1, score.ArticleCount)
	suite.Equal(4, score.KeywordMatches)
	suite.Equal(suite.base, score.AsOf)
}

func (suite *AggregatorTestSuite) TestSnapshotWeightsNewestHighest() {
	// Oldest is strongly bearish, newest strongly bullish: recency weighting
	// must tilt the rollup positive.
	suite.addScore("AAPL", -1.0, 0.5, 2, suite.base)
	suite.addScore("AAPL", 1.0, 0.5, 2, suite.base.Add(time.Minute))

	snapshot := suite.aggregator.Snapshot("AAPL")
	suite.Require().True(snapshot.IsSome())

	score := snapshot.Unwrap()
	// weights 0.5 (old) and 1.0 (new): (-0.5 + 1.0) / 1.5
	suite.InDelta(1.0/3.0, score.Score, 1e-9)
	suite.Equal(2, score.ArticleCount)
	suite.Equal(4, score.KeywordMatches)
}

func (suite *AggregatorTestSuite) TestSnapshotAsOfTracksLastAdd() {
	suite.addScore("AAPL", 0.2, 0.4, 1, suite.base)
	suite.addScore("AAPL", 0.4, 0.4, 2, suite.base.Add(5*time.Minute))

	score := suite.aggregator.Snapshot("AAPL").Unwrap()
	suite.Equal(suite.base.Add(5*time.Minute), score.AsOf)
}

func (suite *AggregatorTestSuite) TestRetentionEvictsOldest() {
	aggregator := NewAggregator(3)

	for i := 0; i < 5; i++ {
		aggregator.Add("AAPL", ArticleScore{
			Score:    float64(i) / 10,
			Matches:  1,
			ScoredAt: suite.base.Add(time.Duration(i) * time.Minute),
		})
	}

	score := aggregator.Snapshot("AAPL").Unwrap()
	suite.Equal(3, score.ArticleCount)
	suite.Equal(3, score.KeywordMatches)
	// Only scores 0.2, 0.3, 0.4 remain, so the rollup exceeds 0.2.
	suite.Greater(score.Score, 0.2)
}

func (suite *AggregatorTestSuite) TestSymbolsAreIndependent() {
	suite.addScore("AAPL", 0.9, 0.9, 5, suite.base)
	suite.addScore("TSLA", -0.9, 0.9, 5, suite.base)

	aapl := suite.aggregator.Snapshot("AAPL").Unwrap()
	tsla := suite.aggregator.Snapshot("TSLA").Unwrap()

	suite.Equal(types.SentimentLabelBullish, aapl.Label)
	suite.Equal(types.SentimentLabelBearish, tsla.Label)
}

func (suite *AggregatorTestSuite) TestNonPositiveRetentionFallsBack() {
	aggregator := NewAggregator(0)
	aggregator.Add("AAPL", ArticleScore{Score: 0.5, Matches: 1, ScoredAt: suite.base})

	suite.True(aggregator.Snapshot("AAPL").IsSome())
}
