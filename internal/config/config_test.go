package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) writeConfig(content string) string {
	path := filepath.Join(suite.T().TempDir(), "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	config := DefaultConfig()
	suite.NoError(config.Validate())
	suite.Equal([]string{"SPY"}, config.Symbols)
	suite.Equal(types.Timeframe1Min, config.Timeframe)
	suite.Equal(256, config.Bus.Capacity)
	suite.Equal("polygon", config.MarketData.Provider)
	suite.Equal(60, config.Monitor.NewsIntervalSeconds)
	suite.Equal(10, config.News.PageSize)
	suite.Equal("Options Swing Trader", config.Notifier.Username)
	suite.Equal(25.0, config.Risk.RiskPerTrade)
}

func (suite *ConfigTestSuite) TestLoadWithoutFileUsesDefaults() {
	config, err := Load("")
	suite.NoError(err)
	suite.Equal(DefaultConfig().Bus.Capacity, config.Bus.Capacity)
}

func (suite *ConfigTestSuite) TestLoadMergesFileOverDefaults() {
	path := suite.writeConfig(`
symbols:
  - AAPL
  - TSLA
timeframe: 5m
bus:
  capacity: 64
detector:
  box_size_threshold: 0.015
  min_consolidation_candles: 6
  volume_threshold_multiplier: 1.5
  retest_tolerance: 0.004
  baseline_lookback: 30
`)

	config, err := Load(path)
	suite.NoError(err)
	suite.Equal([]string{"AAPL", "TSLA"}, config.Symbols)
	suite.Equal(types.Timeframe5Min, config.Timeframe)
	suite.Equal(64, config.Bus.Capacity)
	suite.Equal(0.015, config.Detector.BoxSizeThreshold)
	suite.Equal(6, config.Detector.MinConsolidationCandles)
	// Untouched sections keep their defaults.
	suite.Equal(60, config.Monitor.PriceIntervalSeconds)
	suite.Equal(25.0, config.Risk.RiskPerTrade)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.T().TempDir(), "absent.yaml"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadMalformedYaml() {
	path := suite.writeConfig("symbols: [unclosed")

	_, err := Load(path)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestEnvOverrides() {
	suite.T().Setenv("POLYGON_API_KEY", "poly-key-from-env")
	suite.T().Setenv("NEWS_API_KEY", "news-key-from-env")
	suite.T().Setenv("DISCORD_WEBHOOK_URL", "https://discord.test/webhook")

	config, err := Load("")
	suite.NoError(err)
	suite.Equal("poly-key-from-env", config.MarketData.PolygonAPIKey)
	suite.Equal("news-key-from-env", config.News.APIKey)
	suite.Equal("https://discord.test/webhook", config.Notifier.DiscordWebhookURL)
}

func (suite *ConfigTestSuite) TestEnvDoesNotOverrideWhenUnset() {
	path := suite.writeConfig(`
market_data:
  provider: polygon
  polygon_api_key: from-file
`)

	config, err := Load(path)
	suite.NoError(err)
	suite.Equal("from-file", config.MarketData.PolygonAPIKey)
}

func (suite *ConfigTestSuite) TestValidateRejectsUnknownProvider() {
	config := DefaultConfig()
	config.MarketData.Provider = "bloomberg"

	err := config.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateRejectsEmptySymbols() {
	config := DefaultConfig()
	config.Symbols = nil
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsUnknownTimeframe() {
	config := DefaultConfig()
	config.Timeframe = types.Timeframe("7m")
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsBadDetectorTuning() {
	config := DefaultConfig()
	config.Detector.MinConsolidationCandles = 2
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsBadPriceSource() {
	config := DefaultConfig()
	config.Monitor.PriceSource = "carrier-pigeon"
	suite.Error(config.Validate())
}
