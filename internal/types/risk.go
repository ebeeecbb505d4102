package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// RiskConfig holds the risk and signal-qualification knobs. Process-wide and
// read-only after startup.
type RiskConfig struct {
	// RiskPerTrade is the dollar amount risked between entry and stop.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"required,gt=0"`
	// RewardRatios produce one target per ratio, nearest first.
	RewardRatios []float64 `yaml:"reward_ratios" json:"reward_ratios" validate:"required,min=1,dive,gt=0"`
	// StopBufferPct pads the stop beyond the box boundary.
	StopBufferPct          float64 `yaml:"stop_buffer_pct" json:"stop_buffer_pct" validate:"gte=0,lt=1"`
	MinSentimentConfidence float64 `yaml:"min_sentiment_confidence" json:"min_sentiment_confidence" validate:"gte=0,lte=1"`
	MinArticles            int     `yaml:"min_articles" json:"min_articles" validate:"gte=0"`
	MinSignalConfidence    float64 `yaml:"min_signal_confidence" json:"min_signal_confidence" validate:"gte=0,lte=1"`
	// SignalCooldownSeconds is the minimum spacing between signals for the
	// same symbol.
	SignalCooldownSeconds  int `yaml:"signal_cooldown_seconds" json:"signal_cooldown_seconds" validate:"gte=0"`
	MaxConcurrentPositions int `yaml:"max_concurrent_positions" json:"max_concurrent_positions" validate:"gte=1"`
	// SentimentStalenessSeconds is how long a sentiment score stays usable.
	SentimentStalenessSeconds int `yaml:"sentiment_staleness_seconds" json:"sentiment_staleness_seconds" validate:"gte=0"`
}

// DefaultRiskConfig returns the default risk parameters.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RiskPerTrade:              25,
		RewardRatios:              []float64{2, 3, 4},
		StopBufferPct:             0.0035,
		MinSentimentConfidence:    0.3,
		MinArticles:               2,
		MinSignalConfidence:       0.7,
		SignalCooldownSeconds:     3600,
		MaxConcurrentPositions:    2,
		SentimentStalenessSeconds: 1800,
	}
}

// SignalCooldown returns the per-symbol cooldown as a duration.
func (c RiskConfig) SignalCooldown() time.Duration {
	return time.Duration(c.SignalCooldownSeconds) * time.Second
}

// SentimentStaleness returns the sentiment staleness window as a duration.
func (c RiskConfig) SentimentStaleness() time.Duration {
	return time.Duration(c.SentimentStalenessSeconds) * time.Second
}

// Validate validates the RiskConfig struct.
func (c *RiskConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk config", err)
	}

	return nil
}

// DetectorConfig holds the box detection thresholds.
type DetectorConfig struct {
	// BoxSizeThreshold is the maximum (high-low)/low of a consolidation window.
	BoxSizeThreshold float64 `yaml:"box_size_threshold" json:"box_size_threshold" validate:"required,gt=0,lt=1"`
	// MinConsolidationCandles is the rolling window length; at least 5.
	MinConsolidationCandles int `yaml:"min_consolidation_candles" json:"min_consolidation_candles" validate:"required,gte=5"`
	// VolumeThresholdMultiplier is the window-average volume required relative
	// to the baseline for confirmation.
	VolumeThresholdMultiplier float64 `yaml:"volume_threshold_multiplier" json:"volume_threshold_multiplier" validate:"required,gt=0"`
	// RetestTolerance is the band around a boundary, as a fraction of the
	// boundary price, inside which a touch counts as a retest.
	RetestTolerance float64 `yaml:"retest_tolerance" json:"retest_tolerance" validate:"required,gt=0,lt=1"`
	// BaselineLookback is how many evicted candles feed the baseline volume.
	BaselineLookback int `yaml:"baseline_lookback" json:"baseline_lookback" validate:"required,gte=1"`
}

// DefaultDetectorConfig returns the default detection thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		BoxSizeThreshold:          0.02,
		MinConsolidationCandles:   5,
		VolumeThresholdMultiplier: 1.3,
		RetestTolerance:           0.005,
		BaselineLookback:          20,
	}
}

// Validate validates the DetectorConfig struct.
func (c *DetectorConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid detector config", err)
	}

	return nil
}
