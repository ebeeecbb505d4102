// Package generator turns a qualified box-plus-sentiment snapshot into a
// trade signal. The decision core is a pure function; the Generator wraps it
// with per-box and per-symbol emission guards.
package generator

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

const (
	// neutralScoreBand is the sentiment dead zone: scores inside it carry no
	// directional information.
	neutralScoreBand = 0.05

	technicalConfirmed = 0.70
	technicalRetested  = 0.85

	// Volume ratio above 1x baseline adds a small technical bonus.
	volumeBonusPerUnit = 0.05
	volumeBonusCap     = 0.10

	technicalWeight = 0.6
	sentimentWeight = 0.4
)

// RejectReason labels why a snapshot produced no signal. The values feed the
// rejected-signals counter.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectNoPrice          RejectReason = "no_price"
	RejectBoxNotTradeable  RejectReason = "box_not_tradeable"
	RejectStaleSentiment   RejectReason = "stale_sentiment"
	RejectWeakSentiment    RejectReason = "weak_sentiment"
	RejectNeutralSentiment RejectReason = "neutral_sentiment"
	RejectDirectionBias    RejectReason = "direction_bias"
	RejectLowConfidence    RejectReason = "low_confidence"
	RejectInvalidGeometry  RejectReason = "invalid_geometry"
	RejectDuplicateBox     RejectReason = "duplicate_box"
	RejectCooldown         RejectReason = "cooldown"
)

// Snapshot is the decision input: the box under evaluation, the symbol's
// sentiment rollup, the latest traded price and the decision time.
type Snapshot struct {
	Box       types.Box
	Sentiment types.SentimentScore
	Price     float64
	Now       time.Time
}

// Generator guards the pure decision core with emission state: at most one
// signal per box lifecycle and a per-symbol cooldown. It is mutated only on
// the event processor's consumer path, so it carries no lock.
type Generator struct {
	risk types.RiskConfig

	// signaledBox remembers, per symbol, the box that already produced a
	// signal. Boxes supersede each other per symbol, so one entry suffices.
	signaledBox map[string]string
	lastEmit    map[string]time.Time
}

// New creates a Generator with the given risk parameters.
func New(risk types.RiskConfig) *Generator {
	return &Generator{
		risk:        risk,
		signaledBox: make(map[string]string),
		lastEmit:    make(map[string]time.Time),
	}
}

// Generate evaluates the snapshot and returns the signal, if any, together
// with the reason it was withheld.
func (g *Generator) Generate(snapshot Snapshot) (optional.Option[types.Signal], RejectReason) {
	none := optional.None[types.Signal]()
	symbol := snapshot.Box.Symbol

	if g.signaledBox[symbol] == snapshot.Box.ID {
		return none, RejectDuplicateBox
	}

	if last, ok := g.lastEmit[symbol]; ok && snapshot.Now.Sub(last) < g.risk.SignalCooldown() {
		return none, RejectCooldown
	}

	signal, reason := Evaluate(snapshot, g.risk)
	if signal.IsNone() {
		return none, reason
	}

	g.signaledBox[symbol] = snapshot.Box.ID
	g.lastEmit[symbol] = snapshot.Now

	return signal, RejectNone
}

// Evaluate is the pure decision core: it applies the qualification gates and
// computes the trade levels. It holds no state and never mutates its inputs.
func Evaluate(snapshot Snapshot, risk types.RiskConfig) (optional.Option[types.Signal], RejectReason) {
	none := optional.None[types.Signal]()
	box := snapshot.Box
	sentiment := snapshot.Sentiment

	if snapshot.Price <= 0 {
		return none, RejectNoPrice
	}

	if !box.IsTradeable() {
		return none, RejectBoxNotTradeable
	}

	if sentiment.IsStale(snapshot.Now, risk.SentimentStaleness()) {
		return none, RejectStaleSentiment
	}

	if sentiment.Confidence < risk.MinSentimentConfidence || sentiment.ArticleCount < risk.MinArticles {
		return none, RejectWeakSentiment
	}

	if math.Abs(sentiment.Score) < neutralScoreBand {
		return none, RejectNeutralSentiment
	}

	direction := types.DirectionLong
	if sentiment.Score < 0 {
		direction = types.DirectionShort
	}

	// A retested box only trades away from the boundary that held.
	if box.State == types.BoxStateRetested {
		if box.RetestSide == types.RetestSideBottom && direction != types.DirectionLong {
			return none, RejectDirectionBias
		}

		if box.RetestSide == types.RetestSideTop && direction != types.DirectionShort {
			return none, RejectDirectionBias
		}
	}

	confidence := blendedConfidence(box, sentiment)
	if confidence < risk.MinSignalConfidence {
		return none, RejectLowConfidence
	}

	entry := snapshot.Price

	var stop float64
	if direction == types.DirectionLong {
		stop = box.Bottom * (1 - risk.StopBufferPct)
	} else {
		stop = box.Top * (1 + risk.StopBufferPct)
	}

	riskDistance := entry - stop
	if direction == types.DirectionShort {
		riskDistance = stop - entry
	}

	if riskDistance <= 0 {
		return none, RejectInvalidGeometry
	}

	targets := make([]float64, 0, len(risk.RewardRatios))

	for _, ratio := range risk.RewardRatios {
		target := entry + ratio*riskDistance
		if direction == types.DirectionShort {
			target = entry - ratio*riskDistance
		}

		targets = append(targets, target)
	}

	signal := types.Signal{
		ID:           uuid.New().String(),
		Symbol:       box.Symbol,
		Direction:    direction,
		Entry:        entry,
		Stop:         stop,
		Targets:      targets,
		RiskAmount:   risk.RiskPerTrade,
		PositionSize: risk.RiskPerTrade / riskDistance,
		Confidence:   confidence,
		GeneratedAt:  snapshot.Now,
		SourceBoxID:  box.ID,
		BoxTop:       box.Top,
		BoxBottom:    box.Bottom,
		Sentiment:    sentiment,
		Contract:     types.SuggestedContract(box.Symbol, direction, entry, snapshot.Now),
	}

	if err := signal.Validate(); err != nil {
		// Targets at or below zero and similar degenerate levels.
		return none, RejectInvalidGeometry
	}

	return optional.Some(signal), RejectNone
}

// blendedConfidence combines technical strength with sentiment confidence.
// Technical strength starts from the box state and earns a capped bonus for
// volume ratio above baseline.
func blendedConfidence(box types.Box, sentiment types.SentimentScore) float64 {
	technical := technicalConfirmed
	if box.State == types.BoxStateRetested {
		technical = technicalRetested
	}

	bonus := (box.VolumeRatio - 1) * volumeBonusPerUnit
	if bonus < 0 {
		bonus = 0
	}

	if bonus > volumeBonusCap {
		bonus = volumeBonusCap
	}

	technical += bonus
	if technical > 1 {
		technical = 1
	}

	return technicalWeight*technical + sentimentWeight*sentiment.Confidence
}
