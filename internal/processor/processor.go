// Package processor is the single consumer of the event bus: it routes
// events into the detector, sentiment and agent state and invokes the signal
// generator when a decision point is reached.
package processor

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/agent"
	"github.com/rxtech-lab/argo-signals/internal/bus"
	"github.com/rxtech-lab/argo-signals/internal/detector"
	"github.com/rxtech-lab/argo-signals/internal/generator"
	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/metrics"
	"github.com/rxtech-lab/argo-signals/internal/sentiment"
	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// Config wires the processor's collaborators.
type Config struct {
	Bus        *bus.Bus              `validate:"required"`
	Logger     *logger.Logger        `validate:"required"`
	Agent      *agent.Agent          `validate:"required"`
	Generator  *generator.Generator  `validate:"required"`
	Aggregator *sentiment.Aggregator `validate:"required"`
	Detector   types.DetectorConfig  `validate:"required"`
	Timeframe  types.Timeframe       `validate:"required"`
}

// Processor consumes the bus and owns all detector and sentiment state. That
// state is mutated only on the Run goroutine, so none of it is locked.
type Processor struct {
	bus        *bus.Bus
	logger     *logger.Logger
	agent      *agent.Agent
	generator  *generator.Generator
	aggregator *sentiment.Aggregator

	detectorConfig types.DetectorConfig
	timeframe      types.Timeframe

	detectors map[string]*detector.Detector
	lastPrice map[string]float64
	lastSeq   uint64
}

// New creates a Processor. Detectors are created per symbol on first use.
func New(config Config) (*Processor, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid processor configuration", err)
	}

	return &Processor{
		bus:            config.Bus,
		logger:         config.Logger,
		agent:          config.Agent,
		generator:      config.Generator,
		aggregator:     config.Aggregator,
		detectorConfig: config.Detector,
		timeframe:      config.Timeframe,
		detectors:      make(map[string]*detector.Detector),
		lastPrice:      make(map[string]float64),
	}, nil
}

// Warmup primes the symbol's detector with historical candles before live
// consumption starts. It must not be called once Run is consuming.
func (p *Processor) Warmup(symbol string, candles []types.Candle) int {
	applied := p.detectorFor(symbol).Warmup(candles)

	if len(candles) > 0 {
		p.lastPrice[symbol] = candles[len(candles)-1].Close
	}

	return applied
}

// Run consumes events until the bus is closed and drained. Handler errors
// are isolated per event: logged, counted, never fatal.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("event processor started")

	for {
		event, err := p.bus.Consume()
		if err != nil {
			if errors.IsBusClosed(err) {
				p.logger.Info("event bus closed, processor exiting",
					zap.Uint64("last_sequence", p.lastSeq),
				)

				return nil
			}

			return errors.Wrap(errors.ErrCodeInternal, "bus consume failed", err)
		}

		p.handle(ctx, event)
	}
}

// handle routes one event and isolates its failures.
func (p *Processor) handle(ctx context.Context, event *types.Event) {
	start := time.Now()

	defer func() {
		metrics.EventProcessingDuration.WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())
	}()

	metrics.EventsConsumedTotal.WithLabelValues(string(event.Kind)).Inc()
	metrics.BusDepth.Set(float64(p.bus.Len()))

	p.checkSequence(event)

	var err error

	switch event.Kind {
	case types.EventKindPrice:
		err = p.handlePrice(ctx, event)
	case types.EventKindNews:
		err = p.handleNews(ctx, event)
	case types.EventKindSignal:
		err = p.handleSignal(ctx, event)
	default:
		err = errors.Newf(errors.ErrCodeInvalidParameter, "unknown event kind %q", event.Kind)
	}

	if err != nil {
		metrics.EventErrorsTotal.WithLabelValues(string(event.Kind)).Inc()
		p.logger.Error("event handling failed",
			zap.Uint64("sequence", event.Sequence),
			zap.String("kind", string(event.Kind)),
			zap.String("symbol", event.Symbol),
			zap.Error(err),
		)
	}
}

// checkSequence logs consumed sequence gaps. The bus assigns a strictly
// increasing sequence per publish, so a gap means an event was lost.
func (p *Processor) checkSequence(event *types.Event) {
	if p.lastSeq != 0 && event.Sequence != p.lastSeq+1 {
		p.logger.Warn("event sequence gap",
			zap.Uint64("expected", p.lastSeq+1),
			zap.Uint64("got", event.Sequence),
		)
	}

	p.lastSeq = event.Sequence
}

func (p *Processor) handlePrice(ctx context.Context, event *types.Event) error {
	if event.Candle.IsNone() {
		return errors.New(errors.ErrCodeInvalidParameter, "price event carries no candle")
	}

	candle := event.Candle.Unwrap()

	// Exits resolve before any new entry this candle could open.
	p.agent.TrackCandle(ctx, candle)

	update, err := p.detectorFor(candle.Symbol).Process(candle)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataFormat, err, "candle %s rejected", candle.Id)
	}

	p.lastPrice[candle.Symbol] = candle.Close

	if update.IsNone() {
		return nil
	}

	boxUpdate := update.Unwrap()
	metrics.BoxTransitionsTotal.WithLabelValues(string(boxUpdate.Transition)).Inc()

	p.logger.Info("box transition",
		zap.String("symbol", boxUpdate.Box.Symbol),
		zap.String("box_id", boxUpdate.Box.ID),
		zap.String("transition", string(boxUpdate.Transition)),
		zap.Float64("top", boxUpdate.Box.Top),
		zap.Float64("bottom", boxUpdate.Box.Bottom),
		zap.Float64("volume_ratio", boxUpdate.Box.VolumeRatio),
	)

	if boxUpdate.Box.IsTradeable() {
		p.evaluate(ctx, boxUpdate.Box, event.Time)
	}

	return nil
}

func (p *Processor) handleNews(ctx context.Context, event *types.Event) error {
	if event.Article.IsNone() || event.Sentiment.IsNone() {
		return errors.New(errors.ErrCodeInvalidParameter, "news event carries no scored article")
	}

	article := event.Article.Unwrap()
	score := event.Sentiment.Unwrap()

	p.aggregator.Add(event.Symbol, sentiment.ArticleScore{
		ArticleID:  article.ID,
		Score:      score.Score,
		Confidence: score.Confidence,
		Label:      score.Label,
		Matches:    score.KeywordMatches,
		ScoredAt:   score.AsOf,
	})

	p.logger.Debug("article scored",
		zap.Uint64("sequence", event.Sequence),
		zap.String("symbol", event.Symbol),
		zap.Float64("score", score.Score),
		zap.String("priority", string(event.Priority)),
	)

	// Fresh sentiment is a decision point when the symbol has a live box.
	if d, ok := p.detectors[event.Symbol]; ok {
		if active := d.ActiveBox(); active.IsSome() {
			p.evaluate(ctx, active.Unwrap(), event.Time)
		}
	}

	return nil
}

func (p *Processor) handleSignal(ctx context.Context, event *types.Event) error {
	if event.Signal.IsNone() {
		return errors.New(errors.ErrCodeInvalidParameter, "signal event carries no signal")
	}

	signal := event.Signal.Unwrap()
	accepted, reason := p.agent.HandleSignal(ctx, signal)

	p.logger.Info("external signal dispatched",
		zap.Uint64("sequence", event.Sequence),
		zap.String("symbol", signal.Symbol),
		zap.Bool("accepted", accepted),
		zap.String("reason", reason),
	)

	return nil
}

// evaluate invokes the generator with the combined box and sentiment
// snapshot, dispatching any produced signal directly to the agent.
func (p *Processor) evaluate(ctx context.Context, box types.Box, now time.Time) {
	snapshot := p.aggregator.Snapshot(box.Symbol)
	if snapshot.IsNone() {
		return
	}

	price := p.lastPrice[box.Symbol]
	if price <= 0 {
		return
	}

	signal, reason := p.generator.Generate(generator.Snapshot{
		Box:       box,
		Sentiment: snapshot.Unwrap(),
		Price:     price,
		Now:       now,
	})

	if signal.IsNone() {
		if reason != generator.RejectNone {
			metrics.SignalsRejectedTotal.WithLabelValues(string(reason)).Inc()
			p.logger.Debug("signal withheld",
				zap.String("symbol", box.Symbol),
				zap.String("box_id", box.ID),
				zap.String("reason", string(reason)),
			)
		}

		return
	}

	s := signal.Unwrap()
	metrics.SignalsEmittedTotal.WithLabelValues(s.Symbol, string(s.Direction)).Inc()

	p.logger.Info("signal generated",
		zap.String("symbol", s.Symbol),
		zap.String("direction", string(s.Direction)),
		zap.Float64("entry", s.Entry),
		zap.Float64("stop", s.Stop),
		zap.Float64("confidence", s.Confidence),
		zap.String("contract", s.Contract),
	)

	p.agent.HandleSignal(ctx, s)
}

func (p *Processor) detectorFor(symbol string) *detector.Detector {
	d, ok := p.detectors[symbol]
	if !ok {
		d = detector.New(symbol, p.timeframe, p.detectorConfig)
		p.detectors[symbol] = d
	}

	return d
}
