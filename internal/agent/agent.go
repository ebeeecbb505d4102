// Package agent holds the position ledger: it accepts signals under
// portfolio constraints and tracks open positions to their outcome.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/metrics"
	"github.com/rxtech-lab/argo-signals/internal/notifier"
	"github.com/rxtech-lab/argo-signals/internal/types"
)

// Rejection reasons reported by HandleSignal.
const (
	ReasonInvalidSignal  = "invalid_signal"
	ReasonMaxPositions   = "max_positions"
	ReasonSymbolOccupied = "symbol_occupied"
)

// Position is one open ledger entry.
type Position struct {
	Signal   types.Signal
	OpenedAt time.Time
}

// Status is a snapshot of the ledger for status reports.
type Status struct {
	Open        []Position
	Wins        int
	Losses      int
	RealizedPnL decimal.Decimal
}

// Agent applies portfolio constraints to incoming signals and walks open
// positions to their stop or final target. Signals and candles arrive on the
// event processor's goroutine while status reports come from the scheduler,
// so the ledger carries a lock.
type Agent struct {
	risk     types.RiskConfig
	notifier notifier.Notifier
	logger   *logger.Logger

	mu        sync.Mutex
	positions map[string]Position
	wins      int
	losses    int
	realized  decimal.Decimal
}

// New creates an Agent with an empty ledger.
func New(risk types.RiskConfig, notify notifier.Notifier, log *logger.Logger) *Agent {
	return &Agent{
		risk:      risk,
		notifier:  notify,
		logger:    log,
		positions: make(map[string]Position),
		realized:  decimal.Zero,
	}
}

// HandleSignal opens a position for the signal unless a portfolio constraint
// rejects it. The returned reason is empty exactly when the signal was
// accepted. Accepted signals are forwarded to the notifier; a delivery
// failure is logged but does not unwind the position.
func (a *Agent) HandleSignal(ctx context.Context, signal types.Signal) (bool, string) {
	if err := signal.Validate(); err != nil {
		a.reject(signal, ReasonInvalidSignal, zap.Error(err))

		return false, ReasonInvalidSignal
	}

	a.mu.Lock()

	if _, open := a.positions[signal.Symbol]; open {
		a.mu.Unlock()
		a.reject(signal, ReasonSymbolOccupied)

		return false, ReasonSymbolOccupied
	}

	if len(a.positions) >= a.risk.MaxConcurrentPositions {
		a.mu.Unlock()
		a.reject(signal, ReasonMaxPositions)

		return false, ReasonMaxPositions
	}

	a.positions[signal.Symbol] = Position{
		Signal:   signal,
		OpenedAt: signal.GeneratedAt,
	}
	metrics.OpenPositions.Set(float64(len(a.positions)))
	a.mu.Unlock()

	a.logger.Info("position opened",
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("entry", signal.Entry),
		zap.Float64("stop", signal.Stop),
		zap.Float64("size", signal.PositionSize),
	)

	if err := a.notifier.SendTradeAlert(ctx, signal); err != nil {
		a.logger.Warn("trade alert delivery failed",
			zap.String("symbol", signal.Symbol),
			zap.Error(err),
		)
	}

	return true, ""
}

// TrackCandle checks the candle against the symbol's open position. A touch
// of the stop or the final target closes the position at that level; the
// stop wins when one candle spans both. The realized outcome, if any, is
// returned after the notifier was informed.
func (a *Agent) TrackCandle(ctx context.Context, candle types.Candle) optional.Option[types.TradeOutcome] {
	none := optional.None[types.TradeOutcome]()

	a.mu.Lock()

	position, open := a.positions[candle.Symbol]
	if !open {
		a.mu.Unlock()

		return none
	}

	result, exitPrice, closed := exitLevel(position.Signal, candle)
	if !closed {
		a.mu.Unlock()

		return none
	}

	outcome := types.TradeOutcome{
		Signal:    position.Signal,
		Result:    result,
		ExitPrice: exitPrice,
		PnL:       realizedPnL(position.Signal, exitPrice),
		OpenedAt:  position.OpenedAt,
		ClosedAt:  candle.Time,
	}

	delete(a.positions, candle.Symbol)
	metrics.OpenPositions.Set(float64(len(a.positions)))

	if outcome.IsWin() {
		a.wins++
	} else {
		a.losses++
	}

	a.realized = a.realized.Add(outcome.PnL)
	a.mu.Unlock()

	a.logger.Info("position closed",
		zap.String("symbol", candle.Symbol),
		zap.String("result", string(result)),
		zap.Float64("exit", exitPrice),
		zap.String("pnl", outcome.PnL.StringFixed(2)),
	)

	if err := a.notifier.SendOutcome(ctx, outcome); err != nil {
		a.logger.Warn("outcome delivery failed",
			zap.String("symbol", candle.Symbol),
			zap.Error(err),
		)
	}

	return optional.Some(outcome)
}

// Status snapshots the ledger.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	open := make([]Position, 0, len(a.positions))
	for _, position := range a.positions {
		open = append(open, position)
	}

	return Status{
		Open:        open,
		Wins:        a.wins,
		Losses:      a.losses,
		RealizedPnL: a.realized,
	}
}

func (a *Agent) reject(signal types.Signal, reason string, fields ...zap.Field) {
	metrics.SignalsRejectedTotal.WithLabelValues(reason).Inc()

	fields = append([]zap.Field{
		zap.String("symbol", signal.Symbol),
		zap.String("reason", reason),
	}, fields...)

	a.logger.Warn("signal rejected", fields...)
}

// exitLevel reports whether the candle touches the position's stop or final
// target, and at which price the position exits.
func exitLevel(signal types.Signal, candle types.Candle) (types.OutcomeResult, float64, bool) {
	target := signal.FinalTarget()

	if signal.Direction == types.DirectionLong {
		if candle.Low <= signal.Stop {
			return types.OutcomeResultStopLoss, signal.Stop, true
		}

		if candle.High >= target {
			return types.OutcomeResultTargetHit, target, true
		}

		return "", 0, false
	}

	if candle.High >= signal.Stop {
		return types.OutcomeResultStopLoss, signal.Stop, true
	}

	if candle.Low <= target {
		return types.OutcomeResultTargetHit, target, true
	}

	return "", 0, false
}

// realizedPnL computes position size times the signed price distance.
func realizedPnL(signal types.Signal, exitPrice float64) decimal.Decimal {
	distance := exitPrice - signal.Entry
	if signal.Direction == types.DirectionShort {
		distance = signal.Entry - exitPrice
	}

	return decimal.NewFromFloat(signal.PositionSize).Mul(decimal.NewFromFloat(distance))
}
