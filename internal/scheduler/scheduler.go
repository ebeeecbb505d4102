// Package scheduler pushes periodic reports through the notifier: an hourly
// snapshot of the position ledger and a summary after each market close.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/agent"
	"github.com/rxtech-lab/argo-signals/internal/bus"
	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/notifier"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// Specs use the seconds-first cron format and fire in the configured
// timezone, normally the exchange timezone.
const (
	hourlyStatusSpec = "0 0 * * * *"
	// Five minutes after the regular close, weekdays only.
	dailySummarySpec = "0 5 16 * * 1-5"

	reportTimeout = 10 * time.Second
)

// Config wires the scheduler dependencies.
type Config struct {
	Timezone string            `validate:"required"`
	Agent    *agent.Agent      `validate:"required"`
	Bus      *bus.Bus          `validate:"required"`
	Notifier notifier.Notifier `validate:"required"`
	Logger   *logger.Logger    `validate:"required"`
}

// Scheduler owns the cron loop behind the hourly status report and the daily
// market-close summary.
type Scheduler struct {
	cron     *cron.Cron
	agent    *agent.Agent
	bus      *bus.Bus
	notifier notifier.Notifier
	logger   *logger.Logger
	started  time.Time
}

// NewScheduler validates the config and registers both jobs. The cron loop
// does not run until Start.
func NewScheduler(config Config) (*Scheduler, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid scheduler config", err)
	}

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", config.Timezone)
	}

	scheduler := &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(location)),
		agent:    config.Agent,
		bus:      config.Bus,
		notifier: config.Notifier,
		logger:   config.Logger,
		started:  time.Now(),
	}

	if _, err := scheduler.cron.AddFunc(hourlyStatusSpec, scheduler.reportStatus); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "register hourly status job", err)
	}

	if _, err := scheduler.cron.AddFunc(dailySummarySpec, scheduler.reportSummary); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "register daily summary job", err)
	}

	return scheduler, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the cron loop and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) reportStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	message := statusMessage(s.agent.Status(), s.bus.Len(), time.Since(s.started))
	if err := s.notifier.SendSystem(ctx, "Status report", message); err != nil {
		s.logger.Warn("status report not delivered", zap.Error(err))
	}
}

func (s *Scheduler) reportSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	message := summaryMessage(s.agent.Status())
	if err := s.notifier.SendSystem(ctx, "Market close summary", message); err != nil {
		s.logger.Warn("daily summary not delivered", zap.Error(err))
	}
}

// statusMessage renders the hourly snapshot.
func statusMessage(status agent.Status, queueDepth int, uptime time.Duration) string {
	var output strings.Builder

	fmt.Fprintf(&output, "Open positions: %s\n", positionList(status.Open))
	fmt.Fprintf(&output, "Record: %d wins / %d losses\n", status.Wins, status.Losses)
	fmt.Fprintf(&output, "Realized PnL: $%s\n", status.RealizedPnL.StringFixed(2))
	fmt.Fprintf(&output, "Queue depth: %d\n", queueDepth)
	fmt.Fprintf(&output, "Uptime: %s", uptime.Round(time.Second))

	return output.String()
}

// summaryMessage renders the market-close summary.
func summaryMessage(status agent.Status) string {
	var output strings.Builder

	closed := status.Wins + status.Losses

	fmt.Fprintf(&output, "Closed trades: %d", closed)
	if closed > 0 {
		fmt.Fprintf(&output, " (%.0f%% win rate)", float64(status.Wins)/float64(closed)*100)
	}

	fmt.Fprintf(&output, "\nRealized PnL: $%s\n", status.RealizedPnL.StringFixed(2))
	fmt.Fprintf(&output, "Held overnight: %s", positionList(status.Open))

	return output.String()
}

// positionList renders open positions sorted by symbol, or "none".
func positionList(open []agent.Position) string {
	if len(open) == 0 {
		return "none"
	}

	parts := make([]string, 0, len(open))
	for _, position := range open {
		parts = append(parts, fmt.Sprintf("%s %s @ %.2f",
			position.Signal.Symbol, position.Signal.Direction, position.Signal.Entry))
	}

	sort.Strings(parts)

	return strings.Join(parts, ", ")
}
