package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signals/internal/agent"
	"github.com/rxtech-lab/argo-signals/internal/bus"
	"github.com/rxtech-lab/argo-signals/internal/clock"
	"github.com/rxtech-lab/argo-signals/internal/config"
	"github.com/rxtech-lab/argo-signals/internal/generator"
	"github.com/rxtech-lab/argo-signals/internal/logger"
	"github.com/rxtech-lab/argo-signals/internal/metrics"
	"github.com/rxtech-lab/argo-signals/internal/monitor"
	"github.com/rxtech-lab/argo-signals/internal/news"
	"github.com/rxtech-lab/argo-signals/internal/notifier"
	"github.com/rxtech-lab/argo-signals/internal/processor"
	"github.com/rxtech-lab/argo-signals/internal/scheduler"
	"github.com/rxtech-lab/argo-signals/internal/sentiment"
	"github.com/rxtech-lab/argo-signals/internal/version"
	"github.com/rxtech-lab/argo-signals/pkg/marketdata"
)

// runAction wires the pipeline and blocks until an interrupt: monitors publish
// onto the bus, the processor consumes it, and the agent tracks positions.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	notify, err := notifier.New(notifier.Config{
		WebhookURL:     cfg.Notifier.DiscordWebhookURL,
		Username:       cfg.Notifier.Username,
		TimeoutSeconds: cfg.Notifier.TimeoutSeconds,
	})
	if err != nil {
		return err
	}

	provider, err := marketdata.NewProvider(marketdata.ClientConfig{
		Provider:         marketdata.ProviderType(cfg.MarketData.Provider),
		Timeframe:        cfg.Timeframe,
		PolygonAPIKey:    cfg.MarketData.PolygonAPIKey,
		BinanceAPIKey:    cfg.MarketData.BinanceAPIKey,
		BinanceAPISecret: cfg.MarketData.BinanceAPISecret,
	})
	if err != nil {
		return err
	}

	marketClock, err := newClock(cfg)
	if err != nil {
		return err
	}

	newsClient, err := news.NewClient(news.Config{
		APIKey:         cfg.News.APIKey,
		BaseURL:        cfg.News.BaseURL,
		PageSize:       cfg.News.PageSize,
		RatePerMinute:  cfg.News.RatePerMinute,
		TimeoutSeconds: cfg.Monitor.RequestTimeoutSeconds,
	})
	if err != nil {
		return err
	}

	eventBus := bus.NewBus(cfg.Bus.Capacity)
	ledger := agent.New(cfg.Risk, notify, log)

	proc, err := processor.New(processor.Config{
		Bus:        eventBus,
		Logger:     log,
		Agent:      ledger,
		Generator:  generator.New(cfg.Risk),
		Aggregator: sentiment.NewAggregator(cfg.Sentiment.MaxArticles),
		Detector:   cfg.Detector,
		Timeframe:  cfg.Timeframe,
	})
	if err != nil {
		return err
	}

	priceMonitor, err := newPriceMonitor(cfg, provider, marketClock, eventBus, notify, log)
	if err != nil {
		return err
	}

	newsMonitor, err := monitor.NewNewsMonitor(monitor.NewsConfig{
		Symbols:     cfg.Symbols,
		Interval:    time.Duration(cfg.Monitor.NewsIntervalSeconds) * time.Second,
		DedupWindow: time.Duration(cfg.Monitor.DedupWindowHours) * time.Hour,
		MaxRetries:  cfg.Monitor.MaxRetries,
		Fetcher:     newsClient,
		Analyzer:    sentiment.NewAnalyzer(cfg.Sentiment.PositiveWords, cfg.Sentiment.NegativeWords),
		Bus:         eventBus,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.Serve(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metricsServer.Shutdown(shutdownCtx)
		}()

		log.Info("metrics endpoint up", zap.String("addr", cfg.Metrics.Addr))
	}

	if open, err := provider.IsMarketOpen(runCtx); err != nil {
		log.Warn("venue status check failed", zap.Error(err))
	} else {
		log.Info("venue status", zap.String("provider", string(provider.Name())), zap.Bool("open", open))
	}

	if cfg.Warmup.Enabled {
		warmup(runCtx, cfg, provider, proc, log)
	}

	// The processor starts before the monitors so publishes never pile up
	// against an unconsumed bus.
	processorDone := make(chan error, 1)
	go func() { processorDone <- proc.Run(runCtx) }()

	var monitors sync.WaitGroup

	monitors.Add(1)

	go func() {
		defer monitors.Done()

		if err := priceMonitor.Run(runCtx); err != nil {
			log.Error("price monitor stopped", zap.Error(err))
		}
	}()

	monitors.Add(1)

	go func() {
		defer monitors.Done()

		if err := newsMonitor.Run(runCtx); err != nil {
			log.Error("news monitor stopped", zap.Error(err))
		}
	}()

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewScheduler(scheduler.Config{
			Timezone: cfg.MarketHours.Timezone,
			Agent:    ledger,
			Bus:      eventBus,
			Notifier: notify,
			Logger:   log,
		})
		if err != nil {
			return err
		}

		sched.Start()
		defer sched.Stop()
	}

	startupMessage := fmt.Sprintf("Watching %s on %s bars via %s",
		strings.Join(cfg.Symbols, ", "), cfg.Timeframe, provider.Name())
	if err := notify.SendSystem(runCtx, "Agent started", startupMessage); err != nil {
		log.Warn("startup notification failed", zap.Error(err))
	}

	log.Info("agent running",
		zap.String("version", version.GetVersion()),
		zap.Strings("symbols", cfg.Symbols),
		zap.String("timeframe", string(cfg.Timeframe)),
		zap.String("price_source", cfg.Monitor.PriceSource),
	)

	<-runCtx.Done()
	log.Info("shutdown signal received")

	// Monitors stop publishing first, then the closed bus lets the
	// processor drain whatever is still queued.
	monitors.Wait()
	eventBus.Close()

	if err := <-processorDone; err != nil {
		log.Error("processor exited with error", zap.Error(err))
	}

	status := ledger.Status()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownMessage := fmt.Sprintf("Open positions: %d, realized PnL: $%s",
		len(status.Open), status.RealizedPnL.StringFixed(2))
	if err := notify.SendSystem(shutdownCtx, "Agent stopped", shutdownMessage); err != nil {
		log.Warn("shutdown notification failed", zap.Error(err))
	}

	return nil
}

// newClock picks the trading calendar. Crypto venues trade around the clock,
// so the binance provider gets a clock that never closes.
func newClock(cfg *config.Config) (clock.Clock, error) {
	if marketdata.ProviderType(cfg.MarketData.Provider) == marketdata.ProviderBinance {
		return clock.AlwaysOpen{}, nil
	}

	return clock.NewMarketClock(cfg.MarketHours)
}

// newPriceMonitor builds the price monitor, attaching the alpaca stream when
// the source is stream.
func newPriceMonitor(
	cfg *config.Config,
	provider marketdata.Provider,
	marketClock clock.Clock,
	eventBus *bus.Bus,
	notify notifier.Notifier,
	log *logger.Logger,
) (*monitor.PriceMonitor, error) {
	priceConfig := monitor.PriceConfig{
		Symbols:        cfg.Symbols,
		Source:         cfg.Monitor.PriceSource,
		Interval:       time.Duration(cfg.Monitor.PriceIntervalSeconds) * time.Second,
		MaxRetries:     cfg.Monitor.MaxRetries,
		RequestTimeout: time.Duration(cfg.Monitor.RequestTimeoutSeconds) * time.Second,
		ClosedHoldoff:  time.Duration(cfg.Monitor.ClosedHoldoffSeconds) * time.Second,
		Provider:       provider,
		Clock:          marketClock,
		Bus:            eventBus,
		Notifier:       notify,
		Logger:         log,
	}

	if priceConfig.Source == monitor.SourceStream {
		stream, err := marketdata.NewAlpacaStream(marketdata.AlpacaStreamConfig{
			URL:       cfg.MarketData.AlpacaStreamURL,
			APIKey:    cfg.MarketData.AlpacaAPIKey,
			APISecret: cfg.MarketData.AlpacaAPISecret,
		})
		if err != nil {
			return nil, err
		}

		priceConfig.Streamer = stream
	}

	return monitor.NewPriceMonitor(priceConfig)
}

// warmup feeds recent history into the detectors so boxes can form without
// waiting for live bars.
func warmup(
	ctx context.Context,
	cfg *config.Config,
	provider marketdata.Provider,
	proc *processor.Processor,
	log *logger.Logger,
) {
	to := time.Now().UTC()
	from := to.Add(-time.Duration(cfg.Warmup.LookbackCandles) * cfg.Timeframe.Duration())

	for _, symbol := range cfg.Symbols {
		candles, err := provider.GetHistorical(ctx, symbol, cfg.Timeframe, from, to)
		if err != nil {
			log.Warn("warmup fetch failed", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		fed := proc.Warmup(symbol, candles)
		log.Info("detector warmed", zap.String("symbol", symbol), zap.Int("candles", fed))
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "argo-signals",
		Usage:   "Consolidation breakout signal agent for options swing trades",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
