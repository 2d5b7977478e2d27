package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/rumcollect/internal/config"
	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/journal"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/replay"
	"codeberg.org/mutker/rumcollect/internal/rum"
	"codeberg.org/mutker/rumcollect/internal/telemetry"
	"github.com/spf13/pflag"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const shutdownTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(false, false, logger.IsService())
	level, err := logger.ParseLevel(cfg.LogLevel.String())
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLogLevel(level)
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("replay failed")
		} else {
			logger.Error().Err(err).Msg("replay failed")
		}
		os.Exit(1)
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	errFactory := errors.New()

	records, err := readTrace(cfg.Trace)
	if err != nil {
		return errFactory.Wrap(errors.ErrReplay, err)
	}

	mp, err := telemetry.Setup(ctx, cfg.TelemetryConfig())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitMetrics, err)
	}
	defer shutdownMetrics(mp)

	recorder, err := telemetry.New(mp)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitMetrics, err)
	}

	j, err := journal.New(cfg.JournalConfig())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitJournal, err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close journal")
		}
	}()

	player := replay.NewPlayer(time.Now(), cfg.ResourceBufferSize)
	collector := rum.Start(cfg.RUMConfig(), rum.Platform{
		Timeline:  player.Timeline(),
		Document:  player.Document(),
		Scheduler: player.Scheduler(),
		Clock:     player.Clock(),
	}, recorder)
	sub := journal.Attach(ctx, collector.LifeCycle(), j)
	defer sub.Unsubscribe()

	stats, err := player.Play(ctx, records, collector, cfg.Settle)
	collector.Stop()
	if err != nil {
		return errFactory.Wrap(errors.ErrReplay, err)
	}

	logger.Info().
		Int("records", stats.Records).
		Int("entries", stats.Entries).
		Int("skipped_entries", stats.SkippedEntries).
		Int("requests", stats.Requests).
		Int("dropped_entries", player.Timeline().Dropped()).
		Msg("Trace replayed")

	return logSummary(ctx, j)
}

func readTrace(path string) ([]replay.Record, error) {
	var in io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	return replay.Parse(in)
}

func logSummary(ctx context.Context, j journal.Journal) error {
	if !j.Enabled() {
		return nil
	}
	if err := j.Flush(); err != nil {
		return err
	}

	summary, err := j.Summary(ctx)
	if err != nil {
		return err
	}

	event := logger.Info().
		Int("total", summary.Total).
		Int("attributed", summary.Attributed).
		Int("sessions", summary.Sessions)
	for eventType, n := range summary.ByType {
		event.Int(string(eventType), n)
	}
	event.Msg("Journal summary")
	return nil
}

func shutdownMetrics(mp *sdkmetric.MeterProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := telemetry.Shutdown(ctx, mp); err != nil {
		logger.Error().Err(err).Msg("failed to shut down metrics")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
