package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/bonuslights/internal/bonus"
	"github.com/playperu/bonuslights/internal/catalog"
	"github.com/playperu/bonuslights/internal/config"
	"github.com/playperu/bonuslights/internal/database"
	"github.com/playperu/bonuslights/internal/handler/health"
	"github.com/playperu/bonuslights/internal/layout"
	"github.com/playperu/bonuslights/internal/server"
	"github.com/playperu/bonuslights/internal/store"
	"github.com/playperu/bonuslights/internal/widget"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type recordStore interface {
	bonus.Storage
	Ping(ctx context.Context) error
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Record store ---
	// A device without a writable store still runs, just without a lock
	// that survives restarts.
	var records recordStore
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Warn("record store unavailable, keeping records in memory", "path", cfg.DBPath, "error", err)
		records = store.NewMemory()
	} else {
		defer db.Close()
		docs, err := store.NewDocStore(ctx, db)
		if err != nil {
			return fmt.Errorf("initialising record store: %w", err)
		}
		records = docs
		logger.Info("connected to sqlite", "path", cfg.DBPath)
	}

	// --- Garland ---
	bonuses, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	curve, err := layout.ParsePath(cfg.CurvePath)
	if err != nil {
		return fmt.Errorf("parsing curve: %w", err)
	}
	viewBox, err := cfg.ViewBox()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	broker := server.NewBroker()
	machine, err := bonus.New(bonus.Options{
		MarkerCount:      cfg.MarkerCount,
		AttemptsPerRound: cfg.AttemptsPerRound,
		PickMode:         cfg.PickMode,
		Assignment:       cfg.Assignment,
		DailyLock:        cfg.DailyLock,
		ScoreMode:        cfg.ScoreMode,
		Catalog:          bonuses,
		Seed:             cfg.Seed,
		Location:         loc,
	}, records, broker, logger)
	if err != nil {
		return fmt.Errorf("creating bonus machine: %w", err)
	}

	engine := layout.NewEngine(curve, layout.Options{
		Offset: cfg.OffsetDistance,
		Side:   cfg.OffsetSide,
	}, cfg.Mapping)

	sess := widget.New(machine, engine, cfg.MarkerCount, widget.Timing{
		Debounce: cfg.ResizeDebounce,
		Frame:    cfg.SettleFrame,
		Settle:   cfg.SettleDelay,
	}, logger)
	defer sess.Close()

	phase := sess.Start(ctx)
	logger.Info("garland ready",
		"markers", cfg.MarkerCount,
		"bonuses", len(bonuses),
		"curve_length", curve.Length(),
		"phase", phase,
	)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, sess, broker, server.Options{
		SPADir:            cfg.SPADir,
		AdminPasswordHash: cfg.AdminPasswordHash,
		CurvePath:         cfg.CurvePath,
		ViewBox:           viewBox,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"store": health.CheckFunc(records.Ping),
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
