// Package main is the gamification engine worker: it wires the document
// store, the badge catalog, the event pipeline and the streak sweep, then
// runs until signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/linguaquest/gamification-engine/config"
	"github.com/linguaquest/gamification-engine/internal/application/command"
	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/messaging"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/postgres"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/redis"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/scheduler"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/scheduler/jobs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting gamification engine worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Document store: postgres in deployments, in-memory for local runs.
	// ─────────────────────────────────────────────────────────────────────────
	var store docstore.Store
	if cfg.Database.URL != "" {
		conn, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()

		if err := postgres.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		store = postgres.NewDocumentStore(conn)
		log.Info("document store ready", "backend", "postgres")
	} else {
		store = docstore.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory store; data will not survive restarts")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Redis: profile cache and activity feed, both optional.
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisClient *goredis.Client
		cache       *redis.ProfileCache
		feed        *redis.ActivityFeed
	)
	if !cfg.Redis.Disabled {
		redisClient, err = redis.Connect(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, running without cache and activity feed", "error", err)
		} else {
			defer redisClient.Close()
			cache = redis.NewProfileCache(redisClient, cfg.Redis.ProfileCacheTTL)
			feed = redis.NewActivityFeed(redisClient, log)
			log.Info("redis connected")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Repositories and badge catalog.
	// ─────────────────────────────────────────────────────────────────────────
	profileRepo := persistence.NewProfileRepository(store)
	catalogRepo := persistence.NewCatalogRepository(store)
	progressRepo := persistence.NewProgressRepository(store)

	if cfg.Engine.SeedDefaultCatalog {
		if err := catalogRepo.SeedDefaults(ctx, badge.DefaultDefinitions()); err != nil {
			return fmt.Errorf("seed badge catalog: %w", err)
		}
	}
	defs, err := catalogRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load badge catalog: %w", err)
	}
	catalog, err := badge.NewCatalog(defs)
	if err != nil {
		return fmt.Errorf("build badge catalog: %w", err)
	}
	log.Info("badge catalog loaded", "definitions", catalog.Size())

	// ─────────────────────────────────────────────────────────────────────────
	// Domain services and event bus.
	// ─────────────────────────────────────────────────────────────────────────
	curve := progression.NewCurve(cfg.Engine.Curve)
	calculator := progression.NewCalculator(cfg.Engine.Award)
	machine := streak.NewMachine(cfg.Engine.Streak)
	badgeEngine := badge.NewEngine(catalog)

	bus := messaging.NewInMemoryEventBus(messaging.BusConfig{
		Async:  true,
		Logger: log,
	})
	defer bus.Close()

	var notifier command.ActivityNotifier
	var invalidator command.CacheInvalidator
	if feed != nil {
		notifier = feed
	}
	if cache != nil {
		invalidator = cache
	}

	applyEvent := command.NewApplyEventHandler(
		profileRepo, progressRepo, calculator, curve, machine, badgeEngine,
		bus, notifier, invalidator, log,
		command.ApplyEventConfig{
			MaxConflictRetries:   cfg.Engine.MaxConflictRetries,
			LongSessionThreshold: cfg.Engine.LongSessionThreshold,
			EarlyBirdEndHour:     7,
			NightOwlEndHour:      4,
		},
	)
	createProfile := command.NewCreateProfileHandler(profileRepo, machine, log)

	// ─────────────────────────────────────────────────────────────────────────
	// Event intake: the app publishes activity events over Redis pub/sub.
	// Unknown users are onboarded with a default profile on first sight.
	// ─────────────────────────────────────────────────────────────────────────
	if redisClient != nil {
		consumer := redis.NewEventConsumer(redisClient, func(ctx context.Context, event shared.DomainEvent) error {
			_, err := applyEvent.Handle(ctx, event)
			if shared.IsNotFound(err) {
				if _, cerr := createProfile.Handle(ctx, command.CreateProfileCommand{UserID: event.UserID}); cerr != nil && !errors.Is(cerr, shared.ErrAlreadyExists) {
					return cerr
				}
				_, err = applyEvent.Handle(ctx, event)
			}
			return err
		}, log)

		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("event intake stopped", "error", err)
			}
		}()
	} else {
		log.Warn("no redis connection, event intake disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler: the nightly streak sweep.
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{Logger: log})

		var sweepCache jobs.CacheInvalidator
		if cache != nil {
			sweepCache = cache
		}
		sweep := jobs.NewStreakSweepJob(profileRepo, machine, bus, sweepCache, log)

		var schedule scheduler.Schedule
		if cfg.Scheduler.StreakSweepInterval > 0 {
			schedule = scheduler.Every(cfg.Scheduler.StreakSweepInterval)
		} else {
			schedule = scheduler.DailyAt(cfg.Scheduler.StreakSweepHour, cfg.Scheduler.StreakSweepMinute)
		}
		if err := sched.Register(sweep, schedule); err != nil {
			return fmt.Errorf("register streak sweep: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Run until signalled, then drain.
	// ─────────────────────────────────────────────────────────────────────────
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("shutdown signal received", "signal", s.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if sched != nil {
			_ = sched.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("worker stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timed out", "timeout", cfg.App.ShutdownTimeout.String())
	}
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Observability.LogFormat) == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(
		"app", cfg.App.Name,
		"version", cfg.App.Version,
	)
	slog.SetDefault(logger)
	return logger
}
