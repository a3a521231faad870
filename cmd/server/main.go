package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"egress/internal/confirm/events"
	"egress/internal/confirm/fixfeed"
	confirmhandler "egress/internal/confirm/handler"
	"egress/internal/confirm/metrics"
	"egress/internal/confirm/ports"
	"egress/internal/confirm/scheduler"
	"egress/internal/confirm/service"
	"egress/internal/confirm/store"
	"egress/internal/jwttoken"
	"egress/internal/platform/config"
	"egress/internal/platform/httpserver"
	"egress/internal/platform/logger"
	"egress/internal/platform/ratelimit"
	platformredis "egress/internal/platform/redis"
)

// main wires the confirmation engine to its platform collaborators and keeps
// the server lifecycle small. Business logic lives in internal/confirm.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionStore, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	feed := fixfeed.New()

	// The timer calls back into the engine, so wire the closure before the
	// engine exists and let it resolve at fire time.
	var engine *service.Engine
	timers := scheduler.NewTimer(func(exitSessionID uuid.UUID, checkIndex int) {
		if err := engine.OnCheckFired(context.Background(), exitSessionID, checkIndex); err != nil {
			log.Error("scheduled check failed", "exit_session_id", exitSessionID, "error", err.Error())
		}
	})
	defer timers.Stop()

	sink, worker, closeSink, err := buildEvents(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	engine, err = service.New(
		service.Config{
			CheckOffsets: cfg.CheckOffsets,
			FixTimeout:   cfg.FixTimeout,
			StaleTimeout: cfg.StaleTimeout,
		},
		feed, timers, sessionStore, sink, log,
		service.WithMetrics(metrics.New()),
	)
	if err != nil {
		return err
	}

	// Pick any sessions a previous process left pending back up before
	// serving traffic.
	if err := engine.Resume(ctx); err != nil {
		log.Warn("resume of pending sessions hit errors", "error", err.Error())
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "egress", "egress-mobile")
	fixLimiter := ratelimit.NewSlidingWindow(cfg.FixRateLimit, time.Minute)
	handler := confirmhandler.New(engine, feed, log, jwttoken.NewJWTServiceAdapter(jwtService),
		confirmhandler.WithFixRateLimit(fixLimiter),
	)

	router := chi.NewRouter()
	handler.Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	reaper := service.NewReaper(engine, cfg.ReapInterval, log)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting egress server", "addr", cfg.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := reaper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildStore selects the session store backend from config.
func buildStore(ctx context.Context, cfg config.Config) (ports.SessionStore, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "redis":
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("EGRESS_REDIS_URL is required for the redis store")
		}
		return store.NewRedis(client.Client), func() { _ = client.Close() }, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("EGRESS_POSTGRES_DSN is required for the postgres store")
		}
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// buildEvents assembles the resolution event pipeline: the engine publishes to
// a buffered async sink, and a worker forwards to the log sink plus Kafka when
// brokers are configured.
func buildEvents(cfg config.Config, log *slog.Logger) (ports.EventSink, *events.Worker, func(), error) {
	delegates := []ports.EventSink{events.NewLogSink(log)}
	closeSink := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, nil, err
		}
		delegates = append(delegates, kafka)
		closeSink = kafka.Close
	}

	async := events.NewAsyncSink(cfg.EventBuffer, log)
	worker := events.NewWorker(async, events.NewFanout(delegates...), log)
	return async, worker, closeSink, nil
}
