package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"record-gateway/internal/archive"
	"record-gateway/internal/platform/config"
	"record-gateway/internal/platform/logger"
	"record-gateway/internal/platform/metrics"
	"record-gateway/internal/platform/ratelimit"
	"record-gateway/internal/recording"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	_ = config.Load()

	cfg, err := config.Resolve()
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run serves until SIGINT or SIGTERM. Resources opened here are closed
// before it returns.
func run(cfg config.Config, log *slog.Logger) error {
	var (
		arc    *archive.Archive
		saver  recording.Archiver
		lister recording.ArchiveLister
		err    error
	)
	if cfg.ArchiveDir != "" {
		arc, err = archive.Open(cfg.ArchiveDir)
		if err != nil {
			return fmt.Errorf("archive %s: %w", cfg.ArchiveDir, err)
		}
		defer arc.Close()
		saver, lister = arc, arc
	}

	repo := recording.NewInMemoryRepository()
	svc := recording.NewService(repo, recording.NewNopEngine(), saver, log)
	met := metrics.New()
	h := recording.NewHandler(svc, lister, log, met).WithDefaultVHost(cfg.DefaultVHost)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", met.Handler(func() { met.SetActiveRecords(svc.ActiveCount()) }))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(ratelimit.Config{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}))
		h.Routes(r)
	})

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	log.Info("server starting",
		slog.String("port", cfg.Port),
		slog.String("default_vhost", cfg.DefaultVHost),
		slog.Bool("archive", arc != nil),
		slog.Int("rate_limit_requests", cfg.RateLimit.Requests),
		slog.String("log_level", cfg.Logging.Level),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
	case err := <-serveErr:
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
