package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/zeitgeist/internal/acquire"
	"github.com/mathieu-neron/zeitgeist/internal/classifier"
	"github.com/mathieu-neron/zeitgeist/internal/config"
	"github.com/mathieu-neron/zeitgeist/internal/handler"
	"github.com/mathieu-neron/zeitgeist/internal/middleware"
	"github.com/mathieu-neron/zeitgeist/internal/router"
	"github.com/mathieu-neron/zeitgeist/internal/service"
)

var version = "dev"

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "zeitgeist")

	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.WorkDir).Msg("failed to create work dir")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler.InitMetrics(reg)

	cl := classifier.New(classifier.Config{
		BaseURL: cfg.ClassifierURL,
		Timeout: cfg.ClassifierTimeout,
		RPS:     cfg.ClassifierRPS,
	})
	dl := acquire.NewYtDlp(cfg.YtDlpPath, cfg.DownloadResolution)
	cache := service.NewCacheService(cfg.RedisURL, cfg.ResultCacheTTL)
	defer cache.Close()

	svc := service.NewClassificationService(cl, dl, cache, cfg.WorkDir, cfg.ClassifierMode)
	sweeper := service.NewSweepWorker(cfg.WorkDir, cfg.VideoRetention, cfg.SweepInterval)

	app := fiber.New(fiber.Config{
		AppName:      "ZeitGeist API",
		ServerHeader: "ZeitGeist",
		BodyLimit:    int(cfg.MaxUploadBytes()) + 1<<20,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: cfg.ClassifierTimeout + time.Minute,
	})

	stopLimiters := router.Setup(app, &router.Handlers{
		Classify: handler.NewClassifyHandler(svc, cfg.MaxUploadBytes()),
		Video:    handler.NewVideoHandler(svc),
		Health:   handler.NewHealthHandler(cl, cache.Client(), version),
	}, cfg.CORSOrigins, reg)
	defer stopLimiters()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Str("classifier", cl.BaseURL()).
			Str("mode", cfg.ClassifierMode).
			Msg("ZeitGeist backend starting")
		return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
