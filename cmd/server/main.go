package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "invoice-studio/internal/adapters/web"
	"invoice-studio/internal/ai"
	"invoice-studio/internal/app"
	"invoice-studio/internal/archive"
	"invoice-studio/internal/config"
	"invoice-studio/internal/core"
	"invoice-studio/internal/db"
	"invoice-studio/internal/logger"
	"invoice-studio/internal/metrics"
	"invoice-studio/internal/pdf"
	"invoice-studio/migrations"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("logger")
	}
	l := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			l.Fatal().Err(err).Msg("migrations")
		}
		l.Info().Strs("applied", applied).Msg("schema up to date")
	}

	numbering := core.NewNumberingService(pool)
	m := metrics.New()

	converter, err := pdf.New(cfg.PDFBackend, cfg.ChromePath, cfg.PDFFontPath, cfg.PDFConcurrency)
	if err != nil {
		l.Fatal().Err(err).Msg("pdf")
	}

	deps := app.Deps{
		Invoices:   core.NewInvoiceService(pool, numbering),
		Numbering:  numbering,
		Settings:   core.NewSettingsService(pool),
		Converter:  converter,
		Metrics:    m,
		PDFTimeout: cfg.PDFTimeout,
	}

	if cfg.ArchiveEnabled() {
		store, err := archive.New(cfg.ArchiveBucket, cfg.ArchiveRegion, cfg.ArchivePrefix)
		if err != nil {
			l.Fatal().Err(err).Msg("archive")
		}
		deps.Archive = store
	}

	if cfg.OpenAIAPIKey != "" {
		deps.Assistant = ai.NewAgent(cfg.OpenAIAPIKey)
	} else {
		l.Warn().Msg("OPENAI_API_KEY is not set; draft suggestions are disabled")
	}

	svc := app.NewAppService(deps)
	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Metrics:        m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.PDFTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		l.Info().
			Str("addr", srv.Addr).
			Str("pdf_backend", converter.Backend()).
			Bool("archive", cfg.ArchiveEnabled()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
	}
}
