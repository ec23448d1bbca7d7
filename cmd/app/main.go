package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invoice-studio/internal/adapters/cli"
	"invoice-studio/internal/app"
	"invoice-studio/internal/config"
	"invoice-studio/internal/db"
	"invoice-studio/internal/logger"
	"invoice-studio/internal/pdf"
	"invoice-studio/migrations"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// The CLI writes results to stdout; logs go to stderr unless redirected.
	logCfg := cfg.GetLoggerConfig()
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	if err := logger.Setup(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	converter, err := pdf.New(cfg.PDFBackend, cfg.ChromePath, cfg.PDFFontPath, cfg.PDFConcurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf: %v\n", err)
		os.Exit(1)
	}

	deps := cli.Deps{
		Service: app.NewAppService(app.Deps{
			Converter:  converter,
			PDFTimeout: cfg.PDFTimeout,
		}),
		JWTSecret: cfg.JWTSecret,
	}
	if cfg.DatabaseURL != "" {
		deps.Migrate = func(ctx context.Context) ([]string, error) {
			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			defer pool.Close()
			return migrations.Apply(ctx, pool)
		}
	}

	cli.Execute(ctx, deps)
}
