package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"gaitlab/internal/cfg"
	"gaitlab/internal/dataset"
	"gaitlab/internal/eval"
	"gaitlab/internal/metrics"
	"gaitlab/internal/report"
	"gaitlab/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		dataDir      = flag.String("data", "", "Path to data directory (overrides config)")
		outputDir    = flag.String("output", "", "Output directory for results (overrides config)")
		strategy     = flag.String("strategy", "", "Feature strategy: pca, stats, both (overrides config)")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		serveMetrics = flag.Bool("serve-metrics", false, "Keep a Prometheus /metrics endpoint running")
		history      = flag.Int("history", 0, "Print the N most recent recorded runs and exit")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load .env before reading configuration
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env file loaded")
	}

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Override config with command line arguments
	if *dataDir != "" {
		config.DataDir = *dataDir
	}
	if *outputDir != "" {
		config.OutputDir = *outputDir
	}
	if *strategy != "" {
		config.Strategy = *strategy
	}
	if *serveMetrics {
		config.ServeMetrics = true
	}

	fmt.Println("=== Gait Classification Configuration ===")
	fmt.Printf("Data Directory: %s\n", config.DataDir)
	fmt.Printf("Output Directory: %s\n", config.OutputDir)
	fmt.Printf("Strategy: %s\n", config.Strategy)
	fmt.Printf("Seed: %d\n", config.Seed)
	fmt.Println("=========================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	if config.ServeMetrics {
		startMetricsServer(ctx, config.MetricsPort)
	}

	store, err := storage.New(config.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without cache")
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	if *history > 0 {
		if store == nil {
			log.Fatal().Msg("run history unavailable without storage")
		}
		runs, err := store.RecentRuns(*history)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read run history")
		}
		report.WriteHistory(os.Stdout, runs)
		return
	}

	if err := run(ctx, config, store, mw); err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}
}

func run(ctx context.Context, config cfg.Settings, store *storage.Store, mw *metrics.Wrapper) error {
	files := dataset.Files{
		Vertical: config.VerticalFile,
		AP:       config.APFile,
		ML:       config.MLFile,
		Metadata: config.MetadataFile,
	}

	fetcher := dataset.NewFetcher(config.BaseURL, config.DataDir, config.HTTPTimeout, store, mw)
	if err := fetcher.Ensure(ctx, files.Vertical, files.AP, files.ML, files.Metadata); err != nil {
		return fmt.Errorf("dataset fetch: %w", err)
	}

	loader := dataset.NewLoader(config.DataDir, files, mw)
	table, err := loader.Load()
	if err != nil {
		return fmt.Errorf("dataset load: %w", err)
	}

	train, test, excluded := table.Split()
	log.Info().
		Int("train", len(train)).
		Int("test", len(test)).
		Int("excluded", excluded).
		Int("malformedRows", table.Skipped.MalformedRows).
		Int("incompleteTrials", table.Skipped.IncompleteTrials).
		Int("missingMetadata", table.Skipped.MissingMetadata).
		Msg("dataset partitioned")

	engine := eval.NewEngine(&config, mw)
	if err := engine.Run(train, test); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}

	reporter := report.NewReporter(engine.GetResults(), config.OutputDir, store)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}
	reporter.PrintSummary()

	log.Info().Str("output", config.OutputDir).Msg("Run completed successfully")
	return nil
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}
