package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/suggestit"
	"github.com/poiesic/suggestit/analytics"
	"github.com/poiesic/suggestit/api"
	"github.com/poiesic/suggestit/cache"
	"github.com/poiesic/suggestit/catalog"
	"github.com/poiesic/suggestit/config"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ingest"
	"github.com/poiesic/suggestit/metrics"
	"github.com/poiesic/suggestit/ranking"
	"github.com/poiesic/suggestit/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func setupLogger(c *cli.Context) error {
	logger, err := config.NewLogger(os.Stderr, c.String("log-level"), c.String("log-format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the configuration named by the command flags. The log
// section applies unless the global flags were set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	logger, err := config.NewLogger(os.Stderr, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

// openService assembles the service described by cfg.
func openService(ctx context.Context, cfg *config.Config, monitor ranking.Monitor) (*suggestit.Service, error) {
	logger := slog.Default()

	rankingOpts := []ranking.Option{
		ranking.WithWeights(cfg.Ranking.Weights),
		ranking.WithBoosts(cfg.Ranking.Boosts),
		ranking.WithCacheTTL(cfg.Ranking.CacheTTL),
		ranking.WithColdStartTTL(cfg.Ranking.ColdStartTTL),
		ranking.WithTopN(cfg.Ranking.TopN),
		ranking.WithMaxSuggestions(cfg.Ranking.MaxSuggestions),
	}
	if len(cfg.Ranking.Rules) > 0 {
		engine, err := rules.Compile(cfg.Ranking.Rules, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to compile ranking rules: %w", err)
		}
		rankingOpts = append(rankingOpts, ranking.WithRules(engine))
	}

	resultCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	opts := []suggestit.Option{
		suggestit.WithAIConfig(cfg.AIConfig()),
		suggestit.WithCache(resultCache),
		suggestit.WithMonitor(monitor),
		suggestit.WithRankingOptions(rankingOpts...),
		suggestit.WithHistoryCap(cfg.Ranking.HistoryCap),
		suggestit.WithPoolSize(cfg.Ranking.WorkerPoolSize),
		suggestit.WithWriteTimeout(cfg.Ranking.WriteTimeout),
		suggestit.WithLogger(logger),
	}
	if cfg.Storage.InMemory {
		opts = append(opts, suggestit.WithInMemory())
	}

	svc, err := suggestit.Open(ctx, cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		c, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cache.WithPrefix(cfg.RedisPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return c, nil
	default:
		c, err := cache.NewMemory(cfg.Capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		return c, nil
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	svc, err := openService(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer svc.Close()

	server, err := api.NewServer(svc,
		api.WithKeyGate(api.NewKeyGate(cfg.Server.APIKeys, cfg.Server.RateLimitPerMinute)),
		api.WithMetrics(collector, prometheus.DefaultGatherer),
		api.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr, "model", svc.EmbeddingModel(),
			"api_keys", len(cfg.Server.APIKeys), "cache", cfg.Cache.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func importCommand(c *cli.Context) error {
	ctx := context.Background()

	batch, err := ingest.LoadBatchFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if addedBy := c.String("added-by"); addedBy != "" && batch.AddedBy == "" {
		batch.AddedBy = addedBy
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(os.Stderr, "Batch: %s (%d items)\n", c.String("file"), len(batch.Items))
	fmt.Fprintln(os.Stderr)

	result, err := svc.Import(ctx, batch,
		ingest.WithBatchSize(c.Int("batch-size")),
		ingest.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingest.WithProgress(os.Stderr, c.Int("report-interval")),
	)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Imported %d records, %d failed\n", result.Imported, result.Failed)
	return nil
}

func rankCommand(c *cli.Context) error {
	ctx := context.Background()

	req := &core.RankRequest{
		Query:    c.String("query"),
		UserID:   c.String("user"),
		Location: c.String("location"),
		Debug:    c.Bool("debug"),
	}
	if path := c.String("catalog"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
		snap, err := catalog.ParseSnapshot(data)
		if err != nil {
			return fmt.Errorf("failed to parse catalog: %w", err)
		}
		req.Catalog = snap
	}
	if c.IsSet("lat") && c.IsSet("lon") {
		lat, lon := c.Float64("lat"), c.Float64("lon")
		req.Latitude, req.Longitude = &lat, &lon
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.Rank(ctx, req)
	if err != nil {
		return fmt.Errorf("rank failed (%s): %w", core.ReasonFor(err), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func analyticsCommand(c *cli.Context) error {
	ctx := context.Background()

	var rng analytics.Range
	if t := c.Timestamp("start"); t != nil {
		rng.Start = t.UTC()
	}
	if t := c.Timestamp("end"); t != nil {
		rng.End = t.UTC()
	}
	format := c.String("format")
	if format != "json" && format != "csv" {
		return fmt.Errorf("invalid format %q: must be json or csv", format)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Analytics(ctx, rng)
	if err != nil {
		return fmt.Errorf("analytics failed: %w", err)
	}
	if format == "csv" {
		return analytics.WriteCSV(os.Stdout, report)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
