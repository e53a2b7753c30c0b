package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/ferret/internal/config"
	"github.com/FranksOps/ferret/internal/crawler"
	"github.com/FranksOps/ferret/internal/metrics"
	"github.com/FranksOps/ferret/internal/render"
	"github.com/FranksOps/ferret/internal/report"
	"github.com/FranksOps/ferret/internal/storage"
	"github.com/FranksOps/ferret/internal/storage/csvbackend"
	"github.com/FranksOps/ferret/internal/storage/jsonbackend"
	"github.com/FranksOps/ferret/internal/storage/postgres"
	"github.com/FranksOps/ferret/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [domains...]",
		Short: "Crawl domains and discover product pages",
		Long: `Crawl traverses each target domain and discovers product-detail pages.

Domains are given as bare hostnames; each one is crawled independently in
its own isolated browser session. Product pages are recognized two ways:
by URL path patterns (/product/, /item/, ...) and by on-page content
signals (add to cart, sku, in stock, ...).

The crawl writes two JSON documents into the output directory:
product_urls.json and crawled_urls.json, each keyed by domain.

Examples:
  # Crawl two sites with the default budgets
  ferret crawl shop.example.com other-store.net

  # Crawl the domains listed in a config file
  ferret crawl --config ferret.yaml

  # Shallow, fast pass over one site
  ferret crawl --depth 2 --max-pages 50 shop.example.com

  # Static sites without scripts; no browser required
  ferret crawl --renderer static shop.example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringP("output", "o", "", "Directory for the result documents")
	cmd.Flags().IntP("max-pages", "p", 0, "Maximum pages to crawl per domain")
	cmd.Flags().IntP("depth", "d", 0, "Maximum crawl recursion depth")
	cmd.Flags().DurationP("timeout", "t", 0, "Navigation timeout per page")
	cmd.Flags().String("renderer", "", "Rendering engine: chrome or static")
	cmd.Flags().Bool("json", false, "Print the run summary as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := buildEngine(cfg, logger)
	defer engine.Close()

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	if cfg.Metrics.Enabled {
		srv := metrics.Start(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	start := time.Now()
	c := crawler.New(crawler.Config{
		Budget: crawler.Budget{
			MaxDepth:          cfg.Crawl.MaxDepth,
			MaxPagesPerDomain: cfg.Crawl.MaxPagesPerDomain,
		},
		NavigationTimeout: cfg.Crawl.Timeout.Duration,
		ExtractionTimeout: cfg.Crawl.ExtractionTimeout.Duration,
		ScrollPasses:      cfg.Crawl.ScrollPasses,
		ScrollDelay:       cfg.Crawl.ScrollDelay.Duration,
		StrippedPrefixes:  cfg.Crawl.StrippedPrefixes,
		Scheme:            cfg.Crawl.Scheme,
		ViewportWidth:     cfg.Crawl.ViewportWidth,
		ViewportHeight:    cfg.Crawl.ViewportHeight,
		PatternInclusions: cfg.Classify.PathInclusions,
		PatternExclusions: cfg.Classify.PathExclusions,
		ContentPhrases:    cfg.Classify.ContentPhrases,
		ContentThreshold:  cfg.Classify.ContentThreshold,
		RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		Jitter:            cfg.Crawl.Jitter,
		UserAgents:        cfg.Crawl.UserAgents,
		Backend:           backend,
	}, engine, logger)

	results := c.Crawl(ctx, cfg.Domains)

	docs := report.BuildDocuments(cfg.Domains, results)
	if err := docs.WriteFiles(cfg.Output.Directory); err != nil {
		return err
	}

	summary := report.GenerateSummary(cfg.Domains, results, time.Since(start))
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.WriteJSON(cmd.OutOrStdout(), summary)
	}
	if cfg.Output.Summary {
		return report.WriteText(cmd.OutOrStdout(), summary)
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return verbose
}

// loadConfig merges the config file, positional domains, and flag
// overrides. Flags win over the file; positional domains replace the
// file's domain list.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}

	if len(args) > 0 {
		cfg.Domains = args
	}
	if len(cfg.Domains) == 0 {
		return nil, errors.New("no domains given; pass them as arguments or via --config")
	}

	if cmd.Flags().Changed("max-pages") {
		cfg.Crawl.MaxPagesPerDomain, _ = cmd.Flags().GetInt("max-pages")
	}
	if cmd.Flags().Changed("depth") {
		cfg.Crawl.MaxDepth, _ = cmd.Flags().GetInt("depth")
	}
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		cfg.Crawl.Timeout = config.DurationFrom(d)
	}
	if cmd.Flags().Changed("renderer") {
		cfg.Renderer.Engine, _ = cmd.Flags().GetString("renderer")
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Directory, _ = cmd.Flags().GetString("output")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildEngine(cfg *config.Config, logger *slog.Logger) render.Engine {
	if cfg.Renderer.Engine == "static" {
		return render.NewStaticEngine(render.StaticOptions{}, logger)
	}
	return render.NewChromeEngine(render.ChromeOptions{
		Headless: cfg.Renderer.Headless,
	}, logger)
}

func buildBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "json":
		return jsonbackend.New(cfg.Storage.Path)
	case "csv":
		return csvbackend.New(cfg.Storage.Path)
	case "sqlite":
		return sqlite.New(cfg.Storage.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// setupLogger builds the process logger from config; --verbose forces
// debug level.
func setupLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
