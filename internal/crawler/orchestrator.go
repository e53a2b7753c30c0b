package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/ferret/internal/classify"
	"github.com/FranksOps/ferret/internal/metrics"
	"github.com/FranksOps/ferret/internal/render"
	"github.com/FranksOps/ferret/internal/storage"
	"github.com/FranksOps/ferret/pkg/ratelimit"
	"github.com/FranksOps/ferret/pkg/useragent"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config provides parameters shared by every domain crawl in a run.
type Config struct {
	Budget            Budget
	NavigationTimeout time.Duration
	ExtractionTimeout time.Duration
	ScrollPasses      int
	ScrollDelay       time.Duration
	StrippedPrefixes  []string

	// Scheme builds seed URLs from domains ("https" unless overridden;
	// tests use "http" against httptest hosts).
	Scheme string

	ViewportWidth  int
	ViewportHeight int

	// Classifier vocabularies; empty slices use the built-in defaults.
	PatternInclusions []string
	PatternExclusions []string
	ContentPhrases    []string
	ContentThreshold  int

	// RequestsPerSecond paces navigations within each domain (0 = unlimited).
	RequestsPerSecond float64
	Jitter            float64

	// UserAgents overrides the identity pool sessions draw from.
	UserAgents []string

	// Backend optionally persists per-URL discovery records.
	Backend storage.Backend
}

// Crawler runs one independent traversal per target domain, all domains
// concurrently. There is no cross-domain shared state: each domain gets its
// own isolated session and its own visited set.
type Crawler struct {
	cfg      Config
	engine   render.Engine
	uaPool   *useragent.Pool
	patterns *classify.PatternClassifier
	content  *classify.ContentClassifier
	logger   *slog.Logger
}

// New creates a crawler over the given rendering engine.
func New(cfg Config, engine render.Engine, logger *slog.Logger) *Crawler {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 1080
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		cfg:      cfg,
		engine:   engine,
		uaPool:   useragent.NewPool(cfg.UserAgents),
		patterns: classify.NewPatternClassifier(cfg.PatternInclusions, cfg.PatternExclusions),
		content:  classify.NewContentClassifier(cfg.ContentPhrases, cfg.ContentThreshold),
		logger:   logger,
	}
}

// Crawl traverses every domain and returns a result per domain, keyed by
// the domain string as given. Every requested domain is present in the
// result, with empty sets if its crawl failed outright. Results are
// collected in input order regardless of which domain finishes first.
func (c *Crawler) Crawl(ctx context.Context, domains []string) map[string]*Result {
	runID := uuid.New().String()
	c.logger.Info("starting crawl", "run_id", runID, "domains", len(domains))

	ordered := make([]*Result, len(domains))

	// Domain failures never cancel sibling crawls, so the group carries no
	// shared cancellation; it only bounds the fan-out.
	var g errgroup.Group
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			ordered[i] = c.crawlDomain(ctx, domain)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]*Result, len(domains))
	for i, domain := range domains {
		res := ordered[i]
		if res == nil {
			res = emptyResult(domain)
		}
		results[domain] = res
		c.persist(ctx, runID, res)
	}

	c.logger.Info("crawl complete", "run_id", runID)
	return results
}

func (c *Crawler) crawlDomain(ctx context.Context, domain string) *Result {
	start := time.Now()
	c.logger.Info("starting domain crawl", "domain", domain)

	sess, err := c.engine.NewSession(ctx, render.SessionOptions{
		UserAgent:      c.uaPool.GetSequential(),
		ViewportWidth:  c.cfg.ViewportWidth,
		ViewportHeight: c.cfg.ViewportHeight,
	})
	if err != nil {
		c.logger.Error("could not open session", "domain", domain, "err", err)
		return emptyResult(domain)
	}
	defer sess.Close()

	page, err := sess.NewPage(ctx)
	if err != nil {
		c.logger.Error("could not open page", "domain", domain, "err", err)
		return emptyResult(domain)
	}
	defer page.Close()

	limiter := ratelimit.NewLimiter(c.cfg.RequestsPerSecond, c.cfg.Jitter)
	defer limiter.Stop()

	tr := NewTraversal(domain, TraversalConfig{
		Budget:            c.cfg.Budget,
		NavigationTimeout: c.cfg.NavigationTimeout,
		ExtractionTimeout: c.cfg.ExtractionTimeout,
		ScrollPasses:      c.cfg.ScrollPasses,
		ScrollDelay:       c.cfg.ScrollDelay,
		StrippedPrefixes:  c.cfg.StrippedPrefixes,
		Limiter:           limiter,
	}, c.patterns, c.content, c.logger)

	tr.Run(ctx, page, c.seedURL(domain))
	result := tr.Result()

	elapsed := time.Since(start)
	metrics.ObserveCrawl(domain, elapsed)
	c.logger.Info("domain crawl completed",
		"domain", domain,
		"pages_crawled", len(result.CrawledURLs),
		"products_found", len(result.ProductURLs),
		"elapsed", elapsed,
	)
	return result
}

func (c *Crawler) seedURL(domain string) string {
	return c.cfg.Scheme + "://" + domain + "/"
}

// persist writes discovery records for one domain result; storage errors
// are logged, never fatal to the crawl.
func (c *Crawler) persist(ctx context.Context, runID string, res *Result) {
	if c.cfg.Backend == nil {
		return
	}
	now := time.Now().UTC()
	for _, u := range res.CrawledURLs {
		rec := &storage.DiscoveryRecord{
			ID:        uuid.New().String(),
			RunID:     runID,
			Domain:    res.Domain,
			URL:       u,
			Kind:      storage.KindCrawled,
			Source:    "visit",
			CreatedAt: now,
		}
		if err := c.cfg.Backend.Save(ctx, rec); err != nil {
			c.logger.Error("failed to persist crawled record", "url", u, "err", err)
		}
	}
	for _, u := range res.ProductURLs {
		source := res.Sources[u]
		if source == "" {
			source = "pattern"
		}
		rec := &storage.DiscoveryRecord{
			ID:        uuid.New().String(),
			RunID:     runID,
			Domain:    res.Domain,
			URL:       u,
			Kind:      storage.KindProduct,
			Source:    source,
			CreatedAt: now,
		}
		if err := c.cfg.Backend.Save(ctx, rec); err != nil {
			c.logger.Error("failed to persist product record", "url", u, "err", err)
		}
	}
}
