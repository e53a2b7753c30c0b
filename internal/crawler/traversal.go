package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/ferret/internal/classify"
	"github.com/FranksOps/ferret/internal/metrics"
	"github.com/FranksOps/ferret/internal/render"
	"github.com/FranksOps/ferret/pkg/ratelimit"
)

// Budget bounds one domain's traversal: recursion depth from the seed
// (seed = depth 0) and the total number of pages visited.
type Budget struct {
	MaxDepth          int
	MaxPagesPerDomain int
}

// TraversalConfig provides parameters for one domain's DFS traversal.
type TraversalConfig struct {
	Budget            Budget
	NavigationTimeout time.Duration
	ExtractionTimeout time.Duration
	// ScrollPasses is how many scroll-to-bottom cycles run per page to
	// trigger lazy-loaded content; ScrollDelay is the wait after each.
	ScrollPasses int
	ScrollDelay  time.Duration
	// StrippedPrefixes are subdomain prefixes ignored in same-site checks.
	StrippedPrefixes []string
	// Limiter optionally paces navigations (nil = unlimited).
	Limiter *ratelimit.Limiter
}

// Traversal crawls one domain depth-first through a single page handle.
// It owns the visited set outright; because traversal within a domain is
// strictly sequential, no locking is needed.
type Traversal struct {
	cfg      TraversalConfig
	domain   string
	seedHost string
	patterns *classify.PatternClassifier
	content  *classify.ContentClassifier
	page     render.Page
	logger   *slog.Logger

	visited  map[string]struct{}
	products map[string]string // canonical URL -> "pattern" | "content"
}

// NewTraversal builds a traversal for one domain. Zero-valued budget and
// timeout fields get the crawl defaults (depth 10, 500 pages, 30s).
func NewTraversal(domain string, cfg TraversalConfig, patterns *classify.PatternClassifier, content *classify.ContentClassifier, logger *slog.Logger) *Traversal {
	if cfg.Budget.MaxDepth <= 0 {
		cfg.Budget.MaxDepth = 10
	}
	if cfg.Budget.MaxPagesPerDomain <= 0 {
		cfg.Budget.MaxPagesPerDomain = 500
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 10 * time.Second
	}
	if cfg.StrippedPrefixes == nil {
		cfg.StrippedPrefixes = DefaultStrippedPrefixes
	}
	if patterns == nil {
		patterns = classify.NewPatternClassifier(nil, nil)
	}
	if content == nil {
		content = classify.NewContentClassifier(nil, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Traversal{
		cfg:      cfg,
		domain:   domain,
		patterns: patterns,
		content:  content,
		logger:   logger,
		visited:  make(map[string]struct{}),
		products: make(map[string]string),
	}
}

// Run seeds the traversal at seedURL and crawls to completion. The same-site
// check uses the seed's host as the target, so httptest hosts work the same
// way real domains do.
func (t *Traversal) Run(ctx context.Context, page render.Page, seedURL string) {
	t.page = page
	if u, err := url.Parse(seedURL); err == nil {
		t.seedHost = u.Host
	} else {
		t.seedHost = t.domain
	}
	t.visit(ctx, seedURL, 0)
}

// Result snapshots the traversal outcome. URL lists are sorted so output
// is stable within a run.
func (t *Traversal) Result() *Result {
	sources := make(map[string]string, len(t.products))
	for u, src := range t.products {
		sources[u] = src
	}
	return &Result{
		Domain:      t.domain,
		ProductURLs: sortedKeys(t.products),
		CrawledURLs: sortedSet(t.visited),
		Sources:     sources,
	}
}

// ProductSource reports how a product URL was classified ("pattern" or
// "content"), or "" if it is not a product URL.
func (t *Traversal) ProductSource(canonicalURL string) string {
	return t.products[canonicalURL]
}

// visit is the recursive DFS step. Every failure degrades to "this URL
// contributes nothing" rather than propagating; a single broken page must
// never abort the domain crawl.
func (t *Traversal) visit(ctx context.Context, rawURL string, depth int) {
	if ctx.Err() != nil {
		return
	}

	u := Normalize(rawURL)

	if depth > t.cfg.Budget.MaxDepth || len(t.visited) >= t.cfg.Budget.MaxPagesPerDomain {
		return
	}
	if _, seen := t.visited[u]; seen {
		return
	}
	t.visited[u] = struct{}{}

	t.logger.Info("crawling",
		"domain", t.domain,
		"page", readablePath(u),
		"depth", depth, "max_depth", t.cfg.Budget.MaxDepth,
		"pages", len(t.visited), "max_pages", t.cfg.Budget.MaxPagesPerDomain,
	)
	metrics.RecordVisit(t.domain)

	if t.cfg.Limiter != nil {
		if err := t.cfg.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	navErr := t.page.Navigate(ctx, u, t.cfg.NavigationTimeout)
	switch {
	case navErr == nil:
	case errors.Is(navErr, render.ErrNavigationTimeout):
		// Partial page loads are still worth classifying and mining for
		// links.
		t.logger.Warn("navigation timeout, continuing with partial page", "url", u)
		metrics.RecordNavigationError(t.domain, "timeout")
	default:
		t.logger.Error("navigation failed", "url", u, "err", navErr)
		metrics.RecordNavigationError(t.domain, "error")
		return
	}

	// Content check runs only for pages the URL pattern did not already
	// settle.
	if !t.patterns.IsProductURL(u) {
		text, err := t.page.VisibleText(ctx)
		if err != nil {
			t.logger.Warn("could not read page text", "url", u, "err", err)
		} else if t.content.IsProductText(text) {
			t.addProduct(u, "content")
		}
	}

	t.triggerLazyLoad(ctx, u)

	patternProducts, candidates := t.extractLinks(ctx, u)
	for _, p := range patternProducts {
		t.addProduct(p, "pattern")
	}

	if depth >= t.cfg.Budget.MaxDepth {
		return
	}
	for _, candidate := range candidates {
		if len(t.visited) >= t.cfg.Budget.MaxPagesPerDomain {
			t.logger.Info("page budget reached", "domain", t.domain, "max_pages", t.cfg.Budget.MaxPagesPerDomain)
			break
		}
		if _, seen := t.visited[candidate]; seen {
			continue
		}
		t.visit(ctx, candidate, depth+1)
	}
}

func (t *Traversal) addProduct(canonicalURL, source string) {
	if _, ok := t.products[canonicalURL]; ok {
		return
	}
	t.products[canonicalURL] = source
	metrics.RecordProduct(t.domain, source)
}

// triggerLazyLoad scrolls to the bottom a bounded number of times, waiting
// after each pass so lazily loaded products render before link extraction.
func (t *Traversal) triggerLazyLoad(ctx context.Context, pageURL string) {
	for i := 0; i < t.cfg.ScrollPasses; i++ {
		if err := t.page.RunScript(ctx, "window.scrollTo(0, document.body.scrollHeight)"); err != nil {
			t.logger.Warn("scroll failed", "url", pageURL, "err", err)
			return
		}
		if !sleepCtx(ctx, t.cfg.ScrollDelay) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
