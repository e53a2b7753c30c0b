package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/FranksOps/ferret/internal/render"
)

// fakeDoc is one page of an in-memory site served to the traversal.
type fakeDoc struct {
	text   string
	hrefs  []string
	navErr error
}

// fakePage implements render.Page over a map of canonical URLs, recording
// the order of navigations.
type fakePage struct {
	docs    map[string]fakeDoc
	current string
	visits  []string
	scripts int
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.visits = append(p.visits, url)
	p.current = url
	doc, ok := p.docs[url]
	if !ok {
		return fmt.Errorf("%w: %s", render.ErrNavigation, url)
	}
	return doc.navErr
}

func (p *fakePage) VisibleText(context.Context) (string, error) {
	return p.docs[p.current].text, nil
}

func (p *fakePage) Anchors(context.Context) ([]render.Anchor, error) {
	doc := p.docs[p.current]
	anchors := make([]render.Anchor, 0, len(doc.hrefs))
	for _, href := range doc.hrefs {
		anchors = append(anchors, render.Anchor{Href: href})
	}
	return anchors, nil
}

func (p *fakePage) RunScript(context.Context, string) error {
	p.scripts++
	return nil
}

func (p *fakePage) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runTraversal(t *testing.T, page render.Page, cfg TraversalConfig, seed string) *Result {
	t.Helper()
	tr := NewTraversal("example.com", cfg, nil, nil, discardLogger())
	tr.Run(context.Background(), page, seed)
	return tr.Result()
}

func TestTraversalClassifiesProductLinksByPattern(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {hrefs: []string{
			"/product/123?ref=abc",
			"/category/shoes",
			"/about",
			"https://other.com/product/999",
			"mailto:sales@example.com",
			"#top",
		}},
		"https://example.com/category/shoes": {},
		"https://example.com/about":          {},
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	wantProducts := []string{"https://example.com/product/123"}
	if !slices.Equal(res.ProductURLs, wantProducts) {
		t.Errorf("ProductURLs = %v, want %v", res.ProductURLs, wantProducts)
	}
	if slices.Contains(res.CrawledURLs, "https://other.com/product/999") {
		t.Error("off-site link must not be crawled")
	}
	for _, u := range []string{"https://example.com/category/shoes", "https://example.com/about"} {
		if !slices.Contains(res.CrawledURLs, u) {
			t.Errorf("CrawledURLs missing %s", u)
		}
	}
	if res.Sources["https://example.com/product/123"] != "pattern" {
		t.Errorf("Sources = %v, want pattern for /product/123", res.Sources)
	}
}

func TestTraversalClassifiesSeedByContent(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {
			text: "Widget Deluxe. SKU 42, in stock now. Add to cart today.",
		},
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	if !slices.Contains(res.ProductURLs, "https://example.com/") {
		t.Fatalf("seed with product signals should be a product, got %v", res.ProductURLs)
	}
	if res.Sources["https://example.com/"] != "content" {
		t.Errorf("source = %q, want content", res.Sources["https://example.com/"])
	}
}

func TestTraversalSkipsContentCheckOnPatternURLs(t *testing.T) {
	// Two product signals only: below threshold, so a content hit on
	// /product/1 can only come from the URL pattern.
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {hrefs: []string{"/product/1"}},
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	if res.Sources["https://example.com/product/1"] != "pattern" {
		t.Errorf("source = %q, want pattern", res.Sources["https://example.com/product/1"])
	}
}

func TestTraversalRespectsPageBudget(t *testing.T) {
	docs := map[string]fakeDoc{}
	for i := 0; i < 10; i++ {
		docs[fmt.Sprintf("https://example.com/page/%d", i)] = fakeDoc{
			hrefs: []string{fmt.Sprintf("/page/%d", i+1)},
		}
	}
	page := &fakePage{docs: docs}

	res := runTraversal(t, page,
		TraversalConfig{Budget: Budget{MaxPagesPerDomain: 3, MaxDepth: 50}},
		"https://example.com/page/0")

	if len(res.CrawledURLs) != 3 {
		t.Errorf("crawled %d pages, want exactly 3: %v", len(res.CrawledURLs), res.CrawledURLs)
	}
}

func TestTraversalRespectsDepthLimit(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/":    {hrefs: []string{"/a"}},
		"https://example.com/a":   {hrefs: []string{"/a/b", "/product/77"}},
		"https://example.com/a/b": {hrefs: []string{"/a/b/c"}},
	}}

	res := runTraversal(t, page,
		TraversalConfig{Budget: Budget{MaxDepth: 1, MaxPagesPerDomain: 100}},
		"https://example.com/")

	if slices.Contains(res.CrawledURLs, "https://example.com/a/b") {
		t.Error("page beyond max depth must not be visited")
	}
	if !slices.Contains(res.CrawledURLs, "https://example.com/a") {
		t.Error("page at max depth should be visited")
	}
	// Pattern products are harvested from links even on the deepest pages.
	if !slices.Contains(res.ProductURLs, "https://example.com/product/77") {
		t.Errorf("product link on depth-limit page should be recorded, got %v", res.ProductURLs)
	}
}

func TestTraversalDeduplicatesQueryVariants(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {hrefs: []string{
			"/item?color=red",
			"/item?color=blue",
			"/item#reviews",
		}},
		"https://example.com/item": {},
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	count := 0
	for _, v := range page.visits {
		if v == "https://example.com/item" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("/item navigated %d times, want 1 (visits: %v)", count, page.visits)
	}
	if len(res.CrawledURLs) != 2 {
		t.Errorf("CrawledURLs = %v, want seed plus /item", res.CrawledURLs)
	}
}

func TestTraversalVisitsDepthFirst(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/":     {hrefs: []string{"/a", "/b"}},
		"https://example.com/a":    {hrefs: []string{"/a/a1"}},
		"https://example.com/a/a1": {},
		"https://example.com/b":    {},
	}}

	runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	want := []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/a/a1",
		"https://example.com/b",
	}
	if !slices.Equal(page.visits, want) {
		t.Errorf("visit order = %v, want %v", page.visits, want)
	}
}

func TestTraversalContinuesAfterNavigationTimeout(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {
			navErr: render.ErrNavigationTimeout,
			text:   "add to cart, sku 9, in stock",
			hrefs:  []string{"/product/5", "/more"},
		},
		"https://example.com/more": {},
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	// The partially loaded page is still classified and mined for links.
	if !slices.Contains(res.ProductURLs, "https://example.com/") {
		t.Errorf("partial page should still be content-classified, got %v", res.ProductURLs)
	}
	if !slices.Contains(res.ProductURLs, "https://example.com/product/5") {
		t.Errorf("links from a timed-out page should still count, got %v", res.ProductURLs)
	}
	if !slices.Contains(res.CrawledURLs, "https://example.com/more") {
		t.Errorf("candidates from a timed-out page should still be visited, got %v", res.CrawledURLs)
	}
}

func TestTraversalPrunesSubtreeOnNavigationError(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/":        {hrefs: []string{"/broken", "/ok"}},
		"https://example.com/ok":      {hrefs: []string{"/product/3"}},
		"https://example.com/missing": {}, // never linked
	}}

	res := runTraversal(t, page, TraversalConfig{}, "https://example.com/")

	// /broken has no doc, so Navigate fails hard; its subtree contributes
	// nothing, but the sibling /ok is still crawled.
	if !slices.Contains(res.CrawledURLs, "https://example.com/ok") {
		t.Errorf("sibling of a failed page should be crawled, got %v", res.CrawledURLs)
	}
	if !slices.Contains(res.ProductURLs, "https://example.com/product/3") {
		t.Errorf("ProductURLs = %v, want /product/3", res.ProductURLs)
	}
}

// hangingAnchorPage blocks anchor enumeration until the caller's context
// expires, then reports whatever it managed to gather alongside the error.
type hangingAnchorPage struct {
	*fakePage
	partial []render.Anchor
}

func (p *hangingAnchorPage) Anchors(ctx context.Context) ([]render.Anchor, error) {
	<-ctx.Done()
	return p.partial, fmt.Errorf("%w: anchors: %v", render.ErrExtraction, ctx.Err())
}

func TestTraversalTruncatesLinksOnExtractionTimeout(t *testing.T) {
	page := &hangingAnchorPage{
		fakePage: &fakePage{docs: map[string]fakeDoc{
			"https://example.com/":     {},
			"https://example.com/more": {},
		}},
		partial: []render.Anchor{
			{Href: "/product/8"},
			{Href: "/more"},
		},
	}

	start := time.Now()
	res := runTraversal(t, page,
		TraversalConfig{ExtractionTimeout: 20 * time.Millisecond},
		"https://example.com/")

	// Two visits, each bounded by the extraction deadline; the crawl must
	// not hang on the blocked enumeration.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("traversal took %v, extraction deadline not enforced", elapsed)
	}
	if !slices.Contains(res.ProductURLs, "https://example.com/product/8") {
		t.Errorf("partial anchor set should still yield products, got %v", res.ProductURLs)
	}
	if !slices.Contains(res.CrawledURLs, "https://example.com/more") {
		t.Errorf("partial anchor set should still be traversed, got %v", res.CrawledURLs)
	}
}

func TestTraversalScrollsForLazyContent(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {},
	}}

	runTraversal(t, page, TraversalConfig{ScrollPasses: 3}, "https://example.com/")

	if page.scripts != 3 {
		t.Errorf("scroll scripts = %d, want 3", page.scripts)
	}
}

func TestTraversalStopsOnCancelledContext(t *testing.T) {
	page := &fakePage{docs: map[string]fakeDoc{
		"https://example.com/": {hrefs: []string{"/a"}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTraversal("example.com", TraversalConfig{}, nil, nil, discardLogger())
	tr.Run(ctx, page, "https://example.com/")

	if len(page.visits) != 0 {
		t.Errorf("cancelled context should prevent navigation, visits = %v", page.visits)
	}
}
