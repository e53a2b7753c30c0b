package crawler

import (
	"context"
	"net/url"
	"strings"
)

// extractLinks enumerates the page's anchors and partitions same-site links
// into pattern-confirmed product URLs and candidates for content
// evaluation. Both lists are deduplicated and keep anchor enumeration
// order. An extraction failure truncates rather than aborts: whatever was
// gathered is returned.
func (t *Traversal) extractLinks(ctx context.Context, baseURL string) (productURLs, candidateURLs []string) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil
	}

	extractCtx, cancel := context.WithTimeout(ctx, t.cfg.ExtractionTimeout)
	defer cancel()

	anchors, err := t.page.Anchors(extractCtx)
	if err != nil {
		t.logger.Error("link extraction failed", "url", baseURL, "err", err)
		// The Anchors contract lets an implementation return whatever it
		// gathered before failing; fall through and use it. Both bundled
		// engines return nothing here, so this is usually an empty walk.
	}

	seen := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		href := strings.TrimSpace(a.Href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}

		resolved, err := Resolve(base, href)
		if err != nil {
			t.logger.Warn("skipping unparseable link", "base", baseURL, "href", href)
			continue
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		if !sameSite(resolved.Host, t.seedHost, t.cfg.StrippedPrefixes) {
			continue
		}

		full := Normalize(resolved.String())
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}

		if t.patterns.IsProductURL(full) {
			productURLs = append(productURLs, full)
			continue
		}
		candidateURLs = append(candidateURLs, full)
	}

	return productURLs, candidateURLs
}
