package crawler

import "sort"

// Result is the terminal output of one domain's crawl. A domain that failed
// entirely still produces a Result with empty (never nil) URL lists.
type Result struct {
	Domain      string   `json:"domain"`
	ProductURLs []string `json:"product_urls"`
	CrawledURLs []string `json:"crawled_urls"`
	// Sources maps a product URL to how it was classified ("pattern" or
	// "content"); used for persistence, not part of the report shape.
	Sources map[string]string `json:"-"`
}

func emptyResult(domain string) *Result {
	return &Result{
		Domain:      domain,
		ProductURLs: []string{},
		CrawledURLs: []string{},
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
