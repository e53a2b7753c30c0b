// Package classify implements the two-stage product-page heuristic:
// a URL-path pattern check and a content keyword vote.
package classify

import (
	"net/url"
	"strings"
)

// DefaultPathInclusions are path substrings that mark a URL as a
// product-detail page without fetching it.
var DefaultPathInclusions = []string{
	"/product/", "/item/", "/p/", "/dp/", "/products/",
	"/detail/", "/view/", "/show/",
	"/pd/", "/product-detail/",
	"/buy/", "/shop/product",
}

// DefaultPathExclusions are path substrings that disqualify a URL outright:
// listing/account chrome plus static asset extensions. Exclusions always win
// over inclusions.
var DefaultPathExclusions = []string{
	"/category/",
	"/search/",
	"/cart/",
	"/login/",
	"/account/",
	"/wishlist/",
	"/about/",
	"/contact/",
	"/help/",
	"/faq/",
	".jpg",
	".jpeg",
	".png",
	".gif",
	".pdf",
	".css",
	".js",
	".html",
	".htm",
	".aspx",
}

// PatternClassifier decides product vs non-product from the URL path alone.
// The zero value is not usable; construct with NewPatternClassifier.
type PatternClassifier struct {
	inclusions []string
	exclusions []string
}

// NewPatternClassifier builds a classifier from the given substring lists.
// Empty slices fall back to the defaults.
func NewPatternClassifier(inclusions, exclusions []string) *PatternClassifier {
	if len(inclusions) == 0 {
		inclusions = DefaultPathInclusions
	}
	if len(exclusions) == 0 {
		exclusions = DefaultPathExclusions
	}
	return &PatternClassifier{
		inclusions: lowerAll(inclusions),
		exclusions: lowerAll(exclusions),
	}
}

// IsProductURL reports whether the URL's path matches an inclusion pattern
// and no exclusion pattern. Exclusions short-circuit. It never fails: an
// unparseable URL is simply not a product URL.
func (c *PatternClassifier) IsProductURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return c.isProductPath(u.Path)
}

func (c *PatternClassifier) isProductPath(path string) bool {
	path = strings.ToLower(path)
	for _, excl := range c.exclusions {
		if strings.Contains(path, excl) {
			return false
		}
	}
	for _, incl := range c.inclusions {
		if strings.Contains(path, incl) {
			return true
		}
	}
	return false
}

func lowerAll(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.ToLower(p)
	}
	return out
}
