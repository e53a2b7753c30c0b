package classify

import "strings"

// DefaultContentPhrases are commerce-intent phrases looked for in rendered
// page text. Each phrase votes at most once no matter how often it appears.
var DefaultContentPhrases = []string{
	"add to cart",
	"add to bag",
	"buy",
	"add to basket",
	"delivery time",
	"sku",
	"item number",
	"model number",
	"in stock",
	"out of stock",
	"quantity",
	"size chart",
	"size guide",
	"sizes",
	"of all taxes",
}

// DefaultContentThreshold is the number of distinct phrases required before
// a page counts as a product page. A single hit (e.g. "buy" in navigation
// chrome) is a common false positive; requiring three distinct signals
// keeps precision acceptable.
const DefaultContentThreshold = 3

// ContentClassifier scores rendered page text by counting distinct
// vocabulary phrases.
type ContentClassifier struct {
	phrases   []string
	threshold int
}

// NewContentClassifier builds a classifier over the given phrase vocabulary.
// An empty vocabulary falls back to DefaultContentPhrases; a threshold of
// zero or less falls back to DefaultContentThreshold.
func NewContentClassifier(phrases []string, threshold int) *ContentClassifier {
	if len(phrases) == 0 {
		phrases = DefaultContentPhrases
	}
	if threshold <= 0 {
		threshold = DefaultContentThreshold
	}
	return &ContentClassifier{
		phrases:   lowerAll(phrases),
		threshold: threshold,
	}
}

// IsProductText reports whether the text contains at least threshold
// distinct vocabulary phrases. The text is lowercased once up front rather
// than per phrase.
func (c *ContentClassifier) IsProductText(text string) bool {
	return c.Score(text) >= c.threshold
}

// Score returns the number of distinct vocabulary phrases present.
func (c *ContentClassifier) Score(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	count := 0
	for _, phrase := range c.phrases {
		if strings.Contains(lower, phrase) {
			count++
		}
	}
	return count
}

// Threshold returns the configured vote threshold.
func (c *ContentClassifier) Threshold() int {
	return c.threshold
}
