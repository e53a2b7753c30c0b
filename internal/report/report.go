// Package report turns crawl results into the persisted output shape: two
// JSON documents (domain to product URLs, domain to crawled URLs) plus a
// human-readable summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/FranksOps/ferret/internal/crawler"
)

// Default output file names.
const (
	ProductURLsFile = "product_urls.json"
	CrawledURLsFile = "crawled_urls.json"
)

// Documents is the persisted output shape. Map iteration order does not
// matter here; encoding/json sorts object keys on marshal.
type Documents struct {
	ProductURLs map[string][]string
	CrawledURLs map[string][]string
}

// BuildDocuments assembles the two documents from per-domain results,
// walking domains in input order. Domains missing from results still get
// empty entries.
func BuildDocuments(domains []string, results map[string]*crawler.Result) Documents {
	docs := Documents{
		ProductURLs: make(map[string][]string, len(domains)),
		CrawledURLs: make(map[string][]string, len(domains)),
	}
	for _, domain := range domains {
		res := results[domain]
		if res == nil {
			docs.ProductURLs[domain] = []string{}
			docs.CrawledURLs[domain] = []string{}
			continue
		}
		docs.ProductURLs[domain] = res.ProductURLs
		docs.CrawledURLs[domain] = res.CrawledURLs
	}
	return docs
}

// WriteFiles writes both documents into dir, creating it if needed.
func (d Documents) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("report: creating output dir: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, ProductURLsFile), d.ProductURLs); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(dir, CrawledURLsFile), d.CrawledURLs)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encoding %s: %w", path, err)
	}
	return nil
}

// DomainStats summarizes one domain's crawl.
type DomainStats struct {
	Domain       string
	PagesCrawled int
	ProductsSeen int
}

// Summary contains aggregated metrics about a crawl run.
type Summary struct {
	Domains       []DomainStats
	TotalPages    int
	TotalProducts int
	Duration      time.Duration
}

// GenerateSummary aggregates per-domain results in input order.
func GenerateSummary(domains []string, results map[string]*crawler.Result, duration time.Duration) Summary {
	s := Summary{Duration: duration}
	for _, domain := range domains {
		stats := DomainStats{Domain: domain}
		if res := results[domain]; res != nil {
			stats.PagesCrawled = len(res.CrawledURLs)
			stats.ProductsSeen = len(res.ProductURLs)
		}
		s.Domains = append(s.Domains, stats)
		s.TotalPages += stats.PagesCrawled
		s.TotalProducts += stats.ProductsSeen
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encoding summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Ferret Crawl Summary
--------------------
Duration:       {{.Duration}}
Total Pages:    {{.TotalPages}}
Total Products: {{.TotalProducts}}

Per Domain:
{{- range .Domains}}
  {{.Domain}}: {{.ProductsSeen}} products across {{.PagesCrawled}} pages
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parsing template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: rendering summary: %w", err)
	}

	return nil
}
