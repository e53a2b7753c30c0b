// Package crawler contains the traversal engine that discovers product
// pages: URL canonicalization, link partitioning, a depth- and
// page-budgeted DFS per domain, and the orchestrator that runs one crawl
// per target domain concurrently.
package crawler

import (
	"net/url"
	"strings"
)

// DefaultStrippedPrefixes are subdomain prefixes ignored when deciding
// whether a link stays on the target site, so example.com, www.example.com
// and shop.example.com all count as the same site.
var DefaultStrippedPrefixes = []string{"www.", "shop."}

// Normalize returns the canonical form of a URL: query string and fragment
// removed, scheme/host/path preserved. It is total; input that does not
// parse is returned unchanged.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Resolve resolves a possibly-relative href against base.
func Resolve(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// sameSite compares two hosts modulo the stripped subdomain prefixes.
// Comparison is exact (including any port) after prefix stripping; this is
// deliberately narrower than registrable-domain matching, which would
// cross-match unrelated subdomains.
func sameSite(hostA, hostB string, prefixes []string) bool {
	return stripPrefixes(strings.ToLower(hostA), prefixes) ==
		stripPrefixes(strings.ToLower(hostB), prefixes)
}

func stripPrefixes(host string, prefixes []string) string {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(host, p); ok {
			return rest
		}
	}
	return host
}

// readablePath renders a URL as host/path for log lines; the homepage shows
// as host/homepage.
func readablePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		path = "homepage"
	}
	return u.Host + "/" + path
}
