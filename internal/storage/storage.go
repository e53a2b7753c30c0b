// Package storage persists per-URL discovery records. Persistence is
// optional: the crawler runs with a nil Backend and only the report files
// are written.
package storage

import (
	"context"
	"time"
)

// Record kinds.
const (
	KindProduct = "product"
	KindCrawled = "crawled"
)

// DiscoveryRecord is one URL discovered during a crawl run.
type DiscoveryRecord struct {
	ID     string
	RunID  string
	Domain string
	URL    string
	// Kind is "product" or "crawled".
	Kind string
	// Source says how a product record was classified: "pattern" or
	// "content". Crawled records carry "visit".
	Source    string
	CreatedAt time.Time
}

// Filter allows querying for specific DiscoveryRecords.
type Filter struct {
	RunID  string
	Domain string
	Kind   string
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying discovery records.
type Backend interface {
	Save(ctx context.Context, rec *DiscoveryRecord) error
	Query(ctx context.Context, filter Filter) ([]*DiscoveryRecord, error)
	Close() error
}
