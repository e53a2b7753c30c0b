package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/ferret/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "ferret.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC() // JSON marshals with precision limits

	rec1 := &storage.DiscoveryRecord{
		ID:        "json1",
		RunID:     "run-a",
		Domain:    "example.com",
		URL:       "https://example.com/product/1",
		Kind:      storage.KindProduct,
		Source:    "pattern",
		CreatedAt: now.Add(-2 * time.Hour),
	}

	rec2 := &storage.DiscoveryRecord{
		ID:        "json2",
		RunID:     "run-a",
		Domain:    "shop.example.org",
		URL:       "https://shop.example.org/faq",
		Kind:      storage.KindCrawled,
		Source:    "visit",
		CreatedAt: now.Add(-1 * time.Hour),
	}

	if err := b.Save(ctx, rec1); err != nil {
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := b.Save(ctx, rec2); err != nil {
		t.Fatalf("Failed to save record 2: %v", err)
	}

	// Domain filter
	resultsDomain, err := b.Query(ctx, storage.Filter{Domain: "shop.example.org"})
	if err != nil {
		t.Fatalf("Failed to query by domain: %v", err)
	}
	if len(resultsDomain) != 1 {
		t.Fatalf("Expected 1 result for domain filter, got %d", len(resultsDomain))
	}
	if resultsDomain[0].ID != "json2" {
		t.Errorf("Expected ID json2, got %s", resultsDomain[0].ID)
	}

	// Kind filter
	resultsKind, err := b.Query(ctx, storage.Filter{Kind: storage.KindProduct})
	if err != nil {
		t.Fatalf("Failed to query by kind: %v", err)
	}
	if len(resultsKind) != 1 {
		t.Fatalf("Expected 1 result for kind filter, got %d", len(resultsKind))
	}
	if resultsKind[0].ID != "json1" {
		t.Errorf("Expected ID json1, got %s", resultsKind[0].ID)
	}

	// RunID filter matches both
	resultsRun, err := b.Query(ctx, storage.Filter{RunID: "run-a"})
	if err != nil {
		t.Fatalf("Failed to query by run: %v", err)
	}
	if len(resultsRun) != 2 {
		t.Fatalf("Expected 2 results for run filter, got %d", len(resultsRun))
	}

	// Limit
	resultsLimit, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(resultsLimit) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsLimit))
	}

	// Offset
	resultsOffset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(resultsOffset) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsOffset))
	}
	if resultsOffset[0].ID != "json2" {
		t.Errorf("Expected json2 for offset 1, got %s", resultsOffset[0].ID)
	}
}
