// Package csvbackend stores discovery records as rows in a single CSV
// file, convenient for spreadsheet import.
package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/ferret/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"domain",
	"url",
	"kind",
	"source",
	"created_at",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: opening %s: %w", filePath, err)
	}

	// Write the header row once, on a fresh file
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat %s: %w", filePath, err)
	}
	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: writing header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: writing header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, rec *storage.DiscoveryRecord) error {
	row := []string{
		rec.ID,
		rec.RunID,
		rec.Domain,
		rec.URL,
		rec.Kind,
		rec.Source,
		rec.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seeking: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("csvbackend: writing record: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: writing record: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.DiscoveryRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seeking: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Skip the header row
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.DiscoveryRecord{}, nil
		}
		return nil, fmt.Errorf("csvbackend: reading header: %w", err)
	}

	var matched []*storage.DiscoveryRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: reading record: %w", err)
		}
		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		createdAt, _ := time.Parse(time.RFC3339Nano, row[6])
		rec := &storage.DiscoveryRecord{
			ID:        row[0],
			RunID:     row[1],
			Domain:    row[2],
			URL:       row[3],
			Kind:      row[4],
			Source:    row[5],
			CreatedAt: createdAt,
		}

		if filter.RunID != "" && rec.RunID != filter.RunID {
			continue
		}
		if filter.Domain != "" && rec.Domain != filter.Domain {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		matched = append(matched, rec)
	}

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*storage.DiscoveryRecord{}, nil
		}
		matched = matched[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
