package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"optihome/models"
)

// CSVWriter writes raw (uncleaned) scrape snapshots to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"kind", "title", "location", "raw_price", "raw_area",
		"raw_price_per_area", "raw_rooms", "raw_year", "seller", "url", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends the raw properties to the CSV file.
func (c *CSVWriter) WriteRaw(props []*models.RawProperty) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range props {
		row := []string{
			p.Kind,
			p.Title,
			p.Location,
			p.RawPrice,
			p.RawArea,
			p.RawPricePerArea,
			p.RawRooms,
			p.RawYear,
			p.Seller,
			p.URL,
			p.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
