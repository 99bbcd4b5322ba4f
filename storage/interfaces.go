package storage

import "optihome/models"

// PropertyStore is the interface the HTTP layer and the scrape pipeline
// depend on for persisted properties. Version returns a counter that is
// bumped on every successful write; the statistics engine memoizes on it.
type PropertyStore interface {
	Upsert(props []*models.Property) error
	FetchAll() ([]*models.Property, error)
	FetchFiltered(f *models.Filter, offset, limit int) ([]*models.Property, int, error)
	Version() uint64
	Close() error
}

// RawSnapshotWriter persists unprocessed scraped data.
type RawSnapshotWriter interface {
	WriteRaw(props []*models.RawProperty) error
	Close() error
}
