package services

import (
	"context"
	"fmt"

	"optihome/models"
	"optihome/storage"
	"optihome/utils"
)

// PropertySource produces raw listings; the nehnutelnosti scraper
// satisfies it.
type PropertySource interface {
	Scrape(ctx context.Context, kind string, pages int) ([]*models.RawProperty, error)
}

// ScrapePipeline runs the full scrape → snapshot → clean → persist chain
// for one kind, reporting progress through the status tracker.
type ScrapePipeline struct {
	logger  *utils.Logger
	source  PropertySource
	cleaner *Cleaner
	store   storage.PropertyStore
	raw     storage.RawSnapshotWriter
	status  *StatusTracker
}

// NewScrapePipeline wires the pipeline. raw may be nil to skip snapshots.
func NewScrapePipeline(
	logger *utils.Logger,
	source PropertySource,
	cleaner *Cleaner,
	store storage.PropertyStore,
	raw storage.RawSnapshotWriter,
	status *StatusTracker,
) *ScrapePipeline {
	return &ScrapePipeline{
		logger:  logger,
		source:  source,
		cleaner: cleaner,
		store:   store,
		raw:     raw,
		status:  status,
	}
}

// Start begins an asynchronous run and returns its id. Only one run may
// be active at a time.
func (p *ScrapePipeline) Start(kind string, pages int) (string, error) {
	runID, err := p.status.Begin(kind, pages)
	if err != nil {
		return "", err
	}

	go func() {
		_, runErr := p.execute(context.Background(), kind, pages)
		p.status.Finish(runErr)
	}()

	return runID, nil
}

// Run executes a scrape synchronously, tracking it like an async run.
// Used by the scheduler.
func (p *ScrapePipeline) Run(ctx context.Context, kind string, pages int) (int, error) {
	if _, err := p.status.Begin(kind, pages); err != nil {
		return 0, err
	}
	count, err := p.execute(ctx, kind, pages)
	p.status.Finish(err)
	return count, err
}

func (p *ScrapePipeline) execute(ctx context.Context, kind string, pages int) (int, error) {
	raws, err := p.source.Scrape(ctx, kind, pages)
	if len(raws) == 0 {
		if err != nil {
			return 0, fmt.Errorf("scrape %s: %w", kind, err)
		}
		return 0, fmt.Errorf("scrape %s: no listings found", kind)
	}
	if err != nil {
		p.logger.Warn("[pipeline] Scrape finished with partial results: %v", err)
		p.status.Log("warn", "partial results: %v", err)
	}

	if p.raw != nil {
		if err := p.raw.WriteRaw(raws); err != nil {
			p.logger.Error("[pipeline] CSV snapshot failed: %v", err)
			p.status.Log("error", "csv snapshot failed: %v", err)
		}
	}

	cleaned := p.cleaner.Clean(raws)
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("scrape %s: all %d listings dropped during cleaning", kind, len(raws))
	}
	p.status.Log("info", "cleaned %d/%d listings", len(cleaned), len(raws))

	if err := p.store.Upsert(cleaned); err != nil {
		return 0, fmt.Errorf("store %s listings: %w", kind, err)
	}

	p.logger.Info("[pipeline] %s run stored %d properties (dataset version %d)",
		kind, len(cleaned), p.store.Version())
	p.status.Log("info", "stored %d properties", len(cleaned))
	return len(cleaned), nil
}
