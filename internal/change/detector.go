// Package change decides whether a source's listing differs from its
// last committed baseline.
package change

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// Detector compares listing hashes against the durable baseline store.
type Detector struct {
	store  crawler.BaselineStore
	logger *zap.Logger
}

// New constructs a Detector.
func New(store crawler.BaselineStore, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{store: store, logger: logger}
}

// Changed reports whether currentHash differs from the stored baseline for
// sourceID. A baseline is created on first encounter, and a freshly
// created baseline always reports changed. Nothing is written besides the
// get-or-create until the caller commits through the returned Handle.
func (d *Detector) Changed(ctx context.Context, sourceID, currentHash string) (bool, *Handle, error) {
	baseline, created, err := d.store.GetOrCreateBaseline(ctx, sourceID)
	if err != nil {
		return false, nil, fmt.Errorf("get or create baseline %s: %w", sourceID, err)
	}
	handle := &Handle{store: d.store, sourceID: sourceID, created: created}
	if !created && baseline.ListingHash == currentHash {
		d.logger.Debug("listing hash unchanged", zap.String("source", sourceID))
		return false, handle, nil
	}
	d.logger.Debug("listing hash changed",
		zap.String("source", sourceID),
		zap.Bool("new_source", created),
	)
	return true, handle, nil
}

// Handle defers the baseline write until a scan has earned it.
type Handle struct {
	store    crawler.BaselineStore
	sourceID string
	created  bool
}

// Created reports whether the baseline row was created by this lookup.
func (h *Handle) Created() bool {
	return h.created
}

// Commit stores hash as the source's new baseline.
func (h *Handle) Commit(ctx context.Context, hash string) error {
	if err := h.store.UpdateBaseline(ctx, h.sourceID, hash); err != nil {
		return fmt.Errorf("update baseline %s: %w", h.sourceID, err)
	}
	return nil
}
