// Package worker runs one scan of one source: list, detect change, then
// walk the candidates through the duplicate cascade and ingest what is new.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/change"
	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/dupcheck"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
	"github.com/JakeFAU/opinion-crawler/internal/source"
)

// Ingester writes a new item to durable storage.
type Ingester interface {
	Write(
		ctx context.Context,
		sourceKey string,
		item crawler.CandidateItem,
		hash string,
		body []byte,
		class crawler.Class,
	) (crawler.ArchivedDocument, error)
}

// Config controls Worker behavior.
type Config struct {
	// DupThreshold is the consecutive-duplicate count that ends a scan.
	DupThreshold int
	// NonMonotonic reports sources whose listing dates are unreliable.
	NonMonotonic func(sourceID string) bool
}

// ScanResult summarizes one pass over a source.
type ScanResult struct {
	SourceID          string
	SourceKey         string
	Fetched           int
	Written           int
	Duplicates        int
	FetchFailures     int
	WriteFailures     int
	Skipped           int
	Stopped           bool
	StopReason        dupcheck.Reason
	BaselineCommitted bool
	Unchanged         bool
}

// Worker executes source scans.
type Worker struct {
	adapter    crawler.SourceAdapter
	detector   *change.Detector
	docs       crawler.DocumentStore
	fetcher    crawler.Fetcher
	hasher     crawler.Hasher
	classifier crawler.MIMEClassifier
	ingester   Ingester
	reporter   crawler.ErrorReporter
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	adapter crawler.SourceAdapter,
	detector *change.Detector,
	docs crawler.DocumentStore,
	fetcher crawler.Fetcher,
	hasher crawler.Hasher,
	classifier crawler.MIMEClassifier,
	ingester Ingester,
	reporter crawler.ErrorReporter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DupThreshold <= 0 {
		cfg.DupThreshold = dupcheck.DefaultThreshold
	}
	if cfg.NonMonotonic == nil {
		cfg.NonMonotonic = func(string) bool { return false }
	}
	return &Worker{
		adapter:    adapter,
		detector:   detector,
		docs:       docs,
		fetcher:    fetcher,
		hasher:     hasher,
		classifier: classifier,
		ingester:   ingester,
		reporter:   reporter,
		cfg:        cfg,
		logger:     logger,
	}
}

// ScrapeSource scans sourceID once. Item-level failures are reported and
// never returned; an error means the source could not be scanned at all.
func (w *Worker) ScrapeSource(ctx context.Context, sourceID string, fullCrawl bool) (ScanResult, error) {
	key := source.Key(sourceID)
	result := ScanResult{SourceID: sourceID, SourceKey: key}
	logger := w.logger.With(zap.String("source", sourceID), zap.Bool("full_crawl", fullCrawl))

	listing, err := w.adapter.List(ctx, sourceID)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", sourceID, err)
	}
	// Baselines are per source id; sibling ids share a court key.
	changed, handle, err := w.detector.Changed(ctx, sourceID, listing.ListingHash)
	if err != nil {
		return result, fmt.Errorf("change detection %s: %w", sourceID, err)
	}
	if !changed && !fullCrawl {
		logger.Info("listing unchanged; skipping scan")
		result.Unchanged = true
		return result, nil
	}

	items, resorted := newestFirst(listing.Items)
	if resorted {
		logger.Warn("listing was not newest-first; sorted by filed date")
	}

	checker := dupcheck.New(dupcheck.Config{
		FullCrawl:    fullCrawl,
		Threshold:    w.cfg.DupThreshold,
		NonMonotonic: w.cfg.NonMonotonic(sourceID),
	})
	poisoned := false

	for i, item := range items {
		if item.DownloadURL == "" {
			result.Skipped++
			metrics.ObserveItem(key, "skipped")
			continue
		}

		resp, err := w.fetcher.Fetch(ctx, item.DownloadURL)
		if err != nil {
			result.FetchFailures++
			metrics.ObserveItem(key, "fetch_failed")
			w.reporter.Record(ctx, crawler.SeverityWarning, key, fetchMessage(item.DownloadURL, err))
			continue
		}
		result.Fetched++

		contentHash, err := w.hasher.Hash(resp.Body)
		if err != nil {
			w.writeFailed(ctx, &result, key, item, fmt.Errorf("hash: %w", err))
			poisoned = true
			continue
		}
		exists, err := w.docs.ExistsByHash(ctx, contentHash)
		if err != nil {
			w.writeFailed(ctx, &result, key, item, fmt.Errorf("lookup: %w", err))
			poisoned = true
			continue
		}

		decision, reason := checker.Observe(exists, item.FiledDate, nextFiled(items, i))
		switch decision {
		case dupcheck.Skip:
			result.Duplicates++
			metrics.ObserveItem(key, "duplicate")
			continue
		case dupcheck.StopUpToDate:
			result.Duplicates++
			metrics.ObserveItem(key, "duplicate")
			result.Stopped = true
			result.StopReason = reason
			logger.Info("source up to date",
				zap.String("reason", string(reason)),
				zap.Int("streak", checker.Streak()),
				zap.Int("index", i),
			)
			if !poisoned {
				w.commit(ctx, &result, handle, listing.ListingHash)
			}
			return result, nil
		}

		class := w.classifier.Classify(resp.Body)
		doc, err := w.ingester.Write(ctx, key, item, contentHash, resp.Body, class)
		if errors.Is(err, crawler.ErrDuplicateContent) {
			result.Duplicates++
			metrics.ObserveItem(key, "duplicate")
			logger.Info("document archived concurrently", zap.String("hash", contentHash))
			continue
		}
		if err != nil {
			w.writeFailed(ctx, &result, key, item, err)
			poisoned = true
			continue
		}
		result.Written++
		metrics.ObserveItem(key, "written")
		logger.Info("document archived",
			zap.String("document_id", doc.ID),
			zap.String("hash", contentHash),
			zap.String("mime", class.MIME),
		)
	}

	if !fullCrawl && !poisoned {
		w.commit(ctx, &result, handle, listing.ListingHash)
	}
	return result, nil
}

func (w *Worker) commit(ctx context.Context, result *ScanResult, handle *change.Handle, hash string) {
	err := handle.Commit(ctx, hash)
	metrics.ObserveBaselineCommit(result.SourceKey, err)
	if err != nil {
		w.reporter.Record(ctx, crawler.SeverityCritical, result.SourceKey,
			fmt.Sprintf("BaselineError: %v", err))
		return
	}
	result.BaselineCommitted = true
}

func (w *Worker) writeFailed(ctx context.Context, result *ScanResult, key string, item crawler.CandidateItem, err error) {
	result.WriteFailures++
	metrics.ObserveItem(key, "write_failed")
	w.reporter.Record(ctx, crawler.SeverityCritical, key,
		fmt.Sprintf("WriteError: %s: %v", item.DownloadURL, err))
}

func fetchMessage(url string, err error) string {
	if errors.Is(err, crawler.ErrEmptyFile) {
		return fmt.Sprintf("EmptyFileError: %s", url)
	}
	return fmt.Sprintf("DownloadingError: %s: %v", url, err)
}

func nextFiled(items []crawler.CandidateItem, i int) *time.Time {
	if i+1 >= len(items) {
		return nil
	}
	next := items[i+1].FiledDate
	return &next
}

// newestFirst returns items unchanged when already ordered by descending
// filed date, otherwise a stably sorted copy.
func newestFirst(items []crawler.CandidateItem) ([]crawler.CandidateItem, bool) {
	byDateDesc := func(a, b crawler.CandidateItem) int {
		return b.FiledDate.Compare(a.FiledDate)
	}
	if slices.IsSortedFunc(items, byDateDesc) {
		return items, false
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, byDateDesc)
	return sorted, true
}
