// Package scheduler walks the selected sources in order, paces the scans
// across the crawl period, and keeps one source's failure from stopping the
// rest.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
	"github.com/JakeFAU/opinion-crawler/internal/source"
	"github.com/JakeFAU/opinion-crawler/internal/worker"
)

// DefaultRate is the crawl period in minutes.
const DefaultRate = 30

// Status describes how Run ended.
type Status int

// Run outcomes.
const (
	StatusCompleted Status = iota
	StatusCancelled
)

func (s Status) String() string {
	if s == StatusCancelled {
		return "cancelled"
	}
	return "completed"
}

// Scanner scans one source.
type Scanner interface {
	ScrapeSource(ctx context.Context, sourceID string, fullCrawl bool) (worker.ScanResult, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Options controls one Run.
type Options struct {
	Daemon    bool
	Rate      int
	FullCrawl bool
}

// Scheduler runs scans sequentially.
type Scheduler struct {
	scanner  Scanner
	reporter crawler.ErrorReporter
	sleeper  Sleeper
	logger   *zap.Logger
}

// New constructs a Scheduler.
func New(scanner Scanner, reporter crawler.ErrorReporter, sleeper Sleeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{scanner: scanner, reporter: reporter, sleeper: sleeper, logger: logger}
}

// Interval is the pause after each source: the crawl period spread evenly
// over the sources.
func Interval(rateMinutes, sources int) time.Duration {
	if rateMinutes <= 0 || sources <= 0 {
		return 0
	}
	return time.Duration(rateMinutes) * time.Minute / time.Duration(sources)
}

// Run scans sources in order, pausing after every scan including the last.
// Cancellation is only observed between sources; a scan in progress always
// finishes, and a one-shot run whose last scan finished reports completion.
// In daemon mode Run wraps around until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, sources []string, opts Options) (Status, error) {
	if len(sources) == 0 {
		return StatusCompleted, fmt.Errorf("%w: no sources to scan", crawler.ErrSetup)
	}
	rate := opts.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	wait := Interval(rate, len(sources))
	s.logger.Info("scheduler starting",
		zap.Int("sources", len(sources)),
		zap.Bool("daemon", opts.Daemon),
		zap.Bool("full_crawl", opts.FullCrawl),
		zap.Duration("interval", wait),
	)

	for i := 0; ; {
		if ctx.Err() != nil {
			s.logger.Info("scheduler cancelled", zap.String("next_source", sources[i]))
			return StatusCancelled, nil
		}

		s.scan(ctx, sources[i], opts.FullCrawl)
		if err := s.sleeper.Sleep(ctx, wait); err != nil {
			s.logger.Debug("inter-source sleep interrupted", zap.Error(err))
		}

		i++
		if i == len(sources) {
			if !opts.Daemon {
				s.logger.Info("scheduler finished")
				return StatusCompleted, nil
			}
			i = 0
		}
	}
}

func (s *Scheduler) scan(ctx context.Context, sourceID string, fullCrawl bool) {
	key := source.Key(sourceID)
	start := time.Now()
	res, err := s.scanSafely(context.WithoutCancel(ctx), sourceID, fullCrawl)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveScan(key, "failed", elapsed)
		s.reporter.Record(ctx, crawler.SeverityCritical, key,
			fmt.Sprintf("CRAWLER DOWN: %s: %v", sourceID, err))
		return
	}
	status := "scanned"
	if res.Unchanged {
		status = "unchanged"
	}
	metrics.ObserveScan(key, status, elapsed)
	s.logger.Info("source scanned",
		zap.String("source", sourceID),
		zap.String("status", status),
		zap.Int("written", res.Written),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("fetch_failures", res.FetchFailures),
		zap.Int("write_failures", res.WriteFailures),
		zap.Bool("baseline_committed", res.BaselineCommitted),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *Scheduler) scanSafely(ctx context.Context, sourceID string, fullCrawl bool) (res worker.ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.scanner.ScrapeSource(ctx, sourceID, fullCrawl)
}
