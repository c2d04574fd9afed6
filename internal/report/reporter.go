// Package report records recoverable and fatal crawl errors both to the
// operator log and to the durable error log.
package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
)

// Reporter implements crawler.ErrorReporter.
type Reporter struct {
	sink   crawler.ErrorLog
	clock  crawler.Clock
	logger *zap.Logger
}

// New constructs a Reporter. sink may be nil, in which case records are
// only logged.
func New(sink crawler.ErrorLog, clock crawler.Clock, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{sink: sink, clock: clock, logger: logger}
}

// Record logs message and appends it to the error log. A failure to append
// is logged and otherwise swallowed; reporting never fails the caller.
func (r *Reporter) Record(ctx context.Context, severity crawler.Severity, sourceKey, message string) {
	fields := []zap.Field{zap.String("source", sourceKey), zap.String("severity", string(severity))}
	if severity == crawler.SeverityCritical {
		r.logger.Error(message, fields...)
	} else {
		r.logger.Warn(message, fields...)
	}
	metrics.ObserveError(string(severity))

	if r.sink == nil {
		return
	}
	record := crawler.ErrorRecord{
		Severity:  severity,
		SourceKey: sourceKey,
		Message:   message,
		Timestamp: r.clock.Now(),
	}
	if err := r.sink.AppendError(context.WithoutCancel(ctx), record); err != nil {
		r.logger.Error("append error record failed", append(fields, zap.Error(err))...)
	}
}
