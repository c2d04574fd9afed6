package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

func TestReporter_RecordPersistsAndLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := &fakeErrorLog{}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := New(sink, fixedClock{now}, zap.New(core))

	r.Record(context.Background(), crawler.SeverityWarning, "ca1", "EmptyFileError: https://x")
	r.Record(context.Background(), crawler.SeverityCritical, "ca1", "CRAWLER DOWN")

	require.Equal(t, []crawler.ErrorRecord{
		{Severity: crawler.SeverityWarning, SourceKey: "ca1", Message: "EmptyFileError: https://x", Timestamp: now},
		{Severity: crawler.SeverityCritical, SourceKey: "ca1", Message: "CRAWLER DOWN", Timestamp: now},
	}, sink.all())

	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestReporter_SinkFailureIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := &fakeErrorLog{err: errors.New("disk full")}
	r := New(sink, fixedClock{time.Now()}, zap.New(core))

	r.Record(context.Background(), crawler.SeverityWarning, "ca2", "DownloadingError")
	require.Equal(t, 1, logs.FilterMessage("append error record failed").Len())
}

func TestReporter_NilSink(t *testing.T) {
	t.Parallel()

	r := New(nil, fixedClock{time.Now()}, nil)
	r.Record(context.Background(), crawler.SeverityCritical, "ca3", "boom")
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeErrorLog struct {
	mu      sync.Mutex
	records []crawler.ErrorRecord
	err     error
}

func (f *fakeErrorLog) AppendError(_ context.Context, rec crawler.ErrorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeErrorLog) all() []crawler.ErrorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]crawler.ErrorRecord(nil), f.records...)
}
