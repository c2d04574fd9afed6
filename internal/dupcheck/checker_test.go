package dupcheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	today     = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	yesterday = today.AddDate(0, 0, -1)
)

func TestObserve_NewItemAlwaysIngested(t *testing.T) {
	t.Parallel()

	for _, full := range []bool{true, false} {
		c := New(Config{FullCrawl: full, Threshold: DefaultThreshold})
		got, reason := c.Observe(false, today, &yesterday)
		require.Equal(t, Ingest, got, "full=%v", full)
		require.Equal(t, ReasonNone, reason)
	}
}

func TestObserve_FullCrawlNeverStops(t *testing.T) {
	t.Parallel()

	c := New(Config{FullCrawl: true, Threshold: 0})
	for i := 0; i < 10; i++ {
		got, _ := c.Observe(true, today, nil)
		require.Equal(t, Skip, got)
	}
	require.Zero(t, c.Streak(), "full crawl keeps no streak bookkeeping")
}

func TestObserve_DupWithOlderNextStops(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: DefaultThreshold})
	got, reason := c.Observe(true, today, &yesterday)
	require.Equal(t, StopUpToDate, got)
	require.Equal(t, ReasonNextOlder, reason)
}

func TestObserve_DupOnLastItemStops(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: DefaultThreshold})
	got, reason := c.Observe(true, today, nil)
	require.Equal(t, StopUpToDate, got)
	require.Equal(t, ReasonNextOlder, reason)
}

func TestObserve_ZeroThresholdStopsOnSameDayDup(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: 0})
	got, reason := c.Observe(true, today, &today)
	require.Equal(t, StopUpToDate, got)
	require.Equal(t, ReasonStreak, reason)
}

func TestObserve_SameDayDupsStopAtThreshold(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: 3})
	for i := 0; i < 2; i++ {
		got, _ := c.Observe(true, today, &today)
		require.Equal(t, Skip, got)
	}
	got, reason := c.Observe(true, today, &today)
	require.Equal(t, StopUpToDate, got)
	require.Equal(t, ReasonStreak, reason)
	require.Equal(t, 3, c.Streak())
}

func TestObserve_NewItemResetsStreak(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: 3})
	c.Observe(true, today, &today)
	c.Observe(true, today, &today)
	got, _ := c.Observe(false, today, &today)
	require.Equal(t, Ingest, got)
	require.Zero(t, c.Streak())

	got, _ = c.Observe(true, today, &today)
	require.Equal(t, Skip, got)
	require.Equal(t, 1, c.Streak())
}

func TestObserve_NonMonotonicIgnoresNextOlder(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: 2, NonMonotonic: true})
	got, _ := c.Observe(true, today, &yesterday)
	require.Equal(t, Skip, got)
	got, _ = c.Observe(true, yesterday, nil)
	require.Equal(t, StopUpToDate, got)

	c = New(Config{Threshold: 2, NonMonotonic: true})
	got, reason := c.Observe(true, today, nil)
	require.Equal(t, Skip, got, "last item alone does not stop a non-monotonic source")
	require.Equal(t, ReasonNone, reason)
}

func TestObserve_NewerNextDoesNotStop(t *testing.T) {
	t.Parallel()

	c := New(Config{Threshold: DefaultThreshold})
	got, _ := c.Observe(true, yesterday, &today)
	require.Equal(t, Skip, got)
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ingest", Ingest.String())
	require.Equal(t, "skip", Skip.String())
	require.Equal(t, "stop_up_to_date", StopUpToDate.String())
	require.Equal(t, "unknown", Decision(42).String())
}
