package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/hash"
)

const listingPage = `<html><body>
<div id="banner">Updated hourly</div>
<table>
  <tr class="opinion">
    <td class="date">2024-03-02</td>
    <td><a href="/opinions/22-1.pdf">  Smith   v. Jones </a></td>
    <td class="docket">22-1</td>
    <td class="cite">2024 WL 1</td>
  </tr>
  <tr class="opinion">
    <td class="date">not a date</td>
    <td><a href="/opinions/bad.pdf">Broken row</a></td>
  </tr>
  <tr class="opinion">
    <td class="date">2024-03-01</td>
    <td><a href="https://cdn.example.com/22-2.pdf">Doe v. Roe</a></td>
    <td class="docket">22-2</td>
  </tr>
  <tr class="opinion">
    <td class="date">2024-02-28</td>
    <td><a>No link</a></td>
  </tr>
</table>
</body></html>`

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]crawler.FetchResponse
	err   error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (crawler.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.err != nil {
		return crawler.FetchResponse{}, f.err
	}
	return f.pages[url], nil
}

type fakeReporter struct {
	mu      sync.Mutex
	records []crawler.ErrorRecord
}

func (f *fakeReporter) Record(_ context.Context, severity crawler.Severity, sourceKey, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, crawler.ErrorRecord{Severity: severity, SourceKey: sourceKey, Message: message})
}

func (f *fakeReporter) Records() []crawler.ErrorRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]crawler.ErrorRecord(nil), f.records...)
}

func newTestAdapter(t *testing.T, body string) (*HTMLAdapter, *fakeFetcher) {
	t.Helper()
	cfg := Config{
		ID:                 "opinions.united_states.federal.ca9_u",
		URL:                "https://court.example.com/list",
		ItemSelector:       "tr.opinion",
		LinkSelector:       "a",
		DateSelector:       ".date",
		DocketSelector:     ".docket",
		CitationSelector:   ".cite",
		PrecedentialStatus: "Published",
	}
	reg, err := NewRegistry([]Config{cfg})
	require.NoError(t, err)
	fetcher := &fakeFetcher{pages: map[string]crawler.FetchResponse{
		cfg.URL: {URL: "https://court.example.com/list/index.html", StatusCode: 200, Body: []byte(body)},
	}}
	hasher, err := hash.New("")
	require.NoError(t, err)
	return NewHTMLAdapter(reg, fetcher, hasher, &fakeReporter{}, nil), fetcher
}

func TestHTMLAdapterReportsUnparseableDates(t *testing.T) {
	t.Parallel()
	adapter, _ := newTestAdapter(t, listingPage)

	_, err := adapter.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.NoError(t, err)

	records := adapter.reporter.(*fakeReporter).Records()
	require.Len(t, records, 1)
	require.Equal(t, crawler.SeverityWarning, records[0].Severity)
	require.Equal(t, "ca9", records[0].SourceKey)
	require.Contains(t, records[0].Message, "DateParseError")
	require.Contains(t, records[0].Message, `"not a date"`)
}

func TestHTMLAdapterList(t *testing.T) {
	t.Parallel()
	adapter, _ := newTestAdapter(t, listingPage)

	listing, err := adapter.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.NoError(t, err)
	require.Equal(t, "opinions.united_states.federal.ca9_u", listing.SourceID)
	require.NotEmpty(t, listing.ListingHash)
	require.Len(t, listing.Items, 3)

	first := listing.Items[0]
	require.Equal(t, "Smith v. Jones", first.DisplayName)
	require.Equal(t, "https://court.example.com/opinions/22-1.pdf", first.DownloadURL)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), first.FiledDate)
	require.Equal(t, "22-1", first.DocketNumber)
	require.Equal(t, "2024 WL 1", first.NeutralCitation)
	require.Equal(t, "Published", first.PrecedentialStatus)

	require.Equal(t, "https://cdn.example.com/22-2.pdf", listing.Items[1].DownloadURL)
	require.Empty(t, listing.Items[2].DownloadURL)
}

func TestHTMLAdapterHashIgnoresChromeOutsideRows(t *testing.T) {
	t.Parallel()
	a1, _ := newTestAdapter(t, listingPage)
	a2, _ := newTestAdapter(t, `<p>Different banner</p>`+listingPage)

	l1, err := a1.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.NoError(t, err)
	l2, err := a2.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.NoError(t, err)
	require.Equal(t, l1.ListingHash, l2.ListingHash)

	a3, _ := newTestAdapter(t, `<table><tr class="opinion"><td class="date">2024-03-03</td><td><a href="/new.pdf">New</a></td></tr></table>`+listingPage)
	l3, err := a3.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.NoError(t, err)
	require.NotEqual(t, l1.ListingHash, l3.ListingHash)
}

func TestHTMLAdapterUnknownSource(t *testing.T) {
	t.Parallel()
	adapter, fetcher := newTestAdapter(t, listingPage)

	_, err := adapter.List(context.Background(), "opinions.nowhere")
	require.ErrorIs(t, err, crawler.ErrUnknownSource)
	require.Empty(t, fetcher.calls)
}

func TestHTMLAdapterFetchFailure(t *testing.T) {
	t.Parallel()
	adapter, fetcher := newTestAdapter(t, listingPage)
	fetcher.err = errors.Join(crawler.ErrDownloading, errors.New("status 503"))

	_, err := adapter.List(context.Background(), "opinions.united_states.federal.ca9_u")
	require.ErrorIs(t, err, crawler.ErrAdapter)
	require.ErrorIs(t, err, crawler.ErrDownloading)
}
