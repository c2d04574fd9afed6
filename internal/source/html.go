package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// DefaultDateLayout parses dates such as 2024-03-01.
const DefaultDateLayout = "2006-01-02"

// HTMLAdapter implements crawler.SourceAdapter for sources whose listing is
// a static HTML page. Fields are read with CSS selectors from the source's
// Config.
type HTMLAdapter struct {
	registry *Registry
	fetcher  crawler.Fetcher
	hasher   crawler.Hasher
	reporter crawler.ErrorReporter
	logger   *zap.Logger
}

// NewHTMLAdapter constructs an HTMLAdapter. Listing pages are downloaded
// through fetcher and hashed with hasher; rows that cannot be read are
// reported as warnings against the source.
func NewHTMLAdapter(
	registry *Registry,
	fetcher crawler.Fetcher,
	hasher crawler.Hasher,
	reporter crawler.ErrorReporter,
	logger *zap.Logger,
) *HTMLAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLAdapter{registry: registry, fetcher: fetcher, hasher: hasher, reporter: reporter, logger: logger}
}

// List downloads and parses the listing for sourceID.
func (a *HTMLAdapter) List(ctx context.Context, sourceID string) (crawler.Listing, error) {
	cfg, ok := a.registry.Get(sourceID)
	if !ok {
		return crawler.Listing{}, fmt.Errorf("%w: %s", crawler.ErrUnknownSource, sourceID)
	}
	resp, err := a.fetcher.Fetch(ctx, cfg.URL)
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("%w: fetch listing %s: %w", crawler.ErrAdapter, sourceID, err)
	}
	base, err := url.Parse(resp.URL)
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("%w: parse listing url %q: %w", crawler.ErrAdapter, resp.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("%w: parse listing %s: %w", crawler.ErrAdapter, sourceID, err)
	}

	items := a.extract(ctx, doc, base, cfg)
	hash, err := a.listingHash(items)
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("%w: hash listing %s: %w", crawler.ErrAdapter, sourceID, err)
	}
	a.logger.Debug("listing parsed",
		zap.String("source", sourceID),
		zap.Int("items", len(items)),
	)
	return crawler.Listing{SourceID: sourceID, ListingHash: hash, Items: items}, nil
}

func (a *HTMLAdapter) extract(ctx context.Context, doc *goquery.Document, base *url.URL, cfg Config) []crawler.CandidateItem {
	layout := cfg.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	var items []crawler.CandidateItem
	doc.Find(cfg.ItemSelector).Each(func(i int, row *goquery.Selection) {
		dateText := text(row, cfg.DateSelector)
		filed, err := time.Parse(layout, dateText)
		if err != nil {
			a.reporter.Record(ctx, crawler.SeverityWarning, Key(cfg.ID),
				fmt.Sprintf("DateParseError: %s: row %d: %q", cfg.ID, i, dateText))
			return
		}
		link := row.Find(cfg.LinkSelector).First()
		href, _ := link.Attr("href")
		name := text(row, cfg.NameSelector)
		if cfg.NameSelector == "" {
			name = normalize(link.Text())
		}
		items = append(items, crawler.CandidateItem{
			DisplayName:        name,
			DownloadURL:        absolute(base, href),
			FiledDate:          filed,
			DocketNumber:       text(row, cfg.DocketSelector),
			NeutralCitation:    text(row, cfg.CitationSelector),
			PrecedentialStatus: cfg.PrecedentialStatus,
		})
	})
	return items
}

// listingHash digests the item metadata, so cosmetic page changes outside
// the listing rows do not register as a change.
func (a *HTMLAdapter) listingHash(items []crawler.CandidateItem) (string, error) {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\n",
			it.DisplayName,
			it.DownloadURL,
			it.FiledDate.Format(DefaultDateLayout),
			it.DocketNumber,
			it.NeutralCitation,
		)
	}
	return a.hasher.Hash([]byte(b.String()))
}

func text(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return normalize(row.Find(selector).First().Text())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func absolute(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
