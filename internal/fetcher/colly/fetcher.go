// Package collyfetcher implements crawler.Fetcher using gocolly, following
// HTML meta-refresh redirects up to a fixed hop limit.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
)

// DefaultMaxHops bounds meta-refresh chains when Config.MaxHops is unset.
const DefaultMaxHops = 5

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxHops      int
	MaxBodyBytes int
	Headers      http.Header
}

// Limiter paces requests per host.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       Limiter
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. limiter may be nil.
func New(cfg Config, limiter Limiter, logger *zap.Logger) *Fetcher {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       limiter,
		logger:        logger,
	}
}

// Fetch downloads url and follows any meta-refresh chain. A zero-length body
// at any hop is reported as crawler.ErrEmptyFile; transport failures,
// non-success statuses and over-long chains as crawler.ErrDownloading.
func (f *Fetcher) Fetch(ctx context.Context, url string) (crawler.FetchResponse, error) {
	start := time.Now()
	current := url
	for hop := 0; ; hop++ {
		resp, err := f.fetchOnce(ctx, current)
		if err != nil {
			return crawler.FetchResponse{}, err
		}
		if len(resp.Body) == 0 {
			metrics.ObserveFetch(current, "empty", 0)
			return crawler.FetchResponse{}, fmt.Errorf("%w: %s", crawler.ErrEmptyFile, current)
		}
		target, ok := metaRefreshTarget(resp.URL, resp.Body)
		if !ok {
			resp.Hops = hop
			resp.Duration = time.Since(start)
			metrics.ObserveFetch(resp.URL, "ok", len(resp.Body))
			return resp, nil
		}
		if hop >= f.cfg.MaxHops {
			metrics.ObserveFetch(current, "redirect_limit", 0)
			return crawler.FetchResponse{}, fmt.Errorf("%w: %w: %d hops from %s",
				crawler.ErrDownloading, crawler.ErrTooManyRedirects, hop, url)
		}
		f.logger.Info("following meta refresh",
			zap.String("from", current),
			zap.String("to", target),
			zap.Int("hop", hop+1),
		)
		current = target
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (crawler.FetchResponse, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("%w: %w", crawler.ErrDownloading, err)
		}
	}
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	collector := f.buildCollector(&result, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		metrics.ObserveFetch(url, "error", 0)
		return crawler.FetchResponse{}, fmt.Errorf("%w: %s: %w", crawler.ErrDownloading, url, err)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(result *crawler.FetchResponse, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	f.configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *crawler.FetchResponse, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
