package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/opinion-crawler/internal/config"
	"github.com/JakeFAU/opinion-crawler/internal/scheduler"
)

type scrapeOptions struct {
	courts    []string
	daemon    bool
	rate      int
	fullCrawl bool
}

func newScrapeCmd() *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scan the selected sources for new opinions",
		Long: `Scans each selected source once (or forever with --daemon), archiving any
opinion whose content is not already stored. Sources are selected by full id,
package prefix, top-level group, or glob, e.g.

  opinion-crawler scrape -c opinions.united_states.federal -d -r 30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.courts, "courts", "c", nil, "source selectors (comma separated)")
	flags.BoolVarP(&opts.daemon, "daemon", "d", false, "keep cycling through the sources")
	flags.IntVarP(&opts.rate, "rate", "r", 0, "minutes to spread one pass over all sources (default crawler.rate_minutes)")
	flags.BoolVarP(&opts.fullCrawl, "fullcrawl", "f", false, "visit every item and leave baselines untouched")
	_ = cmd.MarkFlagRequired("courts")
	return cmd
}

// schedulerOptions applies the flags over the loaded config. An unset or
// non-positive --rate falls back to crawler.rate_minutes.
func (o *scrapeOptions) schedulerOptions(cfg config.Config) scheduler.Options {
	rate := o.rate
	if rate <= 0 {
		rate = cfg.Crawler.RateMinutes
	}
	return scheduler.Options{Daemon: o.daemon, Rate: rate, FullCrawl: o.fullCrawl}
}

func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	ids, err := a.Sources().Select(opts.courts)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	opsCtx, stopOps := context.WithCancel(gctx)
	if ops := a.OpsServer(); ops != nil {
		g.Go(func() error { return ops.ListenAndServe(opsCtx, a.OpsAddr()) })
		ops.SetReady(true)
	}

	var status scheduler.Status
	g.Go(func() error {
		defer stopOps()
		var runErr error
		status, runErr = a.Scheduler().Run(gctx, ids, opts.schedulerOptions(rt.cfg))
		return runErr
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if status == scheduler.StatusCancelled {
		rt.logger.Warn("crawl cancelled before completion")
		return errCancelled
	}
	rt.logger.Info("crawl completed", zap.Int("sources", len(ids)))
	return nil
}
