package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/app"
	"github.com/JakeFAU/opinion-crawler/internal/config"
	"github.com/JakeFAU/opinion-crawler/internal/logging"
)

// errCancelled reports a run that stopped on a signal rather than finishing.
var errCancelled = errors.New("crawl cancelled")

type runtimeKeyType struct{}

// runtime carries the loaded config and logger to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. It is a variable so tests can inject
// their own.
var newApp = app.NewApp

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "opinion-crawler",
		Short: "Archives court opinions from configured listing pages.",
		Long: `opinion-crawler polls court listing pages, downloads opinions that are not
yet archived, stores their binaries and metadata, and hands each new document
to the text extraction pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), runtimeKeyType{}, &runtime{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRuntime(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newSourcesCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKeyType{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute runs the CLI and exits non-zero on any error.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

// run executes the root command with args and returns the process exit
// code. A cancelled crawl exits 1 without printing.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCancelled) {
			fmt.Fprintln(stderr, "opinion-crawler:", err)
		}
		return 1
	}
	return 0
}
