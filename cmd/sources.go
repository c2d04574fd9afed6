package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/opinion-crawler/internal/source"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources [selector...]",
		Short: "List configured sources and their keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			registry, err := source.NewRegistry(rt.cfg.Sources)
			if err != nil {
				return err
			}
			ids := registry.IDs()
			if len(args) > 0 {
				if ids, err = registry.Select(args); err != nil {
					return err
				}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, id := range ids {
				flag := ""
				if registry.NonMonotonic(id) {
					flag = "non-monotonic"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, source.Key(id), flag)
			}
			return w.Flush()
		},
	}
}
