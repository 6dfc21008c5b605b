package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand groups cache maintenance.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the local read cache",
	}
	cmd.AddCommand(newCacheInvalidateCommand(rootOpts))
	return cmd
}

func newCacheInvalidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate [pattern]",
		Short: "Remove cache entries whose key contains pattern, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			removed, err := a.manager.InvalidateCache(ctx, pattern)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", removed)
			return err
		},
	}
}
