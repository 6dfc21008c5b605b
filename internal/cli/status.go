package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand prints the sync status snapshot.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, pending count and last sync time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{probe: probe, interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.manager.GetStatus(ctx)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), rootOpts.Format, status)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "ping the backend to determine connectivity")
	return cmd
}

// NewSyncCommand runs one drain pass against the backend.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued mutations to the backend once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{probe: true, interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.manager.IsOnline() {
				a.logger.Warn().Str("remote", a.cfg.Remote.BaseURL).Msg("backend unreachable, nothing replayed")
			}

			result, err := a.manager.ProcessPendingQueue(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result)
		},
	}
}
