package cli

import (
	"fmt"
	"os"

	"offlinesync/internal/export"

	"github.com/spf13/cobra"
)

// NewQueueCommand groups mutation queue inspection and maintenance.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the mutation queue",
	}

	cmd.AddCommand(newQueueListCommand(rootOpts))
	cmd.AddCommand(newQueueRemoveCommand(rootOpts))
	cmd.AddCommand(newQueueClearCommand(rootOpts))
	cmd.AddCommand(newQueueExportCommand(rootOpts))

	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	var deadLetter bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending mutations in FIFO order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.manager.GetQueue
			if deadLetter {
				list = a.manager.DeadLetters
			}
			items, err := list(ctx)
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), rootOpts.Format, items)
		},
	}

	cmd.Flags().BoolVar(&deadLetter, "dead-letter", false, "list abandoned mutations instead")
	return cmd
}

func newQueueRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one pending mutation by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.manager.RemoveFromQueue(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("queue item %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newQueueClearCommand(rootOpts *RootOptions) *cobra.Command {
	var deadLetter bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard every pending mutation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if deadLetter {
				if err := a.manager.ClearDeadLetters(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Dead letter queue cleared")
				return nil
			}
			if err := a.manager.ClearQueue(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&deadLetter, "dead-letter", false, "clear abandoned mutations instead")
	return cmd
}

func newQueueExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write pending and abandoned mutations to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, rootOpts, buildOptions{interactive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.manager.GetQueue(ctx)
			if err != nil {
				return err
			}
			dead, err := a.manager.DeadLetters(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.WriteQueueWorkbook(f, pending, dead); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pending and %d dead letter items to %s\n", len(pending), len(dead), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "queue.xlsx", "destination file")
	return cmd
}
