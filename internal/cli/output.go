package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"offlinesync/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

func printStatus(w io.Writer, format string, status models.SyncStatus) error {
	if format == "json" {
		return printJSON(w, status)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Online:\t%t\n", status.IsOnline)
	fmt.Fprintf(tw, "Syncing:\t%t\n", status.IsSyncing)
	fmt.Fprintf(tw, "Pending:\t%d\n", status.PendingCount)
	fmt.Fprintf(tw, "Last sync:\t%s\n", formatTime(status.LastSyncTime))
	return tw.Flush()
}

func printResult(w io.Writer, format string, result models.SyncResult) error {
	if format == "json" {
		return printJSON(w, result)
	}
	_, err := fmt.Fprintf(w, "Synced %d, failed %d, dropped %d\n", result.Success, result.Failed, result.Dropped)
	return err
}

func printItems(w io.Writer, format string, items []models.QueueItem) error {
	if format == "json" {
		if items == nil {
			items = []models.QueueItem{}
		}
		return printJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Queue is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tENTITY\tACTION\tQUEUED\tRETRIES\tLAST ERROR")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			item.ID,
			item.Type,
			item.Entity,
			dash(item.ResolveAction()),
			item.Timestamp.Local().Format(time.RFC3339),
			item.RetryCount,
			dash(item.LastError),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
