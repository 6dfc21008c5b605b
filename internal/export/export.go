// Package export writes queue snapshots as spreadsheets for operators.
package export

import (
	"fmt"
	"io"
	"time"

	"offlinesync/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetPending    = "Pending"
	SheetDeadLetter = "Dead letter"
)

var headers = []string{"ID", "Type", "Entity", "Action", "Queued at", "Attempts", "Last error", "Payload"}

// WriteQueueWorkbook writes pending and dead-lettered items to w as an
// xlsx workbook with one sheet each.
func WriteQueueWorkbook(w io.Writer, pending, dead []models.QueueItem) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetPending)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(SheetDeadLetter); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for sheet, items := range map[string][]models.QueueItem{SheetPending: pending, SheetDeadLetter: dead} {
		if err := writeItems(f, sheet, headerStyle, items); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeItems(f *excelize.File, sheet string, headerStyle int, items []models.QueueItem) error {
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

	for i, it := range items {
		row := []any{
			it.ID,
			string(it.Type),
			it.Entity,
			it.ResolveAction(),
			it.Timestamp.UTC().Format(time.RFC3339),
			it.RetryCount,
			it.LastError,
			string(it.Payload),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "F", 14)
	_ = f.SetColWidth(sheet, "G", "H", 50)
	return nil
}
