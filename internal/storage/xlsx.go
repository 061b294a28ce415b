package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"reviewetl/internal/models"
)

// MirrorXLSX writes the combined table as an Excel workbook for the
// analysis notebooks, one sheet named "reviews".
func MirrorXLSX(path string, records []*models.ReviewRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "reviews"

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}

	f.SetActiveSheet(idx)

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("xlsx: delete default sheet: %w", err)
	}

	header := make([]any, len(ReviewHeader))
	for i, h := range ReviewHeader {
		header[i] = h
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, rec := range records {
		row := reviewRow(rec)

		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}

		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}

	return nil
}
