package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgoulah/gridmix/internal/genmix"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the generation table is written to
const SheetName = "generation"

// WriteXLSXFile writes the table to an Excel workbook at path
func WriteXLSXFile(path string, t *genmix.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	fuels := t.Fuels()
	header := make([]interface{}, 0, len(fuels)+1)
	header = append(header, genmix.IndexName)
	for _, fuel := range fuels {
		header = append(header, fuel)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range t.Rows() {
		values := make([]interface{}, len(fuels)+1)
		values[0] = row.Date.UTC().Format(DateLayout)
		for j, fuel := range fuels {
			if v, ok := row.Value(fuel); ok {
				values[j+1] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
