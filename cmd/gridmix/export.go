package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridmix/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportXLSX   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored generation mix data to CSV",
	Long:  `Rebuilds the generation table from the checkpoint database without calling the API.`,
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "CSV output path (default from config)")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "Also write an Excel workbook to this path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	output := cfg.Output
	if exportOutput != "" {
		output = exportOutput
	}

	db, err := openDB(getDBPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	table, err := db.LoadAll()
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	if table.Len() == 0 {
		return fmt.Errorf("database has no generation data; run 'gridmix fetch' first")
	}

	n, err := export.WriteCSVFile(output, table)
	if err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	logger.Infof("✓ Exported %s rows (%s) to %s", humanize.Comma(int64(table.Len())), humanize.Bytes(uint64(n)), output)

	if exportXLSX != "" {
		if err := export.WriteXLSXFile(exportXLSX, table); err != nil {
			return fmt.Errorf("writing XLSX: %w", err)
		}
		logger.Infof("✓ Exported workbook to %s", exportXLSX)
	}

	return nil
}
