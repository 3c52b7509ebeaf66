package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jgoulah/gridmix/internal/export"
	"github.com/jgoulah/gridmix/internal/genmix"
	"github.com/spf13/cobra"
)

var (
	listSince string
	listUntil string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored generation mix data",
	Long:  `Displays generation mix intervals stored in the checkpoint database.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSince, "since", "", "Only list intervals since this date (YYYY-MM-DD or relative like 7d)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only list intervals until this date (YYYY-MM-DD)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	since, until, err := dateFilter(listSince, listUntil)
	if err != nil {
		return err
	}

	// Open database
	db, err := openDB(getDBPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	stored, err := db.LoadAll()
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}

	table := genmix.NewTable()
	for _, row := range stored.Rows() {
		if inRange(row.Date, since, until) {
			table.Append(row)
		}
	}

	if table.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No data found")
		return nil
	}

	printTable(cmd.OutOrStdout(), table)
	return nil
}

// printTable writes the table as fixed-width text
func printTable(w io.Writer, table *genmix.Table) {
	fuels := table.Fuels()
	rule := strings.Repeat("-", 17+10*len(fuels))

	fmt.Fprintf(w, "%-16s", genmix.IndexName)
	for _, fuel := range fuels {
		fmt.Fprintf(w, " %9s", fuel)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)

	for _, row := range table.Rows() {
		fmt.Fprintf(w, "%-16s", row.Date.UTC().Format("2006-01-02 15:04"))
		for _, fuel := range fuels {
			cell := ""
			if v, ok := row.Value(fuel); ok {
				cell = export.FormatPerc(v)
			}
			fmt.Fprintf(w, " %9s", cell)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d intervals\n", table.Len())
}
