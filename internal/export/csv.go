package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jgoulah/gridmix/internal/genmix"
)

// DateLayout renders row keys the way pandas writes a UTC DatetimeIndex
const DateLayout = "2006-01-02 15:04:05-07:00"

// WriteCSV writes the table with Date as the first column followed by one column per fuel.
// Fuels a row did not report are left empty.
func WriteCSV(w io.Writer, t *genmix.Table) error {
	fuels := t.Fuels()
	cw := csv.NewWriter(w)

	header := append([]string{genmix.IndexName}, fuels...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range t.Rows() {
		record[0] = row.Date.UTC().Format(DateLayout)
		for i, fuel := range fuels {
			record[i+1] = ""
			if v, ok := row.Value(fuel); ok {
				record[i+1] = FormatPerc(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", record[0], err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating parent directories, and returns the bytes written
func WriteCSVFile(path string, t *genmix.Table) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	cw := &countingWriter{w: f}
	if err := WriteCSV(cw, t); err != nil {
		return cw.n, err
	}
	if err := f.Close(); err != nil {
		return cw.n, fmt.Errorf("closing output file: %w", err)
	}
	return cw.n, nil
}

// FormatPerc formats a percentage in its shortest round-trip form, always
// carrying a fractional part ("40.0", not "40").
func FormatPerc(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
