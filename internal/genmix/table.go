package genmix

import (
	"maps"
	"slices"
	"time"

	"github.com/jgoulah/gridmix/pkg/models"
)

// IndexName is the header used for the row key column
const IndexName = "Date"

// Row is one interval of the generation table
type Row struct {
	Date  time.Time
	Mix   map[string]float64
	Order []string // Fuels in the order the API reported them
}

// Value returns the percentage for fuel and whether the row reported it
func (r Row) Value(fuel string) (float64, bool) {
	v, ok := r.Mix[fuel]
	return v, ok
}

// FuelOrder returns the row's fuels in reported order. Rows built without an
// order fall back to sorted fuel names.
func (r Row) FuelOrder() []string {
	if len(r.Order) == len(r.Mix) {
		return r.Order
	}
	return slices.Sorted(maps.Keys(r.Mix))
}

// Table is a wide generation table: one row per interval end, one column per fuel.
// The fuel columns are not declared up front; they are the union of every row's fuels.
type Table struct {
	rows  []Row
	index map[int64]int // unix seconds -> position in rows
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{index: make(map[int64]int)}
}

// Build creates a table from intervals, keyed by each interval's end time
func Build(intervals []models.Interval) *Table {
	t := NewTable()
	for _, iv := range intervals {
		t.Append(Row{Date: iv.To, Mix: Flatten(iv.GenerationMix), Order: fuelOrder(iv.GenerationMix)})
	}
	return t
}

// Append adds rows in order. A row whose Date is already present replaces the
// earlier row's mix and keeps its position.
func (t *Table) Append(rows ...Row) {
	for _, r := range rows {
		key := r.Date.Unix()
		if i, ok := t.index[key]; ok {
			t.rows[i].Mix = r.Mix
			t.rows[i].Order = r.Order
			continue
		}
		t.index[key] = len(t.rows)
		t.rows = append(t.rows, r)
	}
}

// Concat appends every row of other onto t
func (t *Table) Concat(other *Table) {
	if other == nil {
		return
	}
	t.Append(other.rows...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows in insertion order
func (t *Table) Rows() []Row {
	return t.rows
}

// Row returns the row for the given interval end
func (t *Table) Row(date time.Time) (Row, bool) {
	i, ok := t.index[date.Unix()]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Fuels returns the union of fuel names over all rows, in order of first appearance.
// Within a single row, fuels are taken in the order the row reported them.
func (t *Table) Fuels() []string {
	seen := make(map[string]bool)
	var fuels []string
	for _, r := range t.rows {
		for _, fuel := range r.FuelOrder() {
			if !seen[fuel] {
				seen[fuel] = true
				fuels = append(fuels, fuel)
			}
		}
	}
	return fuels
}

// Chronological reports whether row dates are strictly increasing
func (t *Table) Chronological() bool {
	for i := 1; i < len(t.rows); i++ {
		if !t.rows[i].Date.After(t.rows[i-1].Date) {
			return false
		}
	}
	return true
}

// fuelOrder lists each fuel of mix once, at its first position
func fuelOrder(mix []models.FuelShare) []string {
	seen := make(map[string]bool, len(mix))
	order := make([]string, 0, len(mix))
	for _, share := range mix {
		if !seen[share.Fuel] {
			seen[share.Fuel] = true
			order = append(order, share.Fuel)
		}
	}
	return order
}
