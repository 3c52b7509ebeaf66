package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/gridmix/internal/genmix"
	_ "modernc.org/sqlite"
)

// timeLayout is how interval ends are stored; it sorts lexically in time order
const timeLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_mix (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interval_end TEXT NOT NULL,
		fuel TEXT NOT NULL,
		perc REAL NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(interval_end, fuel)
	);
	CREATE TABLE IF NOT EXISTS published_intervals (
		interval_end TEXT PRIMARY KEY,
		published_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generation_interval_end ON generation_mix(interval_end);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveTable stores every row of the table in one transaction. A row replaces
// whatever was stored for its interval, fuels it no longer reports included.
func (db *DB) SaveTable(t *genmix.Table) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	del, err := tx.Prepare(`DELETE FROM generation_mix WHERE interval_end = ?`)
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer del.Close()

	stmt, err := tx.Prepare(`
	INSERT INTO generation_mix (interval_end, fuel, perc, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(interval_end, fuel) DO UPDATE SET perc = excluded.perc
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, row := range t.Rows() {
		end := row.Date.UTC().Format(timeLayout)
		if _, err := del.Exec(end); err != nil {
			return fmt.Errorf("clearing %s: %w", end, err)
		}
		for _, fuel := range row.FuelOrder() {
			perc := row.Mix[fuel]
			if _, err := stmt.Exec(end, fuel, perc, createdAt); err != nil {
				return fmt.Errorf("inserting %s %s: %w", end, fuel, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadRange returns the rows a fetch of the calendar dates [start, end] covers:
// interval ends after start 00:00 up to and including the midnight following end
func (db *DB) LoadRange(start, end time.Time) (*genmix.Table, error) {
	lower := dayStart(start)
	upper := dayStart(end).AddDate(0, 0, 1)

	return db.queryTable(`
	SELECT interval_end, fuel, perc
	FROM generation_mix
	WHERE interval_end > ? AND interval_end <= ?
	ORDER BY interval_end, id
	`, lower.Format(timeLayout), upper.Format(timeLayout))
}

// LoadAll returns every stored row in time order
func (db *DB) LoadAll() (*genmix.Table, error) {
	return db.queryTable(`
	SELECT interval_end, fuel, perc
	FROM generation_mix
	ORDER BY interval_end, id
	`)
}

// ListUnpublished returns the rows that have not been marked published, in time order
func (db *DB) ListUnpublished() (*genmix.Table, error) {
	return db.queryTable(`
	SELECT g.interval_end, g.fuel, g.perc
	FROM generation_mix g
	LEFT JOIN published_intervals p ON p.interval_end = g.interval_end
	WHERE p.interval_end IS NULL
	ORDER BY g.interval_end, g.id
	`)
}

// MarkPublished marks an interval as published
func (db *DB) MarkPublished(intervalEnd time.Time) error {
	query := `INSERT OR IGNORE INTO published_intervals (interval_end, published_at) VALUES (?, ?)`
	_, err := db.conn.Exec(query, intervalEnd.UTC().Format(timeLayout), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("marking interval as published: %w", err)
	}
	return nil
}

// CountIntervals returns the number of distinct intervals stored
func (db *DB) CountIntervals() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(DISTINCT interval_end) FROM generation_mix`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting intervals: %w", err)
	}
	return n, nil
}

// queryTable runs a query returning (interval_end, fuel, perc) rows ordered by
// interval_end and folds them into a table
func (db *DB) queryTable(query string, args ...interface{}) (*genmix.Table, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying generation mix: %w", err)
	}
	defer rows.Close()

	table := genmix.NewTable()
	var current *genmix.Row
	for rows.Next() {
		var endStr, fuel string
		var perc float64
		if err := rows.Scan(&endStr, &fuel, &perc); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		end, err := time.Parse(timeLayout, endStr)
		if err != nil {
			return nil, fmt.Errorf("parsing interval_end: %w", err)
		}

		if current == nil || !current.Date.Equal(end) {
			if current != nil {
				table.Append(*current)
			}
			current = &genmix.Row{Date: end, Mix: make(map[string]float64)}
		}
		if _, seen := current.Mix[fuel]; !seen {
			current.Order = append(current.Order, fuel)
		}
		current.Mix[fuel] = perc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		table.Append(*current)
	}

	return table, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
