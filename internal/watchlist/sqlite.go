// Package watchlist persists the set of symbols the user has starred.
package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"coinmon/internal/dashboard"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ dashboard.Watchlist = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	symbol   TEXT PRIMARY KEY,
	added_at INTEGER NOT NULL
)`

// Store is a watchlist backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway list.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening watchlist %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating watchlist schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Symbols returns the watched symbols in the order they were added.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY added_at, symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing watchlist: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scanning watchlist: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// Toggle adds symbol if absent and removes it otherwise. It reports whether
// the symbol is now watched.
func (s *Store) Toggle(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, fmt.Errorf("toggling watchlist: empty symbol")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggling %s: %w", symbol, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return false, fmt.Errorf("removing %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing %s: %w", symbol, err)
	}
	added := n == 0
	if added {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlist (symbol, added_at) VALUES (?, ?)`,
			symbol, time.Now().UnixNano()); err != nil {
			return false, fmt.Errorf("adding %s: %w", symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggling %s: %w", symbol, err)
	}
	return added, nil
}
