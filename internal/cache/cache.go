// Package cache keeps recent market quotes in SQLite so repeated rankings do
// not re-query the quote provider for every ticker.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bighogz/insider-signal/internal/models"
)

const DefaultMaxAge = 24 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	ticker        TEXT PRIMARY KEY,
	market_cap    REAL,
	current_price REAL,
	cached_at     INTEGER NOT NULL
)`

// Store is a quote cache backed by a single SQLite file.
type Store struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// Open creates the database file (and its directory) if needed.
func Open(path string, maxAge time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open quote cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init quote cache: %w", err)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{db: db, maxAge: maxAge, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns a cached quote younger than the store's max age.
func (s *Store) Get(ctx context.Context, ticker string) (models.Quote, bool, error) {
	var (
		mcap, price sql.NullFloat64
		cachedAt    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT market_cap, current_price, cached_at FROM quotes WHERE ticker = ?`,
		normalize(ticker)).Scan(&mcap, &price, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, false, nil
	}
	if err != nil {
		return models.Quote{}, false, fmt.Errorf("read cached quote %s: %w", ticker, err)
	}
	if s.now().Sub(time.Unix(cachedAt, 0)) > s.maxAge {
		return models.Quote{}, false, nil
	}
	q := models.Quote{Ticker: normalize(ticker)}
	if mcap.Valid {
		q.MarketCap = &mcap.Float64
	}
	if price.Valid {
		q.CurrentPrice = &price.Float64
	}
	return q, true, nil
}

// Put stores or replaces the quote for its ticker.
func (s *Store) Put(ctx context.Context, q models.Quote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (ticker, market_cap, current_price, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET market_cap = excluded.market_cap,
		   current_price = excluded.current_price, cached_at = excluded.cached_at`,
		normalize(q.Ticker), nullable(q.MarketCap), nullable(q.CurrentPrice), s.now().Unix())
	if err != nil {
		return fmt.Errorf("write cached quote %s: %w", q.Ticker, err)
	}
	return nil
}

// Purge deletes entries older than the max age and returns how many went.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge quote cache: %w", err)
	}
	return res.RowsAffected()
}

func normalize(t string) string { return strings.ToUpper(strings.TrimSpace(t)) }

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
