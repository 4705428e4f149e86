// Package sqlite provides a SQLite-backed implementation of the similarity cache port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/ports"
)

// Adapter implements the similarity cache port for SQLite
type Adapter struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ ports.SimilarityCache = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration. Entries older than
// ttl are treated as misses; a zero ttl keeps them forever.
func NewAdapter(storagePath string, ttl time.Duration) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single shared database.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db, ttl: ttl, now: time.Now}

	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Get returns the cached lookup for artistName, matched case-insensitively.
func (a *Adapter) Get(ctx context.Context, artistName string) ([]domain.SimilarArtist, bool, error) {
	key := domain.NameKey(artistName)
	if key == "" {
		return nil, false, nil
	}

	var payload []byte
	var fetchedAt int64
	row := a.db.QueryRowContext(ctx, "SELECT payload, fetched_at FROM similarity_cache WHERE artist_key = ?", key)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load cached lookup: %w", err)
	}

	if a.ttl > 0 && a.now().Sub(time.Unix(fetchedAt, 0)) > a.ttl {
		return nil, false, nil
	}

	var similar []domain.SimilarArtist
	if err := json.Unmarshal(payload, &similar); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached lookup: %w", err)
	}
	return similar, true, nil
}

// Set upserts the lookup result for artistName and resets its age.
func (a *Adapter) Set(ctx context.Context, artistName string, similar []domain.SimilarArtist) error {
	key := domain.NameKey(artistName)
	if key == "" {
		return nil
	}
	if similar == nil {
		similar = []domain.SimilarArtist{}
	}

	payload, err := json.Marshal(similar)
	if err != nil {
		return fmt.Errorf("failed to encode lookup: %w", err)
	}

	query := `
		INSERT INTO similarity_cache (artist_key, artist_name, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(artist_key) DO UPDATE SET
			artist_name=excluded.artist_name,
			payload=excluded.payload,
			fetched_at=excluded.fetched_at;
	`
	if _, err := a.db.ExecContext(ctx, query, key, artistName, payload, a.now().Unix()); err != nil {
		return fmt.Errorf("failed to save lookup for %q: %w", artistName, err)
	}
	return nil
}

// PurgeExpired deletes entries older than the ttl and reports how many were removed.
func (a *Adapter) PurgeExpired(ctx context.Context) (int64, error) {
	if a.ttl <= 0 {
		return 0, nil
	}
	cutoff := a.now().Add(-a.ttl).Unix()
	res, err := a.db.ExecContext(ctx, "DELETE FROM similarity_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired lookups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged lookups: %w", err)
	}
	return n, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS similarity_cache (
		artist_key TEXT PRIMARY KEY,
		artist_name TEXT NOT NULL,
		payload BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_similarity_cache_fetched_at ON similarity_cache(fetched_at);
	`
	_, err := a.db.Exec(query)
	return err
}
