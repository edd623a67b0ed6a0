// Package store provides a SQLite-backed cache for generated node summaries.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS summary_cache (
	node_id  TEXT NOT NULL,
	hash     TEXT NOT NULL,
	summary  TEXT NOT NULL,
	created  INTEGER NOT NULL,
	PRIMARY KEY (node_id, hash)
);

CREATE INDEX IF NOT EXISTS idx_summary_created ON summary_cache(created);
`

// Cache is a SQLite-backed summary cache. Entries are keyed by node ID plus
// a hash of the summarizer input so edits invalidate naturally.
type Cache struct {
	mu  sync.Mutex
	db  *sql.DB
	ttl time.Duration
}

// Open creates or opens a cache database at the given path.
// ttl controls how long entries remain fresh.
func Open(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// SQLite pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	c := &Cache{db: db, ttl: ttl}
	c.purgeStale()
	return c, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached summary for a node and input hash, or a miss when
// absent or stale. Safe to call on a nil receiver (returns miss).
func (c *Cache) Get(nodeID, hash string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl).Unix()
	var summary string
	err := c.db.QueryRow(
		"SELECT summary FROM summary_cache WHERE node_id = ? AND hash = ? AND created > ?",
		nodeID, hash, cutoff,
	).Scan(&summary)
	if err != nil {
		return "", false
	}
	return summary, true
}

// Put stores a summary, replacing any prior entry for the same node and
// hash. No-op on nil receiver.
func (c *Cache) Put(nodeID, hash, summary string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO summary_cache (node_id, hash, summary, created) VALUES (?, ?, ?, ?)",
		nodeID, hash, summary, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache summary for %s: %w", nodeID, err)
	}
	return nil
}

// purgeStale removes entries older than the TTL.
func (c *Cache) purgeStale() {
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.Exec("DELETE FROM summary_cache WHERE created <= ?", cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("failed to purge stale summary cache")
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Int64("deleted", n).Msg("purged stale summary cache entries")
	}
}
