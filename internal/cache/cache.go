// Package cache stores compiled bytecode.Program blobs keyed by source
// hash in a SQLite database, so repeated compiles of unchanged source
// skip lowering and emission entirely.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/rasp/internal/bytecode"
)

// ErrNotFound indicates no cached program exists for a given source hash.
var ErrNotFound = errors.New("cache: program not found")

// Cache is the SQLite-backed compiled-program cache. Opening a Cache
// creates its backing table if absent, mirroring the teacher's
// runtime.Persistence constructor.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		source_hash TEXT NOT NULL UNIQUE,
		program BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// HashSource returns the cache key for a source string.
func HashSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached Program for src's hash, or ErrNotFound if
// nothing has been stored for it yet.
func (c *Cache) Lookup(src string) (bytecode.Program, error) {
	hash := HashSource(src)

	var blob []byte
	err := c.db.QueryRow("SELECT program FROM programs WHERE source_hash = ?", hash).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bytecode.Program{}, ErrNotFound
		}
		return bytecode.Program{}, fmt.Errorf("cache: querying program: %w", err)
	}

	prog, err := bytecode.Unmarshal(blob)
	if err != nil {
		return bytecode.Program{}, fmt.Errorf("cache: decoding cached program: %w", err)
	}
	return prog, nil
}

// Store persists prog under src's hash, replacing any prior entry for the
// same source. Each stored row gets a fresh request id, which Store
// returns so a caller can correlate a compile with a log line.
func (c *Cache) Store(src string, prog bytecode.Program) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := bytecode.Marshal(prog)
	if err != nil {
		return "", fmt.Errorf("cache: encoding program: %w", err)
	}

	id := uuid.NewString()
	hash := HashSource(src)
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (id, source_hash, program) VALUES (?, ?, ?)",
		id, hash, blob,
	)
	if err != nil {
		return "", fmt.Errorf("cache: saving program: %w", err)
	}
	return id, nil
}

// Delete removes any cached entry for src.
func (c *Cache) Delete(src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec("DELETE FROM programs WHERE source_hash = ?", HashSource(src))
	if err != nil {
		return fmt.Errorf("cache: deleting program: %w", err)
	}
	return nil
}
