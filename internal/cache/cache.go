// Package cache provides a TTL'd search-result cache backed by Badger.
// It keeps repeated searches from re-hitting flaky upstreams while a user
// pages around the store UI.
package cache

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
)

// resultsPrefix namespaces search-result keys.
const resultsPrefix = "results:"

// ResultCache caches merged search results keyed by the full query shape.
type ResultCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// New opens a Badger-backed cache at the given path.
func New(path string, ttl time.Duration, logger *slog.Logger) (*ResultCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	if logger != nil {
		logger.Info("result cache opened", "path", path, "ttl", ttl)
	}

	return &ResultCache{db: db, ttl: ttl, logger: logger}, nil
}

// Close gracefully closes the cache database.
func (c *ResultCache) Close() error {
	return c.db.Close()
}

// Key builds the cache key for one search shape.
func Key(query string, formats []string, page int, toggles domain.SourceToggles) string {
	return fmt.Sprintf("%s%s|%s|%d|%t|%t",
		resultsPrefix,
		strings.ToLower(strings.TrimSpace(query)),
		strings.Join(formats, ","),
		page,
		toggles.Dbooks,
		toggles.Libgen,
	)
}

// Get returns the cached records for a key, or ok=false on miss or expiry.
func (c *ResultCache) Get(key string) ([]domain.BookRecord, bool) {
	var records []domain.BookRecord

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &records)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) && c.logger != nil {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	return records, true
}

// Set stores records under a key with the cache TTL.
func (c *ResultCache) Set(key string, records []domain.BookRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("cache encode failed", "key", key, "error", err)
		}
		return
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Purge drops every cached result.
func (c *ResultCache) Purge() error {
	return c.db.DropAll()
}
