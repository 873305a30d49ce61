// Package cache persists successful climate results on disk, keyed by the
// request hash, so identical requests are answered without network I/O.
package cache

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/peterbourgon/diskv"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/hash"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/wire"
)

const tempDirName = ".tmp"

// DiskCache stores wire-encoded results in hash-named files, sharded into
// two-character directories, with an optional in-memory LRU front.
type DiskCache struct {
	dir     string
	store   *diskv.Diskv
	memory  *lru.Cache[string, domain.Result]
	logger  *slog.Logger
	metrics *observability.Metrics

	// mu serializes ClearAll against writers in this process. Concurrent
	// processes share the directory safely because writes replace whole files.
	mu sync.RWMutex
}

// NewDiskCache opens (creating if needed) a cache rooted at dir. A
// memEntries of zero disables the memory front.
func NewDiskCache(dir string, memEntries int, logger *slog.Logger, metrics *observability.Metrics) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &DiskCache{
		dir: dir,
		store: diskv.New(diskv.Options{
			BasePath:     dir,
			TempDir:      filepath.Join(dir, tempDirName),
			Transform:    shard,
			CacheSizeMax: 0,
		}),
		logger:  logger,
		metrics: metrics,
	}

	if memEntries > 0 {
		mem, err := lru.New[string, domain.Result](memEntries)
		if err != nil {
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
		c.memory = mem
	}
	return c, nil
}

// shard places each entry under a directory named by its first two characters.
func shard(key string) []string {
	if len(key) < 2 {
		return []string{}
	}
	return []string{key[:2]}
}

// Get returns the cached result for a request hash. Read and decode
// failures are logged and reported as a miss.
func (c *DiskCache) Get(key string) (domain.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.memory != nil {
		if res, ok := c.memory.Get(key); ok {
			c.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return res, true
		}
	}

	if !c.store.Has(key) {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.Result{}, false
	}

	body, err := c.store.Read(key)
	if err != nil {
		c.logger.Warn("cache read failed", "request_hash", key, "error", err)
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		return domain.Result{}, false
	}

	res, err := wire.DecodeResult(body)
	if err != nil {
		c.logger.Warn("discarding corrupt cache entry", "request_hash", key, "error", err)
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		if err := c.store.Erase(key); err != nil {
			c.logger.Warn("cache erase failed", "request_hash", key, "error", err)
		}
		return domain.Result{}, false
	}

	if c.memory != nil {
		c.memory.Add(key, res)
	}
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return res, true
}

// Add stores a result under the hash of its request. Storing the same
// result twice leaves the cache unchanged.
func (c *DiskCache) Add(res domain.Result) error {
	body, err := wire.EncodeResult(res)
	if err != nil {
		c.metrics.CacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	key := hash.Request(res.Request)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Write(key, body); err != nil {
		c.metrics.CacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if c.memory != nil {
		c.memory.Add(key, res)
	}
	c.metrics.CacheWrites.WithLabelValues("success").Inc()
	c.logger.Debug("cached result", "request_hash", key, "cells", res.Request.Len())
	return nil
}

// ClearAll removes every entry from disk and memory.
func (c *DiskCache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.memory != nil {
		c.memory.Purge()
	}
	if err := c.store.EraseAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	// EraseAll removes the base directory; recreate it so later writes succeed.
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("recreate cache dir: %w", err)
	}
	c.logger.Info("cache cleared", "dir", c.dir)
	return nil
}

// Stats reports the number of stored entries and their total size in bytes.
func (c *DiskCache) Stats() (entries int, size uint64, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	err = filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == tempDirName {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries++
		size += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("scan cache dir: %w", err)
	}
	return entries, size, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }
