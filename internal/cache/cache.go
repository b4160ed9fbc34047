// Package cache keeps downloaded simulation outputs in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/malcamp/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key returns the cache key of an output file of a simulation.
func Key(simulationID, path string) string {
	hash := sha256.Sum256([]byte(simulationID + "\x00" + path))
	return "malcamp:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled cache stores nothing.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// GetOrLoad returns the cached value for key, calling load and storing its
// result on a miss. Failed loads are not cached.
func GetOrLoad(c Cache, key string, ttl time.Duration, load func() ([]byte, error)) ([]byte, bool, error) {
	if val, ok := c.Get(key); ok {
		return val, true, nil
	}
	val, err := load()
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(key, val, ttl); err != nil {
		return val, false, err
	}
	return val, false, nil
}

// Nop is a cache that never stores anything.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
