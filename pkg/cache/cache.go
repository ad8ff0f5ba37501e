// MIT License
//
// Copyright (c) 2023 kache.io
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package cache is a keyed, prefixed, TTL-bounded view onto a shared
// store.Provider, implementing the prime-or-return anti-stampede protocol
// providers use to acquire resources.
package cache

import (
	"context"
	"strings"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
	"github.com/kacheio/monocle/pkg/store"
)

// Cache is a thin wrapper over a store.Provider, scoping every key under
// CACHE_KEY_PREFIX and every write under CACHE_AGE.
type Cache struct {
	backend  store.Provider
	settings *settings.Settings
	bus      *signals.Bus
}

// New creates a Cache backed by backend, scoped by settings.
func New(backend store.Provider, s *settings.Settings, bus *signals.Bus) *Cache {
	return &Cache{backend: backend, settings: s, bus: bus}
}

// Key builds the prefixed cache key from its parts, joined with ":".
func (c *Cache) Key(parts ...string) string {
	return c.settings.CacheKeyPrefix + ":" + strings.Join(parts, ":")
}

// HashKey produces a stable, fixed-width hash of a key for use in
// debug/metrics labels where the full key would be unwieldy.
func HashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// GetOrPrime atomically inserts primer under key if absent. If the insert
// happens, it returns (primer, true) and emits CacheMiss; otherwise it
// returns the stored value and false, and emits CacheHit.
func (c *Cache) GetOrPrime(ctx context.Context, key string, primer *resource.Resource) (*resource.Resource, bool, error) {
	full := c.Key(key)
	ttl := time.Duration(c.settings.CacheAge) * time.Second

	encoded, err := resource.Encode(primer)
	if err != nil {
		return nil, false, err
	}

	primed, err := c.backend.Add(ctx, full, encoded, ttl)
	if err != nil {
		return nil, false, err
	}
	if primed {
		c.emit(signals.CacheMiss{Key: key})
		return primer, true, nil
	}

	c.emit(signals.CacheHit{Key: key})
	raw := c.backend.Get(ctx, full)
	if raw == nil {
		return nil, false, nil
	}
	cached, err := resource.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return cached, false, nil
}

// Get returns the Resource stored under key, or nil if absent.
func (c *Cache) Get(ctx context.Context, key string) (*resource.Resource, error) {
	raw := c.backend.Get(ctx, c.Key(key))
	if raw == nil {
		c.emit(signals.CacheMiss{Key: key})
		return nil, nil
	}
	return resource.Decode(raw)
}

// Set unconditionally writes r under key with TTL=CACHE_AGE.
func (c *Cache) Set(key string, r *resource.Resource) error {
	encoded, err := resource.Encode(r)
	if err != nil {
		return err
	}
	ttl := time.Duration(c.settings.CacheAge) * time.Second
	c.backend.Set(c.Key(key), encoded, ttl)
	return nil
}

// Delete removes the entry stored under key.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	return c.backend.Delete(ctx, c.Key(key))
}

func (c *Cache) emit(event any) {
	if c.bus != nil {
		c.bus.Emit(event)
	}
}
