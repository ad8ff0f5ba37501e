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

package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/configstore"
	"github.com/kacheio/monocle/pkg/errs"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
	"github.com/kacheio/monocle/pkg/utils/clock"
	"github.com/rs/zerolog/log"
)

// Registry is the process-wide, two-bucket provider lookup: internal
// providers are registered explicitly at startup; external providers are
// populated lazily from a configstore.Store and kept live by its change
// notifications (ground: spec.md §4.5 / original providers.py's
// ProviderRegistry).
type Registry struct {
	mu sync.RWMutex

	internal []Provider
	external []Provider

	populated bool
	store     configstore.Store

	cache     *cache.Cache
	refresher Refresher
	settings  *settings.Settings
	clock     clock.TimeSource

	bus *signals.Bus
}

// NewRegistry creates an empty Registry. store may be nil, in which case
// ensurePopulated is a permanent no-op and only explicitly registered
// providers are ever matched.
func NewRegistry(store configstore.Store, c *cache.Cache, r Refresher, s *settings.Settings, ts clock.TimeSource, bus *signals.Bus) *Registry {
	return &Registry{
		store:     store,
		cache:     c,
		refresher: r,
		settings:  s,
		clock:     ts,
		bus:       bus,
	}
}

// RegisterInternal appends an internal factory at startup.
func (reg *Registry) RegisterInternal(p *InternalFactory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.internal = append(reg.internal, p)
}

// Register appends a Provider to the bucket matching its IsInternal(). nil
// fails with ErrInvalidProvider.
func (reg *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("%w: nil provider", errs.ErrInvalidProvider)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.append(p)
	reg.emit(signals.ProviderUpserted{Name: p.Name()})
	return nil
}

// Update replaces the provider with p's name in the appropriate bucket, or
// appends it if not already present.
func (reg *Registry) Update(p Provider) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	bucket := reg.bucketFor(p)
	for i, existing := range *bucket {
		if existing.Name() == p.Name() {
			(*bucket)[i] = p
			reg.emit(signals.ProviderUpserted{Name: p.Name()})
			return
		}
	}
	reg.append(p)
	reg.emit(signals.ProviderUpserted{Name: p.Name()})
}

// Unregister removes the provider named p.Name() from the appropriate
// bucket. Missing is a no-op.
func (reg *Registry) Unregister(p Provider) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	bucket := reg.bucketFor(p)
	for i, existing := range *bucket {
		if existing.Name() == p.Name() {
			*bucket = append((*bucket)[:i], (*bucket)[i+1:]...)
			reg.emit(signals.ProviderRemoved{Name: p.Name()})
			return
		}
	}
}

func (reg *Registry) bucketFor(p Provider) *[]Provider {
	if p.IsInternal() {
		return &reg.internal
	}
	return &reg.external
}

func (reg *Registry) append(p Provider) {
	if p.IsInternal() {
		reg.internal = append(reg.internal, p)
	} else {
		reg.external = append(reg.external, p)
	}
}

// EnsurePopulated loads the external-provider bucket if it hasn't been yet.
// Exported so a Consumer can trigger population at construction time.
func (reg *Registry) EnsurePopulated(ctx context.Context) {
	reg.ensurePopulated(ctx)
}

// ensurePopulated loads every persisted external provider once per
// process. Idempotent and safe to call repeatedly; a configuration-store
// error leaves external empty and is logged, not surfaced.
func (reg *Registry) ensurePopulated(ctx context.Context) {
	reg.mu.RLock()
	done := reg.populated || reg.store == nil
	reg.mu.RUnlock()
	if done {
		return
	}

	records, err := reg.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("provider registry: configuration store unreachable, leaving external providers empty")
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.populated {
		return
	}
	for _, rec := range records {
		reg.external = append(reg.external, reg.fromRecord(rec))
	}
	reg.populated = true
}

func (reg *Registry) fromRecord(rec configstore.Record) Provider {
	return NewBaseProvider(rec.Name, rec.APIEndpoint, settings.ResourceType(rec.ResourceType), rec.Expose, rec.URLSchemes, reg.cache, reg.refresher, reg.settings, reg.clock)
}

// Listen consumes store change events, translating Upsert/Remove into
// Update/Unregister, until ctx is done. Call once, in its own goroutine.
func (reg *Registry) Listen(ctx context.Context) {
	if reg.store == nil {
		return
	}
	changes := reg.store.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-changes:
			if !ok {
				return
			}
			switch ev.Kind {
			case configstore.EventUpsert:
				reg.Update(reg.fromRecord(ev.Record))
			case configstore.EventRemove:
				reg.Unregister(reg.fromRecord(ev.Record))
			}
		}
	}
}

// Match scans internal providers first, then external, returning the first
// whose scheme matches url. An internal factory whose GetObject fails for
// url is treated as no match and scanning continues within the same bucket
// (spec.md §4.5).
func (reg *Registry) Match(ctx context.Context, url string) Provider {
	reg.ensurePopulated(ctx)

	reg.mu.RLock()
	internal := append([]Provider(nil), reg.internal...)
	external := append([]Provider(nil), reg.external...)
	reg.mu.RUnlock()

	if p := matchBucket(internal, url); p != nil {
		return p
	}
	return matchBucket(external, url)
}

func matchBucket(bucket []Provider, url string) Provider {
	for _, p := range bucket {
		if !p.Match(url) {
			continue
		}
		if f, ok := p.(*InternalFactory); ok {
			if _, ok := f.GetObject(url); !ok {
				continue
			}
		}
		return p
	}
	return nil
}

func (reg *Registry) emit(event any) {
	if reg.bus != nil {
		reg.bus.Emit(event)
	}
}
