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
	"regexp"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/errs"
	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/utils/clock"
	"github.com/rs/zerolog/log"
)

// DataSource is the capability contract a domain-specific object resolved
// by GetObject must satisfy: a named accessor covering every OEmbed
// attribute (width, height, html, title, url, author_name, ...). ok is
// false when the attribute has no value for this instance (ground: spec.md
// design note §9, replacing the original's reflection-based
// `getattr`/`callable` dispatch with a single typed accessor).
type DataSource interface {
	Attr(name string) (any, bool)
}

// GetObjectFunc resolves a content URL into a DataSource, or (nil, false)
// if this provider has nothing to say about it.
type GetObjectFunc func(contentURL string) (DataSource, bool)

// InternalFactory is a Provider requiring no network I/O: resolving a URL
// produces a DataSource locally, which is then assembled into OEmbed data
// by buildResource (ground: spec.md §4.4 / original providers.py's
// InternalProvider).
type InternalFactory struct {
	name         string
	resourceType settings.ResourceType
	expose       bool
	schemeRe     *regexp.Regexp
	dimensions   []settings.Dimension

	getObject GetObjectFunc

	cache    *cache.Cache
	settings *settings.Settings
	clock    clock.TimeSource
}

// NewInternalFactory constructs an internal Provider. dimensions, if nil,
// falls back to settings.ResourceDefaultDimensions.
func NewInternalFactory(name string, resourceType settings.ResourceType, expose bool, schemes []string, dimensions []settings.Dimension, getObject GetObjectFunc, c *cache.Cache, s *settings.Settings, ts clock.TimeSource) *InternalFactory {
	if dimensions == nil {
		dimensions = s.ResourceDefaultDimensions
	}
	return &InternalFactory{
		name:         name,
		resourceType: resourceType,
		expose:       expose,
		schemeRe:     compileSchemes(schemes),
		dimensions:   dimensions,
		getObject:    getObject,
		cache:        c,
		settings:     s,
		clock:        ts,
	}
}

func (f *InternalFactory) Name() string     { return f.name }
func (f *InternalFactory) IsInternal() bool { return true }
func (f *InternalFactory) IsExposed() bool  { return f.expose }

// Match reports whether url is claimed by one of this factory's schemes.
// Patterns are class-level, as in the original's classmethod override.
func (f *InternalFactory) Match(url string) bool {
	return matchSchemes(f.schemeRe, url)
}

// GetObject resolves url to a DataSource, or reports no match.
func (f *InternalFactory) GetObject(contentURL string) (DataSource, bool) {
	if f.getObject == nil {
		return nil, false
	}
	return f.getObject(contentURL)
}

// GetResource implements spec.md §4.4: without CACHE_INTERNAL_PROVIDERS,
// build synchronously every time; with it enabled, prime-or-read an
// INTERNAL:<url> cache key and rebuild only on miss or stale hit, exactly
// as the external flow re-dates on the first stale observer.
func (f *InternalFactory) GetResource(ctx context.Context, contentURL string, maxwidth, maxheight int) (*resource.Resource, error) {
	if !f.settings.CacheInternalProviders {
		obj, ok := f.GetObject(contentURL)
		if !ok {
			return nil, fmt.Errorf("%w: internal provider %q has no object for %q", errs.ErrNoMatchingProvider, f.name, contentURL)
		}
		return f.buildResource(contentURL, obj, maxwidth, maxheight)
	}

	key := "INTERNAL:" + contentURL
	now := f.clock.Now()
	primer := resource.New(contentURL, now)
	cached, primed, err := f.cache.GetOrPrime(ctx, key, primer)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		// GetOrPrime lost a race: Add reported the key already present, but
		// the follow-up Get missed it (evicted/expired in between). Treat
		// this the same as a fresh miss.
		cached, primed = primer, true
	}
	if !primed && !cached.IsStale(f.settings, f.clock) {
		return cached, nil
	}
	if !primed {
		cached.Refresh(now)
		if err := f.cache.Set(key, cached); err != nil {
			return nil, err
		}
	}

	obj, ok := f.GetObject(contentURL)
	if !ok {
		return nil, fmt.Errorf("%w: internal provider %q has no object for %q", errs.ErrNoMatchingProvider, f.name, contentURL)
	}
	built, err := f.buildResource(contentURL, obj, maxwidth, maxheight)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(key, built); err != nil {
		return nil, err
	}
	return built, nil
}

// buildResource assembles the OEmbed data map from obj's attributes
// (ground: original providers.py's _build_resource).
func (f *InternalFactory) buildResource(contentURL string, obj DataSource, maxwidth, maxheight int) (*resource.Resource, error) {
	data := map[string]any{
		"type":    string(f.resourceType),
		"version": "1.0",
	}

	for _, attr := range settings.RequiredAttrs[f.resourceType] {
		v, ok := obj.Attr(attr)
		if !ok {
			return nil, fmt.Errorf("%w: internal provider %q missing required attribute %q", errs.ErrNotImplemented, f.name, attr)
		}
		data[attr] = v
	}

	for _, attr := range settings.OptionalAttrs {
		if v, ok := obj.Attr(attr); ok && v != nil {
			data[attr] = v
		}
	}

	if f.settings.ResourceCheckInternalSize {
		f.warnIfOversized(data, "width", "height", maxwidth, maxheight, "Resource size exceeds allowable dimensions")
		f.warnIfOversized(data, "thumbnail_width", "thumbnail_height", maxwidth, maxheight, "Thumbnail size exceeds allowable dimensions")
	}

	return resource.NewWithData(contentURL, data, f.clock.Now()), nil
}

// warnIfOversized logs a warning when the nearest allowed size for
// (widthKey, heightKey) is strictly smaller than the values already in
// data, mirroring original providers.py's _check_dimension.
func (f *InternalFactory) warnIfOversized(data map[string]any, widthKey, heightKey string, maxwidth, maxheight int, message string) {
	w, wok := toInt(data[widthKey])
	h, hok := toInt(data[heightKey])
	if !wok || !hok {
		return
	}
	nw, nh := NearestAllowedSize(w, h, maxwidth, maxheight, f.dimensions)
	if nw < w || nh < h {
		log.Warn().Str("provider", f.name).Int("width", w).Int("height", h).
			Int("allowed_width", nw).Int("allowed_height", nh).Msg(message)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
