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
	"net/url"
	"regexp"
	"strconv"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/utils/clock"
)

// BaseProvider is a third-party provider: resolving a Resource requires an
// out-of-process HTTP call, which this type never makes directly — it only
// primes/reads the cache and schedules the call onto a Refresher.
type BaseProvider struct {
	name         string
	apiEndpoint  string
	resourceType settings.ResourceType
	expose       bool
	schemeRe     *regexp.Regexp

	cache     *cache.Cache
	refresher Refresher
	settings  *settings.Settings
	clock     clock.TimeSource
}

// NewBaseProvider constructs an external Provider bound to a shared Cache
// and Refresher.
func NewBaseProvider(name, apiEndpoint string, resourceType settings.ResourceType, expose bool, schemes []string, c *cache.Cache, r Refresher, s *settings.Settings, ts clock.TimeSource) *BaseProvider {
	return &BaseProvider{
		name:         name,
		apiEndpoint:  apiEndpoint,
		resourceType: resourceType,
		expose:       expose,
		schemeRe:     compileSchemes(schemes),
		cache:        c,
		refresher:    r,
		settings:     s,
		clock:        ts,
	}
}

func (p *BaseProvider) Name() string     { return p.name }
func (p *BaseProvider) IsInternal() bool { return false }
func (p *BaseProvider) IsExposed() bool  { return p.expose }

// Match reports whether url is claimed by one of this provider's schemes.
func (p *BaseProvider) Match(u string) bool {
	return matchSchemes(p.schemeRe, u)
}

// GetResource implements the external-provider acquisition protocol of
// spec.md §4.3: build a canonical request URL, prime-or-read the cache, and
// on a fresh primer or a stale hit, enqueue exactly one refresh.
func (p *BaseProvider) GetResource(ctx context.Context, contentURL string, maxwidth, maxheight int) (*resource.Resource, error) {
	requestURL := p.requestURL(contentURL, maxwidth, maxheight)

	now := p.clock.Now()
	primer := resource.New(contentURL, now)
	cached, primed, err := p.cache.GetOrPrime(ctx, requestURL, primer)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		// GetOrPrime lost a race: Add reported the key already present, but
		// the follow-up Get missed it (evicted/expired in between). Treat
		// this the same as a fresh miss.
		cached, primed = primer, true
	}

	if primed || cached.IsStale(p.settings, p.clock) {
		if !primed {
			// First stale observer re-dates the entry so concurrent
			// observers see it as fresh and don't also enqueue (spec.md §5).
			cached.Refresh(now)
			if err := p.cache.Set(requestURL, cached); err != nil {
				return nil, err
			}
		}
		p.refresher.Schedule(requestURL)
	}

	return cached, nil
}

// requestURL builds api_endpoint?canonical_urlencode(params). Canonical
// encoding (stable key ordering) is what makes the result usable as a cache
// key; url.Values.Encode already sorts by key.
func (p *BaseProvider) requestURL(contentURL string, maxwidth, maxheight int) string {
	params := url.Values{}
	params.Set("url", contentURL)
	params.Set("format", "json")
	if maxwidth > 0 {
		params.Set("maxwidth", strconv.Itoa(maxwidth))
	}
	if maxheight > 0 {
		params.Set("maxheight", strconv.Itoa(maxheight))
	}
	return p.apiEndpoint + "?" + params.Encode()
}
