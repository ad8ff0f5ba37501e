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

// Package provider matches URLs to the Provider responsible for them and
// resolves them into OEmbed Resources, either by calling out to a third
// party (BaseProvider) or by computing the answer locally (InternalFactory).
package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
)

// Refresher schedules an asynchronous refresh of the resource cached under
// requestURL. task.Queue satisfies this structurally.
type Refresher interface {
	Schedule(requestURL string)
}

// Provider resolves URLs matching one or more wildcard schemes into OEmbed
// Resources.
type Provider interface {
	// Match reports whether url is claimed by one of this provider's
	// url_schemes.
	Match(url string) bool

	// GetResource resolves url into a Resource. maxwidth/maxheight of 0
	// mean "no maximum".
	GetResource(ctx context.Context, url string, maxwidth, maxheight int) (*resource.Resource, error)

	// IsInternal reports whether this provider requires no network I/O.
	IsInternal() bool

	// IsExposed reports whether this provider may be returned through the
	// public OEmbed endpoint.
	IsExposed() bool

	// Name identifies the provider for registry bookkeeping and logging.
	Name() string
}

// compileSchemes builds a single case-insensitive, start-anchored pattern
// from a list of wildcard url_schemes (ground: spec.md §4.3 / original
// providers.py's `url_scheme.replace('*', '.*?')`): '.' is escaped to a
// literal, '*' becomes a non-greedy any-run. An empty scheme list matches
// nothing.
func compileSchemes(schemes []string) *regexp.Regexp {
	if len(schemes) == 0 {
		return nil
	}
	parts := make([]string, 0, len(schemes))
	for _, s := range schemes {
		parts = append(parts, wildcardToRegex(s))
	}
	pattern := "(?i)^(?:" + strings.Join(parts, "|") + ")"
	return regexp.MustCompile(pattern)
}

// wildcardToRegex escapes '.', then splits on '*' and rejoins with a
// non-greedy any-run so that no stray regex metacharacter sneaks in from
// the scheme string itself.
func wildcardToRegex(scheme string) string {
	segments := strings.Split(scheme, "*")
	for i, seg := range segments {
		segments[i] = regexp.QuoteMeta(seg)
	}
	return strings.Join(segments, ".*?")
}

func matchSchemes(re *regexp.Regexp, url string) bool {
	if re == nil {
		return false
	}
	return re.MatchString(url)
}

// NearestAllowedSize returns the largest configured Dimension that fits
// within the cap formed by (w, h) and the optional (maxw, maxh), or the cap
// itself if none qualify (ground: spec.md §4.3 / original providers.py's
// nearest_allowed_size).
func NearestAllowedSize(w, h, maxw, maxh int, dims []settings.Dimension) (int, int) {
	capW, capH := w, h
	if maxw > 0 && maxw < capW {
		capW = maxw
	}
	if maxh > 0 && maxh < capH {
		capH = maxh
	}

	bestW, bestH := -1, -1
	for _, d := range dims {
		if d.Width <= capW && d.Height <= capH {
			if d.Width > bestW || (d.Width == bestW && d.Height > bestH) {
				bestW, bestH = d.Width, d.Height
			}
		}
	}
	if bestW < 0 {
		return capW, capH
	}
	return bestW, bestH
}
