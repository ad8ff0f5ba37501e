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

// Package resource holds the OEmbed Resource value object: its freshness
// model, validation rules, and rendering.
package resource

import (
	"html/template"
	"strconv"
	"time"

	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/utils/clock"
)

// Resource is an OEmbed response plus cache metadata.
type Resource struct {
	// URL is the original content URL this resource was resolved from.
	URL string

	// Data holds the raw OEmbed fields (type, version, width, height, html, ...).
	Data map[string]any

	// CreatedAt is the time this resource's data was last refreshed.
	CreatedAt time.Time
}

// New creates an empty placeholder Resource for url, dated now.
func New(url string, now time.Time) *Resource {
	return &Resource{URL: url, Data: map[string]any{}, CreatedAt: now}
}

// NewWithData creates a populated Resource.
func NewWithData(url string, data map[string]any, now time.Time) *Resource {
	if data == nil {
		data = map[string]any{}
	}
	return &Resource{URL: url, Data: data, CreatedAt: now}
}

// TTL returns the resource's time-to-live, derived from data["cache_age"]
// and clamped to settings.ResourceMinTTL. Falls back to
// settings.ResourceDefaultTTL when cache_age is absent or not an integer.
func (r *Resource) TTL(s *settings.Settings) time.Duration {
	age := s.ResourceDefaultTTL
	if v, ok := r.Data["cache_age"]; ok {
		if n, ok := toInt(v); ok {
			age = n
		}
	}
	if age < s.ResourceMinTTL {
		age = s.ResourceMinTTL
	}
	return time.Duration(age) * time.Second
}

// IsStale reports whether the resource's age, measured with ts, exceeds
// its TTL.
func (r *Resource) IsStale(s *settings.Settings, ts clock.TimeSource) bool {
	return ts.Since(r.CreatedAt) > r.TTL(s)
}

// Refresh re-dates the resource to now, without touching its data. Used by
// the stale-observer race guard in the provider's get_resource protocol.
func (r *Resource) Refresh(now time.Time) {
	r.CreatedAt = now
}

// IsValid reports whether Data is non-empty, names a recognized resource
// type, and carries every attribute required for that type.
func (r *Resource) IsValid() bool {
	if len(r.Data) == 0 {
		return false
	}
	rt, ok := r.Data["type"].(string)
	if !ok {
		return false
	}
	if _, ok := settings.ResourceTypes[settings.ResourceType(rt)]; !ok {
		return false
	}
	for _, attr := range settings.RequiredAttrs[settings.ResourceType(rt)] {
		if _, present := r.Data[attr]; !present {
			return false
		}
	}
	return true
}

// JSON renders the OEmbed payload as exposed through the public endpoint:
// the Data fields only, dropping falsy values (ground: original
// resources.py's json property, {k: v for k, v in self._data.items() if v}).
// Data's own "url" attribute (e.g. a photo's image URL) is authoritative and
// must not be overwritten with the resource's content URL.
func (r *Resource) JSON() map[string]any {
	out := make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		if isFalsy(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

// Render produces the rendered embed for this resource, per spec: valid
// resources render the template named for their type; invalid ones render
// the link template (urlizing) or the bare URL.
func (r *Resource) Render(s *settings.Settings) (template.HTML, error) {
	if !r.IsValid() {
		if s.ResourceURLizeInvalid {
			return renderTemplate("link", map[string]any{"URL": r.URL, "Resource": r})
		}
		return template.HTML(template.HTMLEscapeString(r.URL)), nil
	}
	rt, _ := r.Data["type"].(string)
	return renderTemplate(rt, map[string]any{"URL": r.URL, "Resource": r})
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
