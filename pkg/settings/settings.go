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

// Package settings is a typed, read-only configuration facade for the
// engine. Keys and defaults mirror the historical Django settings module
// this project grew out of; unknown override keys are rejected.
package settings

import (
	"fmt"

	"github.com/kacheio/monocle/pkg/errs"
)

// Dimension is a width/height pair, in pixels.
type Dimension struct {
	Width  int
	Height int
}

// ResourceType enumerates the OEmbed resource types this engine understands.
type ResourceType string

const (
	ResourceTypeLink  ResourceType = "link"
	ResourceTypePhoto ResourceType = "photo"
	ResourceTypeRich  ResourceType = "rich"
	ResourceTypeVideo ResourceType = "video"
)

// ResourceTypes is the fixed set of valid OEmbed resource types. Not
// configurable.
var ResourceTypes = map[ResourceType]struct{}{
	ResourceTypeLink:  {},
	ResourceTypePhoto: {},
	ResourceTypeRich:  {},
	ResourceTypeVideo: {},
}

// RequiredAttrs lists the data attributes required for each resource type.
// Fixed by spec, not configurable.
var RequiredAttrs = map[ResourceType][]string{
	ResourceTypeLink:  {},
	ResourceTypePhoto: {"url", "width", "height"},
	ResourceTypeRich:  {"html", "width", "height"},
	ResourceTypeVideo: {"html", "width", "height"},
}

// OptionalAttrs is the fixed list of optional OEmbed data attributes,
// resolved on internal providers when present. Not configurable.
var OptionalAttrs = []string{
	"title",
	"author_name",
	"author_url",
	"cache_age",
	"provider_name",
	"provider_url",
	"thumbnail_url",
	"thumbnail_width",
	"thumbnail_height",
}

// Settings is the read-only configuration facade.
type Settings struct {
	ResourceCheckInternalSize bool
	ResourceDefaultDimensions []Dimension
	ResourceMinTTL            int
	ResourceDefaultTTL        int
	ResourceURLizeInvalid     bool

	CacheInternalProviders bool
	ExposeLocalProviders   bool

	HTTPTimeout int

	TaskQueue               string
	TaskExternalRetryDelay  int
	TaskExternalMaxRetries  int

	CacheKeyPrefix string
	CacheAge       int

	UserAgent string
}

// Defaults returns the built-in default settings.
func Defaults() *Settings {
	dims := make([]Dimension, 0, 9)
	for s := 100; s <= 900; s += 100 {
		dims = append(dims, Dimension{Width: s, Height: s})
	}
	return &Settings{
		ResourceCheckInternalSize: false,
		ResourceDefaultDimensions: dims,
		ResourceMinTTL:            3600,
		ResourceDefaultTTL:        604800,
		ResourceURLizeInvalid:     true,

		CacheInternalProviders: false,
		ExposeLocalProviders:   true,

		HTTPTimeout: 3,

		TaskQueue:              "monocle",
		TaskExternalRetryDelay: 1,
		TaskExternalMaxRetries: 3,

		CacheKeyPrefix: "MONOCLE",
		CacheAge:       2592000,

		UserAgent: "Mozilla/5.0",
	}
}

// overridable is the set of keys accepted by Override, mapped to setter
// functions. Keeping this as a table (rather than reflection) means an
// unknown key is rejected exactly once, in one place.
func (s *Settings) overridable() map[string]func(any) error {
	return map[string]func(any) error{
		"RESOURCE_CHECK_INTERNAL_SIZE": boolSetter(&s.ResourceCheckInternalSize),
		"RESOURCE_DEFAULT_DIMENSIONS":  dimensionsSetter(&s.ResourceDefaultDimensions),
		"RESOURCE_MIN_TTL":             intSetter(&s.ResourceMinTTL),
		"RESOURCE_DEFAULT_TTL":         intSetter(&s.ResourceDefaultTTL),
		"RESOURCE_URLIZE_INVALID":      boolSetter(&s.ResourceURLizeInvalid),
		"CACHE_INTERNAL_PROVIDERS":     boolSetter(&s.CacheInternalProviders),
		"EXPOSE_LOCAL_PROVIDERS":       boolSetter(&s.ExposeLocalProviders),
		"HTTP_TIMEOUT":                 intSetter(&s.HTTPTimeout),
		"TASK_QUEUE":                   stringSetter(&s.TaskQueue),
		"TASK_EXTERNAL_RETRY_DELAY":    intSetter(&s.TaskExternalRetryDelay),
		"TASK_EXTERNAL_MAX_RETRIES":    intSetter(&s.TaskExternalMaxRetries),
		"CACHE_KEY_PREFIX":             stringSetter(&s.CacheKeyPrefix),
		"CACHE_AGE":                    intSetter(&s.CacheAge),
		"USER_AGENT":                   stringSetter(&s.UserAgent),
	}
}

// Override applies raw key/value overrides on top of the defaults. Any key
// not in the fixed settings surface fails with ErrConfiguration.
func (s *Settings) Override(raw map[string]any) error {
	setters := s.overridable()
	for k, v := range raw {
		set, ok := setters[k]
		if !ok {
			return fmt.Errorf("%w: unknown setting %q", errs.ErrConfiguration, k)
		}
		if err := set(v); err != nil {
			return fmt.Errorf("%w: setting %q: %v", errs.ErrConfiguration, k, err)
		}
	}
	return nil
}

func boolSetter(dst *bool) func(any) error {
	return func(v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		*dst = b
		return nil
	}
}

func intSetter(dst *int) func(any) error {
	return func(v any) error {
		switch n := v.(type) {
		case int:
			*dst = n
		case int64:
			*dst = int(n)
		case float64:
			*dst = int(n)
		default:
			return fmt.Errorf("expected int, got %T", v)
		}
		return nil
	}
}

func stringSetter(dst *string) func(any) error {
	return func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		*dst = s
		return nil
	}
}

// dimensionsSetter parses RESOURCE_DEFAULT_DIMENSIONS from its YAML shape: a
// list of [width, height] pairs, e.g. [[100, 100], [200, 200]].
func dimensionsSetter(dst *[]Dimension) func(any) error {
	return func(v any) error {
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected a list of [width, height] pairs, got %T", v)
		}
		dims := make([]Dimension, 0, len(list))
		for _, item := range list {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return fmt.Errorf("expected a [width, height] pair, got %v", item)
			}
			w, wok := toDimInt(pair[0])
			h, hok := toDimInt(pair[1])
			if !wok || !hok {
				return fmt.Errorf("expected numeric width/height, got %v", pair)
			}
			dims = append(dims, Dimension{Width: w, Height: h})
		}
		*dst = dims
		return nil
	}
}

func toDimInt(v any) (int, bool) {
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
