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

// Package consumer locates URLs inside text or HTML content and replaces
// them with rendered OEmbed resources, via the Registry/Provider path.
package consumer

import (
	"context"
	"regexp"
	"strings"

	"github.com/kacheio/monocle/pkg/provider"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
	"github.com/rs/zerolog/log"
)

// urlPattern is the exact URL-extraction regex from the oembed field-hook
// implementation this engine grew out of; it intentionally differs from a
// "proper" URL grammar (ground: spec.md §4.7).
var urlPattern = regexp.MustCompile(`(?i)https?://[-A-Za-z0-9+&@#/%?=~_()|!:,.;]*[-A-Za-z0-9+&@#/%=~_|]`)

// Consumer enriches content by substituting matched URLs with rendered
// OEmbed resources.
type Consumer struct {
	registry     *provider.Registry
	settings     *settings.Settings
	bus          *signals.Bus
	skipInternal bool
}

// New constructs a Consumer, ensuring the registry's external providers are
// populated exactly once (ground: spec.md §4.7's Consumer(skip_internal)
// construction-time ensure_populated call).
func New(ctx context.Context, reg *provider.Registry, s *settings.Settings, bus *signals.Bus, skipInternal bool) *Consumer {
	reg.EnsurePopulated(ctx)
	return &Consumer{registry: reg, settings: s, bus: bus, skipInternal: skipInternal}
}

// Enrich extracts URLs from content in first-occurrence order and replaces
// every occurrence of each matched URL with its rendered Resource.
// Provider failures are logged and the URL is left unreplaced.
func (c *Consumer) Enrich(ctx context.Context, content string, maxwidth, maxheight int) string {
	c.emit(signals.PreConsume{})
	defer c.emit(signals.PostConsume{})

	for _, u := range firstOccurrences(urlPattern.FindAllString(content, -1)) {
		p := c.registry.Match(ctx, u)
		if p == nil {
			continue
		}
		if p.IsInternal() && c.skipInternal && !c.settings.CacheInternalProviders {
			continue
		}

		r, err := p.GetResource(ctx, u, maxwidth, maxheight)
		if err != nil {
			log.Debug().Err(err).Str("url", u).Msg("consumer: failed to resolve resource")
			continue
		}
		if r == nil {
			continue
		}

		rendered, err := r.Render(c.settings)
		if err != nil {
			log.Debug().Err(err).Str("url", u).Msg("consumer: failed to render resource")
			continue
		}
		content = strings.ReplaceAll(content, u, string(rendered))
	}

	return content
}

func firstOccurrences(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (c *Consumer) emit(event any) {
	if c.bus != nil {
		c.bus.Emit(event)
	}
}
