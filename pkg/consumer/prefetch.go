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

package consumer

import (
	"context"

	"github.com/kacheio/monocle/pkg/provider"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
)

// Size is one entry of a prefetch size matrix. A Pair entry invokes the
// consumer with the literal (Width, Height) bound; a non-Pair entry with
// Width=N expands to three invocations: (N,0), (0,N), (N,N), where 0 means
// "no maximum" (ground: spec.md §4.9).
type Size struct {
	Width  int
	Height int
	Pair   bool
}

// PairSize builds a literal (w, h) prefetch entry.
func PairSize(w, h int) Size { return Size{Width: w, Height: h, Pair: true} }

// SymmetricSize builds a single-integer prefetch entry expanding to three
// invocations.
func SymmetricSize(n int) Size { return Size{Width: n} }

// Prefetch warms the cache for content across a size matrix. It always
// invokes once with no maximum dimensions, then once per Size entry (three
// times for a SymmetricSize). The enriched/devoured content is discarded;
// this call exists purely for its cache side effects.
func Prefetch(ctx context.Context, reg *provider.Registry, s *settings.Settings, bus *signals.Bus, content string, isHTML bool, sizes []Size) {
	c := New(ctx, reg, s, bus, true)

	invoke := func(maxwidth, maxheight int) {
		if isHTML {
			_, _ = c.Devour(ctx, content, maxwidth, maxheight)
		} else {
			_ = c.Enrich(ctx, content, maxwidth, maxheight)
		}
	}

	invoke(0, 0)
	for _, sz := range sizes {
		if sz.Pair {
			invoke(sz.Width, sz.Height)
			continue
		}
		invoke(sz.Width, 0)
		invoke(0, sz.Width)
		invoke(sz.Width, sz.Width)
	}
}
