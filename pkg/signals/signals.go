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

// Package signals is a narrow observability hook-point bus, replacing the
// Django signal dispatcher the original engine wired cache and consumer
// events through.
package signals

// CacheHit fires when a cache lookup finds a live value.
type CacheHit struct{ Key string }

// CacheMiss fires when a cache lookup finds nothing and a primer was (or
// was not) inserted.
type CacheMiss struct{ Key string }

// PreConsume fires before a Consumer starts enriching a piece of content.
type PreConsume struct{}

// PostConsume fires after a Consumer finishes enriching a piece of content.
type PostConsume struct{}

// ProviderUpserted fires when the registry registers or updates a provider.
type ProviderUpserted struct{ Name string }

// ProviderRemoved fires when the registry unregisters a provider.
type ProviderRemoved struct{ Name string }

// Handler receives dispatched events. Implementations must not block; the
// dispatcher does not recover from a handler's panics.
type Handler func(event any)

// Bus is a non-blocking, fan-out event dispatcher.
type Bus struct {
	handlers []Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Not safe to call concurrently with Emit.
func (b *Bus) Subscribe(h Handler) {
	b.handlers = append(b.handlers, h)
}

// Emit dispatches event to every subscribed handler, each in its own
// goroutine, so a slow or blocking handler never stalls the caller.
func (b *Bus) Emit(event any) {
	for _, h := range b.handlers {
		go h(event)
	}
}
