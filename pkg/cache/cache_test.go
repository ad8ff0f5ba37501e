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

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal store.Provider for exercising Cache without
// pulling in a real backend implementation.
type fakeBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string][]byte{}}
}

func (f *fakeBackend) Add(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

func (f *fakeBackend) Get(_ context.Context, key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

func (f *fakeBackend) Set(key string, value []byte, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *fakeBackend) Delete(_ context.Context, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return false
	}
	delete(f.data, key)
	return true
}

func (f *fakeBackend) Keys(_ context.Context, _ string) []string { return nil }
func (f *fakeBackend) Size() int                                 { return len(f.data) }

func TestKeyPrefixing(t *testing.T) {
	s := settings.Defaults()
	s.CacheKeyPrefix = "TEST"
	c := New(newFakeBackend(), s, nil)
	assert.Equal(t, "TEST:a:b", c.Key("a", "b"))
}

func TestGetOrPrimeFirstCallerPrimes(t *testing.T) {
	s := settings.Defaults()
	c := New(newFakeBackend(), s, signals.New())

	primer := resource.New("http://example.com/x", time.Now())
	got, primed, err := c.GetOrPrime(context.Background(), "k", primer)
	require.NoError(t, err)
	assert.True(t, primed)
	assert.Same(t, primer, got)

	other := resource.New("http://example.com/x", time.Now())
	got2, primed2, err := c.GetOrPrime(context.Background(), "k", other)
	require.NoError(t, err)
	assert.False(t, primed2)
	assert.Equal(t, primer.URL, got2.URL)
}

func TestGetOrPrimeEmitsHitAndMiss(t *testing.T) {
	s := settings.Defaults()
	bus := signals.New()

	var mu sync.Mutex
	var events []any
	bus.Subscribe(func(e any) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	c := New(newFakeBackend(), s, bus)
	primer := resource.New("http://example.com/x", time.Now())
	_, _, err := c.GetOrPrime(context.Background(), "k", primer)
	require.NoError(t, err)
	_, _, err = c.GetOrPrime(context.Background(), "k", primer)
	require.NoError(t, err)

	// Emit dispatches to goroutines; give them a moment to land.
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.IsType(t, signals.CacheMiss{}, events[0])
	assert.IsType(t, signals.CacheHit{}, events[1])
}

func TestSetGetDelete(t *testing.T) {
	s := settings.Defaults()
	c := New(newFakeBackend(), s, nil)

	r := resource.NewWithData("http://example.com/x", map[string]any{"type": "link"}, time.Now())
	require.NoError(t, c.Set("k", r))

	got, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.URL, got.URL)

	assert.True(t, c.Delete(context.Background(), "k"))
	got, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}
