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

package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *cache.Cache) {
	t.Helper()
	s := settings.Defaults()
	backend, err := store.NewInMemoryCache(store.DefaultInMemoryCacheConfig)
	require.NoError(t, err)
	c := cache.New(backend, s, nil)
	q := NewQueue(c, s, QueueConfig{BufferSize: 8, Concurrency: 2})
	return q, c
}

func TestExtractContentURL(t *testing.T) {
	u, err := extractContentURL("http://api.example/oembed?format=json&url=http%3A%2F%2Fvid.example%2Fx")
	require.NoError(t, err)
	assert.Equal(t, "http://vid.example/x", u)

	_, err = extractContentURL("http://api.example/oembed?format=json")
	assert.Error(t, err)
}

func TestFetchReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"type":"link"}`))
	}))
	defer srv.Close()

	q, _ := newTestQueue(t)
	body, err := q.fetch(srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"link"}`, string(body))
}

func TestFetchWithRetryDoesNotRetryOn500(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	q, _ := newTestQueue(t)
	_, err := q.fetchWithRetry(srv.URL)
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "a non-timeout failure must not be retried")
}

func TestFetchWithRetryRetriesOnTimeout(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	q, _ := newTestQueue(t)
	q.client = &http.Client{Timeout: 5 * time.Millisecond}
	q.settings.TaskExternalMaxRetries = 2
	q.settings.TaskExternalRetryDelay = 0

	_, err := q.fetchWithRetry(srv.URL)
	assert.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits), "max_retries=2 means 3 total attempts")
}

func TestScheduleRefreshesAndWritesBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"type":"link","title":"hello"}`))
	}))
	defer srv.Close()

	q, c := newTestQueue(t)
	requestURL := srv.URL + "?format=json&url=http%3A%2F%2Fcontent.example%2Fx"

	q.Schedule(requestURL)

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	var got *resource.Resource
	for time.Now().Before(deadline) {
		r, err := c.Get(ctx, requestURL)
		require.NoError(t, err)
		if r != nil {
			got = r
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NotNil(t, got, "refresh must write the resolved resource back to cache")
	assert.Equal(t, "http://content.example/x", got.URL)
	assert.Equal(t, "hello", got.Data["title"])
}
