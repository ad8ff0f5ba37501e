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

package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/config"
	"github.com/kacheio/monocle/pkg/provider"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/store"
	"github.com/kacheio/monocle/pkg/utils/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopRefresher struct{}

func (noopRefresher) Schedule(string) {}

type mapDataSource map[string]any

func (d mapDataSource) Attr(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

func newTestEndpoint(t *testing.T) *Endpoint {
	t.Helper()
	s := settings.Defaults()
	backend, err := store.NewInMemoryCache(store.DefaultInMemoryCacheConfig)
	require.NoError(t, err)
	c := cache.New(backend, s, nil)
	reg := provider.NewRegistry(nil, c, noopRefresher{}, s, clock.NewSystemTimeSource(), nil)
	reg.RegisterInternal(provider.NewInternalFactory(
		// The content (page) URL scheme is deliberately distinct from the
		// image URL the factory resolves to, so a test asserting on the
		// JSON payload's "url" catches a content/image URL mixup.
		"photo", settings.ResourceTypePhoto, true,
		[]string{"http://page.example/*"}, nil,
		func(url string) (provider.DataSource, bool) {
			return mapDataSource{"url": "http://img.example/x.png", "width": 10, "height": 20}, true
		}, c, s, clock.NewSystemTimeSource(),
	))
	reg.RegisterInternal(provider.NewInternalFactory(
		"hidden", settings.ResourceTypePhoto, false,
		[]string{"http://private.example/*"}, nil,
		func(url string) (provider.DataSource, bool) {
			return mapDataSource{"url": "http://img.example/hidden.png", "width": 10, "height": 20}, true
		}, c, s, clock.NewSystemTimeSource(),
	))

	e, err := New(&config.Endpoint{Port: 0}, reg, s)
	require.NoError(t, err)
	return e
}

func TestOembedHandlerMissingURLReturns400(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOembedHandlerUnsupportedFormatReturns501(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://page.example/x&format=xml", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestOembedHandlerFormatIsCaseInsensitive(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://page.example/x&format=JSON", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOembedHandlerNoMatchingProviderReturns404(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://nowhere.example/x", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOembedHandlerUnexposedProviderReturns404(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://private.example/x", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOembedHandlerSuccessReturns200JSON(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://page.example/x", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, `"type":"photo"`)
	assert.Contains(t, body, `"url":"http://img.example/x.png"`, "the image url must not be clobbered by the content url")
}

func TestOembedHandlerCallbackWrapsJSONP(t *testing.T) {
	e := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/oembed?url=http://page.example/x&callback=cb", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "cb(")
	assert.Contains(t, body, `"type":"photo"`)
}

func TestParsePositiveInt(t *testing.T) {
	assert.Equal(t, 0, parsePositiveInt(""))
	assert.Equal(t, 0, parsePositiveInt("not-a-number"))
	assert.Equal(t, 0, parsePositiveInt("-5"))
	assert.Equal(t, 0, parsePositiveInt("0"))
	assert.Equal(t, 200, parsePositiveInt("200"))
}
