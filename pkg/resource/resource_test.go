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

package resource

import (
	"testing"
	"time"

	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/utils/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLDefaultsAndClamps(t *testing.T) {
	s := settings.Defaults()

	r := New("http://example.com/a", time.Now())
	assert.Equal(t, time.Duration(s.ResourceDefaultTTL)*time.Second, r.TTL(s))

	r.Data["cache_age"] = "60"
	assert.Equal(t, time.Duration(s.ResourceMinTTL)*time.Second, r.TTL(s),
		"cache_age below RESOURCE_MIN_TTL must clamp up to the minimum")

	r.Data["cache_age"] = 999999
	assert.Equal(t, 999999*time.Second, r.TTL(s))

	r.Data["cache_age"] = "not-a-number"
	assert.Equal(t, time.Duration(s.ResourceDefaultTTL)*time.Second, r.TTL(s))
}

func TestIsStale(t *testing.T) {
	s := settings.Defaults()
	ts := clock.NewEventTimeSource()
	ts.Update(time.Unix(1000000, 0))

	r := New("http://example.com/a", ts.Now())
	assert.False(t, r.IsStale(s, ts))

	ts.Update(r.CreatedAt.Add(time.Duration(s.ResourceDefaultTTL+1) * time.Second))
	assert.True(t, r.IsStale(s, ts))

	r.Refresh(ts.Now())
	assert.False(t, r.IsStale(s, ts), "Refresh must re-date CreatedAt so the resource is no longer stale")
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		name  string
		data  map[string]any
		valid bool
	}{
		{"empty", map[string]any{}, false},
		{"unknown type", map[string]any{"type": "bogus"}, false},
		{"link needs nothing", map[string]any{"type": "link"}, true},
		{"photo missing height", map[string]any{"type": "photo", "url": "u", "width": 1}, false},
		{"photo complete", map[string]any{"type": "photo", "url": "u", "width": 1, "height": 2}, true},
		{"video missing html", map[string]any{"type": "video", "width": 1, "height": 2}, false},
		{"video complete", map[string]any{"type": "video", "html": "<iframe/>", "width": 1, "height": 2}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewWithData("http://example.com", c.data, time.Now())
			assert.Equal(t, c.valid, r.IsValid())
		})
	}
}

func TestJSONOmitsCreatedAt(t *testing.T) {
	r := NewWithData("http://example.com/a", map[string]any{"type": "link", "url": "http://example.com/a"}, time.Now())
	out := r.JSON()
	_, hasCreated := out["created_at"]
	assert.False(t, hasCreated)
	assert.Equal(t, "http://example.com/a", out["url"])
	assert.Equal(t, "link", out["type"])
}

func TestJSONOmitsFalsyValues(t *testing.T) {
	r := NewWithData("http://example.com/a", map[string]any{
		"type":        "link",
		"title":       "",
		"cache_age":   0,
		"author_name": "Ada",
	}, time.Now())
	out := r.JSON()
	_, hasTitle := out["title"]
	_, hasCacheAge := out["cache_age"]
	assert.False(t, hasTitle)
	assert.False(t, hasCacheAge)
	assert.Equal(t, "Ada", out["author_name"])
}

// TestJSONDoesNotClobberPhotoURLWithContentURL guards against reintroducing
// an injected "url" keyed to the resource's content URL: a photo resource's
// Data["url"] is the image URL, which is a different string than the
// content page URL the resource was resolved from.
func TestJSONDoesNotClobberPhotoURLWithContentURL(t *testing.T) {
	r := NewWithData("http://example.com/page", map[string]any{
		"type":   "photo",
		"url":    "http://img.example.com/x.png",
		"width":  10,
		"height": 20,
	}, time.Now())
	out := r.JSON()
	assert.Equal(t, "http://img.example.com/x.png", out["url"])
}

func TestRenderInvalidURLizesOrNot(t *testing.T) {
	s := settings.Defaults()
	r := New("http://example.com/a", time.Now())

	s.ResourceURLizeInvalid = true
	out, err := r.Render(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `href="http://example.com/a"`)

	s.ResourceURLizeInvalid = false
	out, err = r.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a", string(out))
}

func TestRenderValidTypes(t *testing.T) {
	s := settings.Defaults()

	photo := NewWithData("http://example.com/p", map[string]any{
		"type": "photo", "url": "http://img/x.png", "width": 10, "height": 20,
	}, time.Now())
	out, err := photo.Render(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `src="http://img/x.png"`)

	video := NewWithData("http://example.com/v", map[string]any{
		"type": "video", "html": "<iframe src=\"http://x\"></iframe>", "width": 10, "height": 20,
	}, time.Now())
	out, err = video.Render(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<iframe src="http://x"></iframe>`,
		"the video template must emit the provider's html field unescaped")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	r := NewWithData("http://example.com/a", map[string]any{
		"type": "video", "html": "<iframe/>", "width": 640, "height": 360, "cache_age": 3600,
	}, now)

	buf, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, r.URL, decoded.URL)
	assert.Equal(t, r.CreatedAt, decoded.CreatedAt)
	assert.Equal(t, r.Data["html"], decoded.Data["html"])
	assert.Equal(t, r.Data["width"], decoded.Data["width"])
}
