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

package settings

import (
	"testing"

	"github.com/kacheio/monocle/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, 3600, s.ResourceMinTTL)
	assert.Equal(t, 604800, s.ResourceDefaultTTL)
	assert.True(t, s.ResourceURLizeInvalid)
	assert.False(t, s.CacheInternalProviders)
	assert.True(t, s.ExposeLocalProviders)
	assert.Equal(t, "MONOCLE", s.CacheKeyPrefix)
	assert.Equal(t, 2592000, s.CacheAge)
	assert.Equal(t, "Mozilla/5.0", s.UserAgent)
	assert.Len(t, s.ResourceDefaultDimensions, 9)
	assert.Equal(t, Dimension{100, 100}, s.ResourceDefaultDimensions[0])
	assert.Equal(t, Dimension{900, 900}, s.ResourceDefaultDimensions[8])
}

func TestOverrideAppliesKnownKeys(t *testing.T) {
	s := Defaults()
	err := s.Override(map[string]any{
		"CACHE_AGE":                1234,
		"RESOURCE_URLIZE_INVALID":  false,
		"CACHE_KEY_PREFIX":         "OTHER",
		"TASK_EXTERNAL_MAX_RETRIES": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1234, s.CacheAge)
	assert.False(t, s.ResourceURLizeInvalid)
	assert.Equal(t, "OTHER", s.CacheKeyPrefix)
	assert.Equal(t, 5, s.TaskExternalMaxRetries)
}

func TestOverrideAppliesResourceDefaultDimensions(t *testing.T) {
	s := Defaults()
	err := s.Override(map[string]any{
		"RESOURCE_DEFAULT_DIMENSIONS": []any{
			[]any{100, 100},
			[]any{200.0, 200.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{{100, 100}, {200, 200}}, s.ResourceDefaultDimensions)
}

func TestOverrideRejectsUnknownKeys(t *testing.T) {
	s := Defaults()
	err := s.Override(map[string]any{"NOT_A_REAL_SETTING": true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestOverrideRejectsWrongType(t *testing.T) {
	s := Defaults()
	err := s.Override(map[string]any{"CACHE_AGE": "not-an-int"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestRequiredAttrsByType(t *testing.T) {
	assert.Empty(t, RequiredAttrs[ResourceTypeLink])
	assert.ElementsMatch(t, []string{"url", "width", "height"}, RequiredAttrs[ResourceTypePhoto])
	assert.ElementsMatch(t, []string{"html", "width", "height"}, RequiredAttrs[ResourceTypeRich])
	assert.ElementsMatch(t, []string{"html", "width", "height"}, RequiredAttrs[ResourceTypeVideo])
}
