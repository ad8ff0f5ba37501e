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

// Package errs defines the sentinel errors shared across monocle's packages.
package errs

import "errors"

var (
	// ErrConfiguration is returned when a settings override or a provider
	// record fails validation.
	ErrConfiguration = errors.New("monocle: invalid configuration")

	// ErrInvalidProvider is returned when registering a nil provider.
	ErrInvalidProvider = errors.New("monocle: invalid provider")

	// ErrNotImplemented is returned when an internal provider's object lacks
	// an attribute required for its resource type.
	ErrNotImplemented = errors.New("monocle: not implemented")

	// ErrNoMatchingProvider is returned when no registered provider matches
	// a requested URL.
	ErrNoMatchingProvider = errors.New("monocle: no matching provider")

	// ErrUpstreamHTTP is returned when the external oembed request fails at
	// the transport or status-code level.
	ErrUpstreamHTTP = errors.New("monocle: upstream oembed request failed")

	// ErrUpstreamParse is returned when an external provider's oembed
	// response cannot be decoded.
	ErrUpstreamParse = errors.New("monocle: upstream oembed response malformed")

	// ErrCacheBackend is returned when the underlying key/value store fails.
	ErrCacheBackend = errors.New("monocle: cache backend error")
)
