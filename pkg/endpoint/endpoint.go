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

// Package endpoint is the thin HTTP view over the provider/registry path:
// param parsing, exposure checks, and status-code mapping. The hard work
// (matching, caching, fetching) all happens below it.
package endpoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kacheio/monocle/pkg/config"
	"github.com/kacheio/monocle/pkg/provider"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/rs/zerolog/log"
)

// Endpoint is the root OEmbed HTTP surface.
type Endpoint struct {
	config   *config.Endpoint
	router   *mux.Router
	registry *provider.Registry
	settings *settings.Settings
	filter   *IPFilter
}

// New creates the OEmbed endpoint, wired to reg for provider resolution.
func New(cfg *config.Endpoint, reg *provider.Registry, s *settings.Settings) (*Endpoint, error) {
	filter, err := NewIPFilter(cfg.ACL)
	if err != nil {
		return nil, err
	}
	e := &Endpoint{
		config:   cfg,
		router:   mux.NewRouter(),
		registry: reg,
		settings: s,
		filter:   filter,
	}
	e.createRoutes()
	if cfg.Debug {
		DebugHandler{}.Append(e.router)
	}
	return e, nil
}

// Run starts the endpoint's HTTP server.
func (e *Endpoint) Run() {
	addr := fmt.Sprintf(":%d", e.config.Port)
	log.Debug().Str("addr", addr).Msg("Starting oembed endpoint")
	if err := http.ListenAndServe(addr, e); err != nil {
		log.Fatal().Err(err).Msg("Starting oembed endpoint")
	}
}

// ServeHTTP serves the endpoint's requests.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

func (e *Endpoint) createRoutes() {
	e.router.HandleFunc(e.config.GetPrefix(), e.filter.Wrap(e.oembedHandler)).Methods(http.MethodGet)
	VersionHandler{}.Append(e.router)
}

// oembedHandler implements spec.md §4.11/§6: parse url/format/maxwidth/
// maxheight/callback, resolve a Provider through the Registry, and map the
// outcome to 200/400/404/501.
func (e *Endpoint) oembedHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	contentURL := q.Get("url")
	if contentURL == "" {
		http.Error(w, "missing required parameter: url", http.StatusBadRequest)
		return
	}

	if format := strings.ToLower(q.Get("format")); format != "" && format != "json" {
		http.Error(w, "unsupported format: only json is supported", http.StatusNotImplemented)
		return
	}

	maxwidth := parsePositiveInt(q.Get("maxwidth"))
	maxheight := parsePositiveInt(q.Get("maxheight"))

	ctx := r.Context()
	p := e.registry.Match(ctx, contentURL)
	if p == nil || !p.IsExposed() {
		http.NotFound(w, r)
		return
	}

	res, err := p.GetResource(ctx, contentURL, maxwidth, maxheight)
	if err != nil {
		log.Error().Err(err).Str("url", contentURL).Msg("oembed endpoint: failed to resolve resource")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res == nil || !res.IsValid() {
		http.NotFound(w, r)
		return
	}

	body, err := json.Marshal(res.JSON())
	if err != nil {
		log.Error().Err(err).Str("url", contentURL).Msg("oembed endpoint: failed to marshal resource")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if cb := q.Get("callback"); cb != "" {
		_, _ = fmt.Fprintf(w, "%s(%s)", cb, body)
		return
	}
	_, _ = w.Write(body)
}

// parsePositiveInt coerces s to a positive int, dropping nil/invalid/zero
// values (spec.md §6: maxwidth/maxheight are "optional positive integers").
func parsePositiveInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
