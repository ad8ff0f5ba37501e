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

// Package configstore is the read-only external-provider configuration
// source the registry populates itself from: a persisted list of
// third-party provider records, with change notifications so the registry
// can update/unregister without a restart.
package configstore

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kacheio/monocle/pkg/errs"
)

// Record is a persisted external provider configuration (ground: original
// models.py's ThirdPartyProvider).
type Record struct {
	Name         string   `yaml:"name"`
	APIEndpoint  string   `yaml:"api_endpoint"`
	ResourceType string   `yaml:"resource_type"`
	IsActive     bool     `yaml:"is_active"`
	Expose       bool     `yaml:"expose"`
	URLSchemes   []string `yaml:"url_schemes"`
}

// EventKind distinguishes a configuration-change notification.
type EventKind int

const (
	EventUpsert EventKind = iota
	EventRemove
)

// Event is a single create/update/delete notification for a Record.
type Event struct {
	Kind   EventKind
	Record Record
}

// Store is the read-only configuration source the registry consumes.
// ensure_populated reads List once; Changes streams create/update/delete
// notifications that drive update/unregister.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Changes() <-chan Event
}

var wildcardTLD = regexp.MustCompile(`^\*\.?(\w{3}|(\w{2}\.)?\w{2})$`)

// ValidateScheme enforces the oembed spec's URL-scheme constraints (ground:
// original models.py's clean()): an explicit, non-HTTPS scheme, and a host
// portion that isn't a wildcard over a bare TLD or common 2/3-letter
// second-level domain.
func ValidateScheme(scheme string) error {
	if scheme == "" {
		return fmt.Errorf("%w: url scheme is required", errs.ErrConfiguration)
	}
	u, err := url.Parse(strings.ToLower(scheme))
	if err != nil {
		return fmt.Errorf("%w: invalid url scheme %q: %v", errs.ErrConfiguration, scheme, err)
	}
	if u.Scheme == "" || u.Scheme == "https" {
		return fmt.Errorf("%w: url scheme %q must have an explicit non-https scheme", errs.ErrConfiguration, scheme)
	}
	if wildcardTLD.MatchString(u.Host) {
		return fmt.Errorf("%w: url scheme %q is too aggressive", errs.ErrConfiguration, scheme)
	}
	return nil
}

// ValidateAPIEndpoint enforces that api_endpoint is http, not https — the
// OEmbed spec forbids HTTPS endpoints.
func ValidateAPIEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: invalid api_endpoint %q: %v", errs.ErrConfiguration, endpoint, err)
	}
	if u.Scheme != "http" {
		return fmt.Errorf("%w: api_endpoint %q must be http, not %s", errs.ErrConfiguration, endpoint, u.Scheme)
	}
	return nil
}

// Validate runs every static check a Record must pass before it can be
// registered.
func (r Record) Validate() error {
	if err := ValidateAPIEndpoint(r.APIEndpoint); err != nil {
		return err
	}
	for _, scheme := range r.URLSchemes {
		if err := ValidateScheme(scheme); err != nil {
			return err
		}
	}
	return nil
}
