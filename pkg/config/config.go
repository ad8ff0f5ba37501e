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

package config

import (
	"errors"

	"github.com/kacheio/monocle/pkg/store"
)

var errInvalidEndpointConfig = errors.New("invalid endpoint config")

// Configuration is the root configuration.
type Configuration struct {
	// Cache is the KV backend the resource cache is built on.
	Cache *store.ProviderBackendConfig `yaml:"cache"`

	// Settings carries RESOURCE_*/CACHE_*/TASK_*/... overrides applied on
	// top of settings.Defaults(). Unknown keys are a configuration error.
	Settings map[string]any `yaml:"settings,omitempty"`

	// Providers points at the external-provider configuration store (a
	// YAML file of ExternalProviderRecord entries).
	Providers *ProvidersConfig `yaml:"providers,omitempty"`

	// Task configures the async refresh worker pool.
	Task *TaskConfig `yaml:"task,omitempty"`

	Endpoint *Endpoint `yaml:"endpoint"`
	Log      *Log      `yaml:"logging"`
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	if c.Endpoint == nil || c.Endpoint.Port == 0 {
		return errInvalidEndpointConfig
	}
	return nil
}

// ProvidersConfig points at the file-backed external-provider
// configuration store and its reload behavior.
type ProvidersConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch,omitempty"`
}

// TaskConfig configures the async refresh task queue's worker pool.
type TaskConfig struct {
	BufferSize  int `yaml:"buffer_size,omitempty"`
	Concurrency int `yaml:"concurrency,omitempty"`
}

// Endpoint holds the OEmbed HTTP endpoint configuration.
type Endpoint struct {
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix,omitempty"`
	ACL    string `yaml:"acl,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
}

// GetPrefix returns the endpoint path prefix as specified in the
// configuration. Default prefix is '/oembed'.
func (e *Endpoint) GetPrefix() string {
	if len(e.Prefix) > 0 {
		return e.Prefix
	}
	return "/oembed"
}

// Log holds the logger configuration.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	Color  bool   `yaml:"color,omitempty"`

	File       string `yaml:"file,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}
