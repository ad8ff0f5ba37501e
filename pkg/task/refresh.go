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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/errs"
	"github.com/kacheio/monocle/pkg/resource"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/rs/zerolog/log"
)

// QueueConfig configures a Queue's worker pool.
type QueueConfig struct {
	BufferSize  int `yaml:"buffer_size"`
	Concurrency int `yaml:"concurrency"`
}

// Queue is the async refresh task runner: a worker pool that performs the
// single external oembed HTTP GET, bounded retry, and cache write-back for
// a given request URL.
type Queue struct {
	jobs     *jobQueue
	cache    *cache.Cache
	settings *settings.Settings
	client   *http.Client
}

// NewQueue creates a refresh task Queue. The TASK_QUEUE setting is not
// read here; there is no real distributed broker here
// (the spec treats the task-queue runtime itself as an external
// collaborator) — this is the in-process worker pool primitive a real
// broker client would schedule onto.
func NewQueue(c *cache.Cache, s *settings.Settings, cfg QueueConfig) *Queue {
	return &Queue{
		jobs:     newJobQueue(cfg.BufferSize, cfg.Concurrency),
		cache:    c,
		settings: s,
		client:   &http.Client{Timeout: time.Duration(s.HTTPTimeout) * time.Second},
	}
}

// Schedule enqueues a refresh of the resource cached under requestURL.
// This is the provider.Refresher the provider package schedules onto.
func (q *Queue) Schedule(requestURL string) {
	if err := q.jobs.dispatch(func() { q.refresh(requestURL) }); err != nil {
		log.Error().Err(err).Str("request_url", requestURL).Msg("Failed to schedule oembed refresh")
	}
}

// Stop drains the worker pool.
func (q *Queue) Stop() {
	q.jobs.stop()
}

// refresh performs the single-shot external fetch described in spec.md
// §4.10: GET with bounded retry-on-timeout, parse JSON, extract the
// original content URL, write the refreshed Resource back to cache.
// Failure modes leave the existing cache entry untouched.
func (q *Queue) refresh(requestURL string) {
	body, err := q.fetchWithRetry(requestURL)
	if err != nil {
		log.Debug().Err(err).Str("request_url", requestURL).Msg("oembed refresh failed")
		return
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		log.Debug().Err(err).Str("request_url", requestURL).
			Msg("oembed refresh: malformed response body")
		return
	}

	contentURL, err := extractContentURL(requestURL)
	if err != nil {
		log.Debug().Err(err).Str("request_url", requestURL).
			Msg("oembed refresh: could not recover content url")
		return
	}

	r := resource.NewWithData(contentURL, data, time.Now().UTC())
	if err := q.cache.Set(requestURL, r); err != nil {
		log.Error().Err(err).Str("request_url", requestURL).Msg("oembed refresh: cache write failed")
	}
}

// fetchWithRetry issues the GET, retrying on connection timeout up to
// TASK_EXTERNAL_MAX_RETRIES times, waiting TASK_EXTERNAL_RETRY_DELAY
// seconds between attempts. Any non-timeout error or non-200 status stops
// immediately without retry.
func (q *Queue) fetchWithRetry(requestURL string) ([]byte, error) {
	var lastErr error
	attempts := q.settings.TaskExternalMaxRetries + 1
	delay := time.Duration(q.settings.TaskExternalRetryDelay) * time.Second

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
		}

		body, err := q.fetch(requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (q *Queue) fetch(requestURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamHTTP, err)
	}
	req.Header.Set("User-Agent", q.settings.UserAgent)

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err // preserves net.Error for timeout detection
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errs.ErrUpstreamHTTP, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// extractContentURL recovers the original content URL from the `url` query
// parameter of a provider request URL (ground: original util.py's
// extract_content_url).
func extractContentURL(requestURL string) (string, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpstreamParse, err)
	}
	contentURL := u.Query().Get("url")
	if contentURL == "" {
		return "", fmt.Errorf("%w: request url has no url= parameter", errs.ErrUpstreamParse)
	}
	return contentURL, nil
}
