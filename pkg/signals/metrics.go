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

package signals

import "github.com/prometheus/client_golang/prometheus"

// MetricsSink counts signal occurrences as Prometheus metrics.
type MetricsSink struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	providerCount *prometheus.GaugeVec
}

// NewMetricsSink creates and registers the signal metrics.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	m := &MetricsSink{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monocle_cache_hits_total",
			Help: "Number of cache hits observed by the resource cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monocle_cache_misses_total",
			Help: "Number of cache misses observed by the resource cache.",
		}),
		providerCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monocle_registry_providers",
			Help: "Number of provider registry events observed, by event.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.providerCount)
	return m
}

// Handle is a signals.Handler counting the events it recognizes.
func (m *MetricsSink) Handle(event any) {
	switch event.(type) {
	case CacheHit:
		m.cacheHits.Inc()
	case CacheMiss:
		m.cacheMisses.Inc()
	case ProviderUpserted:
		m.providerCount.WithLabelValues("upserted").Inc()
	case ProviderRemoved:
		m.providerCount.WithLabelValues("removed").Inc()
	}
}
