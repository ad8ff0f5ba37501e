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

// Package monocle is the root data structure: it wires settings, cache,
// provider registry, refresh task queue, and the oembed endpoint together
// and owns the process lifecycle (ground: teacher's pkg/kache/kache.go
// module-init/Run shape, generalized from the HTTP cache's module set to
// monocle's).
package monocle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kacheio/monocle/pkg/cache"
	"github.com/kacheio/monocle/pkg/config"
	"github.com/kacheio/monocle/pkg/configstore"
	"github.com/kacheio/monocle/pkg/endpoint"
	"github.com/kacheio/monocle/pkg/provider"
	"github.com/kacheio/monocle/pkg/settings"
	"github.com/kacheio/monocle/pkg/signals"
	"github.com/kacheio/monocle/pkg/store"
	"github.com/kacheio/monocle/pkg/task"
	"github.com/kacheio/monocle/pkg/utils/clock"
	"github.com/kacheio/monocle/pkg/utils/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Monocle is the root data structure for the oembed engine.
type Monocle struct {
	Config *config.Configuration
	loader *config.Loader

	Registerer prometheus.Registerer

	Settings *settings.Settings
	Bus      *signals.Bus
	Cache    *cache.Cache
	Queue    *task.Queue
	Store    configstore.Store
	Registry *provider.Registry
	Endpoint *endpoint.Endpoint
}

// New builds a Monocle from loaded configuration and starts populating its
// modules. Modules are created in dependency order: settings, backend
// store, cache, task queue, configuration store, registry, endpoint.
func New(loader *config.Loader, registerer prometheus.Registerer) (*Monocle, error) {
	m := &Monocle{
		loader:     loader,
		Config:     loader.Config(),
		Registerer: registerer,
	}
	if err := m.setupModules(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Monocle) initSettings() error {
	s := settings.Defaults()
	if m.Config.Settings != nil {
		if err := s.Override(m.Config.Settings); err != nil {
			return err
		}
	}
	m.Settings = s
	return nil
}

func (m *Monocle) initSignals() error {
	m.Bus = signals.New()
	if m.Registerer != nil {
		sink := signals.NewMetricsSink(m.Registerer)
		m.Bus.Subscribe(sink.Handle)
	}
	return nil
}

func (m *Monocle) initCache() error {
	backendCfg := store.ProviderBackendConfig{Backend: store.BackendInMemory}
	if m.Config.Cache != nil {
		backendCfg = *m.Config.Cache
	}
	backend, err := store.CreateCacheProvider("monocle", backendCfg)
	if err != nil {
		return err
	}
	m.Cache = cache.New(backend, m.Settings, m.Bus)
	return nil
}

func (m *Monocle) initQueue() error {
	qcfg := task.QueueConfig{}
	if m.Config.Task != nil {
		qcfg = task.QueueConfig{BufferSize: m.Config.Task.BufferSize, Concurrency: m.Config.Task.Concurrency}
	}
	m.Queue = task.NewQueue(m.Cache, m.Settings, qcfg)
	return nil
}

func (m *Monocle) initStore() error {
	if m.Config.Providers == nil || m.Config.Providers.Path == "" {
		// No external-provider configuration file: Registry.ensurePopulated
		// is a permanent no-op and only explicitly registered internal
		// providers are ever matched.
		return nil
	}
	fs, err := configstore.NewFileStore(m.Config.Providers.Path)
	if err != nil {
		return err
	}
	if m.Config.Providers.Watch {
		if err := fs.Watch(context.Background()); err != nil {
			return err
		}
	}
	m.Store = fs
	return nil
}

func (m *Monocle) initRegistry() error {
	m.Registry = provider.NewRegistry(m.Store, m.Cache, m.Queue, m.Settings, clock.NewSystemTimeSource(), m.Bus)
	return nil
}

func (m *Monocle) initEndpoint() error {
	e, err := endpoint.New(m.Config.Endpoint, m.Registry, m.Settings)
	if err != nil {
		return err
	}
	m.Endpoint = e
	return nil
}

// setupModules initializes every module in dependency order.
func (m *Monocle) setupModules() error {
	type initFn func() error
	modules := [...]struct {
		Name string
		Init initFn
	}{
		{"Settings", m.initSettings},
		{"Signals", m.initSignals},
		{"Cache", m.initCache},
		{"Queue", m.initQueue},
		{"ConfigStore", m.initStore},
		{"Registry", m.initRegistry},
		{"Endpoint", m.initEndpoint},
	}
	for _, mod := range modules {
		log.Debug().Msgf("Initializing %s", mod.Name)
		if err := mod.Init(); err != nil {
			return err
		}
	}
	return nil
}

// reloadConfig reloads the config file, triggered by SIGHUP.
func (m *Monocle) reloadConfig(ctx context.Context) error {
	reloaded, err := m.loader.Load(ctx)
	if err != nil {
		return err
	}
	if !reloaded {
		log.Info().Msg("Config not reloaded, no changes detected")
		return nil
	}
	m.Config = m.loader.Config()
	log.Info().Msg("Config reloaded (restart required for cache/task/provider topology changes)")
	return nil
}

// Run starts the Monocle process: the registry's configuration-store
// listener (if any) and the oembed HTTP endpoint, until SIGINT/SIGTERM.
func (m *Monocle) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if m.Store != nil {
		go m.Registry.Listen(ctx)
	}

	if m.loader.AutoReload() {
		if err := m.loader.Watch(ctx); err != nil {
			return err
		}
		defer m.loader.Close()
		go func() {
			for changed := range m.loader.Events {
				if !changed {
					continue
				}
				log.Info().Msg("Config file changed, reloading config")
				if err := m.reloadConfig(ctx); err != nil {
					log.Error().Err(err).Msg("Error reloading config")
				}
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-hup:
				log.Info().Msg("Received SIGHUP, reloading config")
				if err := m.reloadConfig(context.Background()); err != nil {
					log.Error().Err(err).Msg("Error reloading config")
				}
			case <-ctx.Done():
				signal.Stop(hup)
				return
			}
		}
	}()

	log.Info().Str("version", version.Info()).Msg("Monocle just started")

	go m.Endpoint.Run()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	m.Queue.Stop()
	return nil
}
