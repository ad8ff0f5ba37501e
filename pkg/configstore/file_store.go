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

package configstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kacheio/monocle/pkg/errs"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk shape: a flat list of provider records.
type fileDoc struct {
	Providers []Record `yaml:"providers"`
}

// FileStore is a YAML-file-backed Store, watched for changes with
// fsnotify and debounced (ground: blueberrycongee-llmux's config Manager),
// diffing by checksum the way kache's own Loader does.
type FileStore struct {
	path string

	mu       sync.Mutex
	records  map[string]Record
	checksum []byte

	events  chan Event
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileStore loads path once and returns a ready Store. The file may be
// absent; an absent file is treated as zero providers, so that a process
// run without external-provider configuration still starts cleanly.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		records: map[string]Record{},
		done:    make(chan struct{}),
	}
	// The initial load fills the snapshot without emitting change events:
	// with no events channel yet and done already closed, notify returns
	// at once.
	close(s.done)
	if _, err := s.reload(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	s.events = make(chan Event, 32)
	s.done = make(chan struct{})
	return s, nil
}

// List returns the current snapshot of valid records. Records failing
// Validate are dropped and logged rather than surfaced, so one malformed
// entry cannot block every other provider from loading.
func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

// Changes returns the channel of create/update/delete notifications.
func (s *FileStore) Changes() <-chan Event {
	return s.events
}

// Watch starts watching path for changes, debouncing rapid writes and
// diffing against the last loaded snapshot to emit Upsert/Remove events.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher
	if err := watcher.Add(s.path); err != nil {
		_ = watcher.Close()
		return err
	}
	go s.watchLoop(ctx)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context) {
	const debounceDelay = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			_ = s.watcher.Close()
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					if _, err := s.reload(); err != nil {
						log.Error().Err(err).Msg("failed to reload provider config, keeping current")
					}
				})
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("provider config watcher error")
		}
	}
}

// Close stops the file watcher.
func (s *FileStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// reload reads path, diffs it against the last snapshot, and emits
// Upsert/Remove events for whatever changed. Returns false, nil when the
// checksum is unchanged.
func (s *FileStore) reload() (bool, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return false, err
	}

	sum := md5.Sum(buf)
	s.mu.Lock()
	if bytes.Equal(s.checksum, sum[:]) {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&doc); err != nil {
		return false, fmt.Errorf("%w: parsing provider config: %v", errs.ErrConfiguration, err)
	}

	next := make(map[string]Record, len(doc.Providers))
	for _, r := range doc.Providers {
		if !r.IsActive {
			continue
		}
		if err := r.Validate(); err != nil {
			log.Warn().Err(err).Str("provider", r.Name).Msg("skipping invalid provider record")
			continue
		}
		next[r.Name] = r
	}

	s.mu.Lock()
	prev := s.records
	s.records = next
	s.checksum = sum[:]
	s.mu.Unlock()

	for name, r := range next {
		if old, ok := prev[name]; !ok || !reflect.DeepEqual(old, r) {
			s.notify(Event{Kind: EventUpsert, Record: r})
		}
	}
	for name, r := range prev {
		if _, ok := next[name]; !ok {
			s.notify(Event{Kind: EventRemove, Record: r})
		}
	}
	return true, nil
}

func (s *FileStore) notify(e Event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}
