package dataset

import (
	"sync"
	"sync/atomic"
	"time"

	"careermatch/internal/errors"
	"careermatch/internal/watch"
)

// Store holds the current snapshot. Readers never block; a reload swaps in
// a fully built snapshot or leaves the old one in place.
type Store struct {
	path    string
	opts    LoaderOptions
	current atomic.Pointer[Snapshot]
	logger  *errors.Logger

	mu        sync.Mutex
	listeners []func(*Snapshot, error)
	watcher   *watch.FileWatcher
}

// Open loads path and returns a store serving it.
func Open(path string, opts LoaderOptions) (*Store, error) {
	snap, err := LoadFile(path, opts)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, opts: opts, logger: opts.Logger}
	s.current.Store(snap)
	if s.logger != nil {
		s.logger.Info("Dataset loaded",
			"path", path,
			"rows", snap.Report.Rows,
			"skipped", snap.Report.Skipped,
			"unscorable", snap.Report.Unscorable,
			"truncated", snap.Report.Truncated,
			"encoding", snap.Report.Encoding)
	}
	return s, nil
}

// NewStaticStore wraps an already built snapshot. Reload re-reads the
// snapshot's path if it has one.
func NewStaticStore(snap *Snapshot, logger *errors.Logger) *Store {
	s := &Store{path: snap.Path, logger: logger}
	s.current.Store(snap)
	return s
}

func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

func (s *Store) Path() string {
	return s.path
}

// OnReload registers a callback run after every reload attempt.
func (s *Store) OnReload(fn func(*Snapshot, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the file. On failure the previous snapshot stays live.
func (s *Store) Reload() error {
	snap, err := LoadFile(s.path, s.opts)
	if err == nil {
		s.current.Store(snap)
		if s.logger != nil {
			s.logger.Info("Dataset reloaded", "path", s.path, "rows", snap.Report.Rows, "skipped", snap.Report.Skipped)
		}
	} else if s.logger != nil {
		s.logger.LogError(err, "Dataset reload failed, keeping previous snapshot", "path", s.path)
	}

	s.mu.Lock()
	listeners := append([]func(*Snapshot, error){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap, err)
	}
	return err
}

// Watch reloads the dataset whenever the file changes.
func (s *Store) Watch(debounce time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}
	w := watch.New("dataset", []string{s.path}, debounce, func() { _ = s.Reload() }, s.logger)
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Close stops the file watcher if one is running.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Stop()
	s.watcher = nil
	return err
}
