// Package watch triggers a callback when any of a set of files changes on
// disk, with debouncing for editors and atomic-rename writers.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"careermatch/internal/errors"
)

// FileWatcher watches a fixed list of files and calls onChange after the
// debounce delay once a watched file has a newer modification time.
type FileWatcher struct {
	mu sync.RWMutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// New creates a watcher. name is only used in log lines.
func New(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	var watched []string
	for _, f := range files {
		if f != "" {
			watched = append(watched, f)
		}
	}
	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s watcher is already running", w.name)
	}
	if len(w.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", w.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	if err := w.updateModTimes(); err != nil {
		_ = w.fsWatcher.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range w.files {
		if err := w.addFile(file); err != nil && w.logger != nil {
			w.logger.Warn("Failed to watch file", "watcher", w.name, "file", file, "error", err)
		}
	}

	w.running = true
	go w.loop()

	if w.logger != nil {
		w.logger.Info("File watcher started",
			"watcher", w.name,
			"files", w.files,
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher", "watcher", w.name)
		}
		return err
	}
	if w.logger != nil {
		w.logger.Info("File watcher stopped", "watcher", w.name)
	}
	return nil
}

func (w *FileWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Files returns the watched paths.
func (w *FileWatcher) Files() []string {
	return slices.Clone(w.files)
}

// addFile watches the file and its directory. The directory watch catches
// writers that replace the file by rename.
func (w *FileWatcher) addFile(file string) error {
	if err := w.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	dir := filepath.Dir(file)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (w *FileWatcher) updateModTimes() error {
	for _, file := range w.files {
		stat, err := os.Stat(file)
		if err == nil {
			w.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

func (w *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := w.lastModTime[file]; exists {
				delete(w.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := w.lastModTime[file]
	if !exists || stat.ModTime().After(lastMod) {
		w.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.isRelevant(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "File watcher error", "watcher", w.name)
			}

		case <-w.reloadChan:
			if slices.ContainsFunc(w.files, w.hasFileChanged) {
				if w.logger != nil {
					w.logger.Info("Watched files changed, triggering reload", "watcher", w.name)
				}
				w.onChange()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *FileWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	for _, file := range w.files {
		if event.Name == file || filepath.Base(event.Name) == filepath.Base(file) {
			return true
		}
	}
	return false
}

func (w *FileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
