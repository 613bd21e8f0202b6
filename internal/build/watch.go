package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"personakit/internal/loader"
	"personakit/internal/logging"
)

// DefaultDebounce batches rapid saves into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Watcher rebuilds a persona whenever one of its module or persona files
// changes. Every rebuild is a full build.
type Watcher struct {
	mu          sync.Mutex
	pipeline    *Pipeline
	personaPath string
	onBuild     func(*Result, error)
	watcher     *fsnotify.Watcher
	debounce    time.Duration
	pending     bool
	lastEvent   time.Time
	builds      int
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closeOnce   sync.Once
}

// NewWatcher creates a watcher for personaPath. onBuild receives the outcome
// of every rebuild.
func NewWatcher(p *Pipeline, personaPath string, onBuild func(*Result, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		pipeline:    p,
		personaPath: personaPath,
		onBuild:     onBuild,
		watcher:     fw,
		debounce:    DefaultDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Roots returns the directories watched: the persona's directory and every
// on-disk module root.
func (w *Watcher) Roots() []string {
	roots := []string{filepath.Dir(w.personaPath)}
	cfg := w.pipeline.Config()
	if cfg.StandardLibrary.Enabled && cfg.StandardLibrary.Path != "" {
		roots = append(roots, cfg.StandardLibrary.Path)
	}
	for _, mp := range cfg.LocalModulePaths {
		roots = append(roots, mp.Path)
	}
	return roots
}

// Builds returns how many rebuilds have run.
func (w *Watcher) Builds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builds
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	log := logging.Get(logging.CategoryWatch)
	watched := 0
	for _, root := range w.Roots() {
		n, err := w.addTree(root)
		if err != nil {
			// root may be created later; it is not watched until restart
			log.Warn("Not watching %s: %v", root, err)
			continue
		}
		watched += n
	}
	if watched == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return errors.New("no directories to watch")
	}
	log.Info("Watching %d directories for %s", watched, w.personaPath)

	go w.run(ctx)
	return nil
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	logging.Get(logging.CategoryWatch).Debug("Watcher stopped")
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryWatch)

	w.mu.Lock()
	tick := w.debounce / 4
	w.mu.Unlock()
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("Watcher error: %v", err)
		case <-ticker.C:
			if w.due() {
				w.rebuild(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// new directories under a root join the watch set
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(event.Name); err != nil {
				logging.Get(logging.CategoryWatch).Warn("Not watching %s: %v", event.Name, err)
			}
			return
		}
	}

	name := filepath.Base(event.Name)
	if !loader.IsModuleFile(name) && !loader.IsPersonaFile(name) {
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// due reports whether a pending change has been quiet for the debounce period.
func (w *Watcher) due() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || time.Since(w.lastEvent) < w.debounce {
		return false
	}
	w.pending = false
	return true
}

func (w *Watcher) rebuild(ctx context.Context) {
	res, err := w.pipeline.Build(ctx, w.personaPath)
	w.mu.Lock()
	w.builds++
	w.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategoryWatch).Warn("Rebuild of %s failed: %v", w.personaPath, err)
	}
	if w.onBuild != nil {
		w.onBuild(res, err)
	}
}
