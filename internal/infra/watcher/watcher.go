// Package watcher provides debounced recursive file watching for the
// watch command.
package watcher

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config controls what the watcher reports.
type Config struct {
	// Patterns select files worth reporting, matched against the path
	// relative to the watched root ("**/*.py" matches any .py file).
	Patterns []string
	// IgnorePatterns exclude files and whole directory subtrees.
	IgnorePatterns []string
	// Debounce is how long to collect events before emitting a batch.
	Debounce time.Duration
}

// DefaultIgnorePatterns are directory names never worth watching.
var DefaultIgnorePatterns = []string{".git", "__pycache__", ".venv", "node_modules", ".pytest_cache", ".mypy_cache"}

// Watcher emits debounced batches of changed paths under a root.
type Watcher struct {
	fsw     *fsnotify.Watcher
	root    string
	config  Config
	batches chan []string
	errs    chan error
	closeCh chan struct{}
}

// New creates a watcher over root and starts its event loop. Directories
// are watched recursively; directories created later are added on the fly.
func New(root string, config Config) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = 500 * time.Millisecond
	}
	if len(config.IgnorePatterns) == 0 {
		config.IgnorePatterns = DefaultIgnorePatterns
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		root:    abs,
		config:  config,
		batches: make(chan []string, 1),
		errs:    make(chan error, 8),
		closeCh: make(chan struct{}),
	}
	if err := w.addRecursive(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

// Batches returns the channel of debounced change batches.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// loop collects raw events and flushes a deduplicated batch once no new
// matching event has arrived for the debounce window.
func (w *Watcher) loop() {
	var pending = make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]bool)
		select {
		case w.batches <- batch:
		case <-w.closeCh:
		}
	}

	for {
		select {
		case <-w.closeCh:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.ignored(ev.Name) {
					_ = w.addRecursive(ev.Name)
				}
			}
			if !w.matches(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.config.Debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			flush()
		}
	}
}

// ignored reports whether any path element matches an ignore pattern.
func (w *Watcher) ignored(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.config.IgnorePatterns {
			if ok, _ := path.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// matches reports whether a changed file is selected by the patterns.
func (w *Watcher) matches(p string) bool {
	if w.ignored(p) {
		return false
	}
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.config.Patterns {
		if MatchPattern(pattern, rel) {
			return true
		}
	}
	return len(w.config.Patterns) == 0
}

// MatchPattern matches a glob against a slash-separated relative path. A
// leading "**/" prefix matches at any depth, including depth zero.
func MatchPattern(pattern, rel string) bool {
	if suffix, found := strings.CutPrefix(pattern, "**/"); found {
		for {
			if ok, _ := path.Match(suffix, rel); ok {
				return true
			}
			i := strings.IndexByte(rel, '/')
			if i < 0 {
				return false
			}
			rel = rel[i+1:]
		}
	}
	ok, _ := path.Match(pattern, rel)
	return ok
}
