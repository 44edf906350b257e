package prefabs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reports level and script files that changed on disk. Events and
// Errors are closed once the watcher stops.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *zap.Logger
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once

	sums map[string]uint64
	last map[string]time.Time
}

func NewWatcher(log *zap.Logger, dirs ...string) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		log:     log,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
		sums:    make(map[string]uint64),
		last:    make(map[string]time.Time),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isSpecFile(event.Name) && !isScriptFile(event.Name) {
				continue
			}
			if !w.admit(event.Name, time.Now()) {
				continue
			}
			w.log.Debug("prefabs: file changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
				w.log.Warn("prefabs: dropped watcher error", zap.Error(err))
			}
		case <-w.closeCh:
			return
		}
	}
}

// admit reports whether a change to path at now should be emitted. Debounced
// changes are not hashed, so the next change compares against the last
// content that was actually reported.
func (w *Watcher) admit(path string, now time.Time) bool {
	if t, ok := w.last[path]; ok && now.Sub(t) < reloadDebounce {
		return false
	}
	if w.unchanged(path) {
		w.log.Debug("prefabs: content unchanged", zap.String("path", path))
		return false
	}
	w.last[path] = now
	return true
}

// unchanged hashes path and reports whether the content matches the last
// hash seen for it. Missing files always count as changed.
func (w *Watcher) unchanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		delete(w.sums, path)
		return false
	}
	sum := xxhash.Sum64(data)
	prev, ok := w.sums[path]
	w.sums[path] = sum
	return ok && prev == sum
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
