package material

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/renderserver/rid"
)

// reloader watches the directories of shader files and reports changed
// source to a handler. Directories are watched rather than files so that
// editors replacing a file on save are still seen.
type reloader struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	handler func(rid.RID, string)

	// files maps a cleaned file path to the shaders loaded from it.
	files map[string]map[rid.RID]struct{}
	dirs  map[string]int
	paths map[rid.RID]string
}

func newReloader() *reloader {
	return &reloader{
		files: make(map[string]map[rid.RID]struct{}),
		dirs:  make(map[string]int),
		paths: make(map[rid.RID]string),
	}
}

func (w *reloader) setHandler(fn func(rid.RID, string)) {
	w.mu.Lock()
	w.handler = fn
	w.mu.Unlock()
}

// start creates the watcher and adds directories tracked so far.
func (w *reloader) start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.watcher = watcher
	w.done = make(chan struct{})
	for dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			slogger().Warn("material: cannot watch shader directory", "dir", dir, "err", err)
		}
	}
	w.mu.Unlock()

	go w.loop(watcher, w.done)
	return nil
}

func (w *reloader) stop() {
	w.mu.Lock()
	watcher, done := w.watcher, w.done
	w.watcher, w.done = nil, nil
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	close(done)
	if err := watcher.Close(); err != nil {
		slogger().Warn("material: closing shader watcher", "err", err)
	}
}

// track associates shader r with path, replacing its previous path.
func (w *reloader) track(r rid.RID, path string) {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.untrackLocked(r)
	w.paths[r] = path
	set := w.files[path]
	if set == nil {
		set = make(map[rid.RID]struct{})
		w.files[path] = set
	}
	set[r] = struct{}{}

	dir := filepath.Dir(path)
	w.dirs[dir]++
	if w.dirs[dir] == 1 && w.watcher != nil {
		if err := w.watcher.Add(dir); err != nil {
			slogger().Warn("material: cannot watch shader directory", "dir", dir, "err", err)
		}
	}
}

func (w *reloader) forget(r rid.RID) {
	w.mu.Lock()
	w.untrackLocked(r)
	w.mu.Unlock()
}

func (w *reloader) untrackLocked(r rid.RID) {
	path, ok := w.paths[r]
	if !ok {
		return
	}
	delete(w.paths, r)
	if set := w.files[path]; set != nil {
		delete(set, r)
		if len(set) == 0 {
			delete(w.files, path)
		}
	}
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if w.watcher != nil {
			_ = w.watcher.Remove(dir)
		}
	}
}

func (w *reloader) loop(watcher *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.changed(filepath.Clean(ev.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slogger().Warn("material: shader watcher", "err", err)
		}
	}
}

// changed reads path and reports it for every shader loaded from it.
func (w *reloader) changed(path string) {
	w.mu.Lock()
	set := w.files[path]
	targets := make([]rid.RID, 0, len(set))
	for r := range set {
		targets = append(targets, r)
	}
	handler := w.handler
	w.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	if handler == nil {
		slogger().Debug("material: shader file changed but no reload handler", "path", path)
		return
	}
	code, err := os.ReadFile(path)
	if err != nil {
		slogger().Warn("material: reading changed shader", "path", path, "err", err)
		return
	}
	for _, r := range targets {
		slogger().Info("material: reloading shader", "rid", r, "path", path)
		handler(r, string(code))
	}
}
