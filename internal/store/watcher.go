package store

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 500 * time.Millisecond

// Watcher monitors the shared snapshot file and invokes a callback when it
// changes. The parent directory is watched rather than the file itself so
// the watch survives the file being replaced.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
	callback  func()
}

// WatchFile starts watching the given file. The callback fires after a
// short debounce window, collapsing bursts of write events into one.
func WatchFile(path string, callback func()) (*Watcher, error) {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsW.Add(filepath.Dir(path)); err != nil {
		fsW.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		fsWatcher: fsW,
		cancel:    make(chan struct{}),
		callback:  callback,
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.cancel)
	w.fsWatcher.Close()
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop() {
	var timer *time.Timer

	for {
		select {
		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, w.callback)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("snapshot watcher error: %v", err)
		}
	}
}
