package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/toastate/toastpack/internal/tlogger"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

type Watcher struct {
	wch *fsnotify.Watcher
	out chan string
}

// StartWatcher watches every folder below the given roots, including folders
// created later on, and emits the path of each changed file. Missing roots are
// ignored.
func StartWatcher(folders ...string) (*Watcher, error) {
	wch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		wch: wch,
		out: make(chan string, 100),
	}

	for _, folder := range folders {
		if _, err := os.Stat(folder); err != nil {
			tlogger.Debug("watcher", folder, "msg", "Folder not watched", "err", err)
			continue
		}
		if err := w.addTree(folder); err != nil {
			wch.Close()
			return nil, err
		}
	}

	go w.loop()

	return w, nil
}

func (w *Watcher) addTree(folder string) error {
	return filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.wch.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.out)
	for {
		select {
		case event, ok := <-w.wch.Events:
			if !ok {
				return
			}
			if event.Op&changeOps == 0 {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						tlogger.Warn("msg", "Can't watch new folder", "path", event.Name, "err", err)
					}
				}
			}
			tlogger.Info("msg", "Detected change", "path", event.Name)
			w.out <- event.Name
		case err, ok := <-w.wch.Errors:
			if !ok {
				return
			}
			tlogger.Warn("msg", "Watcher error", "err", err)
		}
	}
}

// Changes returns the changed paths, closed once the watcher is closed.
func (w *Watcher) Changes() <-chan string {
	return w.out
}

func (w *Watcher) Close() error {
	return w.wch.Close()
}

// Debounce emits once per burst of changes, after quiet has elapsed without
// any new change.
func Debounce(changes <-chan string, quiet time.Duration) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			if _, ok := <-changes; !ok {
				return
			}
		burst:
			for {
				select {
				case _, ok := <-changes:
					if !ok {
						out <- struct{}{}
						return
					}
				case <-time.After(quiet):
					break burst
				}
			}
			out <- struct{}{}
		}
	}()
	return out
}
