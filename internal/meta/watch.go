package meta

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports the names of modules whose metadata files change on disk.
type Watcher struct {
	w    *fsnotify.Watcher
	chC  chan string
	erC  chan error
	done chan struct{}
	once sync.Once
}

// Watch starts watching dir for module metadata changes.
func Watch(dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	mw := &Watcher{
		w:    w,
		chC:  make(chan string, 64),
		erC:  make(chan error, 1),
		done: make(chan struct{}),
	}
	go mw.loop()
	return mw, nil
}

func (mw *Watcher) loop() {
	defer close(mw.chC)
	for {
		select {
		case ev, ok := <-mw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name, ok := ModuleName(ev.Name)
			if !ok {
				continue
			}
			select {
			case mw.chC <- name:
			case <-mw.done:
				return
			}
		case err, ok := <-mw.w.Errors:
			if !ok {
				return
			}
			select {
			case mw.erC <- err:
			default:
			}
		case <-mw.done:
			return
		}
	}
}

// ModuleName maps a metadata file path to its module name.
func ModuleName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, Ext) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, Ext), true
}

// Changes delivers changed module names. It is closed after Close.
func (mw *Watcher) Changes() <-chan string { return mw.chC }

// Errors delivers watcher errors.
func (mw *Watcher) Errors() <-chan error { return mw.erC }

// Close stops the watcher.
func (mw *Watcher) Close() error {
	var err error
	mw.once.Do(func() {
		close(mw.done)
		err = mw.w.Close()
	})
	return err
}
