package fileindex

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gammazero/channelqueue"
)

// Watcher keeps an Index current with well files created, modified or
// removed in the workspace by other tools. It only changes the index; cached
// well data is not touched.
type Watcher struct {
	rootAbs string
	index   *Index

	watcher   *fsnotify.Watcher
	queue     *channelqueue.ChannelQueue[fsnotify.Event]
	closeOnce sync.Once
	closed    chan struct{}
}

// NewWatcher watches every non-hidden directory below the OS directory root,
// which must be the root of the filesystem the index was created with.
func NewWatcher(root string, index *Index) (*Watcher, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root is required")
	}
	if index == nil {
		return nil, errors.New("index is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		rootAbs: filepath.Clean(rootAbs),
		index:   index,
		watcher: fsw,
		queue:   channelqueue.New[fsnotify.Event](-1),
		closed:  make(chan struct{}),
	}

	if err = w.addDirRecursive(w.rootAbs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the watcher. Run returns after Close is called.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	return w.watcher.Close()
}

// Run processes filesystem events until the context is canceled or the
// watcher is closed. It must be called only once. Events are queued without
// bound, so slow index updates never block fsnotify.
func (w *Watcher) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range w.queue.Out() {
			w.apply(ev)
		}
	}()
	defer func() {
		close(w.queue.In())
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err = w.addDirRecursive(ev.Name); err != nil {
						log.Errorw("Cannot watch new directory", "err", err, "path", ev.Name)
					}
				}
			}
			w.queue.In() <- ev
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorw("Filesystem watch error", "err", err)
		}
	}
}

func (w *Watcher) apply(ev fsnotify.Event) {
	rel, ok := w.toRel(ev.Name)
	if !ok {
		return
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return
	}
	project, well, isWell := ParsePath(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !isWell {
			if ev.Op&fsnotify.Create != 0 {
				w.indexNewDir(ev.Name)
			}
			return
		}
		if _, err := os.Stat(ev.Name); err != nil {
			return
		}
		if w.index.Put(project+KeySep+well, rel) {
			log.Debugw("Indexed new well file", "project", project, "well", well, "path", rel)
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if isWell {
			key := project + KeySep + well
			if p, ok := w.index.Lookup(key); ok && p == rel {
				if _, err := os.Stat(ev.Name); err == nil {
					// Replaced in place.
					return
				}
				w.index.Remove(key)
				log.Debugw("Removed well file from index", "key", key, "path", rel)
			}
			return
		}
		if removed := w.index.RemoveUnder(rel); len(removed) != 0 {
			log.Debugw("Removed well files under directory from index", "path", rel, "count", len(removed))
		}
	}
}

// indexNewDir indexes well files in a directory that appeared after the
// watcher started, such as a project copied into the workspace.
func (w *Watcher) indexNewDir(absDir string) {
	_ = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, ok := w.toRel(p)
		if !ok {
			return nil
		}
		if project, well, ok := ParsePath(rel); ok {
			w.index.Put(project+KeySep+well, rel)
		}
		return nil
	})
}

// toRel converts an OS path to a path within the workspace filesystem.
func (w *Watcher) toRel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.rootAbs, filepath.Clean(abs))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}

func (w *Watcher) addDirRecursive(absDir string) error {
	return filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.rootAbs && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}
