package fileindex

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	logging "github.com/ipfs/go-log/v2"
	"github.com/petroworks/go-wellstore/model"
)

var log = logging.Logger("fileindex")

// Index maps well keys to the path of the well file within the workspace
// filesystem. It is safe for concurrent use and has its own lock, separate
// from any cache lock.
type Index struct {
	fs    billy.Filesystem
	mu    sync.RWMutex
	paths map[string]string
}

// BuildResult describes the outcome of a full scan.
type BuildResult struct {
	// Indexed is the number of keys in the index after the scan.
	Indexed int
	// Skipped lists .ptrc files that do not follow the
	// <project>/10-WELLS/<well>.ptrc layout and were not indexed.
	Skipped []string
}

// New creates an empty index over the workspace filesystem. Call Build to
// populate it.
func New(fs billy.Filesystem) *Index {
	return &Index{
		fs:    fs,
		paths: make(map[string]string),
	}
}

// Build scans the whole workspace and replaces the index contents with the
// well files found. Hidden directories are not descended into. It is safe to
// call repeatedly; without filesystem changes each call yields the same key
// set.
func (x *Index) Build() (BuildResult, error) {
	paths := make(map[string]string)
	var skipped []string

	err := util.Walk(x.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == "/" && os.IsNotExist(err) {
				// Empty workspace.
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			if p != "/" && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(info.Name(), model.FileExt) {
			return nil
		}
		project, well, ok := ParsePath(p)
		if !ok {
			skipped = append(skipped, p)
			log.Warnw("Well file does not follow project layout, not indexed", "path", p)
			return nil
		}
		paths[project+KeySep+well] = p
		return nil
	})
	if err != nil {
		return BuildResult{}, err
	}

	x.mu.Lock()
	x.paths = paths
	x.mu.Unlock()

	log.Infow("Indexed well files", "count", len(paths), "skipped", len(skipped))
	return BuildResult{
		Indexed: len(paths),
		Skipped: skipped,
	}, nil
}

// Lookup returns the path of the file for key.
func (x *Index) Lookup(key string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.paths[key]
	return p, ok
}

// Put sets the path for key and returns true if the key was not indexed
// before.
func (x *Index) Put(key, p string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, exists := x.paths[key]
	x.paths[key] = p
	return !exists
}

// Remove deletes key from the index and returns the path it mapped to.
func (x *Index) Remove(key string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.paths[key]
	if ok {
		delete(x.paths, key)
	}
	return p, ok
}

// RemoveUnder deletes every key whose file lies under dir. It returns the
// removed keys.
func (x *Index) RemoveUnder(dir string) []string {
	prefix := strings.TrimSuffix(filepath.ToSlash(dir), "/") + "/"
	x.mu.Lock()
	defer x.mu.Unlock()
	var removed []string
	for key, p := range x.paths {
		if strings.HasPrefix(p, prefix) {
			delete(x.paths, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}

// Keys returns the sorted keys of all wells indexed for the project.
func (x *Index) Keys(project string) []string {
	prefix := project + KeySep
	x.mu.RLock()
	var keys []string
	for key := range x.paths {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	x.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.paths)
}

// Snapshot returns a copy of the index contents.
func (x *Index) Snapshot() map[string]string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m := make(map[string]string, len(x.paths))
	for k, v := range x.paths {
		m[k] = v
	}
	return m
}
