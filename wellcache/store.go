package wellcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	logging "github.com/ipfs/go-log/v2"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/fileindex"
	"github.com/petroworks/go-wellstore/model"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("wellcache")

// Store owns the well files of one workspace and the in-memory cache over
// them. It is safe for concurrent use.
type Store struct {
	fs                 billy.Filesystem
	index              *fileindex.Index
	lazyCap            int
	preloadConcurrency int

	// mu guards everything below up to the write locks.
	mu        sync.Mutex
	entries   map[string]*list.Element
	lru       *list.List // front is most recently used
	lazyCount int
	preloaded map[string]struct{}
	clears    map[string]uint64 // per-project clear count
	active    string
	reads     map[string]*inflight
	capWarned bool

	loads      singleflight.Group
	preloads   singleflight.Group
	writeLocks [writeStripes]sync.Mutex

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Stats is a read-only snapshot of the store state.
type Stats struct {
	// Size is the number of cached wells.
	Size int `json:"cache_size"`
	// LazyEntries is the number of cached wells that were lazily loaded.
	LazyEntries int `json:"lazy_entries"`
	// LazyCap is the configured soft bound on LazyEntries.
	LazyCap int `json:"max_cache_size"`
	// IndexedFiles is the number of well files in the file index.
	IndexedFiles int `json:"indexed_files"`
	// CachedKeys lists cached keys from least to most recently used.
	CachedKeys []string `json:"cached_wells"`
	// PreloadedProjects lists the projects that completed a preload.
	PreloadedProjects []string `json:"preloaded_projects"`
	// ActiveProject is the most recently preloaded project.
	ActiveProject string `json:"active_project,omitempty"`

	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// New creates the store for the workspace rooted at the OS directory
// workspaceRoot. It scans the workspace for well files and returns only
// after the file index is complete, so it must be called once, before the
// store serves any request.
func New(workspaceRoot string, options ...Option) (*Store, error) {
	st, err := os.Stat(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot open workspace: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", workspaceRoot)
	}
	return NewWithFilesystem(osfs.New(workspaceRoot), options...)
}

// NewWithFilesystem creates a store over a workspace filesystem whose root is
// the workspace root.
func NewWithFilesystem(fs billy.Filesystem, options ...Option) (*Store, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, errors.New("nil filesystem")
	}

	s := &Store{
		fs:                 fs,
		index:              fileindex.New(fs),
		lazyCap:            opts.lazyCap,
		preloadConcurrency: opts.preloadConcurrency,

		entries:   make(map[string]*list.Element),
		lru:       list.New(),
		preloaded: make(map[string]struct{}),
		clears:    make(map[string]uint64),
		reads:     make(map[string]*inflight),
	}

	if _, err = s.index.Build(); err != nil {
		return nil, fmt.Errorf("cannot index well files: %w", err)
	}
	return s, nil
}

// Index returns the store's file index.
func (s *Store) Index() *fileindex.Index {
	return s.index
}

// Reindex rescans the workspace and replaces the file index. Cached entries
// are kept.
func (s *Store) Reindex() (fileindex.BuildResult, error) {
	return s.index.Build()
}

// GetCachedWell returns the cached document for the well and the source of
// its cache entry. It never reads from disk: a well that is not cached is
// reported as missing even when its file exists.
//
// The returned record is shared with the cache and must not be modified.
func (s *Store) GetCachedWell(projectPath, well string) (*model.WellRecord, Source, bool) {
	key := fileindex.Key(projectPath, well)

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return nil, 0, false
	}
	s.hits.Add(1)
	s.lru.MoveToFront(el)
	e := el.Value.(*entry)
	return e.data, e.source, true
}

// LoadWell returns the document for the well, reading it from disk if it is
// not cached. The file is read without holding the cache lock. If another
// goroutine cached the well in the meantime, that entry wins and the read is
// discarded. Concurrent misses for one well share a single read, which is
// not bound to any caller's context: a caller whose ctx ends stops waiting
// without failing the others.
//
// The returned record is shared with the cache and must not be modified.
func (s *Store) LoadWell(ctx context.Context, projectPath, well string) (*model.WellRecord, error) {
	project := fileindex.ProjectName(projectPath)
	key := project + fileindex.KeySep + well

	s.mu.Lock()
	if el, ok := s.entries[key]; ok {
		s.lru.MoveToFront(el)
		data := el.Value.(*entry).data
		s.mu.Unlock()
		s.hits.Add(1)
		return data, nil
	}
	s.mu.Unlock()
	s.misses.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := s.loads.DoChan(key, func() (any, error) {
		return s.loadMissing(project, well, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.WellRecord), nil
	}
}

func (s *Store) loadMissing(project, well, key string) (*model.WellRecord, error) {
	s.mu.Lock()
	if el, ok := s.entries[key]; ok {
		// Filled since the first check.
		s.mu.Unlock()
		return el.Value.(*entry).data, nil
	}
	s.beginRead(key)
	s.mu.Unlock()

	rec, p, found, err := s.readKey(project, well, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	cacheable := s.endRead(key)
	if err != nil {
		log.Errorw("Cannot load well", "op", "load", "key", key, "path", p, "kind", apierror.KindOf(err), "err", err)
		return nil, err
	}

	if el, ok := s.entries[key]; ok {
		// A write or another load completed first.
		s.lru.MoveToFront(el)
		log.Debugw("Discarding redundant read", "key", key)
		return el.Value.(*entry).data, nil
	}
	if !cacheable {
		log.Debugw("Well changed during read, not caching", "key", key)
		return rec, nil
	}

	if found {
		s.index.Put(key, p)
	}
	s.evictOne()
	s.insert(key, project, rec, SourceLazy)
	log.Debugw("Cached well", "key", key, "source", SourceLazy, "size", len(s.entries))
	return rec, nil
}

// readKey resolves and reads the file for key. A well that is not indexed is
// looked for at its conventional location; found reports that it was found
// there and should be indexed once the read is known not to be stale.
func (s *Store) readKey(project, well, key string) (rec *model.WellRecord, p string, found bool, err error) {
	p, ok := s.index.Lookup(key)
	if !ok {
		p = fileindex.WellPath(project, well)
		if _, err = s.fs.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, p, false, apierror.Newf(apierror.NotFound, "well %s not found", key)
			}
			return nil, p, false, apierror.Newf(apierror.IOFailure, "cannot stat %s: %w", p, err)
		}
		found = true
	}
	rec, err = s.readWell(p)
	if err != nil {
		return nil, p, false, err
	}
	if rec.Name == "" {
		rec.Name = well
	}
	return rec, p, found, nil
}

// ListWells returns the sorted names of the wells of a project. It combines
// the file index with a listing of the project's wells directory, so that
// files the index has not seen yet are included.
func (s *Store) ListWells(projectPath string) []string {
	project := fileindex.ProjectName(projectPath)
	seen := make(map[string]struct{})
	for _, key := range s.index.Keys(project) {
		_, well, _ := fileindex.SplitKey(key)
		seen[well] = struct{}{}
	}

	infos, err := s.fs.ReadDir(fileindex.WellsDirPath(project))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnw("Cannot list wells directory", "op", "list", "project", project, "err", err)
	}
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || strings.HasPrefix(name, ".") || path.Ext(name) != model.FileExt {
			continue
		}
		seen[strings.TrimSuffix(name, model.FileExt)] = struct{}{}
	}

	wells := make([]string, 0, len(seen))
	for well := range seen {
		wells = append(wells, well)
	}
	sort.Strings(wells)
	return wells
}

// ClearProjectCache removes every cached well of the project and forgets that
// the project was preloaded. It returns the number of entries removed.
func (s *Store) ClearProjectCache(projectPath string) int {
	project := fileindex.ProjectName(projectPath)
	prefix := project + fileindex.KeySep

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for el := s.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry).project == project {
			s.remove(el)
			n++
		}
		el = next
	}
	for key := range s.reads {
		if strings.HasPrefix(key, prefix) {
			s.markStale(key)
		}
	}
	delete(s.preloaded, project)
	s.clears[project]++
	if s.active == project {
		s.active = ""
	}
	log.Infow("Cleared project cache", "project", project, "removed", n)
	return n
}

// Stats returns a snapshot of the store state.
func (s *Store) Stats() Stats {
	indexed := s.index.Len()

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for el := s.lru.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry).key)
	}
	projects := make([]string, 0, len(s.preloaded))
	for p := range s.preloaded {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	return Stats{
		Size:              len(s.entries),
		LazyEntries:       s.lazyCount,
		LazyCap:           s.lazyCap,
		IndexedFiles:      indexed,
		CachedKeys:        keys,
		PreloadedProjects: projects,
		ActiveProject:     s.active,
		Hits:              s.hits.Load(),
		Misses:            s.misses.Load(),
		Evictions:         s.evictions.Load(),
	}
}
