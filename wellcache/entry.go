package wellcache

import (
	"container/list"
	"fmt"

	"github.com/petroworks/go-wellstore/model"
)

// Source records how a cache entry was filled.
type Source int

const (
	// SourcePreload entries were filled by PreloadProject.
	SourcePreload Source = iota + 1
	// SourceLazy entries were filled on first access by LoadWell. Only these
	// entries count against the lazy bound and only these can be evicted.
	SourceLazy
	// SourceSaved entries were created by SaveWell for a key that was not
	// cached.
	SourceSaved
)

func (s Source) String() string {
	switch s {
	case SourcePreload:
		return "preload"
	case SourceLazy:
		return "lazy"
	case SourceSaved:
		return "saved"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// entry is the value held in the cache list.
type entry struct {
	key     string
	project string
	data    *model.WellRecord
	source  Source
}

// inflight tracks disk reads of one key that have not been inserted yet. A
// write, delete or clear of the key marks it stale, and a stale read is not
// cached.
type inflight struct {
	refs  int
	stale bool
}

// The following methods must be called with the cache lock held.

func (s *Store) insert(key, project string, data *model.WellRecord, src Source) {
	el := s.lru.PushFront(&entry{
		key:     key,
		project: project,
		data:    data,
		source:  src,
	})
	s.entries[key] = el
	if src == SourceLazy {
		s.lazyCount++
	}
}

func (s *Store) remove(el *list.Element) *entry {
	e := s.lru.Remove(el).(*entry)
	delete(s.entries, e.key)
	if e.source == SourceLazy {
		s.lazyCount--
	}
	return e
}

func (s *Store) setSource(e *entry, src Source) {
	if e.source == src {
		return
	}
	if e.source == SourceLazy {
		s.lazyCount--
	}
	if src == SourceLazy {
		s.lazyCount++
	}
	e.source = src
}

func (s *Store) beginRead(key string) {
	f, ok := s.reads[key]
	if !ok {
		f = &inflight{}
		s.reads[key] = f
	}
	f.refs++
}

// endRead releases a read started with beginRead and reports whether the
// data it read may be cached.
func (s *Store) endRead(key string) bool {
	f, ok := s.reads[key]
	if !ok {
		return false
	}
	f.refs--
	if f.refs == 0 {
		delete(s.reads, key)
	}
	return !f.stale
}

func (s *Store) markStale(key string) {
	if f, ok := s.reads[key]; ok {
		f.stale = true
	}
}
