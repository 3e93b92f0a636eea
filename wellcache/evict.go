package wellcache

// evictOne removes at most one entry to make room for a new lazy or saved
// entry. It must be called with the cache lock held, before the insert.
//
// The victim is the least recently used lazy entry that is not in the active
// project. When there is none, nothing is removed and the lazy bound is
// exceeded.
func (s *Store) evictOne() {
	if s.lazyCount < s.lazyCap {
		return
	}
	for el := s.lru.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if !s.evictable(e) {
			continue
		}
		s.remove(el)
		s.evictions.Add(1)
		s.capWarned = false
		log.Debugw("Evicted well", "key", e.key, "lazy", s.lazyCount, "cap", s.lazyCap)
		return
	}
	if !s.capWarned {
		s.capWarned = true
		log.Warnw("No evictable entry, lazy cache bound exceeded", "lazy", s.lazyCount, "cap", s.lazyCap, "activeProject", s.active)
	}
}

func (s *Store) evictable(e *entry) bool {
	switch e.source {
	case SourceLazy:
		return e.project != s.active
	case SourcePreload, SourceSaved:
		return false
	}
	return false
}
