package wellcache

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/fileindex"
	"github.com/petroworks/go-wellstore/model"
)

const writeStripes = 64

// writeLock returns the lock that serializes saves and deletes of key. It is
// always acquired before the cache lock.
func (s *Store) writeLock(key string) *sync.Mutex {
	return &s.writeLocks[xxhash.Sum64String(key)%writeStripes]
}

// SaveWell writes the record to its well file in the project and updates the
// index and cache. The well is identified by rec.Name. Once SaveWell returns,
// every read of the well returns this record until the next save or delete.
//
// The store keeps rec; the caller must not modify it after the call.
func (s *Store) SaveWell(rec *model.WellRecord, projectPath string) error {
	if rec == nil {
		return apierror.New(apierror.InvalidInput, model.ErrNoName)
	}
	if err := rec.Validate(); err != nil {
		return apierror.New(apierror.InvalidInput, err)
	}
	project := fileindex.ProjectName(projectPath)
	key := project + fileindex.KeySep + rec.Name

	mu := s.writeLock(key)
	mu.Lock()
	defer mu.Unlock()

	return s.saveLocked(project, key, rec)
}

func (s *Store) saveLocked(project, key string, rec *model.WellRecord) error {
	p, ok := s.index.Lookup(key)
	if !ok {
		p = fileindex.WellPath(project, rec.Name)
	}
	if err := s.writeWell(p, rec); err != nil {
		log.Errorw("Cannot save well", "op", "save", "key", key, "path", p, "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Put(key, p)
	s.markStale(key)
	if el, ok := s.entries[key]; ok {
		el.Value.(*entry).data = rec
		s.lru.MoveToFront(el)
	} else {
		s.evictOne()
		s.insert(key, project, rec, SourceSaved)
	}
	log.Debugw("Saved well", "key", key, "path", p)
	return nil
}

// UpdateWell loads the well, applies fn to a copy of it and saves the result.
// No other save or delete of the well can happen between the load and the
// save. If fn returns an error nothing is saved and that error is returned.
func (s *Store) UpdateWell(ctx context.Context, projectPath, well string, fn func(*model.WellRecord) error) error {
	project := fileindex.ProjectName(projectPath)
	key := project + fileindex.KeySep + well

	mu := s.writeLock(key)
	mu.Lock()
	defer mu.Unlock()

	cur, err := s.LoadWell(ctx, project, well)
	if err != nil {
		return err
	}
	rec := cur.Clone()
	if err = fn(rec); err != nil {
		return err
	}
	if rec.Name != well {
		return apierror.Newf(apierror.InvalidInput, "cannot rename well %q to %q", well, rec.Name)
	}
	if err = rec.Validate(); err != nil {
		return apierror.New(apierror.InvalidInput, err)
	}
	return s.saveLocked(project, key, rec)
}

// DeleteWell removes the well from the cache, the index and the disk. It
// returns false if the well did not exist in any of them.
func (s *Store) DeleteWell(projectPath, well string) (bool, error) {
	project := fileindex.ProjectName(projectPath)
	key := project + fileindex.KeySep + well

	mu := s.writeLock(key)
	mu.Lock()
	defer mu.Unlock()

	p, indexed := s.index.Lookup(key)
	if !indexed {
		p = fileindex.WellPath(project, well)
	}
	var onDisk bool
	err := s.fs.Remove(p)
	switch {
	case err == nil:
		onDisk = true
	case errors.Is(err, os.ErrNotExist):
	default:
		log.Errorw("Cannot delete well file", "op", "delete", "key", key, "path", p, "err", err)
		return true, apierror.Newf(apierror.IOFailure, "cannot remove %s: %w", p, err)
	}

	// The file is gone, so a load that starts from here on cannot find it,
	// and a load already reading it is marked stale.
	s.mu.Lock()
	var cached bool
	if el, ok := s.entries[key]; ok {
		s.remove(el)
		cached = true
	}
	if _, ok := s.index.Remove(key); ok {
		indexed = true
	}
	s.markStale(key)
	s.mu.Unlock()

	existed := cached || indexed || onDisk
	if existed {
		log.Infow("Deleted well", "key", key, "path", p)
	}
	return existed, nil
}
