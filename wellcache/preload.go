package wellcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/fileindex"
	"github.com/petroworks/go-wellstore/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PreloadResult reports the outcome of PreloadProject.
type PreloadResult struct {
	Project       string   `json:"project"`
	TotalWells    int      `json:"total_wells"`
	LoadedWells   int      `json:"loaded_wells"`
	FailedWells   []string `json:"failed_wells,omitempty"`
	AlreadyLoaded bool     `json:"already_loaded"`
	// Err holds one error per failed well.
	Err error `json:"-"`
}

type preloadRead struct {
	key  string
	well string
	rec  *model.WellRecord
	err  error
}

// PreloadProject loads every indexed well of the project into the cache,
// reading at most maxConcurrent files at a time. A non-positive maxConcurrent
// uses the configured preload concurrency.
//
// Wells that cannot be read are listed by key in FailedWells and do not stop
// the others. Once all wells were attempted, the project is marked preloaded
// and becomes the active project, unless its cache was cleared meanwhile. Preloading a preloaded project does no I/O.
// Concurrent calls for one project share a single preload.
//
// If ctx is cancelled before every read was started, the wells not read are
// reported as failed and the project is not marked preloaded.
func (s *Store) PreloadProject(ctx context.Context, projectPath string, maxConcurrent int) PreloadResult {
	project := fileindex.ProjectName(projectPath)
	if maxConcurrent <= 0 {
		maxConcurrent = s.preloadConcurrency
	}

	for {
		if res, ok := s.alreadyPreloaded(project); ok {
			return res
		}
		v, _, shared := s.preloads.Do(project, func() (any, error) {
			if res, ok := s.alreadyPreloaded(project); ok {
				return res, nil
			}
			return s.preload(ctx, project, maxConcurrent), nil
		})
		res := v.(PreloadResult)
		// A shared preload cut short by the context of the caller that ran it
		// is retried while this caller's context is live.
		if shared && ctx.Err() == nil && cancelled(res.Err) {
			continue
		}
		return res
	}
}

func (s *Store) alreadyPreloaded(project string) (PreloadResult, bool) {
	s.mu.Lock()
	_, done := s.preloaded[project]
	s.mu.Unlock()
	if !done {
		return PreloadResult{}, false
	}
	return PreloadResult{
		Project:       project,
		TotalWells:    len(s.index.Keys(project)),
		AlreadyLoaded: true,
	}, true
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Store) preload(ctx context.Context, project string, maxConcurrent int) PreloadResult {
	keys := s.index.Keys(project)
	res := PreloadResult{
		Project:    project,
		TotalWells: len(keys),
	}
	log.Infow("Preloading project", "project", project, "wells", len(keys), "concurrency", maxConcurrent)

	s.mu.Lock()
	gen := s.clears[project]
	for _, key := range keys {
		s.beginRead(key)
	}
	s.mu.Unlock()

	reads := make([]preloadRead, len(keys))
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var g errgroup.Group
	dispatched := len(keys)
	for i, key := range keys {
		_, well, _ := fileindex.SplitKey(key)
		reads[i] = preloadRead{key: key, well: well}
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatched = i
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			r := &reads[i]
			p, ok := s.index.Lookup(r.key)
			if !ok {
				r.err = apierror.Newf(apierror.NotFound, "well %s no longer indexed", r.key)
				return nil
			}
			r.rec, r.err = s.readWell(p)
			if r.err == nil && r.rec.Name == "" {
				r.rec.Name = r.well
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := dispatched; i < len(keys); i++ {
		_, well, _ := fileindex.SplitKey(keys[i])
		reads[i] = preloadRead{key: keys[i], well: well, err: ctx.Err()}
	}

	var errs *multierror.Error
	s.mu.Lock()
	for i := range reads {
		r := &reads[i]
		cacheable := s.endRead(r.key)
		if r.err != nil {
			res.FailedWells = append(res.FailedWells, r.key)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.well, r.err))
			continue
		}
		res.LoadedWells++
		if el, ok := s.entries[r.key]; ok {
			// Cached data is at least as fresh as this read.
			s.setSource(el.Value.(*entry), SourcePreload)
			continue
		}
		if !cacheable {
			continue
		}
		s.insert(r.key, project, r.rec, SourcePreload)
	}
	// A clear during the preload drops what was loaded before it.
	complete := dispatched == len(keys) && s.clears[project] == gen
	if complete {
		s.preloaded[project] = struct{}{}
		s.active = project
	}
	s.mu.Unlock()

	res.Err = errs.ErrorOrNil()
	if res.Err != nil {
		log.Warnw("Preload had failures", "op", "preload", "project", project, "failed", len(res.FailedWells), "err", res.Err)
	}
	log.Infow("Preloaded project", "project", project, "loaded", res.LoadedWells, "total", res.TotalWells, "complete", complete)
	return res
}
