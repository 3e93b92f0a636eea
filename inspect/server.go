// Package inspect serves a read-only HTTP view of a well store, plus the
// preload and cache clear housekeeping operations.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/model"
	"github.com/petroworks/go-wellstore/rwriter"
	"github.com/petroworks/go-wellstore/wellcache"
)

var log = logging.Logger("inspect")

// Store is the part of *wellcache.Store that the handler uses.
type Store interface {
	GetCachedWell(projectPath, well string) (*model.WellRecord, wellcache.Source, bool)
	LoadWell(ctx context.Context, projectPath, well string) (*model.WellRecord, error)
	ListWells(projectPath string) []string
	PreloadProject(ctx context.Context, projectPath string, maxConcurrent int) wellcache.PreloadResult
	ClearProjectCache(projectPath string) int
	Stats() wellcache.Stats
}

// Handler serves:
//
//	GET    /stats
//	GET    /wells/{project}
//	GET    /wells/{project}/{well}[?load=true]
//	POST   /projects/{project}/preload[?concurrency=N]
//	DELETE /projects/{project}/cache
type Handler struct {
	store Store
	mux   *http.ServeMux
	cfg   config
}

var _ http.Handler = (*Handler)(nil)

// ClearResponse is the body of a cache clear response.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// PreloadResponse is the body of a preload response.
type PreloadResponse struct {
	wellcache.PreloadResult
	Errors []string `json:"errors,omitempty"`
}

func New(store Store, options ...Option) (*Handler, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	h := &Handler{
		store: store,
		mux:   http.NewServeMux(),
		cfg:   opts,
	}
	h.mux.HandleFunc("GET /stats", h.getStats)
	h.mux.HandleFunc("GET /wells/{project}", h.listWells)
	h.mux.HandleFunc("GET /wells/{project}/{well}", h.getWell)
	h.mux.HandleFunc("POST /projects/{project}/preload", h.preload)
	h.mux.HandleFunc("DELETE /projects/{project}/cache", h.clearCache)
	return h, nil
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, h.store.Stats())
}

func (h *Handler) listWells(w http.ResponseWriter, r *http.Request) {
	rw, err := rwriter.New(w, r, rwriter.WithPreferJson(true))
	if err != nil {
		writeError(w, err)
		return
	}
	lw := rwriter.NewWellListWriter(rw)
	for _, well := range h.store.ListWells(rw.Project()) {
		if err = lw.WriteWell(well); err != nil {
			log.Errorw("Cannot write well list", "project", rw.Project(), "err", err)
			return
		}
	}
	if err = lw.Close(); err != nil {
		// Only fails when nothing was written.
		writeError(w, err)
	}
}

func (h *Handler) getWell(w http.ResponseWriter, r *http.Request) {
	rw, err := rwriter.New(w, r, rwriter.WithPreferJson(true))
	if err != nil {
		writeError(w, err)
		return
	}
	project, well := rw.Project(), rw.Well()

	var rec *model.WellRecord
	_, load := rwriter.MatchQueryParam(r, "load", "true")
	if load {
		rec, err = h.store.LoadWell(r.Context(), project, well)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		var src wellcache.Source
		var ok bool
		rec, src, ok = h.store.GetCachedWell(project, well)
		if !ok {
			writeError(w, apierror.Newf(apierror.NotFound, "well %s not cached", well))
			return
		}
		rw.Header().Set("X-Cache-Source", src.String())
	}
	if err = rw.Encoder().Encode(rec); err != nil {
		log.Errorw("Cannot write well", "project", project, "well", well, "err", err)
	}
}

func (h *Handler) preload(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")

	var concurrency int
	if s := r.URL.Query().Get("concurrency"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, apierror.Newf(apierror.InvalidInput, "invalid concurrency %q", s))
			return
		}
		concurrency = n
	}
	if h.cfg.maxPreloadConcurrency != 0 && concurrency > h.cfg.maxPreloadConcurrency {
		concurrency = h.cfg.maxPreloadConcurrency
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.preloadTimeout)
	defer cancel()

	res := h.store.PreloadProject(ctx, project, concurrency)
	resp := PreloadResponse{PreloadResult: res}
	if res.Err != nil {
		var merr *multierror.Error
		if errors.As(res.Err, &merr) {
			for _, err := range merr.WrappedErrors() {
				resp.Errors = append(resp.Errors, err.Error())
			}
		} else {
			resp.Errors = []string{res.Err.Error()}
		}
	}
	log.Infow("Preload request", "project", project, "loaded", res.LoadedWells, "failed", len(res.FailedWells), "alreadyLoaded", res.AlreadyLoaded)
	writeJson(w, http.StatusOK, resp)
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	n := h.store.ClearProjectCache(r.PathValue("project"))
	writeJson(w, http.StatusOK, ClearResponse{Removed: n})
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorw("Cannot write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apierror.KindOf(err).Status()
	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(apierror.EncodeError(err))
}
