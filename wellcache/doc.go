// Package wellcache provides the well data store: the canonical on-disk
// representation of every well in a workspace and a process-wide,
// concurrency-safe, size-bounded in-memory cache over it.
//
// A Store is created once at process start with New, which scans the
// workspace and builds the file index before returning. The Store is then
// shared by every consumer; it holds no package-level state.
//
// ## Cache-only and Cache-or-load Reads
//
// GetCachedWell never touches disk. It is the read used by request paths that
// must not block on I/O, and it reports a miss for a well that exists on disk
// but was never loaded. LoadWell serves from cache when it can, and otherwise
// resolves the well file through the index, reads and parses it without
// holding the cache lock, and inserts it as a lazily loaded entry. Before
// inserting, LoadWell checks again whether the key was filled while it was
// reading, and if so discards its own read. Concurrent misses for the same
// well share one disk read.
//
// ## Eager Preload
//
// PreloadProject loads every indexed well of a project with bounded
// concurrency. Preloaded entries do not count against the lazy entry bound
// and are never evicted. After a complete preload the project becomes the
// active project, and its lazily loaded entries are also protected from
// eviction. Preloading an already preloaded project does no I/O. Individual
// read failures are reported in the result and do not stop the batch.
//
// ## Eviction
//
// The number of lazily loaded entries is softly bounded. Each insert of a new
// lazy entry, or of a well saved for the first time, removes at most one
// entry: the least recently used lazy entry that does not belong to the
// active project. When there is no such entry the bound is exceeded, and the
// overshoot is visible in Stats.
//
// ## Writes
//
// SaveWell writes the well file (through a temporary file and rename) and
// then updates index and cache, so that any read that starts after SaveWell
// returns sees the new document. Saving a cached well replaces its data and
// keeps its source, so a saved update to a preloaded well stays protected.
// DeleteWell removes the cache entry, the index entry and the file.
//
// Saves and deletes of one well are serialized by a per-key write lock that is
// held across the disk write. The cache lock is only held to update the in-
// memory state, never across disk I/O.
//
// ## Errors
//
// Failures are returned as *apierror.Error values classified as NotFound,
// CorruptData, IOFailure or InvalidInput, and logged with the operation, key
// and path. Nothing is retried.
package wellcache
