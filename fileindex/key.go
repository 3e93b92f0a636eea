package fileindex

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/petroworks/go-wellstore/model"
)

// KeySep separates the project name from the well name in a cache key.
const KeySep = "::"

// ProjectName normalizes a project path to the project name: the base name
// of the cleaned path.
func ProjectName(projectPath string) string {
	return filepath.Base(filepath.Clean(filepath.FromSlash(projectPath)))
}

// Key returns the cache key "<project_name>::<well_id>" for a well. It does
// no I/O.
func Key(projectPath, wellID string) string {
	return ProjectName(projectPath) + KeySep + wellID
}

// SplitKey splits a key into project name and well name.
func SplitKey(key string) (project, well string, ok bool) {
	project, well, ok = strings.Cut(key, KeySep)
	return
}

// WellPath returns the conventional location of a well file within the
// workspace filesystem.
func WellPath(project, well string) string {
	return path.Join("/", project, model.WellsDir, well+model.FileExt)
}

// WellsDirPath returns the directory that holds the wells of a project.
func WellsDirPath(project string) string {
	return path.Join("/", project, model.WellsDir)
}

// ParsePath derives the project and well names from a well file path. The
// path must have the layout <project>/10-WELLS/<well>.ptrc; the project is
// the parent of the 10-WELLS directory, which must be the file's direct
// parent.
func ParsePath(p string) (project, well string, ok bool) {
	p = path.Clean("/" + filepath.ToSlash(p))
	name := path.Base(p)
	if !strings.HasSuffix(name, model.FileExt) || strings.HasPrefix(name, ".") {
		return "", "", false
	}
	well = strings.TrimSuffix(name, model.FileExt)
	if well == "" {
		return "", "", false
	}
	dir := path.Dir(p)
	if path.Base(dir) != model.WellsDir {
		return "", "", false
	}
	project = path.Base(path.Dir(dir))
	if project == "/" || project == "." {
		return "", "", false
	}
	return project, well, true
}
