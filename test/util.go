package test

import (
	"path"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/petroworks/go-wellstore/model"
	"github.com/stretchr/testify/require"
)

// Workspace maps project names to the wells to write into them.
type Workspace map[string][]*model.WellRecord

// WriteWorkspace writes every well of ws to fs using the
// <project>/10-WELLS/<well>.ptrc layout.
func WriteWorkspace(t testing.TB, fs billy.Filesystem, ws Workspace) {
	t.Helper()
	for project, recs := range ws {
		for _, rec := range recs {
			WriteWell(t, fs, project, rec)
		}
	}
}

// WriteWell writes one well file and returns its path.
func WriteWell(t testing.TB, fs billy.Filesystem, project string, rec *model.WellRecord) string {
	t.Helper()
	data, err := rec.Encode()
	require.NoError(t, err)
	return WriteFile(t, fs, path.Join("/", project, model.WellsDir, rec.FileName()), data)
}

// WriteFile writes raw data to p, creating parent directories.
func WriteFile(t testing.TB, fs billy.Filesystem, p string, data []byte) string {
	t.Helper()
	require.NoError(t, fs.MkdirAll(path.Dir(p), 0o755))
	require.NoError(t, util.WriteFile(fs, p, data, 0o644))
	return p
}

// MemWorkspace returns an in-memory filesystem populated with ws.
func MemWorkspace(t testing.TB, ws Workspace) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	WriteWorkspace(t, fs, ws)
	return fs
}
