package wellcache_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/model"
	"github.com/petroworks/go-wellstore/test"
	"github.com/petroworks/go-wellstore/wellcache"
	"github.com/stretchr/testify/require"
)

func TestSaveWellInvalid(t *testing.T) {
	s := newStore(t, memfs.New())

	err := s.SaveWell(&model.WellRecord{}, "DemoField")
	require.True(t, apierror.Is(err, apierror.InvalidInput))
	require.ErrorIs(t, err, model.ErrNoName)

	err = s.SaveWell(nil, "DemoField")
	require.True(t, apierror.Is(err, apierror.InvalidInput))

	err = s.SaveWell(&model.WellRecord{Name: "../escape"}, "DemoField")
	require.True(t, apierror.Is(err, apierror.InvalidInput))
	require.Zero(t, s.Stats().Size)
}

func TestSaveWellWritesFile(t *testing.T) {
	fs := memfs.New()
	s := newStore(t, fs)

	rec := test.RandomWell("A", 3)
	require.NoError(t, s.SaveWell(rec, "DemoField"))

	data, err := util.ReadFile(fs, "/DemoField/10-WELLS/A.ptrc")
	require.NoError(t, err)
	onDisk, err := model.Decode(data)
	require.NoError(t, err)
	require.Equal(t, rec, onDisk)

	// No temporary file is left behind.
	infos, err := fs.ReadDir("/DemoField/10-WELLS")
	require.NoError(t, err)
	require.Len(t, infos, 1)

	p, ok := s.Index().Lookup("DemoField::A")
	require.True(t, ok)
	require.Equal(t, "/DemoField/10-WELLS/A.ptrc", p)
}

func TestSaveWellKeepsSource(t *testing.T) {
	s := newStore(t, test.MemWorkspace(t, test.Workspace{
		"DemoField": {test.RandomWell("A", 2)},
	}))
	ctx := context.Background()
	_, err := s.LoadWell(ctx, "DemoField", "A")
	require.NoError(t, err)

	upd := test.RandomWell("A", 4)
	require.NoError(t, s.SaveWell(upd, "DemoField"))

	got, src, ok := s.GetCachedWell("DemoField", "A")
	require.True(t, ok)
	require.Equal(t, wellcache.SourceLazy, src)
	require.Same(t, upd, got)
	require.Equal(t, 1, s.Stats().Size)
}

func TestDemoFieldScenario(t *testing.T) {
	fs := test.MemWorkspace(t, test.Workspace{
		"DemoField": {test.RandomWell("A", 5), test.RandomWell("B", 5), test.RandomWell("C", 5)},
	})
	s := newStore(t, fs)
	ctx := context.Background()
	require.Zero(t, s.Stats().Size)

	res := s.PreloadProject(ctx, "DemoField", 0)
	require.Equal(t, 3, res.TotalWells)
	require.Equal(t, 3, res.LoadedWells)
	require.Empty(t, res.FailedWells)

	a, src, ok := s.GetCachedWell("DemoField", "A")
	require.True(t, ok)
	require.Equal(t, "A", a.Name)
	require.Equal(t, wellcache.SourcePreload, src)

	b, _, ok := s.GetCachedWell("DemoField", "B")
	require.True(t, ok)
	b2 := b.Clone()
	b2.Datasets[0].Name = "WIRE_EDIT"
	require.NoError(t, s.SaveWell(b2, "DemoField"))

	got, src, ok := s.GetCachedWell("DemoField", "B")
	require.True(t, ok)
	require.Equal(t, wellcache.SourcePreload, src)
	require.Equal(t, "WIRE_EDIT", got.Datasets[0].Name)
	require.NotNil(t, got.Dataset("WIRE_EDIT"))
	require.Nil(t, got.Dataset("WIRE"))
}

func TestUpdateWell(t *testing.T) {
	s := newStore(t, test.MemWorkspace(t, test.Workspace{
		"DemoField": {test.RandomWell("A", 3)},
	}))
	ctx := context.Background()
	s.PreloadProject(ctx, "DemoField", 0)
	before, _, _ := s.GetCachedWell("DemoField", "A")

	err := s.UpdateWell(ctx, "DemoField", "A", func(rec *model.WellRecord) error {
		rec.Datasets[0].Name = "RENAMED"
		return nil
	})
	require.NoError(t, err)

	got, src, ok := s.GetCachedWell("DemoField", "A")
	require.True(t, ok)
	require.Equal(t, wellcache.SourcePreload, src)
	require.Equal(t, "RENAMED", got.Datasets[0].Name)
	// The previously returned record was not modified.
	require.Equal(t, "WIRE", before.Datasets[0].Name)

	errFn := errors.New("rejected")
	err = s.UpdateWell(ctx, "DemoField", "A", func(rec *model.WellRecord) error {
		rec.Datasets = nil
		return errFn
	})
	require.ErrorIs(t, err, errFn)
	got, _, _ = s.GetCachedWell("DemoField", "A")
	require.Len(t, got.Datasets, 1)

	err = s.UpdateWell(ctx, "DemoField", "A", func(rec *model.WellRecord) error {
		rec.Name = "B"
		return nil
	})
	require.True(t, apierror.Is(err, apierror.InvalidInput))

	err = s.UpdateWell(ctx, "DemoField", "Missing", func(*model.WellRecord) error { return nil })
	require.True(t, apierror.Is(err, apierror.NotFound))
}

func TestDeleteWell(t *testing.T) {
	fs := test.MemWorkspace(t, test.Workspace{
		"DemoField": {test.RandomWell("A", 2), test.RandomWell("B", 2)},
	})
	s := newStore(t, fs)
	ctx := context.Background()
	_, err := s.LoadWell(ctx, "DemoField", "A")
	require.NoError(t, err)

	existed, err := s.DeleteWell("DemoField", "A")
	require.NoError(t, err)
	require.True(t, existed)

	_, _, ok := s.GetCachedWell("DemoField", "A")
	require.False(t, ok)
	_, ok = s.Index().Lookup("DemoField::A")
	require.False(t, ok)
	_, err = fs.Stat("/DemoField/10-WELLS/A.ptrc")
	require.Error(t, err)

	_, err = s.LoadWell(ctx, "DemoField", "A")
	require.True(t, apierror.Is(err, apierror.NotFound))
	require.Equal(t, []string{"B"}, s.ListWells("DemoField"))

	existed, err = s.DeleteWell("DemoField", "A")
	require.NoError(t, err)
	require.False(t, existed)

	// Not cached, only on disk and in the index.
	existed, err = s.DeleteWell("DemoField", "B")
	require.NoError(t, err)
	require.True(t, existed)
	require.Empty(t, s.ListWells("DemoField"))
}

func TestDeleteWellDuringLoad(t *testing.T) {
	fs := &hookFS{Filesystem: test.MemWorkspace(t, test.Workspace{
		"DemoField": {test.RandomWell("A", 2)},
	})}
	s := newStore(t, fs)
	ctx := context.Background()

	// A load that runs while the delete is removing the file.
	var loadErr error
	fs.onRemove = func(string) {
		_, loadErr = s.LoadWell(ctx, "DemoField", "A")
	}
	existed, err := s.DeleteWell("DemoField", "A")
	fs.onRemove = nil
	require.NoError(t, err)
	require.True(t, existed)
	require.NoError(t, loadErr)

	_, _, ok := s.GetCachedWell("DemoField", "A")
	require.False(t, ok)
	_, ok = s.Index().Lookup("DemoField::A")
	require.False(t, ok)
	_, err = fs.Stat("/DemoField/10-WELLS/A.ptrc")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.LoadWell(ctx, "DemoField", "A")
	require.True(t, apierror.Is(err, apierror.NotFound))
	require.Zero(t, s.Stats().Size)
}

func TestDeleteUnindexedWellDuringLoad(t *testing.T) {
	fs := &hookFS{Filesystem: memfs.New()}
	s := newStore(t, fs)
	ctx := context.Background()

	// Written after the index was built, found only at its conventional path.
	test.WriteWell(t, fs, "DemoField", test.RandomWell("A", 2))
	fs.onRemove = func(string) {
		_, _ = s.LoadWell(ctx, "DemoField", "A")
	}
	existed, err := s.DeleteWell("DemoField", "A")
	fs.onRemove = nil
	require.NoError(t, err)
	require.True(t, existed)

	_, ok := s.Index().Lookup("DemoField::A")
	require.False(t, ok)
	require.Zero(t, s.Stats().IndexedFiles)
	_, err = s.LoadWell(ctx, "DemoField", "A")
	require.True(t, apierror.Is(err, apierror.NotFound))
}

func TestConcurrentSaveAndLoad(t *testing.T) {
	fs := osfs.New(t.TempDir())
	s := newStore(t, fs, wellcache.WithLazyCap(2))
	ctx := context.Background()

	const (
		wells    = 4
		versions = 20
	)

	var wg sync.WaitGroup
	for w := 0; w < wells; w++ {
		name := fmt.Sprintf("W%d", w)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for v := 0; v < versions; v++ {
				rec := test.RandomWell(name, 2)
				rec.WellType = fmt.Sprint(v)
				require.NoError(t, s.SaveWell(rec, "DemoField"))

				// A read after the save sees this version.
				got, err := s.LoadWell(ctx, "DemoField", name)
				require.NoError(t, err)
				require.Equal(t, fmt.Sprint(v), got.WellType)
			}
		}()
		go func() {
			defer wg.Done()
			for v := 0; v < versions; v++ {
				_, err := s.LoadWell(ctx, "DemoField", name)
				if err != nil {
					require.True(t, apierror.Is(err, apierror.NotFound))
				}
				s.GetCachedWell("DemoField", name)
			}
		}()
	}
	wg.Wait()

	for w := 0; w < wells; w++ {
		name := fmt.Sprintf("W%d", w)
		data, err := util.ReadFile(fs, "/DemoField/10-WELLS/"+name+".ptrc")
		require.NoError(t, err)
		onDisk, err := model.Decode(data)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprint(versions-1), onDisk.WellType)

		got, err := s.LoadWell(ctx, "DemoField", name)
		require.NoError(t, err)
		require.Equal(t, onDisk, got)
	}
}
