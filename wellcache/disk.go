package wellcache

import (
	"errors"
	"os"
	"path"

	"github.com/go-git/go-billy/v5/util"
	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/model"
)

const tmpSuffix = ".tmp"

func (s *Store) readWell(p string) (*model.WellRecord, error) {
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apierror.Newf(apierror.NotFound, "well file %s not found", p)
		}
		return nil, apierror.Newf(apierror.IOFailure, "cannot read %s: %w", p, err)
	}
	rec, err := model.Decode(data)
	if err != nil {
		return nil, apierror.Newf(apierror.CorruptData, "cannot parse %s: %w", p, err)
	}
	return rec, nil
}

// writeWell replaces the file at p with the encoded record. The record is
// written to a hidden temporary file in the same directory and renamed over
// p, so readers never see a partial file.
func (s *Store) writeWell(p string, rec *model.WellRecord) error {
	data, err := rec.Encode()
	if err != nil {
		return apierror.Newf(apierror.InvalidInput, "cannot encode well %q: %w", rec.Name, err)
	}

	dir, name := path.Split(p)
	if err = s.fs.MkdirAll(dir, 0o755); err != nil {
		return apierror.Newf(apierror.IOFailure, "cannot create directory %s: %w", dir, err)
	}
	tmp := path.Join(dir, "."+name+tmpSuffix)
	if err = util.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return apierror.Newf(apierror.IOFailure, "cannot write %s: %w", tmp, err)
	}
	if err = s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return apierror.Newf(apierror.IOFailure, "cannot replace %s: %w", p, err)
	}
	return nil
}
