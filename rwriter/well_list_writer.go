package rwriter

import (
	"github.com/petroworks/go-wellstore/apierror"
)

// WellListWriter writes the names of a project's wells, as one JSON array or
// as one JSON string per line.
type WellListWriter struct {
	ResponseWriter
	count int
	wells []string
}

func NewWellListWriter(w *ResponseWriter) *WellListWriter {
	return &WellListWriter{
		ResponseWriter: *w,
	}
}

func (lw *WellListWriter) WriteWell(well string) error {
	if lw.nd {
		err := lw.encoder.Encode(well)
		if err != nil {
			return err
		}
		lw.Flush()
	} else {
		lw.wells = append(lw.wells, well)
	}
	lw.count++
	return nil
}

// Close finishes the response. It returns a NotFound error, and writes
// nothing, if no well was written.
func (lw *WellListWriter) Close() error {
	if lw.count == 0 {
		return apierror.Newf(apierror.NotFound, "no wells in project %s", lw.project)
	}
	if lw.nd {
		return nil
	}
	return lw.encoder.Encode(lw.wells)
}
