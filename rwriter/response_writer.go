package rwriter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/petroworks/go-wellstore/apierror"
)

const (
	mediaTypeNDJson = "application/x-ndjson"
	mediaTypeJson   = "application/json"
	mediaTypeAny    = "*/*"
)

// ResponseWriter negotiates JSON or NDJSON output for a request on a well
// resource, and holds the project and well named by the request path.
type ResponseWriter struct {
	w       http.ResponseWriter
	f       http.Flusher
	encoder *json.Encoder
	project string
	well    string
	nd      bool
	status  int
}

// New checks the Accept header and path of r and sets the response content
// type. The path has the form /<type>/<project>[/<well>], where <type> is
// "wells" unless changed with WithWellsPathType.
func New(w http.ResponseWriter, r *http.Request, options ...Option) (*ResponseWriter, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	accepts := r.Header.Values("Accept")
	var nd, okJson bool
	for _, accept := range accepts {
		amts := strings.Split(accept, ",")
		for _, amt := range amts {
			mt, _, err := mime.ParseMediaType(amt)
			if err != nil {
				return nil, apierror.New(apierror.InvalidInput, errors.New("invalid Accept header"))
			}
			switch mt {
			case mediaTypeNDJson:
				nd = true
			case mediaTypeJson:
				okJson = true
			case mediaTypeAny:
				nd = nd || !opts.preferJson
				okJson = true
			}
		}
	}

	if len(accepts) == 0 {
		if !opts.preferJson {
			return nil, apierror.New(apierror.InvalidInput, errors.New("accept header must be specified"))
		}
	} else if !okJson && !nd {
		return nil, apierror.Newf(apierror.InvalidInput, "media type not supported: %s", accepts)
	}

	project, well, err := parsePath(r.URL.Path, opts.wellsPathType)
	if err != nil {
		return nil, err
	}

	flusher, _ := w.(http.Flusher)
	if nd {
		w.Header().Set("Content-Type", mediaTypeNDJson)
		w.Header().Set("Connection", "Keep-Alive")
		w.Header().Set("X-Content-Type-Options", "nosniff")
	} else {
		w.Header().Set("Content-Type", mediaTypeJson)
	}

	return &ResponseWriter{
		w:       w,
		f:       flusher,
		encoder: json.NewEncoder(w),
		project: project,
		well:    well,
		nd:      nd,
		status:  http.StatusOK,
	}, nil
}

func parsePath(p, pathType string) (string, string, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		if part != pathType {
			continue
		}
		rest := parts[i+1:]
		switch {
		case len(rest) == 0 || rest[0] == "":
			return "", "", apierror.New(apierror.InvalidInput, errors.New("missing project name"))
		case len(rest) == 1:
			return rest[0], "", nil
		case len(rest) == 2 && rest[1] != "":
			return rest[0], rest[1], nil
		}
		return "", "", apierror.Newf(apierror.InvalidInput, "unsupported path: %s", p)
	}
	return "", "", apierror.New(apierror.InvalidInput, fmt.Errorf("missing resource type %q", pathType))
}

// Project is the project name from the request path.
func (w *ResponseWriter) Project() string {
	return w.project
}

// Well is the well name from the request path, or "" if the path names only a
// project.
func (w *ResponseWriter) Well() string {
	return w.well
}

func (w *ResponseWriter) IsND() bool {
	return w.nd
}

func (w *ResponseWriter) Flush() {
	if w.f != nil {
		w.f.Flush()
	}
}

func (w *ResponseWriter) Encoder() *json.Encoder {
	return w.encoder
}

func (w *ResponseWriter) Header() http.Header {
	return w.w.Header()
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	return w.w.Write(b)
}

func (w *ResponseWriter) WriteHeader(statusCode int) {
	if statusCode != http.StatusOK {
		w.status = statusCode
		w.w.WriteHeader(statusCode)
	}
}

func (w *ResponseWriter) StatusCode() int {
	return w.status
}

// MatchQueryParam reports whether the query parameter key is present, and
// whether one of its values equals value.
func MatchQueryParam(r *http.Request, key, value string) (bool, bool) {
	labels, present := r.URL.Query()[key]
	if !present {
		return false, false
	}
	for _, label := range labels {
		if label == value {
			return true, true
		}
	}
	return true, false
}
