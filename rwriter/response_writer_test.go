package rwriter_test

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/petroworks/go-wellstore/apierror"
	"github.com/petroworks/go-wellstore/rwriter"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, wells []string, options ...rwriter.Option) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respW, err := rwriter.New(w, r, options...)
		if err != nil {
			http.Error(w, err.Error(), apierror.KindOf(err).Status())
			return
		}
		respW.Header().Set("X-Project", respW.Project())
		respW.Header().Set("X-Well", respW.Well())

		lw := rwriter.NewWellListWriter(respW)
		for _, well := range wells {
			require.NoError(t, lw.WriteWell(well))
		}
		if err = lw.Close(); err != nil {
			http.Error(lw, err.Error(), apierror.KindOf(err).Status())
			require.Equal(t, http.StatusNotFound, lw.StatusCode())
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url, accept string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	return res, strings.TrimSpace(string(body))
}

func TestResponseWriter(t *testing.T) {
	ts := newServer(t, []string{"A", "B"})

	// Check that accept headers are required.
	res, body := get(t, ts.URL+"/wells/DemoField", "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "accept header must be specified", body)

	res, body = get(t, ts.URL+"/wells/DemoField", "text/html")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, body, "media type not supported")

	res, _ = get(t, ts.URL+"/wells/DemoField", "application/json;;")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	// JSON array.
	res, body = get(t, ts.URL+"/wells/DemoField", "application/json")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))
	require.Equal(t, "DemoField", res.Header.Get("X-Project"))
	require.Empty(t, res.Header.Get("X-Well"))
	var wells []string
	require.NoError(t, json.Unmarshal([]byte(body), &wells))
	require.Equal(t, []string{"A", "B"}, wells)

	// NDJSON lines.
	res, body = get(t, ts.URL+"/wells/DemoField", "application/x-ndjson, application/json")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/x-ndjson", res.Header.Get("Content-Type"))
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		var well string
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &well))
		lines = append(lines, well)
	}
	require.Equal(t, []string{"A", "B"}, lines)

	// Project and well.
	res, _ = get(t, ts.URL+"/wells/DemoField/A", "*/*")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/x-ndjson", res.Header.Get("Content-Type"))
	require.Equal(t, "A", res.Header.Get("X-Well"))

	// Bad paths.
	res, body = get(t, ts.URL+"/badresource/xyz", "application/json")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, body, "missing resource type")

	res, body = get(t, ts.URL+"/wells/", "application/json")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "missing project name", body)

	res, _ = get(t, ts.URL+"/wells/DemoField/A/extra", "application/json")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPreferJson(t *testing.T) {
	ts := newServer(t, []string{"A"}, rwriter.WithPreferJson(true))

	res, body := get(t, ts.URL+"/wells/DemoField", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))
	require.Equal(t, `["A"]`, body)

	res, _ = get(t, ts.URL+"/wells/DemoField", "*/*")
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))
}

func TestEmptyWellList(t *testing.T) {
	ts := newServer(t, nil)

	res, body := get(t, ts.URL+"/wells/Empty", "application/json")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "no wells in project Empty", body)
}

func TestWellsPathType(t *testing.T) {
	ts := newServer(t, []string{"A"}, rwriter.WithWellsPathType("w"))

	res, _ := get(t, ts.URL+"/api/w/DemoField", "application/json")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "DemoField", res.Header.Get("X-Project"))

	_, err := rwriter.New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), rwriter.WithWellsPathType(""))
	require.ErrorContains(t, err, "option 0 failed")
}

func TestMatchQueryParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/wells/P?source=lazy&source=saved", nil)
	present, match := rwriter.MatchQueryParam(r, "source", "saved")
	require.True(t, present)
	require.True(t, match)

	present, match = rwriter.MatchQueryParam(r, "source", "preload")
	require.True(t, present)
	require.False(t, match)

	present, _ = rwriter.MatchQueryParam(r, "other", "x")
	require.False(t, present)
}
