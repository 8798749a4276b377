package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder keeps every progress update it receives.
type recorder struct {
	updates  [][2]int64
	finished bool
}

func (r *recorder) Update(current, total int64) {
	r.updates = append(r.updates, [2]int64{current, total})
}

func (r *recorder) Finish() {
	r.finished = true
}

func newTestFetcher(maxAttempts int, rec *recorder) *Fetcher {
	options := []Option{}
	if rec != nil {
		options = append(options, WithProgress(func(string, int64) Progress { return rec }))
	}

	return New(context.Background(), Options{
		UserAgent:   "plutonium-manager",
		MaxAttempts: maxAttempts,
	}, options...)
}

// serveWithLength writes body with an explicit Content-Length.
func serveWithLength(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// serveChunked flushes before writing so the response carries no Content-Length.
func serveChunked(w http.ResponseWriter, body []byte) {
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
	_, _ = w.Write(body)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()

	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)

	return data
}

// TestFetchAndFetchToFileMatch verifies both download modes produce identical bytes and report progress.
func TestFetchAndFetchToFileMatch(t *testing.T) {
	t.Parallel()

	body := randomBytes(t, 300*1024)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		serveWithLength(w, body)
	}))
	defer ts.Close()

	rec := new(recorder)
	f := newTestFetcher(3, rec)

	inMemory, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, body, inMemory)
	require.True(t, rec.finished)
	require.NotEmpty(t, rec.updates)
	require.Equal(t, [2]int64{int64(len(body)), int64(len(body))}, rec.updates[len(rec.updates)-1])

	for i := 1; i < len(rec.updates); i++ {
		require.GreaterOrEqual(t, rec.updates[i][0], rec.updates[i-1][0])
	}

	path := filepath.Join(t.TempDir(), "nested", "archive.zip")
	require.NoError(t, f.FetchToFile(context.Background(), ts.URL, path))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, inMemory, onDisk)
}

// TestFetchRetriesMissingLength checks the request is reissued until a length is reported.
func TestFetchRetriesMissingLength(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	body := []byte("eventually sized")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			serveChunked(w, body)
			return
		}

		serveWithLength(w, body)
	}))
	defer ts.Close()

	got, err := newTestFetcher(3, nil).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, body, got)
	require.Equal(t, int32(3), hits.Load())
}

// TestFetchGivesUpWithoutLength checks the retry is bounded.
func TestFetchGivesUpWithoutLength(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		serveChunked(w, []byte("never sized"))
	}))
	defer ts.Close()

	_, err := newTestFetcher(3, nil).Fetch(context.Background(), ts.URL)
	require.ErrorIs(t, err, ErrMissingContentLength)
	require.Equal(t, int32(3), hits.Load())
}

// TestFetchToFileRequiresLength checks the file mode fails on the first response and leaves nothing behind.
func TestFetchToFileRequiresLength(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		serveChunked(w, []byte("never sized"))
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "server_files.zip")

	err := newTestFetcher(3, nil).FetchToFile(context.Background(), ts.URL, path)
	require.ErrorIs(t, err, ErrMissingContentLength)
	require.Equal(t, int32(1), hits.Load())

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFetchToFileRemovesPartialFile cuts the connection mid-body and expects no file left behind.
func TestFetchToFileRemovesPartialFile(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hijacker, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		conn, buf, err := hijacker.Hijack()
		if err != nil {
			return
		}

		defer func() {
			_ = conn.Close()
		}()

		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 4096\r\nConnection: close\r\n\r\n")
		_, _ = buf.WriteString("only the beginning")
		_ = buf.Flush()
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "server_files.zip")

	err := newTestFetcher(3, nil).FetchToFile(context.Background(), ts.URL, path)
	require.Error(t, err)
	require.NoFileExists(t, path)
}

// TestWithHTTPClientKeepsTimeout checks an injected client still honors the configured timeout.
func TestWithHTTPClientKeepsTimeout(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
			serveWithLength(w, []byte("late"))
		}
	}))
	defer ts.Close()

	injected := &http.Client{}
	f := New(context.Background(), Options{
		UserAgent:   "plutonium-manager",
		MaxAttempts: 1,
		Timeout:     100 * time.Millisecond,
	}, WithHTTPClient(injected))

	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	require.Zero(t, injected.Timeout)
}

// TestFetchUnexpectedStatus verifies non-2xx responses are errors and never retried.
func TestFetchUnexpectedStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.NotFound(w, nil)
	}))
	defer ts.Close()

	_, err := newTestFetcher(3, nil).Fetch(context.Background(), ts.URL)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Equal(t, int32(1), hits.Load())
}

// TestFetchConnectionFailure verifies transport errors surface without retries.
func TestFetchConnectionFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newTestFetcher(3, nil).Fetch(context.Background(), url)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissingContentLength)
}

// TestFetchSendsHeaders checks the identifying user agent and accepted encodings.
func TestFetchSendsHeaders(t *testing.T) {
	t.Parallel()

	var userAgent, encoding atomic.Value

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		encoding.Store(r.Header.Get("Accept-Encoding"))
		serveWithLength(w, []byte("ok"))
	}))
	defer ts.Close()

	f := New(context.Background(), Options{UserAgent: "plutonium-manager"}, WithHTTPClient(ts.Client()))

	_, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, "plutonium-manager", userAgent.Load())
	require.Equal(t, "gzip, deflate", encoding.Load())
}

// TestFetchDecodesGzip checks gzip content encoding is decoded and progress counts wire bytes.
func TestFetchDecodesGzip(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte("plutonium "), 4096)

	var compressed bytes.Buffer

	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(plain)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		serveWithLength(w, compressed.Bytes())
	}))
	defer ts.Close()

	rec := new(recorder)

	got, err := newTestFetcher(1, rec).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, plain, got)

	last := rec.updates[len(rec.updates)-1]
	require.Equal(t, int64(compressed.Len()), last[0])
	require.Equal(t, int64(compressed.Len()), last[1])
}

// TestFetchJSON decodes a JSON document.
func TestFetchJSON(t *testing.T) {
	t.Parallel()

	var accept atomic.Value

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept.Store(r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		serveChunked(w, []byte(`{"name":"latest","count":2}`))
	}))
	defer ts.Close()

	var doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, newTestFetcher(1, nil).FetchJSON(context.Background(), ts.URL, &doc))
	require.Equal(t, "latest", doc.Name)
	require.Equal(t, 2, doc.Count)
	require.Equal(t, "application/json", accept.Load())
}

// TestShortName checks the label shown next to the progress bar.
func TestShortName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "plutonium.exe", shortName("https://cdn.plutonium.pw/updater/plutonium.exe"))
	require.Equal(t, "uc", shortName("https://drive.google.com/uc?export=download&id=x"))
	require.Equal(t, "master", shortName("https://api.github.com/repos/x/y/zipball/master/"))
}
