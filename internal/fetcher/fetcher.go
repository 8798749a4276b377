package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/oshokin/plutonium-manager/internal/logger"
)

const (
	// acceptEncoding lists the content codings the fetcher can decode.
	acceptEncoding = "gzip, deflate"

	// chunkSize is the read size used when streaming a response body.
	chunkSize = 32 * 1024

	// maxPreallocation caps the in-memory buffer reserved up front from Content-Length.
	maxPreallocation = 256 << 20

	// dirPermissions is used for parent directories of downloaded files.
	dirPermissions = 0o755
)

var (
	// ErrMissingContentLength is returned when the server does not declare the body size.
	ErrMissingContentLength = errors.New("server did not report content length")
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrUnsupportedEncoding is returned for a Content-Encoding the fetcher cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
)

// Options configure a Fetcher.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string
	// MaxAttempts bounds in-memory downloads that lack a content length.
	MaxAttempts int
	// Timeout limits a single request including its body. Zero means no limit.
	Timeout time.Duration
}

// Fetcher performs HTTP downloads with a shared client.
type Fetcher struct {
	// client is the process-scoped HTTP client.
	client *retryablehttp.Client
	// userAgent is set on every request.
	userAgent string
	// progress creates the progress sink of each download. Nil disables reporting.
	progress ProgressFactory
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithProgress sets the factory used to report download progress.
func WithProgress(factory ProgressFactory) Option {
	return func(f *Fetcher) {
		f.progress = factory
	}
}

// WithHTTPClient replaces the underlying transport client.
// The client is copied, so the configured timeout does not leak into the caller's value.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			clone := *client
			f.client.HTTPClient = &clone
		}
	}
}

// New builds a Fetcher. Logging of the underlying client goes through the logger in ctx.
func New(ctx context.Context, opts Options, options ...Option) *Fetcher {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	client := retryablehttp.NewClient()
	client.RetryMax = maxAttempts - 1
	client.CheckRetry = retryMissingLength
	client.Backoff = immediately
	client.ErrorHandler = giveUp
	client.Logger = leveledLogger{log: logger.FromContext(ctx).Named("http")}

	f := &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
	}

	for _, option := range options {
		option(f)
	}

	f.client.HTTPClient.Timeout = opts.Timeout

	return f
}

// Fetch downloads url into memory.
// A response without content length is reissued immediately, up to the configured attempt count.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(withLengthRetry(ctx), url)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("%s: %w", url, ErrMissingContentLength)
	}

	var buf bytes.Buffer

	buf.Grow(int(min(resp.ContentLength, maxPreallocation)))

	if err = f.stream(ctx, url, resp, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// FetchToFile downloads url straight into the file at path, creating or truncating it.
// A response without content length is an error. The partial file is removed on failure.
func (f *Fetcher) FetchToFile(ctx context.Context, url, path string) (err error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength < 0 {
		return fmt.Errorf("%s: %w", url, ErrMissingContentLength)
	}

	path = filepath.Clean(path)
	if err = os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close file %s: %w", path, closeErr)
		}

		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return f.stream(ctx, url, resp, file)
}

// FetchJSON downloads url and decodes the JSON body into v.
func (f *Fetcher) FetchJSON(ctx context.Context, url string, v any) error {
	resp, err := f.get(ctx, url, "Accept", "application/json")
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return err
	}

	if err = json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode json from %s: %w", url, err)
	}

	return nil
}

// get issues a GET request with the common headers and extra header pairs.
func (f *Fetcher) get(ctx context.Context, url string, headers ...string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	logger.DebugKV(ctx, "Requesting", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()

		return nil, fmt.Errorf("get %s: %s: %w", url, resp.Status, ErrUnexpectedStatus)
	}

	return resp, nil
}

// stream copies the response body into dst chunk by chunk, reporting wire bytes as progress.
func (f *Fetcher) stream(ctx context.Context, url string, resp *http.Response, dst io.Writer) error {
	total := resp.ContentLength

	var progress Progress = nopProgress{}
	if f.progress != nil {
		progress = f.progress(url, total)
	}

	counter := &countingReader{
		reader:   resp.Body,
		total:    total,
		progress: progress,
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), counter)
	if err != nil {
		return err
	}

	if _, err = io.CopyBuffer(dst, body, make([]byte, chunkSize)); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	progress.Finish()

	logger.DebugKV(ctx, "Downloaded", "url", url, "bytes", counter.current)

	return nil
}
