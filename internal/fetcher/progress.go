package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress receives the running byte count of one download.
type Progress interface {
	// Update is called after every chunk with the bytes received so far and the declared total.
	Update(current, total int64)
	// Finish is called once the body has been read completely.
	Finish()
}

// ProgressFactory creates the Progress of a download of url with the declared total size.
type ProgressFactory func(url string, total int64) Progress

type nopProgress struct{}

func (nopProgress) Update(int64, int64) {}

func (nopProgress) Finish() {}

// BarProgress returns a factory that renders a terminal progress bar to out.
func BarProgress(out io.Writer) ProgressFactory {
	return func(url string, total int64) Progress {
		bar := progressbar.NewOptions64(
			total,
			progressbar.OptionSetDescription("Downloading "+shortName(url)),
			progressbar.OptionSetWriter(out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(out, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)

		return &barProgress{bar: bar}
	}
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Update(current, _ int64) {
	_ = p.bar.Set64(current)
}

func (p *barProgress) Finish() {
	_ = p.bar.Finish()
}

// shortName returns the last path segment of url without its query.
func shortName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		url = url[i+1:]
	}

	return url
}

// countingReader counts bytes read from the wire and reports them, clamped to total.
type countingReader struct {
	reader   io.Reader
	current  int64
	total    int64
	progress Progress
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.current += int64(n)
		if r.total >= 0 && r.current > r.total {
			r.current = r.total
		}

		r.progress.Update(r.current, r.total)
	}

	return n, err
}

// decodeBody wraps body with a decoder for the given Content-Encoding.
func decodeBody(encoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}

		return reader, nil
	case "deflate":
		return newDeflateReader(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams.
func newDeflateReader(body io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(body)

	header, err := buffered.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("open deflate body: %w", err)
	}

	if len(header) == 2 && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		reader, zerr := zlib.NewReader(buffered)
		if zerr != nil {
			return nil, fmt.Errorf("open deflate body: %w", zerr)
		}

		return reader, nil
	}

	return flate.NewReader(buffered), nil
}
