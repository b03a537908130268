package netpath

import (
	"context"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// A context-aware io.Reader wrapper that also reports progress.
type trackingReader struct {
	ctx      context.Context
	r        io.Reader
	done     int64
	total    int64
	progress ProgressFunc
}

func (r *trackingReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err = r.r.Read(p)
	if n > 0 {
		r.done += int64(n)
		if r.progress != nil {
			r.progress(r.done, r.total)
		}
	}
	return n, err
}

// decodeText decodes UTF-8, replacing invalid bytes with U+FFFD rather than failing.
func decodeText(b []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
