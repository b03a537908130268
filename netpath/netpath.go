// Package netpath provides NetPath, a handle on a network resource that carries the authority needed to act on it: a
// transport (Doer) and a set of request headers, typically credentials.
//
// A NetPath is an immutable value. Join derives a handle for a location below the current one, WithHeaders derives a
// handle with extra headers; neither changes the value it was called on, and headers flow down derivations but never
// back up or across to siblings. Code that is not handed a NetPath has no way to reach the network.
package netpath

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/office-hours-archiver/generic"
)

var (
	ErrEscapingSegment   = errors.New("path segment escapes its parent")
	ErrNoTransport       = errors.New("no transport")
	ErrUnsupportedScheme = errors.New("unsupported URL")
)

var schemes = generic.NewSet("http", "https")

// Doer is the capability to perform HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts an ordinary function to a Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Headers is an ordered set of request headers.
type Headers = generic.OrderedMap[string, string]

// NewHeaders builds Headers from alternating keys and values.
func NewHeaders(keyValues ...string) Headers {
	if len(keyValues)%2 != 0 {
		panic("netpath.NewHeaders: odd number of arguments")
	}
	var h Headers
	for i := 0; i < len(keyValues); i += 2 {
		h.Set(keyValues[i], keyValues[i+1])
	}
	return h
}

// ProgressFunc observes the number of body bytes transferred so far, out of total (-1 if unknown).
type ProgressFunc func(done, total int64)

type NetPath struct {
	url  url.URL
	doer Doer
	// Never modified in place once attached, so derived handles can share it.
	headers  Headers
	progress ProgressFunc
	// Sticky error from an invalid derivation, returned by every request.
	err error
}

// New creates a NetPath for an absolute http(s) URL, with no headers.
func New(rawURL string, doer Doer) (NetPath, error) {
	if doer == nil {
		return NetPath{}, ErrNoTransport
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return NetPath{}, err
	}
	if !schemes.Contains(parsed.Scheme) || parsed.Host == "" {
		return NetPath{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	// Joining onto an empty path would produce a relative one
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return NetPath{url: *parsed, doer: doer}, nil
}

// At creates a NetPath for an unrelated address that shares only the transport of p. Headers and progress reporting
// are not carried over.
func (p NetPath) At(rawURL string) (NetPath, error) {
	return New(rawURL, p.doer)
}

// Join returns a NetPath for segment below p, which may contain several "/"-separated elements. An empty segment gives
// p itself. A segment that would leave p's location (a scheme, a "//" prefix, or a ".." element) produces a handle
// whose requests all fail with ErrEscapingSegment.
func (p NetPath) Join(segment string) NetPath {
	if p.err != nil || segment == "" {
		return p
	}
	elems, err := splitSegment(segment)
	if err != nil {
		p.err = err
		return p
	}
	p.url = *p.url.JoinPath(elems...)
	return p
}

// WithHeaders returns a NetPath at the same location whose headers are p's merged with extra, extra winning on
// collision. Keys are compared in canonical form, as they are sent.
func (p NetPath) WithHeaders(extra Headers) NetPath {
	var canonical Headers
	extra.Each(func(key, value string) {
		canonical.Set(http.CanonicalHeaderKey(key), value)
	})
	p.headers = p.headers.Merge(canonical)
	return p
}

// WithProgress returns a NetPath that reports body transfer progress of its requests to f.
func (p NetPath) WithProgress(f ProgressFunc) NetPath {
	p.progress = f
	return p
}

// Err returns the error recorded by an invalid Join, if any.
func (p NetPath) Err() error {
	return p.err
}

// Headers returns a copy of the attached headers, keyed by canonical header name.
func (p NetPath) Headers() Headers {
	return p.headers.Clone()
}

// URL returns the address of the resource.
func (p NetPath) URL() string {
	return p.url.String()
}

func (p NetPath) String() string {
	return p.url.Redacted()
}

// ReadText performs a GET and returns the response body as text.
func (p NetPath) ReadText(ctx context.Context) (string, error) {
	resp, err := p.request(ctx, http.MethodGet, nil, -1)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.transportError(http.MethodGet, err)
	}
	return decodeText(body), nil
}

// ReadJSON performs a GET and decodes the JSON response body into v.
func (p NetPath) ReadJSON(ctx context.Context, v any) error {
	resp, err := p.request(ctx, http.MethodGet, nil, -1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %v: %w", p, err)
	}
	return nil
}

// PostForm performs a form-encoded POST and decodes the JSON response body into v.
func (p NetPath) PostForm(ctx context.Context, values url.Values, v any) error {
	encoded := values.Encode()
	p = p.WithHeaders(NewHeaders("Content-Type", "application/x-www-form-urlencoded"))
	resp, err := p.request(ctx, http.MethodPost, strings.NewReader(encoded), int64(len(encoded)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %v: %w", p, err)
	}
	return nil
}

// Download performs a GET and copies the response body to w, returning the number of bytes written.
func (p NetPath) Download(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := p.request(ctx, http.MethodGet, nil, -1)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, p.track(ctx, resp.Body, resp.ContentLength))
	if err != nil {
		return n, p.transportError(http.MethodGet, err)
	}
	return n, nil
}

// PutFile uploads the full content of f with a PUT, returning the raw response body.
func (p NetPath) PutFile(ctx context.Context, f File) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	size := f.Size()
	logger().Infof("⬆️  Uploading %s (%.1f MB)…", f.Name(), float64(size)/1e6)

	content, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name(), err)
	}
	defer content.Close()

	var body io.Reader = http.NoBody
	if size > 0 {
		body = p.track(ctx, content, size)
	}
	resp, err := p.request(ctx, http.MethodPut, body, size)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.Status != 0 {
			logger().Errorf("❌ Upload failed (%d %s)\nResponse body:\n%s", transportErr.Status, transportErr.Reason, transportErr.Body)
		}
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.transportError(http.MethodPut, err)
	}
	return payload, nil
}

// request sends a request with p's headers. Any response outside 2xx is consumed and returned as a *TransportError.
func (p NetPath) request(ctx context.Context, method string, body io.Reader, contentLength int64) (*http.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.doer == nil {
		return nil, ErrNoTransport
	}
	req, err := http.NewRequestWithContext(ctx, method, p.url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}
	p.headers.Each(func(key, value string) {
		req.Header.Set(key, value)
	})

	logger().Infof("🌐 %s %v", method, p)
	resp, err := p.doer.Do(req)
	if err != nil {
		return nil, p.transportError(method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		// Best effort: the body usually explains the failure, but a broken body must not hide the status
		content, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{
			Method: method,
			URL:    p.String(),
			Status: resp.StatusCode,
			Reason: reason(resp),
			Body:   decodeText(content),
		}
	}
	return resp, nil
}

func (p NetPath) track(ctx context.Context, r io.Reader, total int64) io.Reader {
	return &trackingReader{ctx: ctx, r: r, total: total, progress: p.progress}
}

func (p NetPath) transportError(method string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &TransportError{
		Method: method,
		URL:    p.String(),
		Err:    err,
	}
}

// splitSegment breaks segment into path-escaped elements, rejecting anything that would leave the parent location.
func splitSegment(segment string) ([]string, error) {
	if strings.HasPrefix(segment, "//") || strings.Contains(segment, "://") {
		return nil, fmt.Errorf("%w: %q", ErrEscapingSegment, segment)
	}
	elems := strings.Split(segment, "/")
	for i, elem := range elems {
		if elem == ".." {
			return nil, fmt.Errorf("%w: %q", ErrEscapingSegment, segment)
		}
		// url.URL.JoinPath unescapes the joined path, so escape here to keep "%" and friends literal
		elems[i] = url.PathEscape(elem)
	}
	return elems, nil
}

func logger() *zap.SugaredLogger {
	return zap.S().Named("netpath")
}
