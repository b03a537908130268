package netpath

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zap.InfoLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

// unreachable is a transport that fails the test if it is ever used.
func unreachable(t *testing.T) Doer {
	return DoerFunc(func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request: %s %s", req.Method, req.URL)
		return nil, errors.New("unreachable")
	})
}

func mustNew(t *testing.T, rawURL string, doer Doer) NetPath {
	p, err := New(rawURL, doer)
	require_.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	assert := assert_.New(t)
	doer := unreachable(t)

	p, err := New("https://s3.us.archive.org/", doer)
	assert.NoError(err)
	assert.Equal("https://s3.us.archive.org/", p.URL())
	assert.Equal(0, p.Headers().Len())

	p, err = New("http://127.0.0.1:8080", doer)
	assert.NoError(err)
	assert.Equal("http://127.0.0.1:8080/oauth/token", p.Join("oauth/token").URL())

	_, err = New("ftp://example.com/file", doer)
	assert.ErrorIs(err, ErrUnsupportedScheme)
	_, err = New("/relative/path", doer)
	assert.ErrorIs(err, ErrUnsupportedScheme)
	_, err = New("https://example.com/", nil)
	assert.ErrorIs(err, ErrNoTransport)
}

func TestNetPath_Join(t *testing.T) {
	doer := unreachable(t)
	cases := []struct {
		base     string
		segments []string
		expected string
	}{
		{"https://s3.us.archive.org/", []string{"agoric-office-hours-2024-05-10", "video.mp4"}, "https://s3.us.archive.org/agoric-office-hours-2024-05-10/video.mp4"},
		{"https://s3.us.archive.org", []string{"item", "video.mp4"}, "https://s3.us.archive.org/item/video.mp4"},
		{"https://api.zoom.us/v2/", []string{"users/me/recordings"}, "https://api.zoom.us/v2/users/me/recordings"},
		{"https://api.zoom.us/v2", []string{"users", "me"}, "https://api.zoom.us/v2/users/me"},
		{"https://example.com/a", []string{""}, "https://example.com/a"},
		{"https://example.com/a", []string{"/b"}, "https://example.com/a/b"},
		{"https://example.com/a", []string{"b//c"}, "https://example.com/a/b/c"},
		{"https://example.com/a", []string{"my file#1.mp4"}, "https://example.com/a/my%20file%231.mp4"},
		{"https://example.com/a", []string{"a%20b.txt"}, "https://example.com/a/a%2520b.txt"},
	}
	for _, c := range cases {
		p := mustNew(t, c.base, doer)
		for _, s := range c.segments {
			p = p.Join(s)
		}
		assert_.NoError(t, p.Err())
		assert_.Equal(t, c.expected, p.URL(), "%s + %v", c.base, c.segments)
	}
}

func TestNetPath_JoinComposes(t *testing.T) {
	doer := unreachable(t)
	bases := []string{"https://example.com", "https://example.com/", "https://example.com/root", "https://example.com/root/"}
	pairs := [][2]string{{"a", "b"}, {"item", "file.txt"}, {"x/y", "z"}, {"a", "b/"}, {"dir/", "f"}}
	for _, base := range bases {
		p := mustNew(t, base, doer)
		for _, pair := range pairs {
			stepwise := p.Join(pair[0]).Join(pair[1]).URL()
			combined := p.Join(pair[0] + "/" + pair[1]).URL()
			assert_.Equal(t, strings.TrimSuffix(combined, "/"), strings.TrimSuffix(stepwise, "/"), "%s %v", base, pair)
		}
	}
}

func TestNetPath_JoinEscaping(t *testing.T) {
	assert := assert_.New(t)
	root := mustNew(t, "https://s3.us.archive.org/item", unreachable(t)).
		WithHeaders(NewHeaders("Authorization", "LOW key:secret"))

	for _, segment := range []string{"https://evil.example/x", "//evil.example/x", "..", "../other-item", "a/../../b"} {
		p := root.Join(segment)
		assert.ErrorIs(p.Err(), ErrEscapingSegment, segment)
		// Still at the parent location, and never sends anything
		assert.Equal(root.URL(), p.URL())
		_, err := p.ReadText(context.Background())
		assert.ErrorIs(err, ErrEscapingSegment)
		_, err = p.PutFile(context.Background(), BytesFile("x", []byte("x")))
		assert.ErrorIs(err, ErrEscapingSegment)
		// Sticky through further derivation
		assert.ErrorIs(p.Join("ok").Err(), ErrEscapingSegment)
	}
	assert.NoError(root.Err())
}

func TestNetPath_WithHeaders(t *testing.T) {
	assert := assert_.New(t)
	h1 := mustNew(t, "https://example.com/", unreachable(t)).
		WithHeaders(NewHeaders("Authorization", "LOW a:b", "X-Keep", "1"))
	before := h1.Headers().Keys()

	h2 := h1.WithHeaders(NewHeaders("Authorization", "LOW c:d", "X-New", "2"))

	// h1 unchanged
	assert.Equal(before, h1.Headers().Keys())
	auth, _ := h1.Headers().Get("Authorization")
	assert.Equal("LOW a:b", auth)
	_, found := h1.Headers().Get("X-New")
	assert.False(found)

	// h2 has everything, with the new value winning
	assert.Equal([]string{"Authorization", "X-Keep", "X-New"}, h2.Headers().Keys())
	auth, _ = h2.Headers().Get("Authorization")
	assert.Equal("LOW c:d", auth)
	assert.Equal(h1.URL(), h2.URL())

	// Mutating the returned copy does not leak into the handle
	leaked := h2.Headers()
	leaked.Set("X-Leak", "1")
	_, found = h2.Headers().Get("X-Leak")
	assert.False(found)
}

func TestNetPath_WithHeadersCaseInsensitive(t *testing.T) {
	assert := assert_.New(t)
	var sent string
	doer := DoerFunc(func(req *http.Request) (*http.Response, error) {
		sent = req.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil
	})
	p := mustNew(t, "https://example.com/", doer).
		WithHeaders(NewHeaders("Authorization", "A")).
		WithHeaders(NewHeaders("authorization", "B")).
		WithHeaders(NewHeaders("Authorization", "C"))

	assert.Equal([]string{"Authorization"}, p.Headers().Keys())
	auth, _ := p.Headers().Get("Authorization")
	assert.Equal("C", auth)

	_, err := p.ReadText(context.Background())
	assert.NoError(err)
	assert.Equal("C", sent)
}

func TestNetPath_HeaderPropagation(t *testing.T) {
	assert := assert_.New(t)
	root := mustNew(t, "https://example.com/", unreachable(t))
	sibling := root.Join("a")
	authorized := root.WithHeaders(NewHeaders("Authorization", "secret"))
	child := authorized.Join("b").Join("c")

	// Down derivations
	value, found := child.Headers().Get("Authorization")
	assert.True(found)
	assert.Equal("secret", value)
	// Not up, not sideways
	_, found = root.Headers().Get("Authorization")
	assert.False(found)
	_, found = sibling.Headers().Get("Authorization")
	assert.False(found)
}

func TestNetPath_At(t *testing.T) {
	assert := assert_.New(t)
	api := mustNew(t, "https://api.zoom.us/v2/", unreachable(t)).
		WithHeaders(NewHeaders("Authorization", "Bearer token")).
		WithProgress(func(int64, int64) {})

	other, err := api.At("https://zoom.us/rec/download/abc")
	assert.NoError(err)
	assert.Equal("https://zoom.us/rec/download/abc", other.URL())
	assert.Equal(0, other.Headers().Len())
	assert.Nil(other.progress)

	_, err = api.At("file:///etc/passwd")
	assert.ErrorIs(err, ErrUnsupportedScheme)
}

func TestNetPath_ReadText(t *testing.T) {
	assert := assert_.New(t)
	logs := observeLogs(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodGet, r.Method)
		assert.Equal("yes", r.Header.Get("X-Test"))
		switch r.URL.Path {
		case "/ok":
			_, _ = io.WriteString(w, "<title>hello</title>")
		case "/invalid":
			_, _ = w.Write([]byte{'o', 'k', 0xff})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "no such discussion")
		}
	}))
	defer srv.Close()

	root := mustNew(t, srv.URL, srv.Client()).WithHeaders(NewHeaders("X-Test", "yes"))

	text, err := root.Join("ok").ReadText(context.Background())
	assert.NoError(err)
	assert.Equal("<title>hello</title>", text)
	assert.Equal(1, logs.FilterMessageSnippet("🌐 GET "+srv.URL+"/ok").Len())

	text, err = root.Join("invalid").ReadText(context.Background())
	assert.NoError(err)
	assert.Equal("ok�", text)

	_, err = root.Join("missing").ReadText(context.Background())
	var transportErr *TransportError
	if assert.ErrorAs(err, &transportErr) {
		assert.Equal(http.StatusNotFound, transportErr.Status)
		assert.Equal("Not Found", transportErr.Reason)
		assert.Equal("no such discussion", transportErr.Body)
		assert.Contains(err.Error(), "404")
		assert.Contains(err.Error(), "no such discussion")
	}
}

func TestNetPath_ConnectionFailure(t *testing.T) {
	assert := assert_.New(t)
	cause := errors.New("connection refused")
	p := mustNew(t, "https://example.com/page", DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, &url.Error{Op: "Get", URL: "https://example.com/page", Err: cause}
	}))

	_, err := p.ReadText(context.Background())
	var transportErr *TransportError
	if assert.ErrorAs(err, &transportErr) {
		assert.Equal(0, transportErr.Status)
		assert.ErrorIs(err, cause)
		assert.Equal("GET https://example.com/page: connection refused", err.Error())
	}
}

func TestNetPath_PutFile(t *testing.T) {
	assert := assert_.New(t)
	logs := observeLogs(t)
	content := bytes.Repeat([]byte("x"), 1_500_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPut, r.Method)
		assert.Equal("/item/b.txt", r.URL.Path)
		assert.Equal("LOW a:b", r.Header.Get("Authorization"))
		assert.Equal("Office Hours", r.Header.Get("x-archive-meta-title"))
		assert.EqualValues(len(content), r.ContentLength)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(content, body)
		_, _ = io.WriteString(w, "stored")
	}))
	defer srv.Close()

	// Progress is reported from the transport's writer goroutine
	var lastDone, lastTotal atomic.Int64
	p := mustNew(t, srv.URL, srv.Client()).
		WithHeaders(NewHeaders("Authorization", "LOW a:b")).
		WithProgress(func(done, total int64) {
			lastDone.Store(done)
			lastTotal.Store(total)
		}).
		Join("item").
		Join("b.txt").
		WithHeaders(NewHeaders("x-archive-meta-title", "Office Hours"))

	payload, err := p.PutFile(context.Background(), BytesFile("b.txt", content))
	assert.NoError(err)
	assert.Equal("stored", string(payload))
	assert.Equal(1, logs.FilterMessage("⬆️  Uploading b.txt (1.5 MB)…").Len())
	assert.EqualValues(len(content), lastDone.Load())
	assert.EqualValues(len(content), lastTotal.Load())
}

func TestNetPath_PutFileEmpty(t *testing.T) {
	assert := assert_.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(0, r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := mustNew(t, srv.URL, srv.Client()).Join("empty.txt").PutFile(context.Background(), BytesFile("empty.txt", nil))
	assert.NoError(err)
}

func TestNetPath_PutFileFailure(t *testing.T) {
	assert := assert_.New(t)
	logs := observeLogs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("slow down \xfe"))
	}))
	defer srv.Close()

	_, err := mustNew(t, srv.URL, srv.Client()).Join("f.txt").PutFile(context.Background(), BytesFile("f.txt", []byte("data")))
	var transportErr *TransportError
	if assert.ErrorAs(err, &transportErr) {
		assert.Equal(http.StatusServiceUnavailable, transportErr.Status)
		assert.Equal("Service Unavailable", transportErr.Reason)
		assert.Equal("slow down �", transportErr.Body)
	}
	failures := logs.FilterLevelExact(zap.ErrorLevel).All()
	if assert.Len(failures, 1) {
		assert.Contains(failures[0].Message, "503 Service Unavailable")
		assert.Contains(failures[0].Message, "slow down")
	}
}

func TestNetPath_PutFileCancelled(t *testing.T) {
	assert := assert_.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := mustNew(t, "https://example.com/", DoerFunc(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	}))
	_, err := p.Join("f").PutFile(ctx, BytesFile("f", []byte("data")))
	assert.ErrorIs(err, context.Canceled)
}

func TestNetPath_PostFormAndReadJSON(t *testing.T) {
	assert := assert_.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal("application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.NoError(r.ParseForm())
			assert.Equal("account_credentials", r.PostForm.Get("grant_type"))
			_, _ = io.WriteString(w, `{"access_token":"t0k3n"}`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"value":42}`)
		}
	}))
	defer srv.Close()
	p := mustNew(t, srv.URL, srv.Client())

	var token struct {
		AccessToken string `json:"access_token"`
	}
	assert.NoError(p.PostForm(context.Background(), url.Values{"grant_type": {"account_credentials"}}, &token))
	assert.Equal("t0k3n", token.AccessToken)
	// The form content type is only for that request
	_, found := p.Headers().Get("Content-Type")
	assert.False(found)

	var value struct {
		Value int `json:"value"`
	}
	assert.NoError(p.ReadJSON(context.Background(), &value))
	assert.Equal(42, value.Value)
}

func TestNetPath_Download(t *testing.T) {
	assert := assert_.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer t0k3n", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, "video bytes")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := mustNew(t, srv.URL, srv.Client()).
		WithHeaders(NewHeaders("Authorization", "Bearer t0k3n")).
		Download(context.Background(), &buf)
	assert.NoError(err)
	assert.EqualValues(11, n)
	assert.Equal("video bytes", buf.String())
}

func TestNewHeadersOdd(t *testing.T) {
	assert_.Panics(t, func() { NewHeaders("a") })
}
