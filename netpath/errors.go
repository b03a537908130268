package netpath

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// TransportError describes a request that failed, either with a non-2xx response (Status, Reason and Body are set) or
// without any response at all (Err is set).
type TransportError struct {
	Method string
	URL    string
	Status int
	Reason string
	// Response body, decoded as UTF-8 with invalid bytes replaced.
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	msg := fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.URL, e.Status, e.Reason)
	if e.Body != "" {
		msg += "\n" + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func reason(resp *http.Response) string {
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}
