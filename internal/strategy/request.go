package strategy

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

const maxRequestBody = 1 << 20

// ErrBodyTooLarge reports an intercepted request body over the buffering
// limit. A truncated body must never be proxied, cached, or queued.
var ErrBodyTooLarge = errors.New("request body exceeds buffering limit")

// Request is the gateway's view of one intercepted request: just the fields
// classification and execution need, independent of the server runtime.
type Request struct {
	Method      string
	Host        string
	Path        string
	Destination string // Sec-Fetch-Dest: "style", "script", "image", "font", "document", ...
	Mode        string // Sec-Fetch-Mode: "navigate", "cors", "no-cors", ...
	Header      http.Header
	Body        []byte
}

// FromHTTP builds a Request from an incoming HTTP request, reading and
// buffering the body so it can be replayed against the upstream.
func FromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxRequestBody {
			return nil, ErrBodyTooLarge
		}
		body = data
	}

	return &Request{
		Method:      r.Method,
		Host:        r.Host,
		Path:        r.URL.Path,
		Destination: r.Header.Get("Sec-Fetch-Dest"),
		Mode:        r.Header.Get("Sec-Fetch-Mode"),
		Header:      r.Header.Clone(),
		Body:        body,
	}, nil
}

// Ext returns the lowercase path extension, including the dot.
func (r *Request) Ext() string {
	return strings.ToLower(path.Ext(r.Path))
}

// IsNavigation reports whether this is a full-page load. Browsers send
// Sec-Fetch-Mode: navigate; the Accept fallback covers clients that don't.
func (r *Request) IsNavigation() bool {
	if r.Mode == "navigate" {
		return true
	}
	if r.Mode != "" {
		return false
	}
	return r.Method == http.MethodGet &&
		strings.Contains(r.Header.Get("Accept"), "text/html")
}
