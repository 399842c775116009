package models

import (
	"fmt"
	"net/http"
	"time"
)

// Purpose identifies one of the three cache namespace families.
type Purpose string

const (
	PurposeShell Purpose = "shell"
	PurposeAPI   Purpose = "api"
	PurposeCalc  Purpose = "calc"
)

// AllPurposes lists the known namespace families in a stable order.
var AllPurposes = []Purpose{PurposeShell, PurposeAPI, PurposeCalc}

// ValidPurpose returns true if p is a known namespace family.
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeShell, PurposeAPI, PurposeCalc:
		return true
	default:
		return false
	}
}

// NamespaceName builds a versioned namespace name: <prefix>-<family>-<version>.
func NamespaceName(prefix string, purpose Purpose, version string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, purpose, version)
}

// Namespace is the registry record for one versioned cache bucket.
type Namespace struct {
	Name      string    `json:"name" badgerhold:"key"`
	Purpose   Purpose   `json:"purpose"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is an HTTP-shaped response as the gateway stores and serves it:
// status, headers, and the full body. Synthesized offline responses use the
// same representation as real upstream ones.
type Response struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// OK returns true for a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CachedResponse is one stored request/response pair inside a namespace.
type CachedResponse struct {
	Key       string `json:"key" badgerhold:"key"`
	Namespace string `json:"namespace" badgerhold:"index"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	Response  `json:"response"`
	StoredAt  time.Time `json:"stored_at"`
}

// EntryKey builds the storage key for a cached response.
func EntryKey(namespace, method, url string) string {
	return namespace + "|" + method + " " + url
}
