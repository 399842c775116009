package strategy

import (
	"net/http"
	"testing"

	"github.com/bobmcallan/payoff/internal/common"
)

func testResolver(host string) *Resolver {
	return NewResolver(host, common.CacheConfig{
		Prefix:       "payoff",
		APIPrefix:    "/api/",
		AssetsPrefix: "/assets/",
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Kind
	}{
		{"foreign host", Request{Method: "GET", Host: "cdn.example.com", Path: "/lib.js"}, KindPassthrough},
		{"api post", Request{Method: "POST", Host: "app.local", Path: "/api/calculate/credit-card"}, KindAPI},
		{"api get", Request{Method: "GET", Host: "app.local", Path: "/api/history"}, KindAPI},
		{"api ai analysis", Request{Method: "POST", Host: "app.local", Path: "/api/analyze"}, KindAPI},
		{"style destination", Request{Method: "GET", Host: "app.local", Path: "/theme", Destination: "style"}, KindRevalidate},
		{"script destination", Request{Method: "GET", Host: "app.local", Path: "/main", Destination: "script"}, KindRevalidate},
		{"image destination", Request{Method: "GET", Host: "app.local", Path: "/logo", Destination: "image"}, KindRevalidate},
		{"assets dir", Request{Method: "GET", Host: "app.local", Path: "/assets/app.woff"}, KindRevalidate},
		{"js extension", Request{Method: "GET", Host: "app.local", Path: "/bundle.js"}, KindRevalidate},
		{"css extension", Request{Method: "GET", Host: "app.local", Path: "/style.css"}, KindRevalidate},
		{"font destination", Request{Method: "GET", Host: "app.local", Path: "/inter", Destination: "font"}, KindCacheFirst},
		{"favicon", Request{Method: "GET", Host: "app.local", Path: "/favicon.ico"}, KindCacheFirst},
		{"navigation", Request{Method: "GET", Host: "app.local", Path: "/credit-card", Mode: "navigate", Destination: "document"}, KindNavigation},
		{"plain get", Request{Method: "GET", Host: "app.local", Path: "/robots.txt", Mode: "no-cors"}, KindDefault},
		{"manifest", Request{Method: "GET", Host: "app.local", Path: "/manifest.json", Mode: "cors"}, KindDefault},
	}

	r := testResolver("app.local")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Classify(&tt.req); got != tt.want {
				t.Errorf("Classify(%s %s) = %q, want %q", tt.req.Method, tt.req.Path, got, tt.want)
			}
		})
	}
}

// API paths must win over asset rules: an API response is never an
// immutable static asset.
func TestClassify_APIBeatsAssetRules(t *testing.T) {
	r := testResolver("app.local")
	req := Request{Method: "GET", Host: "app.local", Path: "/api/export/report.css", Destination: "style"}
	if got := r.Classify(&req); got != KindAPI {
		t.Errorf("Classify = %q, want %q", got, KindAPI)
	}
}

func TestClassify_NoHostCheckWhenUnconfigured(t *testing.T) {
	r := testResolver("")
	req := Request{Method: "GET", Host: "whatever.example", Path: "/api/history"}
	if got := r.Classify(&req); got != KindAPI {
		t.Errorf("Classify = %q, want %q", got, KindAPI)
	}
}

func TestIsNavigation_AcceptFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml")
	req := Request{Method: http.MethodGet, Path: "/student-loan", Header: h}
	if !req.IsNavigation() {
		t.Error("GET with text/html Accept and no Sec-Fetch-Mode should be a navigation")
	}

	req.Mode = "cors"
	if req.IsNavigation() {
		t.Error("explicit non-navigate mode should win over Accept fallback")
	}
}
