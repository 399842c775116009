// Package strategy classifies intercepted requests and executes the caching
// strategy each class calls for.
package strategy

import (
	"strings"

	"github.com/bobmcallan/payoff/internal/common"
)

// Kind is the caching strategy chosen for a request.
type Kind string

const (
	// KindPassthrough proxies without touching any cache (foreign host).
	KindPassthrough Kind = "passthrough"
	// KindAPI runs the network -> cache -> simulation -> error cascade.
	KindAPI Kind = "api"
	// KindRevalidate serves stale-while-revalidate from the shell namespace.
	KindRevalidate Kind = "revalidate"
	// KindCacheFirst serves fonts and icons cache-first.
	KindCacheFirst Kind = "cache-first"
	// KindNavigation is network-first with app-shell fallback for page loads.
	KindNavigation Kind = "navigation"
	// KindDefault is plain network-first against the shell namespace.
	KindDefault Kind = "default"
)

// revalidateDestinations are the Sec-Fetch-Dest values treated as static
// assets. API paths are checked first: an API response must never be
// classified as an immutable asset.
var revalidateDestinations = map[string]bool{
	"style":  true,
	"script": true,
	"image":  true,
}

// Resolver is a pure classification function over request metadata. All of
// its inputs come from configuration so it is testable without a server.
type Resolver struct {
	host         string
	apiPrefix    string
	assetsPrefix string
}

// NewResolver creates a resolver for the configured deployment.
// host may be empty, in which case no host check is applied.
func NewResolver(host string, cfg common.CacheConfig) *Resolver {
	return &Resolver{
		host:         host,
		apiPrefix:    cfg.APIPrefix,
		assetsPrefix: cfg.AssetsPrefix,
	}
}

// Classify maps a request to exactly one strategy kind. Precedence matters
// and follows the interception contract:
//
//  1. foreign host: not ours to mediate
//  2. API prefix
//  3. static asset by destination, assets directory, or extension
//  4. font or favicon
//  5. navigation (full-page load)
//  6. everything else: network-first against the shell namespace
func (r *Resolver) Classify(req *Request) Kind {
	if r.host != "" && req.Host != "" && !strings.EqualFold(req.Host, r.host) {
		return KindPassthrough
	}

	if strings.HasPrefix(req.Path, r.apiPrefix) {
		return KindAPI
	}

	if revalidateDestinations[req.Destination] ||
		strings.HasPrefix(req.Path, r.assetsPrefix) ||
		req.Ext() == ".js" || req.Ext() == ".css" {
		return KindRevalidate
	}

	if req.Destination == "font" || req.Ext() == ".ico" {
		return KindCacheFirst
	}

	if req.IsNavigation() {
		return KindNavigation
	}

	return KindDefault
}
