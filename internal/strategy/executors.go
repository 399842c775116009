package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/fallback"
	"github.com/bobmcallan/payoff/internal/interfaces"
	"github.com/bobmcallan/payoff/internal/models"
)

const revalidateTimeout = 30 * time.Second

// offlinePage is served for a navigation when the upstream is down and
// nothing is cached. Self-contained: the user always sees a page, never a
// transport error.
const offlinePage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Offline</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;background:#f5f5f5}div{text-align:center}</style>
</head>
<body><div><h1>You're offline</h1><p>The payoff calculators still work offline once the app has loaded.</p></div></body>
</html>`

// Executor runs the strategy chosen by the resolver. All executors absorb
// failures that have a defined fallback; only a fallback-exhausted
// passthrough or network-first surfaces an error to the caller.
type Executor struct {
	cache    interfaces.CacheManager
	upstream interfaces.UpstreamClient
	sims     *fallback.Table
	queue    interfaces.SyncQueueStore
	logger   *common.Logger
}

// NewExecutor wires an executor over the cache manager, upstream client,
// simulation table, and pending-write queue.
func NewExecutor(cache interfaces.CacheManager, up interfaces.UpstreamClient, sims *fallback.Table, queue interfaces.SyncQueueStore, logger *common.Logger) *Executor {
	return &Executor{
		cache:    cache,
		upstream: up,
		sims:     sims,
		queue:    queue,
		logger:   logger,
	}
}

// Execute dispatches a classified request to its strategy.
func (e *Executor) Execute(ctx context.Context, kind Kind, req *Request) (*models.Response, error) {
	switch kind {
	case KindPassthrough:
		return e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	case KindAPI:
		return e.api(ctx, req)
	case KindRevalidate:
		return e.staleWhileRevalidate(ctx, req)
	case KindCacheFirst:
		return e.cacheFirst(ctx, req)
	case KindNavigation:
		return e.navigation(ctx, req)
	default:
		return e.networkFirst(ctx, req, models.PurposeShell)
	}
}

// networkFirst attempts the network, caching a 2xx copy; on fetch failure
// it falls back to the best cached entry and otherwise propagates.
func (e *Executor) networkFirst(ctx context.Context, req *Request, purpose models.Purpose) (*models.Response, error) {
	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err == nil {
		if resp.OK() {
			e.cachePut(ctx, purpose, req.Method, req.Path, resp)
		}
		return resp, nil
	}

	if cached, ok := e.cache.Get(ctx, purpose, req.Method, req.Path); ok {
		return cached, nil
	}
	return nil, err
}

// staleWhileRevalidate returns the cached entry immediately when present,
// refreshing it concurrently for future reads. The in-flight revalidation
// never affects the response already being returned.
func (e *Executor) staleWhileRevalidate(ctx context.Context, req *Request) (*models.Response, error) {
	cached, ok := e.cache.Get(ctx, models.PurposeShell, req.Method, req.Path)
	if ok {
		go e.revalidate(req)
		return cached, nil
	}

	// Nothing cached: the caller has to wait for the network.
	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		e.cachePut(ctx, models.PurposeShell, req.Method, req.Path, resp)
	}
	return resp, nil
}

// revalidate refreshes one cached asset in the background. It runs outside
// the request's context: the caller already has its response.
func (e *Executor) revalidate(req *Request) {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err != nil {
		e.logger.Debug().Str("path", req.Path).Err(err).Msg("Revalidation fetch failed")
		return
	}
	if resp.OK() {
		e.cachePut(ctx, models.PurposeShell, req.Method, req.Path, resp)
	}
}

// cacheFirst serves from cache without touching the network; on a miss it
// fetches, caches, and returns.
func (e *Executor) cacheFirst(ctx context.Context, req *Request) (*models.Response, error) {
	if cached, ok := e.cache.Get(ctx, models.PurposeShell, req.Method, req.Path); ok {
		return cached, nil
	}

	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		e.cachePut(ctx, models.PurposeShell, req.Method, req.Path, resp)
	}
	return resp, nil
}

// apiEntryURL extends the path with a digest of the request body so a cache
// entry matches the exact request: two calculations with different inputs on
// the same endpoint must never share an entry.
func apiEntryURL(req *Request) string {
	if len(req.Body) == 0 {
		return req.Path
	}
	sum := sha256.Sum256(req.Body)
	return req.Path + "#" + hex.EncodeToString(sum[:8])
}

// api runs the full cascade: network -> cached exact match -> local
// simulation (known POST endpoints) -> synthetic 503. A request that
// reaches the end of the cascade always gets a well-formed JSON response,
// never a raw transport error.
func (e *Executor) api(ctx context.Context, req *Request) (*models.Response, error) {
	entryURL := apiEntryURL(req)

	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err == nil && resp.OK() {
		e.cachePut(ctx, models.PurposeAPI, req.Method, entryURL, resp)
		return resp, nil
	}
	if err != nil {
		e.logger.Debug().Str("path", req.Path).Err(err).Msg("API fetch failed, trying cache")
	} else {
		e.logger.Debug().Str("path", req.Path).Int("status", resp.StatusCode).Msg("API fetch non-2xx, trying cache")
	}

	// A cache hit is indistinguishable from a fresh response to the caller;
	// for these calculators correctness beats staleness transparency.
	if cached, ok := e.cache.Get(ctx, models.PurposeAPI, req.Method, entryURL); ok {
		return cached, nil
	}

	if req.Method == http.MethodPost {
		if simulated, ok := e.sims.Simulate(req.Path, req.Body); ok {
			e.logger.Info().Str("path", req.Path).Msg("Response computed offline")
			return simulated, nil
		}
		// A write with no local equivalent: queue it for background replay
		// before reporting unavailability.
		e.enqueueForSync(ctx, req)
	}

	return fallback.Unavailable(req.Path), nil
}

// navigation is network-first against the shell namespace. A fetched page
// is additionally re-cached under the root document key so any path loads
// the app shell offline. With nothing cached at all, an inline offline page
// is returned rather than a transport error.
func (e *Executor) navigation(ctx context.Context, req *Request) (*models.Response, error) {
	resp, err := e.upstream.Fetch(ctx, req.Method, req.Path, req.Header, req.Body)
	if err == nil {
		if resp.OK() {
			e.cachePut(ctx, models.PurposeShell, req.Method, req.Path, resp)
			e.cachePut(ctx, models.PurposeShell, http.MethodGet, "/", resp)
		}
		return resp, nil
	}

	if cached, ok := e.cache.Get(ctx, models.PurposeShell, req.Method, req.Path); ok {
		return cached, nil
	}
	if cached, ok := e.cache.Get(ctx, models.PurposeShell, http.MethodGet, "/"); ok {
		return cached, nil
	}

	return &models.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(offlinePage),
	}, nil
}

func (e *Executor) cachePut(ctx context.Context, purpose models.Purpose, method, url string, resp *models.Response) {
	if err := e.cache.Put(ctx, purpose, method, url, resp); err != nil {
		e.logger.Warn().Err(err).Str("url", url).Msg("Cache write failed")
	}
}

func (e *Executor) enqueueForSync(ctx context.Context, req *Request) {
	if e.queue == nil {
		return
	}
	item := &models.PendingSyncItem{
		URL:    req.Path,
		Method: req.Method,
		Header: req.Header,
		Body:   req.Body,
	}
	if err := e.queue.Enqueue(ctx, item); err != nil {
		e.logger.Warn().Err(err).Str("url", req.Path).Msg("Failed to queue offline write")
		return
	}
	e.logger.Info().Str("url", req.Path).Msg("Offline write queued for replay")
}
