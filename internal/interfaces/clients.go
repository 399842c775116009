package interfaces

import (
	"context"
	"net/http"

	"github.com/bobmcallan/payoff/internal/models"
)

// UpstreamClient is the single network egress shared by all strategy
// executors. A non-nil *models.Response is returned for any HTTP-level
// reply, including non-2xx; an error means the request never completed
// (connect failure, timeout, context cancellation).
type UpstreamClient interface {
	Fetch(ctx context.Context, method, path string, header http.Header, body []byte) (*models.Response, error)
	// Ping reports whether the upstream currently answers at all. Used by
	// the background-sync loop as a cheap connectivity probe.
	Ping(ctx context.Context) bool
}
