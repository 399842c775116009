package interfaces

import (
	"context"

	"github.com/bobmcallan/payoff/internal/models"
)

// CacheManager owns the three versioned namespace families.
type CacheManager interface {
	// CurrentName returns the live namespace name for a family.
	CurrentName(purpose models.Purpose) string
	// Precache fetches the shell manifest into the shell namespace.
	// All-or-nothing: any fetch failure fails the whole step.
	Precache(ctx context.Context) error
	// EvictStale deletes every namespace whose family matches a known
	// prefix but whose name is not a current generation. Returns the
	// names deleted.
	EvictStale(ctx context.Context) ([]string, error)

	Get(ctx context.Context, purpose models.Purpose, method, url string) (*models.Response, bool)
	Put(ctx context.Context, purpose models.Purpose, method, url string, resp *models.Response) error
}

// Notifier fans notifications out to connected clients.
type Notifier interface {
	Broadcast(n models.Notification)
	ClientCount() int
}
