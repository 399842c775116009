// Package interfaces defines service contracts for the Payoff gateway
package interfaces

import (
	"context"

	"github.com/bobmcallan/payoff/internal/models"
)

// CacheStore persists versioned cache namespaces and their entries.
// Entries are keyed by full request identity, so writers never need a
// read-modify-write cycle; every put is an atomic overwrite.
type CacheStore interface {
	// Namespace registry
	SaveNamespace(ctx context.Context, ns *models.Namespace) error
	ListNamespaces(ctx context.Context) ([]*models.Namespace, error)
	// DeleteNamespace removes the registry record and every entry under it,
	// returning the number of entries deleted.
	DeleteNamespace(ctx context.Context, name string) (int, error)

	// Entries
	GetEntry(ctx context.Context, namespace, method, url string) (*models.CachedResponse, error)
	PutEntry(ctx context.Context, entry *models.CachedResponse) error
	CountEntries(ctx context.Context, namespace string) (int, error)

	Close() error
}

// SyncQueueStore persists pending offline writes for background replay.
type SyncQueueStore interface {
	Enqueue(ctx context.Context, item *models.PendingSyncItem) error
	// ListPending returns queued items oldest-first.
	ListPending(ctx context.Context) ([]*models.PendingSyncItem, error)
	// MarkAttempt records a failed replay attempt and its error.
	MarkAttempt(ctx context.Context, id string, attemptErr error) error
	Remove(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int, error)

	Close() error
}
