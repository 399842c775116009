package badger

import (
	"context"
	"fmt"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type cacheStorage struct {
	store  *Store
	logger *common.Logger
}

// NewCacheStorage creates a CacheStore backed by BadgerHold.
func NewCacheStorage(store *Store, logger *common.Logger) *cacheStorage {
	return &cacheStorage{store: store, logger: logger}
}

func (s *cacheStorage) SaveNamespace(_ context.Context, ns *models.Namespace) error {
	if !models.ValidPurpose(ns.Purpose) {
		return fmt.Errorf("invalid namespace purpose %q", ns.Purpose)
	}
	if err := s.store.db.Upsert(ns.Name, ns); err != nil {
		return fmt.Errorf("failed to save namespace '%s': %w", ns.Name, err)
	}
	return nil
}

func (s *cacheStorage) ListNamespaces(_ context.Context) ([]*models.Namespace, error) {
	var namespaces []*models.Namespace
	if err := s.store.db.Find(&namespaces, nil); err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return namespaces, nil
}

func (s *cacheStorage) DeleteNamespace(_ context.Context, name string) (int, error) {
	query := badgerhold.Where("Namespace").Eq(name).Index("Namespace")

	count, err := s.store.db.Count(&models.CachedResponse{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries in namespace '%s': %w", name, err)
	}

	if err := s.store.db.DeleteMatching(&models.CachedResponse{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete entries in namespace '%s': %w", name, err)
	}

	err = s.store.db.Delete(name, models.Namespace{})
	if err != nil && err != badgerhold.ErrNotFound {
		return int(count), fmt.Errorf("failed to delete namespace '%s': %w", name, err)
	}

	s.logger.Debug().Str("namespace", name).Int("entries", int(count)).Msg("Namespace deleted")
	return int(count), nil
}

func (s *cacheStorage) GetEntry(_ context.Context, namespace, method, url string) (*models.CachedResponse, error) {
	var entry models.CachedResponse
	err := s.store.db.Get(models.EntryKey(namespace, method, url), &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil // cache miss is a normal branch, not an error
		}
		return nil, fmt.Errorf("failed to get cached entry: %w", err)
	}
	return &entry, nil
}

func (s *cacheStorage) PutEntry(_ context.Context, entry *models.CachedResponse) error {
	if entry.Key == "" {
		entry.Key = models.EntryKey(entry.Namespace, entry.Method, entry.URL)
	}
	if err := s.store.db.Upsert(entry.Key, entry); err != nil {
		return fmt.Errorf("failed to store cached entry '%s': %w", entry.Key, err)
	}
	return nil
}

func (s *cacheStorage) CountEntries(_ context.Context, namespace string) (int, error) {
	count, err := s.store.db.Count(&models.CachedResponse{},
		badgerhold.Where("Namespace").Eq(namespace).Index("Namespace"))
	if err != nil {
		return 0, fmt.Errorf("failed to count entries in namespace '%s': %w", namespace, err)
	}
	return int(count), nil
}

func (s *cacheStorage) Close() error {
	return s.store.Close()
}
