package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/models"
)

type syncStorage struct {
	store  *Store
	logger *common.Logger
}

// NewSyncStorage creates a SyncQueueStore backed by BadgerHold.
func NewSyncStorage(store *Store, logger *common.Logger) *syncStorage {
	return &syncStorage{store: store, logger: logger}
}

func (s *syncStorage) Enqueue(_ context.Context, item *models.PendingSyncItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Status == "" {
		item.Status = models.SyncStatusPending
	}
	if err := s.store.db.Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to enqueue sync item '%s': %w", item.ID, err)
	}
	s.logger.Debug().Str("id", item.ID).Str("url", item.URL).Msg("Sync item queued")
	return nil
}

func (s *syncStorage) ListPending(_ context.Context) ([]*models.PendingSyncItem, error) {
	var items []*models.PendingSyncItem
	err := s.store.db.Find(&items, badgerhold.Where("Status").Eq(models.SyncStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sync items: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *syncStorage) MarkAttempt(_ context.Context, id string, attemptErr error) error {
	var item models.PendingSyncItem
	if err := s.store.db.Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("sync item '%s' not found", id)
		}
		return fmt.Errorf("failed to get sync item '%s': %w", id, err)
	}
	item.Attempts++
	if attemptErr != nil {
		item.LastError = attemptErr.Error()
	}
	if err := s.store.db.Update(id, &item); err != nil {
		return fmt.Errorf("failed to update sync item '%s': %w", id, err)
	}
	return nil
}

func (s *syncStorage) Remove(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.PendingSyncItem{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to remove sync item '%s': %w", id, err)
	}
	return nil
}

func (s *syncStorage) CountPending(_ context.Context) (int, error) {
	count, err := s.store.db.Count(&models.PendingSyncItem{},
		badgerhold.Where("Status").Eq(models.SyncStatusPending))
	if err != nil {
		return 0, fmt.Errorf("failed to count pending sync items: %w", err)
	}
	return int(count), nil
}

func (s *syncStorage) Close() error {
	return s.store.Close()
}
