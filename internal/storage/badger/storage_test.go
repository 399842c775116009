package badger

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(namespace, method, url, body string) *models.CachedResponse {
	return &models.CachedResponse{
		Namespace: namespace,
		Method:    method,
		URL:       url,
		Response: models.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       []byte(body),
		},
		StoredAt: time.Now(),
	}
}

func TestCacheStorage_NamespaceRoundTrip(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	ns := &models.Namespace{
		Name:      "payoff-shell-v4",
		Purpose:   models.PurposeShell,
		Version:   "v4",
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.SaveNamespace(ctx, ns))

	// Upsert: saving the same name again must not duplicate it.
	require.NoError(t, s.SaveNamespace(ctx, ns))

	namespaces, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	require.Len(t, namespaces, 1)
	assert.Equal(t, "payoff-shell-v4", namespaces[0].Name)
	assert.Equal(t, models.PurposeShell, namespaces[0].Purpose)
}

func TestCacheStorage_SaveNamespaceRejectsBadPurpose(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())

	err := s.SaveNamespace(context.Background(), &models.Namespace{
		Name:    "payoff-junk-v1",
		Purpose: models.Purpose("junk"),
	})
	assert.Error(t, err)
}

func TestCacheStorage_EntryRoundTrip(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-shell-v4", "GET", "/bundle.js", "bundle")))

	entry, err := s.GetEntry(ctx, "payoff-shell-v4", "GET", "/bundle.js")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "bundle", string(entry.Response.Body))
	assert.Equal(t, http.StatusOK, entry.Response.StatusCode)
	assert.Equal(t, "text/plain", entry.Response.Header.Get("Content-Type"))
}

func TestCacheStorage_GetEntryMissIsNotAnError(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())

	entry, err := s.GetEntry(context.Background(), "payoff-shell-v4", "GET", "/nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestCacheStorage_PutEntryOverwrites(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-api-v4", "GET", "/api/history", "old")))
	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-api-v4", "GET", "/api/history", "new")))

	entry, err := s.GetEntry(ctx, "payoff-api-v4", "GET", "/api/history")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "new", string(entry.Response.Body))

	count, err := s.CountEntries(ctx, "payoff-api-v4")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCacheStorage_DeleteNamespaceRemovesEntries(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	require.NoError(t, s.SaveNamespace(ctx, &models.Namespace{
		Name: "payoff-shell-v3", Purpose: models.PurposeShell, Version: "v3", CreatedAt: time.Now(),
	}))
	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-shell-v3", "GET", "/", "old shell")))
	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-shell-v3", "GET", "/bundle.js", "old bundle")))
	require.NoError(t, s.PutEntry(ctx, testEntry("payoff-shell-v4", "GET", "/", "new shell")))

	deleted, err := s.DeleteNamespace(ctx, "payoff-shell-v3")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// The other generation is untouched.
	entry, err := s.GetEntry(ctx, "payoff-shell-v4", "GET", "/")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "new shell", string(entry.Response.Body))

	entry, err = s.GetEntry(ctx, "payoff-shell-v3", "GET", "/")
	require.NoError(t, err)
	assert.Nil(t, entry)

	namespaces, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, namespaces)
}

func TestCacheStorage_DeleteNamespaceMissingIsIdempotent(t *testing.T) {
	s := NewCacheStorage(newTestStore(t), common.NewSilentLogger())

	deleted, err := s.DeleteNamespace(context.Background(), "payoff-shell-never")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestSyncStorage_EnqueueAndList(t *testing.T) {
	s := NewSyncStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	first := &models.PendingSyncItem{URL: "/api/analyze", Method: "POST", Body: []byte(`{"n":1}`)}
	require.NoError(t, s.Enqueue(ctx, first))
	assert.NotEmpty(t, first.ID, "enqueue assigns an id")
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, models.SyncStatusPending, first.Status)

	time.Sleep(5 * time.Millisecond)
	second := &models.PendingSyncItem{URL: "/api/analyze", Method: "POST", Body: []byte(`{"n":2}`)}
	require.NoError(t, s.Enqueue(ctx, second))

	items, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID, "oldest first")
	assert.Equal(t, second.ID, items[1].ID)

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSyncStorage_MarkAttemptAndRemove(t *testing.T) {
	s := NewSyncStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	item := &models.PendingSyncItem{URL: "/api/analyze", Method: "POST"}
	require.NoError(t, s.Enqueue(ctx, item))

	require.NoError(t, s.MarkAttempt(ctx, item.ID, assert.AnError))

	items, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Equal(t, assert.AnError.Error(), items[0].LastError)

	require.NoError(t, s.Remove(ctx, item.ID))

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSyncStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := common.NewSilentLogger()
	ctx := context.Background()

	store, err := NewStore(logger, dir)
	require.NoError(t, err)
	s := NewSyncStorage(store, logger)
	require.NoError(t, s.Enqueue(ctx, &models.PendingSyncItem{URL: "/api/analyze", Method: "POST"}))
	require.NoError(t, store.Close())

	store, err = NewStore(logger, dir)
	require.NoError(t, err)
	defer store.Close()
	s = NewSyncStorage(store, logger)

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "queued writes must survive a restart")
}
