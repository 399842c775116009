package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/models"
)

// --- Mocks ---

type stubCache struct {
	mu          sync.Mutex
	entries     map[string]*models.Response
	precacheErr error
	evictErr    error
	evicted     []string
	precached   int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*models.Response), evicted: []string{"payoff-shell-v3"}}
}

func (s *stubCache) CurrentName(purpose models.Purpose) string {
	return "payoff-" + string(purpose) + "-v4"
}

func (s *stubCache) Precache(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.precacheErr != nil {
		return s.precacheErr
	}
	s.precached++
	return nil
}

func (s *stubCache) EvictStale(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evictErr != nil {
		return nil, s.evictErr
	}
	return s.evicted, nil
}

func (s *stubCache) Get(_ context.Context, purpose models.Purpose, method, url string) (*models.Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.entries[string(purpose)+"|"+method+" "+url]
	return resp, ok
}

func (s *stubCache) Put(_ context.Context, purpose models.Purpose, method, url string, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[string(purpose)+"|"+method+" "+url] = resp
	return nil
}

type stubQueue struct {
	mu    sync.Mutex
	items []*models.PendingSyncItem
}

func (s *stubQueue) Enqueue(_ context.Context, item *models.PendingSyncItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *stubQueue) ListPending(_ context.Context) ([]*models.PendingSyncItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.PendingSyncItem(nil), s.items...), nil
}

func (s *stubQueue) MarkAttempt(_ context.Context, id string, attemptErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			item.Attempts++
			if attemptErr != nil {
				item.LastError = attemptErr.Error()
			}
		}
	}
	return nil
}

func (s *stubQueue) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubQueue) CountPending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

func (s *stubQueue) Close() error { return nil }

type stubUpstream struct {
	mu       sync.Mutex
	online   bool
	statuses map[string]int // "METHOD url" -> status; missing means 200
	fetches  []string
}

func (s *stubUpstream) Fetch(_ context.Context, method, path string, _ http.Header, _ []byte) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return nil, errors.New("connection refused")
	}
	s.fetches = append(s.fetches, method+" "+path)
	status := http.StatusOK
	if st, ok := s.statuses[method+" "+path]; ok {
		status = st
	}
	return &models.Response{StatusCode: status, Header: http.Header{}}, nil
}

func (s *stubUpstream) Ping(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func newTestController(cache *stubCache, queue *stubQueue, up *stubUpstream) *Controller {
	cfg := common.SyncConfig{Interval: "1h", MaxAttempts: 3}
	return NewController(cache, queue, up, NewHub(common.NewSilentLogger()), cfg, common.NewSilentLogger())
}

// --- Lifecycle ---

func TestInstall_Success(t *testing.T) {
	cache := newStubCache()
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})

	require.Equal(t, PhaseNew, c.Phase())
	require.NoError(t, c.Install(context.Background()))
	assert.Equal(t, PhaseWaiting, c.Phase())
	assert.Equal(t, 1, cache.precached)
}

func TestInstall_PrecacheFailure(t *testing.T) {
	cache := newStubCache()
	cache.precacheErr = errors.New("upstream unreachable")
	c := newTestController(cache, &stubQueue{}, &stubUpstream{})

	err := c.Install(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, c.Phase(), "a failed install must be visibly failed so it can be retried")
}

func TestActivate_EvictsAndActivates(t *testing.T) {
	cache := newStubCache()
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})

	require.NoError(t, c.Install(context.Background()))
	require.NoError(t, c.Activate(context.Background()))
	assert.Equal(t, PhaseActive, c.Phase())
}

func TestActivate_EvictionFailureKeepsPhase(t *testing.T) {
	cache := newStubCache()
	cache.evictErr = errors.New("store corrupt")
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})

	require.NoError(t, c.Install(context.Background()))
	require.Error(t, c.Activate(context.Background()))
	assert.Equal(t, PhaseWaiting, c.Phase())
}

// --- Control messages ---

func TestHandleMessage_SkipWaitingActivates(t *testing.T) {
	cache := newStubCache()
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})
	ctx := context.Background()

	require.NoError(t, c.Install(ctx))
	require.NoError(t, c.HandleMessage(ctx, &models.ControlMessage{Type: models.MessageSkipWaiting}))
	assert.Equal(t, PhaseActive, c.Phase())
}

func TestHandleMessage_SkipWaitingIgnoredWhenNotWaiting(t *testing.T) {
	cache := newStubCache()
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})

	// Still in the new phase: nothing staged, nothing to activate.
	require.NoError(t, c.HandleMessage(context.Background(), &models.ControlMessage{Type: models.MessageSkipWaiting}))
	assert.Equal(t, PhaseNew, c.Phase())
}

func TestHandleMessage_CacheCalculationRoundTrip(t *testing.T) {
	cache := newStubCache()
	c := newTestController(cache, &stubQueue{}, &stubUpstream{online: true})
	ctx := context.Background()

	value := json.RawMessage(`{"months":42,"total_paid":124000}`)
	require.NoError(t, c.HandleMessage(ctx, &models.ControlMessage{
		Type:  models.MessageCacheCalculation,
		Key:   "cc-100000-18-3000",
		Value: value,
	}))

	resp, ok := c.GetCalculation(ctx, "cc-100000-18-3000")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, string(value), string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHandleMessage_CacheCalculationRequiresKeyAndValue(t *testing.T) {
	c := newTestController(newStubCache(), &stubQueue{}, &stubUpstream{online: true})
	ctx := context.Background()

	err := c.HandleMessage(ctx, &models.ControlMessage{Type: models.MessageCacheCalculation, Value: json.RawMessage(`{}`)})
	assert.Error(t, err)

	err = c.HandleMessage(ctx, &models.ControlMessage{Type: models.MessageCacheCalculation, Key: "k"})
	assert.Error(t, err)
}

func TestHandleMessage_UnknownType(t *testing.T) {
	c := newTestController(newStubCache(), &stubQueue{}, &stubUpstream{online: true})

	err := c.HandleMessage(context.Background(), &models.ControlMessage{Type: "REBOOT"})
	assert.Error(t, err)
}

func TestHandleMessage_SyncRequestsPass(t *testing.T) {
	c := newTestController(newStubCache(), &stubQueue{}, &stubUpstream{online: true})

	require.NoError(t, c.HandleMessage(context.Background(), &models.ControlMessage{Type: models.MessageSync}))

	select {
	case <-c.syncNow:
	default:
		t.Fatal("SYNC message did not request a replay pass")
	}
}

func TestTriggerSync_CoalescesRequests(t *testing.T) {
	c := newTestController(newStubCache(), &stubQueue{}, &stubUpstream{online: true})

	// A second trigger while one is pending must not block.
	c.TriggerSync()
	c.TriggerSync()

	<-c.syncNow
	select {
	case <-c.syncNow:
		t.Fatal("pending triggers should coalesce into one pass")
	default:
	}
}

func TestHandlePush_RejectsIncompletePayload(t *testing.T) {
	c := newTestController(newStubCache(), &stubQueue{}, &stubUpstream{online: true})

	assert.Error(t, c.HandlePush(&models.PushPayload{Body: "no title"}))
	assert.Error(t, c.HandlePush(&models.PushPayload{Title: "no body"}))
	assert.NoError(t, c.HandlePush(&models.PushPayload{Title: "Hi", Body: "There"}))
}

// --- Queue replay ---

func TestDrainQueue_ReplaysAndRemoves(t *testing.T) {
	queue := &stubQueue{}
	up := &stubUpstream{online: true}
	c := newTestController(newStubCache(), queue, up)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, &models.PendingSyncItem{ID: "a", Method: "POST", URL: "/api/analyze"}))
	require.NoError(t, queue.Enqueue(ctx, &models.PendingSyncItem{ID: "b", Method: "POST", URL: "/api/feedback"}))

	c.drainQueue(ctx)

	count, _ := queue.CountPending(ctx)
	assert.Equal(t, 0, count)
	assert.Equal(t, []string{"POST /api/analyze", "POST /api/feedback"}, up.fetches)
}

func TestDrainQueue_SkipsWhenUnreachable(t *testing.T) {
	queue := &stubQueue{}
	up := &stubUpstream{online: false}
	c := newTestController(newStubCache(), queue, up)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, &models.PendingSyncItem{ID: "a", Method: "POST", URL: "/api/analyze"}))

	c.drainQueue(ctx)

	count, _ := queue.CountPending(ctx)
	assert.Equal(t, 1, count, "nothing is attempted while the upstream is down")
	assert.Empty(t, up.fetches)
}

func TestDrainQueue_FailureLeavesQueued(t *testing.T) {
	queue := &stubQueue{}
	up := &stubUpstream{online: true, statuses: map[string]int{"POST /api/analyze": http.StatusInternalServerError}}
	c := newTestController(newStubCache(), queue, up)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, &models.PendingSyncItem{ID: "a", Method: "POST", URL: "/api/analyze"}))

	c.drainQueue(ctx)

	items, _ := queue.ListPending(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Contains(t, items[0].LastError, "500")
}

func TestDrainQueue_ExhaustedAttemptsDropped(t *testing.T) {
	queue := &stubQueue{}
	up := &stubUpstream{online: true}
	c := newTestController(newStubCache(), queue, up)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, &models.PendingSyncItem{ID: "a", Method: "POST", URL: "/api/analyze", Attempts: 3}))

	c.drainQueue(ctx)

	count, _ := queue.CountPending(ctx)
	assert.Equal(t, 0, count, "an item over the attempt budget is dropped, not replayed")
	assert.Empty(t, up.fetches)
}
