// Package lifecycle implements the gateway's install/activate state machine,
// the control message channel, background-sync replay, and push delivery.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/interfaces"
	"github.com/bobmcallan/payoff/internal/models"
)

// Phase is one step of the install -> waiting -> active lifecycle.
type Phase string

const (
	PhaseNew        Phase = "new"
	PhaseInstalling Phase = "installing"
	// PhaseWaiting: installed, cache populated, eviction not yet run.
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseFailed   Phase = "failed"
)

// Controller drives the gateway lifecycle and owns the background-sync loop.
type Controller struct {
	cache    interfaces.CacheManager
	queue    interfaces.SyncQueueStore
	upstream interfaces.UpstreamClient
	hub      *Hub
	logger   *common.Logger

	syncInterval time.Duration
	maxAttempts  int

	mu    sync.Mutex
	phase Phase

	syncNow chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewController wires the lifecycle controller.
func NewController(cache interfaces.CacheManager, queue interfaces.SyncQueueStore, up interfaces.UpstreamClient, hub *Hub, cfg common.SyncConfig, logger *common.Logger) *Controller {
	return &Controller{
		cache:        cache,
		queue:        queue,
		upstream:     up,
		hub:          hub,
		logger:       logger,
		syncInterval: cfg.GetInterval(),
		maxAttempts:  cfg.MaxAttempts,
		phase:        PhaseNew,
		syncNow:      make(chan struct{}, 1),
	}
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Install precaches the shell manifest. Any precache failure fails the whole
// install and leaves the phase at failed so the caller can retry; a
// half-cached shell is worse than a retried install.
func (c *Controller) Install(ctx context.Context) error {
	c.mu.Lock()
	c.phase = PhaseInstalling
	c.mu.Unlock()

	if err := c.cache.Precache(ctx); err != nil {
		c.mu.Lock()
		c.phase = PhaseFailed
		c.mu.Unlock()
		return fmt.Errorf("install failed: %w", err)
	}

	c.mu.Lock()
	c.phase = PhaseWaiting
	c.mu.Unlock()
	c.logger.Info().Msg("Install complete, generation staged")
	return nil
}

// Activate evicts stale namespace generations and claims connected clients
// by broadcasting an activation event.
func (c *Controller) Activate(ctx context.Context) error {
	deleted, err := c.cache.EvictStale(ctx)
	if err != nil {
		return fmt.Errorf("activation failed: %w", err)
	}

	c.mu.Lock()
	c.phase = PhaseActive
	c.mu.Unlock()

	if c.hub != nil {
		c.hub.Broadcast(models.Notification{
			Type: "activated",
			Payload: models.PushPayload{
				Title: "Updated",
				Body:  "A new version of the app is active.",
			},
			Timestamp: time.Now(),
		})
	}

	c.logger.Info().Strs("evicted", deleted).Msg("Activation complete, clients claimed")
	return nil
}

// HandleMessage processes one control message from a trusted client.
func (c *Controller) HandleMessage(ctx context.Context, msg *models.ControlMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	switch msg.Type {
	case models.MessageSkipWaiting:
		if c.Phase() != PhaseWaiting {
			c.logger.Debug().Str("phase", string(c.Phase())).Msg("skipWaiting ignored outside waiting phase")
			return nil
		}
		return c.Activate(ctx)

	case models.MessageCacheCalculation:
		// The one cache write outside the request-interception flow: the
		// foreground persists a computed result under its own key.
		resp := &models.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       []byte(msg.Value),
		}
		if err := c.cache.Put(ctx, models.PurposeCalc, "LOCAL", msg.Key, resp); err != nil {
			return fmt.Errorf("failed to cache calculation %q: %w", msg.Key, err)
		}
		c.logger.Debug().Str("key", msg.Key).Msg("Calculation cached from foreground")
		return nil

	default: // MessageSync
		c.TriggerSync()
		return nil
	}
}

// GetCalculation reads back a foreground-cached calculation.
func (c *Controller) GetCalculation(ctx context.Context, key string) (*models.Response, bool) {
	return c.cache.Get(ctx, models.PurposeCalc, "LOCAL", key)
}

// HandlePush validates a trusted push payload and fans it out to clients.
func (c *Controller) HandlePush(payload *models.PushPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	c.hub.Broadcast(models.Notification{
		Type:      "notification",
		Payload:   *payload,
		Timestamp: time.Now(),
	})
	c.logger.Info().Str("title", payload.Title).Str("tag", payload.Tag).Msg("Push notification delivered")
	return nil
}

// Start launches the hub and the background-sync loop.
func (c *Controller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.hub.Run()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.syncLoop(ctx)
	}()
}

// Stop shuts down the sync loop and the hub.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.hub.Stop()
}

// TriggerSync requests an immediate replay pass.
func (c *Controller) TriggerSync() {
	select {
	case c.syncNow <- struct{}{}:
	default:
		// A pass is already requested.
	}
}
