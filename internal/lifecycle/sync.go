package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// syncLoop periodically probes the upstream and, when it answers, replays
// the pending-write queue. An explicit SYNC control message triggers an
// immediate pass.
func (c *Controller) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(c.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.drainQueue(ctx)
		case <-c.syncNow:
			c.drainQueue(ctx)
		}
	}
}

// drainQueue replays queued writes oldest-first. An item is removed only
// after a successful replay; failures are recorded and the item stays
// queued for the next pass (at-least-once, no backoff). Items that exhaust
// the attempt budget are dropped so a permanently-rejected write cannot
// wedge the queue.
func (c *Controller) drainQueue(ctx context.Context) {
	if !c.upstream.Ping(ctx) {
		c.logger.Debug().Msg("Sync pass skipped, upstream unreachable")
		return
	}

	items, err := c.queue.ListPending(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Sync: failed to list pending writes")
		return
	}
	if len(items) == 0 {
		return
	}

	replayed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		if c.maxAttempts > 0 && item.Attempts >= c.maxAttempts {
			c.logger.Warn().
				Str("id", item.ID).
				Str("url", item.URL).
				Int("attempts", item.Attempts).
				Msg("Sync: dropping write after attempt budget exhausted")
			if err := c.queue.Remove(ctx, item.ID); err != nil {
				c.logger.Warn().Err(err).Str("id", item.ID).Msg("Sync: failed to drop item")
			}
			continue
		}

		resp, err := c.upstream.Fetch(ctx, item.Method, item.URL, item.Header, item.Body)
		if err == nil && !resp.OK() {
			err = fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		if err != nil {
			c.logger.Info().Str("id", item.ID).Str("url", item.URL).Err(err).Msg("Sync: replay failed, leaving queued")
			if markErr := c.queue.MarkAttempt(ctx, item.ID, err); markErr != nil {
				c.logger.Warn().Err(markErr).Str("id", item.ID).Msg("Sync: failed to record attempt")
			}
			continue
		}

		if err := c.queue.Remove(ctx, item.ID); err != nil {
			// Leaving it queued means it may replay again; acceptable under
			// at-least-once semantics.
			c.logger.Warn().Err(err).Str("id", item.ID).Msg("Sync: replayed but failed to dequeue")
			continue
		}
		replayed++
	}

	if replayed > 0 {
		c.logger.Info().Int("replayed", replayed).Int("queued", len(items)).Msg("Sync pass complete")
	}
}
