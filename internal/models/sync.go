package models

import (
	"net/http"
	"time"
)

// SyncStatusPending marks an item awaiting replay. A successfully replayed
// item is deleted from the queue, so pending is the only stored status.
const SyncStatusPending = "pending"

// PendingSyncItem is a write that failed while the upstream was unreachable,
// queued for at-least-once replay. Items are removed only after a successful
// replay; a failed replay leaves the item queued for the next sync pass.
type PendingSyncItem struct {
	ID        string      `json:"id" badgerhold:"key"`
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Header    http.Header `json:"header"`
	Body      []byte      `json:"body"`
	Status    string      `json:"status"`
	Attempts  int         `json:"attempts"`
	LastError string      `json:"last_error,omitempty"`
	CreatedAt time.Time   `json:"created_at" badgerhold:"index"`
}
