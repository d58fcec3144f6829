// Package notificationstest provides an in-memory notifier for tests.
package notificationstest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
)

var _ notifications.Notifier = (*Recorder)(nil)

// Recorder captures notices synchronously so tests can assert on them
// right after the call under test returns.
type Recorder struct {
	mu      sync.Mutex
	Notices []notifications.Notice
}

func (r *Recorder) Notify(_ context.Context, notices ...notifications.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, notices...)
}

// For returns the notices addressed to userID.
func (r *Recorder) For(userID uuid.UUID) []notifications.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifications.Notice
	for _, n := range r.Notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
