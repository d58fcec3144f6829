package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

// Notice is one in-app message addressed to a user.
type Notice struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    enums.NotificationType
	Link    string
}

// Notifier delivers notices after the business transaction has committed.
// Delivery is best effort: failures are logged and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, notices ...Notice)
}

// DeliveryTimeout bounds a single background delivery.
const DeliveryTimeout = 5 * time.Second

// StoreNotifier persists notices on background goroutines so a slow
// notifications table never delays the response that triggered them.
// Deliveries outlive the request context; Close waits for the ones in flight.
type StoreNotifier struct {
	repo Repository
	logg *logger.Logger
	wg   sync.WaitGroup
}

// NewNotifier persists notices through repo.
func NewNotifier(repo Repository, logg *logger.Logger) *StoreNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &StoreNotifier{repo: repo, logg: logg}
}

func (n *StoreNotifier) Notify(ctx context.Context, notices ...Notice) {
	if len(notices) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(detached, DeliveryTimeout)
		defer cancel()
		for _, notice := range notices {
			n.deliver(ctx, notice)
		}
	}()
}

// Close blocks until every queued delivery has finished.
func (n *StoreNotifier) Close() error {
	n.wg.Wait()
	return nil
}

func (n *StoreNotifier) deliver(ctx context.Context, notice Notice) {
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"recipient_id": notice.UserID.String(),
		"title":        notice.Title,
	})
	defer func() {
		if r := recover(); r != nil {
			n.logg.Warn(logCtx, "notification delivery panicked")
		}
	}()
	if n.repo == nil || notice.UserID == uuid.Nil {
		n.logg.Warn(logCtx, "notification dropped")
		return
	}
	kind := notice.Type
	if !kind.IsValid() {
		kind = enums.NotificationTypeInfo
	}
	row := &models.Notification{
		UserID:  notice.UserID,
		Type:    kind,
		Title:   notice.Title,
		Message: notice.Message,
	}
	if notice.Link != "" {
		link := notice.Link
		row.Link = &link
	}
	if err := n.repo.Create(ctx, row); err != nil {
		n.logg.Error(logCtx, "notification delivery failed", err)
	}
}
