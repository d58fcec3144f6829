package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/pagination"
)

// DLQRepository stores events the relay gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List pages dead letters newest first.
func (r *DLQRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.OutboxDLQ, *pagination.Cursor, error) {
	var rows []models.OutboxDLQ
	if err := pagination.Apply(r.db.WithContext(ctx), cursor, limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit)
	return page, next, nil
}

// RequeueTx drops the dead letter for eventID and rearms the outbox row so
// the relay picks it up on its next poll. It reports false when no dead
// letter exists for the event.
func (r *DLQRepository) RequeueTx(tx *gorm.DB, eventID uuid.UUID) (bool, error) {
	res := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := tx.Model(&models.OutboxEvent{}).
		Where("id = ? AND published_at IS NULL", eventID).
		Updates(map[string]any{"attempt_count": 0, "last_error": nil}).Error
	return true, err
}

// DeadLetter is the operator view of a parked event.
type DeadLetter struct {
	EventID       uuid.UUID                  `json:"eventId"`
	EventType     enums.OutboxEventType      `json:"eventType"`
	AggregateType enums.OutboxAggregateType  `json:"aggregateType"`
	AggregateID   uuid.UUID                  `json:"aggregateId"`
	Reason        enums.OutboxDLQErrorReason `json:"reason"`
	Error         *string                    `json:"error,omitempty"`
	Attempts      int                        `json:"attempts"`
	FailedAt      time.Time                  `json:"failedAt"`
}

type DeadLetterPage struct {
	Items      []DeadLetter `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// DeadLetterService lets admins inspect and replay dead letters.
type DeadLetterService interface {
	List(ctx context.Context, cursor string, limit int) (DeadLetterPage, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

type deadLetterService struct {
	repo *DLQRepository
	tx   db.TxRunner
	logg *logger.Logger
}

func NewDeadLetterService(repo *DLQRepository, tx db.TxRunner, logg *logger.Logger) DeadLetterService {
	return &deadLetterService{repo: repo, tx: tx, logg: logg}
}

func (s *deadLetterService) List(ctx context.Context, cursor string, limit int) (DeadLetterPage, error) {
	after, err := pagination.ParseCursor(cursor)
	if err != nil {
		return DeadLetterPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, after, limit)
	if err != nil {
		return DeadLetterPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters")
	}
	page := DeadLetterPage{Items: make([]DeadLetter, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, DeadLetter{
			EventID:       row.EventID,
			EventType:     row.EventType,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			Reason:        row.ErrorReason,
			Error:         row.ErrorMessage,
			Attempts:      row.AttemptCount,
			FailedAt:      row.FailedAt,
		})
	}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *deadLetterService) Requeue(ctx context.Context, eventID uuid.UUID) error {
	var found bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		found, err = s.repo.RequeueTx(tx, eventID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requeue dead letter")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "event_id", eventID.String()), "outbox.dead_letter_requeued")
	}
	return nil
}
