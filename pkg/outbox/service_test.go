package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
)

func TestEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.New(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	itemID := uuid.New()
	actor := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateItem,
			AggregateID:   itemID,
			Actor:         &outbox.ActorRef{UserID: actor, Role: "BUYER"},
			Data:          map[string]string{"item_id": itemID.String()},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventBidPlaced, rows[0].EventType)
	require.Equal(t, itemID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	_, err = ulid.Parse(envelope.EventID)
	require.NoError(t, err)
	require.Equal(t, actor, envelope.Actor.UserID)
	require.JSONEq(t, `{"item_id":"`+itemID.String()+`"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventBidPlaced})
	require.Error(t, err)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	conn := dbtest.New(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	err := svc.Emit(context.Background(), conn, outbox.DomainEvent{EventType: "nope"})
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.New(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Emit(ctx, conn, outbox.DomainEvent{
			EventType:     enums.EventDealCreated,
			AggregateType: enums.AggregateDeal,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[1].ID, assertErr("boom"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryRetentionAndMarkers(t *testing.T) {
	conn := dbtest.New(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	itemID := uuid.New()

	emit := func(eventType enums.OutboxEventType, aggregate uuid.UUID) {
		require.NoError(t, svc.Emit(ctx, conn, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateItem,
			AggregateID:   aggregate,
			Data:          map[string]string{},
		}))
	}
	emit(enums.EventBidPlaced, itemID)
	emit(enums.EventAuctionClosed, itemID)
	emit(enums.EventBidPlaced, uuid.New())

	has, err := repo.HasEvent(ctx, nil, itemID, enums.EventAuctionClosed)
	require.NoError(t, err)
	require.True(t, has)
	has, err = repo.HasEvent(ctx, nil, uuid.New(), enums.EventAuctionClosed)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("1 = 1").
		Updates(map[string]any{"created_at": old, "published_at": old}).Error)

	deleted, err := repo.DeletePublishedBefore(ctx, nil, old.Add(time.Hour), 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	has, err = repo.HasEvent(ctx, nil, itemID, enums.EventAuctionClosed)
	require.NoError(t, err)
	require.True(t, has, "auction_closed markers survive retention")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
