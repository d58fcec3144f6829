package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/jewelbid-backend/internal/cron"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications/notificationstest"
	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

func TestBuildJobsRegistersMarketplaceJobs(t *testing.T) {
	conn := dbtest.New(t)
	cfg := &config.Config{Cron: config.CronConfig{
		NotificationRetention: 24 * time.Hour,
		OutboxRetention:       24 * time.Hour,
	}}

	jobs, err := buildJobs(cfg, logger.Nop(), db.Wrap(conn), &notificationstest.Recorder{}, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name())
	}
	assert.Equal(t, []string{"auction-close", "notification-cleanup", "outbox-retention"}, names)
}

func TestNotificationCleanupKeepsUnreadRows(t *testing.T) {
	conn := dbtest.New(t)
	user := dbtest.User(t, conn, enums.UserRoleBuyer)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	for _, readAt := range []*time.Time{&old, &recent, nil} {
		dbtest.Insert(t, conn, &models.Notification{
			UserID:  user.ID,
			Type:    enums.NotificationTypeInfo,
			Title:   "Outbid",
			Message: "You have been outbid",
			ReadAt:  readAt,
		})
	}
	cfg := &config.Config{Cron: config.CronConfig{
		NotificationRetention: 24 * time.Hour,
		OutboxRetention:       24 * time.Hour,
	}}

	jobs, err := buildJobs(cfg, logger.Nop(), db.Wrap(conn), &notificationstest.Recorder{}, nil)
	require.NoError(t, err)
	require.NoError(t, findJob(t, jobs, "notification-cleanup").Run(context.Background()))

	assert.EqualValues(t, 2, dbtest.Count(t, conn, &models.Notification{}, "user_id = ?", user.ID))
}

func findJob(t *testing.T, jobs []cron.Job, name string) cron.Job {
	t.Helper()
	for _, job := range jobs {
		if job.Name() == name {
			return job
		}
	}
	t.Fatalf("job %s not registered", name)
	return nil
}
