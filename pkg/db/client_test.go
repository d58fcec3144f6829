package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := Wrap(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

type scriptedRunner struct {
	errs  []error
	calls int
}

func (r *scriptedRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	if len(r.errs) == 0 {
		return fn(nil)
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

func TestWithRetryReplaysSerializationFailures(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		&pgconn.PgError{Code: "40001"},
		&pgconn.PgError{Code: "40P01"},
	}}
	err := WithRetry(context.Background(), runner, 3, func(*gorm.DB) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 3, runner.calls)
}

func TestWithRetryStopsOnBusinessErrors(t *testing.T) {
	rejection := pkgerrors.Rejection(pkgerrors.CodeConflict, "ITEM_ALREADY_RESERVED", "taken")
	runner := &scriptedRunner{errs: []error{rejection}}
	err := WithRetry(context.Background(), runner, 3, func(*gorm.DB) error { return nil })
	require.ErrorIs(t, err, rejection)
	require.Equal(t, 1, runner.calls)
}

func TestWithRetryGivesUpAfterAttempts(t *testing.T) {
	conflict := &pgconn.PgError{Code: "40001"}
	runner := &scriptedRunner{errs: []error{conflict, conflict}}
	err := WithRetry(context.Background(), runner, 2, func(*gorm.DB) error { return nil })
	require.Error(t, err)
	require.Equal(t, 2, runner.calls)
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "ux_deals_active_item"}, "ux_deals_active_item"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "other"}, "ux_deals_active_item"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: deals.item_id"), "ux_deals_active_item"))
	require.False(t, IsUniqueViolation(nil, ""))
}

func TestForUpdateSkipsSQLite(t *testing.T) {
	db := newTestDB(t)
	var rows []testModel
	require.NoError(t, ForUpdate(db).Find(&rows).Error)
	require.NoError(t, ForUpdateSkipLocked(db).Find(&rows).Error)
}

func loggedDB(t *testing.T, slow time.Duration) (*gorm.DB, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: buf, Level: "debug"})
	conn := newTestDB(t)
	return conn.Session(&gorm.Session{Logger: newQueryLogger(logg, slow)}), buf
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	conn, buf := loggedDB(t, time.Nanosecond)
	var rows []testModel
	require.NoError(t, conn.Find(&rows).Error)
	require.Contains(t, buf.String(), "db.slow_query")
	require.Contains(t, buf.String(), `"sql"`)
}

func TestQueryLoggerIgnoresMissingRows(t *testing.T) {
	conn, buf := loggedDB(t, time.Hour)
	var row testModel
	err := conn.Where("name = ?", "absent").First(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.NotContains(t, buf.String(), "db.query_failed")
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := Wrap(conn)
	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&testModel{Name: "doomed"})
			panic("boom")
		})
	})
	var count int64
	require.NoError(t, conn.Model(&testModel{}).Where("name = ?", "doomed").Count(&count).Error)
	require.Zero(t, count)
}
