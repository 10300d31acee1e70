package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntwatch/puntwatch/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "puntwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRecord() *model.NotificationRecord {
	return &model.NotificationRecord{
		GameID:               "401547404",
		DriveID:              "4015474041",
		StatusID:             "st-1",
		Score:                43.21,
		CurrentPercentile:    91,
		HistoricalPercentile: 88,
	}
}

func TestSQLite_CreateAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, s.CreateNotification(ctx, rec))
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, model.NotificationPosted, rec.Status)

	got, err := s.GetNotification(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, rec.DriveID, got.DriveID)
	assert.Equal(t, 43.21, got.Score)
	assert.Equal(t, model.NotificationPosted, got.Status)
	assert.Empty(t, got.BoostID)
}

func TestSQLite_DuplicateDriveRejected(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateNotification(ctx, sampleRecord()))
	err := s.CreateNotification(ctx, sampleRecord())
	assert.Error(t, err, "the (game_id, drive_id) key is unique")
}

func TestSQLite_StatusLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, s.CreateNotification(ctx, rec))

	for _, status := range []model.NotificationStatus{
		model.NotificationBoosted,
		model.NotificationCancelPending,
		model.NotificationCanceled,
	} {
		require.NoError(t, s.UpdateNotificationStatus(ctx, rec.ID, status))
		got, err := s.GetNotification(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}
}

func TestSQLite_UpdateUnknownID(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateNotificationStatus(context.Background(), "nope", model.NotificationCanceled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_SetBoostID(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, s.CreateNotification(ctx, rec))
	require.NoError(t, s.SetBoostID(ctx, rec.ID, "boost-7"))

	got, err := s.GetNotification(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "boost-7", got.BoostID)
}

func TestSQLite_ListFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := sampleRecord()
	require.NoError(t, s.CreateNotification(ctx, a))

	b := sampleRecord()
	b.GameID = "401547405"
	b.DriveID = "4015474051"
	require.NoError(t, s.CreateNotification(ctx, b))
	require.NoError(t, s.UpdateNotificationStatus(ctx, b.ID, model.NotificationBoosted))

	byGame, err := s.ListNotifications(ctx, Filter{GameID: a.GameID})
	require.NoError(t, err)
	require.Len(t, byGame, 1)
	assert.Equal(t, a.ID, byGame[0].ID)

	byStatus, err := s.ListNotifications(ctx, Filter{Status: model.NotificationBoosted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)

	none, err := s.ListNotifications(ctx, Filter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)
}
