package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/store"
)

type fakeStore struct {
	records []model.NotificationRecord
	err     error
	filter  store.Filter
}

func (f *fakeStore) CreateNotification(ctx context.Context, rec *model.NotificationRecord) error {
	return nil
}

func (f *fakeStore) UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error {
	return nil
}

func (f *fakeStore) SetBoostID(ctx context.Context, id, boostID string) error { return nil }

func (f *fakeStore) GetNotification(ctx context.Context, id string) (*model.NotificationRecord, error) {
	return nil, eris.New("not implemented")
}

func (f *fakeStore) ListNotifications(ctx context.Context, filter store.Filter) ([]model.NotificationRecord, error) {
	f.filter = filter
	return f.records, f.err
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func TestCollect(t *testing.T) {
	now := time.Date(2025, 11, 2, 20, 0, 0, 0, time.UTC)
	st := &fakeStore{records: []model.NotificationRecord{
		{Status: model.NotificationPosted, Score: 10, UpdatedAt: now},
		{Status: model.NotificationPosted, Score: 30, UpdatedAt: now},
		{Status: model.NotificationBoosted, Score: 120, UpdatedAt: now},
		{Status: model.NotificationCancelPending, Score: 400, UpdatedAt: now.Add(-3 * time.Hour)},
		{Status: model.NotificationCanceled, Score: 40, UpdatedAt: now},
	}}

	c := NewCollector(st)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 2, snap.Posted)
	assert.Equal(t, 1, snap.Boosted)
	assert.Equal(t, 1, snap.CancelPending)
	assert.Equal(t, 1, snap.Canceled)
	assert.Equal(t, 1, snap.StuckCancelPending)
	assert.InDelta(t, 120.0, snap.AvgIndex, 0.001)
	assert.InDelta(t, 400.0, snap.MaxIndex, 0.001)
	// 1 canceled of 3 put to a vote.
	assert.InDelta(t, 1.0/3.0, snap.CancelRate, 0.001)
	assert.Equal(t, 24, snap.LookbackHours)

	assert.Equal(t, now.Add(-24*time.Hour), st.filter.CreatedAfter)
}

func TestCollectEmpty(t *testing.T) {
	c := NewCollector(&fakeStore{})
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.AvgIndex)
	assert.Zero(t, snap.CancelRate)
}

func TestCollectStoreError(t *testing.T) {
	c := NewCollector(&fakeStore{err: eris.New("db down")})
	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list notifications")
}
