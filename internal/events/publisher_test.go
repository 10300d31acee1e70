package events

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntwatch/puntwatch/internal/model"
)

type fakePublisher struct {
	events []model.NotificationEvent
	err    error
	closed bool
}

func (f *fakePublisher) Publish(ctx context.Context, ev model.NotificationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() model.NotificationEvent {
	return model.NotificationEvent{
		ID:        "n1",
		GameID:    "401547401",
		DriveID:   "4015474011",
		Score:     87.5,
		CreatedAt: time.Date(2025, 11, 2, 18, 30, 0, 0, time.UTC),
	}
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestLoggingPublisherPassesThrough(t *testing.T) {
	fake := &fakePublisher{}
	p := LoggingPublisher{Next: fake}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, fake.events, 1)
	assert.Equal(t, "401547401", fake.events[0].GameID)
}

func TestLoggingPublisherSwallowsErrors(t *testing.T) {
	fake := &fakePublisher{err: eris.New("redis down")}
	p := LoggingPublisher{Next: fake}

	assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
}

func TestLoggingPublisherClose(t *testing.T) {
	fake := &fakePublisher{}
	p := LoggingPublisher{Next: fake}

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}
