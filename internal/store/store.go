// Package store persists notification records through their lifecycle.
package store

import (
	"context"
	"time"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Filter specifies criteria for listing notification records.
type Filter struct {
	GameID       string                   `json:"game_id,omitempty"`
	Status       model.NotificationStatus `json:"status,omitempty"`
	CreatedAfter time.Time                `json:"created_after,omitempty"`
	Limit        int                      `json:"limit,omitempty"`
}

// Store defines the persistence interface for notification records. The
// main loop is the only creator; cancellation workers only transition the
// status of records they own.
type Store interface {
	CreateNotification(ctx context.Context, rec *model.NotificationRecord) error
	UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error
	SetBoostID(ctx context.Context, id, boostID string) error
	GetNotification(ctx context.Context, id string) (*model.NotificationRecord, error)
	ListNotifications(ctx context.Context, filter Filter) ([]model.NotificationRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
