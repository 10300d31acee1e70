// Package monitoring collects notification metrics and raises webhook
// alerts when the bot looks unhealthy.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/store"
)

// MetricsSnapshot holds a point-in-time view of notification activity.
type MetricsSnapshot struct {
	// Notification counts within the lookback window.
	Total         int `json:"total"`
	Posted        int `json:"posted"`
	Boosted       int `json:"boosted"`
	CancelPending int `json:"cancel_pending"`
	Canceled      int `json:"canceled"`

	// StuckCancelPending counts cancel_pending records whose last
	// transition is older than the vote window allows.
	StuckCancelPending int `json:"stuck_cancel_pending"`

	// Index statistics within the window.
	AvgIndex float64 `json:"avg_index"`
	MaxIndex float64 `json:"max_index"`

	// CancelRate is canceled over boosted-or-beyond, in [0, 1].
	CancelRate float64 `json:"cancel_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// stuckAfter is how long a record may sit in cancel_pending before it
// counts as stuck. The vote window is 61 minutes; double it.
const stuckAfter = 2 * time.Hour

// Collector gathers metrics from the notification store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	records, err := c.store.ListNotifications(ctx, store.Filter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list notifications")
	}

	snap.Total = len(records)
	var indexSum float64
	voted := 0

	for _, r := range records {
		switch r.Status {
		case model.NotificationPosted:
			snap.Posted++
		case model.NotificationBoosted:
			snap.Boosted++
			voted++
		case model.NotificationCancelPending:
			snap.CancelPending++
			voted++
			if now.Sub(r.UpdatedAt) > stuckAfter {
				snap.StuckCancelPending++
			}
		case model.NotificationCanceled:
			snap.Canceled++
			voted++
		}

		indexSum += r.Score
		if r.Score > snap.MaxIndex {
			snap.MaxIndex = r.Score
		}
	}

	if snap.Total > 0 {
		snap.AvgIndex = indexSum / float64(snap.Total)
	}
	if voted > 0 {
		snap.CancelRate = float64(snap.Canceled) / float64(voted)
	}
	return snap, nil
}
