package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Checker periodically collects the notification snapshot and pushes any
// triggered alerts to the webhook.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
}

// NewChecker creates a background alert checker. Non-positive interval
// and lookback take the defaults (5 minutes, 24 hours).
func NewChecker(collector *Collector, alerter *Alerter, interval time.Duration, lookbackHours int) *Checker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  lookbackHours,
	}
}

// Run blocks until ctx is cancelled. The first check fires immediately so
// a cancellation left pending across a restart alerts without waiting out
// a full interval.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "alert_checker"))
	log.Info("alert checker running",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.check(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("metrics collection failed", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Warn("punt alerts dispatched",
		zap.Int("triggered", len(alerts)),
		zap.Int("sent", sent),
	)
}
