package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStuckCancellations AlertType = "stuck_cancellations"
	AlertHighCancelRate     AlertType = "high_cancel_rate"
)

// highCancelRate is the fraction of vote-eligible notifications ending
// canceled above which the scoring pipeline likely has a problem.
const highCancelRate = 0.5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against thresholds and sends
// alerts via webhook when they are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.StuckCancelPending > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStuckCancellations,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d cancellation vote(s) stuck in cancel_pending past the vote window",
				snap.StuckCancelPending,
			),
			Details: map[string]any{
				"stuck":          snap.StuckCancelPending,
				"cancel_pending": snap.CancelPending,
			},
			Timestamp: now,
		})
	}

	// A high cancel rate means readers keep voting the bot's picks down.
	voted := snap.Boosted + snap.CancelPending + snap.Canceled
	if voted >= 5 && snap.CancelRate > highCancelRate {
		alerts = append(alerts, Alert{
			Type:     AlertHighCancelRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Cancel rate %.0f%% over last %dh (%d canceled / %d put to vote)",
				snap.CancelRate*100, snap.LookbackHours, snap.Canceled, voted,
			),
			Details: map[string]any{
				"cancel_rate": snap.CancelRate,
				"canceled":    snap.Canceled,
				"voted":       voted,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
