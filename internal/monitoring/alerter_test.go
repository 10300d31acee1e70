package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntwatch/puntwatch/internal/config"
)

func TestEvaluateNoAlertsWhenHealthy(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	snap := &MetricsSnapshot{
		Total:   10,
		Posted:  7,
		Boosted: 3,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestEvaluateStuckCancellations(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	snap := &MetricsSnapshot{
		CancelPending:      2,
		StuckCancelPending: 2,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStuckCancellations, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "2 cancellation vote(s)")
}

func TestEvaluateHighCancelRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	snap := &MetricsSnapshot{
		LookbackHours: 24,
		Boosted:       2,
		Canceled:      4,
		CancelRate:    4.0 / 6.0,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertHighCancelRate, alerts[0].Type)
}

func TestEvaluateCancelRateNeedsVolume(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	// Only 2 votes: too small a sample to alert on.
	snap := &MetricsSnapshot{
		Canceled:   2,
		CancelRate: 1.0,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestSendAlerts(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		received = append(received, alert)
	}))
	t.Cleanup(srv.Close)

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	alerts := []Alert{
		{Type: AlertStuckCancellations, Severity: "high", Message: "stuck"},
		{Type: AlertHighCancelRate, Severity: "medium", Message: "noisy"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	require.Len(t, received, 2)
	assert.Equal(t, AlertStuckCancellations, received[0].Type)
}

func TestSendAlertsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertStuckCancellations}})
	assert.Zero(t, sent)
}

func TestSendAlertsNoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertStuckCancellations}})
	assert.Zero(t, sent)
}
