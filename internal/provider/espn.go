// Package provider fetches live NFL game data from the public ESPN site
// API: the weekly scoreboard and per-game summaries (boxscore, status,
// drive history).
package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/resilience"
)

// DefaultBaseURL is the ESPN site API root for NFL data.
const DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"

// Client fetches live game data.
type Client interface {
	// Scoreboard returns the games of the current week.
	Scoreboard(ctx context.Context) ([]model.Game, error)
	// GameSummary returns the full detail snapshot for one game.
	GameSummary(ctx context.Context, gameID string) (*model.GameSummary, error)
}

// ESPNClient implements Client against the ESPN site API with rate
// limiting, retry, and a circuit breaker.
type ESPNClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// Option configures an ESPNClient.
type Option func(*ESPNClient)

// WithBaseURL overrides the API root (used in tests).
func WithBaseURL(u string) Option {
	return func(c *ESPNClient) { c.baseURL = u }
}

// WithRateLimit overrides the requests-per-second cap.
func WithRateLimit(rps float64) Option {
	return func(c *ESPNClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ESPNClient) { c.client = hc }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *ESPNClient) { c.retry = cfg }
}

// NewESPN creates an ESPN client. The defaults suit a polling loop that
// wakes every half minute: 2 req/s, short retry budget, and a breaker
// that trips after 5 consecutive failures.
func NewESPN(opts ...Option) *ESPNClient {
	c := &ESPNClient{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(2, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		ShouldTrip:       resilience.IsTransient,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("game data circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scoreboard returns the games of the current week. Games with an
// unparseable kickoff date are skipped with a warning rather than
// failing the whole fetch.
func (c *ESPNClient) Scoreboard(ctx context.Context) ([]model.Game, error) {
	body, err := c.get(ctx, c.baseURL+"/scoreboard")
	if err != nil {
		return nil, eris.Wrap(err, "provider: fetch scoreboard")
	}

	var payload scoreboardPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "provider: decode scoreboard")
	}

	games := make([]model.Game, 0, len(payload.Events))
	for _, ev := range payload.Events {
		if ev.ID == "" {
			continue
		}
		kickoff, err := parseEventDate(ev.Date)
		if err != nil {
			zap.L().Warn("skipping event with bad date",
				zap.String("event_id", ev.ID),
				zap.String("date", ev.Date),
			)
			continue
		}
		games = append(games, model.Game{
			ID:      ev.ID,
			Kickoff: kickoff,
			State:   model.GameScheduled,
		})
	}
	return games, nil
}

// GameSummary returns the full detail snapshot for one game.
func (c *ESPNClient) GameSummary(ctx context.Context, gameID string) (*model.GameSummary, error) {
	body, err := c.get(ctx, c.baseURL+"/summary?event="+gameID)
	if err != nil {
		return nil, eris.Wrap(err, "provider: fetch game summary")
	}

	var payload summaryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "provider: decode game summary")
	}

	return payload.toModel()
}

// get runs one rate-limited, retried GET through the circuit breaker and
// returns the response body.
func (c *ESPNClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "provider: rate limiter")
	}

	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.doGet(ctx, url)
		})
	})
}

func (c *ESPNClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "provider: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "provider: request"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "provider: read body"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("provider: http %d from %s", resp.StatusCode, url)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return body, nil
}

// ESPN scoreboard dates come without seconds ("2025-11-02T18:00Z").
func parseEventDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04Z07:00", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("provider: unparseable event date %q", s)
}
