package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MastodonClient implements Client against the Mastodon REST API.
type MastodonClient struct {
	server      string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// MastodonOption configures a MastodonClient.
type MastodonOption func(*MastodonClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) MastodonOption {
	return func(m *MastodonClient) { m.httpClient = c }
}

// WithRateLimit overrides the default posting rate limit.
func WithRateLimit(rps float64) MastodonOption {
	return func(m *MastodonClient) {
		if rps > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			m.limiter = nil
		}
	}
}

// NewMastodonClient creates a client for one account on one server. Calls
// are throttled to 1 req/s by default; the Mastodon API allows far more,
// but this bot has no reason to burst.
func NewMastodonClient(server, accessToken string, opts ...MastodonOption) *MastodonClient {
	m := &MastodonClient{
		server:      strings.TrimRight(server, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MastodonClient) Post(ctx context.Context, text, replyTo string, poll *Poll) (Status, error) {
	form := url.Values{}
	form.Set("status", text)
	form.Set("language", "en")
	if replyTo != "" {
		form.Set("in_reply_to_id", replyTo)
	}
	if poll != nil {
		for _, opt := range poll.Options {
			form.Add("poll[options][]", opt)
		}
		form.Set("poll[expires_in]", strconv.Itoa(int(poll.ExpiresIn.Seconds())))
		form.Set("poll[hide_totals]", strconv.FormatBool(poll.HideTotals))
	}

	var status Status
	if err := m.do(ctx, http.MethodPost, "/api/v1/statuses", form, &status); err != nil {
		return Status{}, eris.Wrap(err, "social: post status")
	}
	zap.L().Debug("social: posted status",
		zap.String("id", status.ID),
		zap.Bool("reply", replyTo != ""),
		zap.Bool("poll", poll != nil),
	)
	return status, nil
}

func (m *MastodonClient) Boost(ctx context.Context, statusID string) (Status, error) {
	var status Status
	path := fmt.Sprintf("/api/v1/statuses/%s/reblog", url.PathEscape(statusID))
	if err := m.do(ctx, http.MethodPost, path, nil, &status); err != nil {
		return Status{}, eris.Wrapf(err, "social: boost %s", statusID)
	}
	return status, nil
}

func (m *MastodonClient) Unboost(ctx context.Context, statusID string) error {
	path := fmt.Sprintf("/api/v1/statuses/%s/unreblog", url.PathEscape(statusID))
	if err := m.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return eris.Wrapf(err, "social: unboost %s", statusID)
	}
	return nil
}

func (m *MastodonClient) PollResult(ctx context.Context, statusID string) ([]PollOption, error) {
	var payload struct {
		Poll *struct {
			Options []PollOption `json:"options"`
		} `json:"poll"`
	}
	path := "/api/v1/statuses/" + url.PathEscape(statusID)
	if err := m.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, eris.Wrapf(err, "social: fetch poll for %s", statusID)
	}
	if payload.Poll == nil {
		return nil, eris.Errorf("social: status %s carries no poll", statusID)
	}
	return payload.Poll.Options, nil
}

func (m *MastodonClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, m.server+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("http %d from %s: %s", resp.StatusCode, path, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
