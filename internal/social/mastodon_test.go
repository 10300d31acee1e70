package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *MastodonClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMastodonClient(srv.URL, "test-token", WithRateLimit(0))
}

func TestPost_WithPoll(t *testing.T) {
	var gotForm map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/statuses", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(Status{ID: "123"})
	})

	status, err := c.Post(context.Background(), "should this be canceled?", "42", YesNoPoll(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "123", status.ID)
	assert.Equal(t, []string{"should this be canceled?"}, gotForm["status"])
	assert.Equal(t, []string{"42"}, gotForm["in_reply_to_id"])
	assert.Equal(t, []string{"Yes", "No"}, gotForm["poll[options][]"])
	assert.Equal(t, []string{"3600"}, gotForm["poll[expires_in]"])
	assert.Equal(t, []string{"false"}, gotForm["poll[hide_totals]"])
}

func TestPost_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Validation failed"}`, http.StatusUnprocessableEntity)
	})

	_, err := c.Post(context.Background(), "text", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 422")
}

func TestBoostAndUnboost(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(Status{ID: "b-1"})
	})

	boosted, err := c.Boost(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "b-1", boosted.ID)
	require.NoError(t, c.Unboost(context.Background(), "99"))

	assert.Equal(t, []string{"/api/v1/statuses/99/reblog", "/api/v1/statuses/99/unreblog"}, paths)
}

func TestPollResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/statuses/55", r.URL.Path)
		w.Write([]byte(`{"id":"55","poll":{"options":[{"title":"Yes","votes_count":7},{"title":"No","votes_count":2}]}}`))
	})

	opts, err := c.PollResult(context.Background(), "55")
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, PollOption{Title: "Yes", Votes: 7}, opts[0])
	assert.Equal(t, PollOption{Title: "No", Votes: 2}, opts[1])
}

func TestPollResult_NoPoll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"55"}`))
	})

	_, err := c.PollResult(context.Background(), "55")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carries no poll")
}

func TestYesNoPoll_FreshOptionsPerCall(t *testing.T) {
	a := YesNoPoll(time.Hour)
	b := YesNoPoll(time.Hour)
	a.Options[0] = "mutated"
	assert.Equal(t, "Yes", b.Options[0])
}
