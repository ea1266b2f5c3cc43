package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/birdwatcher/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc, err := httpclient.New(httpclient.Options{Retries: 0})
	require.NoError(t, err)
	return NewHTTPClient(srv.URL+"/", token, hc)
}

func TestUserDecodesProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/alice", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("user.fields"), "public_metrics")
		_, _ = w.Write([]byte(`{"data":{"id":"42","username":"alice","name":"Alice","location":"Oslo",
			"verified":true,"created_at":"2012-03-04T05:06:07.000Z",
			"public_metrics":{"followers_count":10,"following_count":3,"tweet_count":99}}}`))
	})
	client := newTestClient(t, mux, "tok")

	user, err := client.User(context.Background(), "@alice")
	require.NoError(t, err)
	assert.Equal(t, "42", user.ID)
	assert.Equal(t, "alice", user.ScreenName)
	assert.EqualValues(t, 10, user.Followers)
	assert.EqualValues(t, 3, user.Friends)
	assert.EqualValues(t, 99, user.StatusesCount)
	assert.True(t, user.Verified)
	assert.Equal(t, time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC), user.CreatedAt)
}

func TestUserNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/ghost", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find user"}]}`))
	})
	client := newTestClient(t, mux, "tok")

	_, err := client.User(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestAPIErrorsCarryStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"Rate limit exceeded"}`))
	}), "tok")

	_, err := client.User(context.Background(), "alice")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "Rate limit exceeded", apiErr.Message)
}

func TestMissingTokenFailsFast(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), "")
	_, err := client.User(context.Background(), "alice")
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestTimelineExtractsURLs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(`{"data":[
			{"id":"2","text":"see https://t.co/x","created_at":"2024-01-01T10:00:00Z",
			 "entities":{"urls":[{"url":"https://t.co/x","expanded_url":"https://example.com/x"}]}},
			{"id":"1","text":"hello"}]}`))
	})
	client := newTestClient(t, mux, "tok")

	statuses, err := client.Timeline(context.Background(), "42", 1)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, []string{"https://example.com/x"}, statuses[0].URLs)
	assert.True(t, statuses[1].CreatedAt.IsZero())
}
