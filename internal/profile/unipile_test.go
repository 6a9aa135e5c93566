package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileJSON = `{
  "object": "UserProfile",
  "provider": "LINKEDIN",
  "first_name": "Léonard",
  "last_name": "Mangallon",
  "headline": "Co-founder & CEO",
  "location": "Paris, Île-de-France",
  "public_identifier": "l-mangallon",
  "connections_count": 500,
  "follower_count": 1834,
  "contact_info": {"emails": ["leonard@example.com"]},
  "websites": ["https://example.com"]
}`

func fastClient(url string) *Client {
	c := NewClient(Options{APIKey: "unipile-key", BaseURL: url})
	c.retry = retry.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return c
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/l-mangallon", r.URL.Path)
		assert.Equal(t, "acc-1", r.URL.Query().Get("account_id"))
		assert.Equal(t, "unipile-key", r.Header.Get("X-API-KEY"))
		w.Write([]byte(profileJSON))
	}))
	defer srv.Close()

	p, err := fastClient(srv.URL).FetchProfile(context.Background(), "l-mangallon", "acc-1")
	require.NoError(t, err)

	assert.Equal(t, "Léonard", p.FirstName)
	assert.Equal(t, "Co-founder & CEO", p.Headline)
	assert.Equal(t, "https://www.linkedin.com/in/l-mangallon", p.ProfileURL)
	require.NotNil(t, p.FollowerCount)
	assert.Equal(t, 1834, *p.FollowerCount)
	assert.Equal(t, []string{"leonard@example.com"}, p.Emails)
	assert.JSONEq(t, profileJSON, string(p.Raw))
}

func TestFetchProfile_NotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		_, err := fastClient(srv.URL).FetchProfile(context.Background(), "ghost", "acc-1")
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
		assert.True(t, domain.IsType(err, domain.ErrorTypeProfileFetch))
		assert.EqualValues(t, 1, calls.Load(), "status %d is not retried", status)
	}
}

func TestFetchProfile_TransientExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).FetchProfile(context.Background(), "l-mangallon", "acc-1")
	require.Error(t, err)

	assert.False(t, errors.Is(err, domain.ErrProfileNotFound))
	assert.True(t, domain.IsType(err, domain.ErrorTypeProfileFetch))
	assert.EqualValues(t, 3, calls.Load())
}

func TestParseProfile_LocationObject(t *testing.T) {
	p, err := ParseProfile([]byte(`{"first_name": "Ada", "location": {"name": "London"}}`))
	require.NoError(t, err)
	assert.Equal(t, "London", p.Location)
	assert.Empty(t, p.ProfileURL)
	assert.Nil(t, p.ConnectionsCount)

	_, err = ParseProfile([]byte(`not json`))
	assert.Error(t, err)
}
