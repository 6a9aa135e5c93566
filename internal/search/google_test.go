package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `"Leonard Mangallon" site:linkedin.com`, q.Get("q"))
		assert.Equal(t, "api-key", q.Get("key"))
		assert.Equal(t, "engine", q.Get("cx"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "linkedin.com", q.Get("siteSearch"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [
			{"title": "Léonard Mangallon - CEO", "link": "https://fr.linkedin.com/in/l-mangallon", "snippet": "Paris"},
			{"title": "Jobs", "link": "https://www.linkedin.com/jobs/view/1", "snippet": ""}
		]}`))
	}))
	defer srv.Close()

	client := NewGoogleClient(Options{APIKey: "api-key", CX: "engine", BaseURL: srv.URL})
	results, err := client.Search(context.Background(), domain.SearchQuery{
		Query:  `"Leonard Mangallon" site:linkedin.com`,
		Domain: "linkedin.com",
		Count:  25,
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "https://fr.linkedin.com/in/l-mangallon", results[0].URL)
	assert.Equal(t, "Léonard Mangallon - CEO", results[0].Title)
}

func TestSearch_NoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"searchInformation": {"totalResults": "0"}}`))
	}))
	defer srv.Close()

	results, err := NewGoogleClient(Options{APIKey: "k", CX: "c", BaseURL: srv.URL}).
		Search(context.Background(), domain.SearchQuery{Query: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_Errors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewGoogleClient(Options{APIKey: "k", CX: "c", BaseURL: srv.URL, MaxRetries: 2}).
		Search(context.Background(), domain.SearchQuery{Query: "x"})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeSearch))
	assert.Contains(t, err.Error(), "403")
	assert.EqualValues(t, 1, calls.Load(), "permanent status is not retried")

	_, err = NewGoogleClient(Options{BaseURL: srv.URL}).Search(context.Background(), domain.SearchQuery{Query: "x"})
	assert.True(t, domain.IsType(err, domain.ErrorTypeSearch))
}
