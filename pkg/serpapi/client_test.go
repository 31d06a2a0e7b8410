package serpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "crm vendors", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results":[
			{"position":1,"title":"Acme CRM","link":"https://acme.example","snippet":"CRM for teams"},
			{"position":2,"title":"Globex","link":"https://globex.example","snippet":"Sales platform"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "crm vendors", 10)
	require.NoError(t, err)
	require.Len(t, resp.OrganicResults, 2)
	assert.Equal(t, "Acme CRM", resp.OrganicResults[0].Title)
	assert.Equal(t, "https://acme.example", resp.OrganicResults[0].Link)
	assert.Equal(t, 2, resp.OrganicResults[1].Position)
}

func TestSearchCapsNum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		w.Write([]byte(`{"organic_results":[]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q", 50)
	require.NoError(t, err)
}

func TestSearchQuotaStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func TestSearchQuotaInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"You have reached your monthly search limit."}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func TestSearchBodyErrorNotQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestSearchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(ctx, "q", 10)
	require.Error(t, err)
}
