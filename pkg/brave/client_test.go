package brave

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/v1/web/search", r.URL.Path)
		assert.Equal(t, "payroll vendors", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"Gusto","url":"https://gusto.example","description":"Payroll for SMBs"}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient("brave-key", WithBaseURL(srv.URL))
	resp, err := c.WebSearch(context.Background(), "payroll vendors", 10)
	require.NoError(t, err)
	require.Len(t, resp.Web.Results, 1)
	assert.Equal(t, "Gusto", resp.Web.Results[0].Title)
	assert.Equal(t, "Payroll for SMBs", resp.Web.Results[0].Description)
}

func TestWebSearchCapsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("count"))
		w.Write([]byte(`{"web":{"results":[]}}`))
	}))
	defer srv.Close()

	c := NewClient("brave-key", WithBaseURL(srv.URL))
	_, err := c.WebSearch(context.Background(), "q", 100)
	require.NoError(t, err)
}

func TestWebSearchQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"plan limit reached"}`))
	}))
	defer srv.Close()

	c := NewClient("brave-key", WithBaseURL(srv.URL))
	_, err := c.WebSearch(context.Background(), "q", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func TestWebSearchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.WebSearch(context.Background(), "q", 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "unexpected status 401")
}

func TestWebSearchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient("brave-key", WithBaseURL(srv.URL))
	_, err := c.WebSearch(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}
