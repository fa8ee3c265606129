package msauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbale-app/verbale/internal/credstore"
)

func TestValidToken_FreshTokenSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no token endpoint call expected for a fresh token")
	}))
	defer srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-cached",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})

	tok, err := auth.ValidToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-cached", tok)
}

func TestValidToken_UnknownUser(t *testing.T) {
	auth, _ := newTestAuthenticator(t, "consumers", "http://unused")

	_, err := auth.ValidToken(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestValidToken_StaleTriggersRefresh(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "at-refreshed",
			"refresh_token": "rt-2",
			"token_type": "Bearer",
			"expires_in": 3600
		}`))
	}))
	defer srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-stale",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(10 * time.Second),
	})

	tok, err := auth.ValidToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", tok)

	rec, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "at-refreshed", rec.AccessToken)
	assert.Equal(t, "rt-2", rec.RefreshToken)

	// The record is now fresh; a second call must not hit the endpoint again.
	tok, err = auth.ValidToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", tok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValidToken_RefreshRetainsOldRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-refreshed","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-stale",
		RefreshToken: "rt-keep",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	_, err := auth.ValidToken(context.Background(), "u1")
	require.NoError(t, err)

	rec, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "rt-keep", rec.RefreshToken, "omitted refresh token keeps the old one")
}

func TestValidToken_NoRefreshTokenEvicts(t *testing.T) {
	auth, store := newTestAuthenticator(t, "consumers", "http://unused")
	store.Put("u1", credstore.Record{
		AccessToken: "at-stale",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	_, err := auth.ValidToken(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, ok := store.Get("u1")
	assert.False(t, ok, "record must be evicted")
}

func TestValidToken_RejectedRefreshEvicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-stale",
		RefreshToken: "rt-revoked",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	_, err := auth.ValidToken(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, ok := store.Get("u1")
	assert.False(t, ok, "definitive rejection must evict the record")
}

func TestValidToken_ServerErrorPreservesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-stale",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	_, err := auth.ValidToken(context.Background(), "u1")
	require.Error(t, err)

	var transient *RefreshTransientError
	assert.ErrorAs(t, err, &transient)

	rec, ok := store.Get("u1")
	require.True(t, ok, "transient failure must not evict the record")
	assert.Equal(t, "rt-1", rec.RefreshToken)
}

func TestValidToken_NetworkErrorPreservesRecord(t *testing.T) {
	// A closed server forces a connect error.
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	auth, store := newTestAuthenticator(t, "consumers", srv.URL)
	store.Put("u1", credstore.Record{
		AccessToken:  "at-stale",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	_, err := auth.ValidToken(context.Background(), "u1")
	require.Error(t, err)

	var transient *RefreshTransientError
	assert.ErrorAs(t, err, &transient)

	_, ok := store.Get("u1")
	assert.True(t, ok)
}
