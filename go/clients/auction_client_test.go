package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auction-live/go/internal/models"
)

func TestFetchState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/state", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"auctionState":{"phase":"live","currentBid":150},"config":{"thresholdBid":200}}`))
	}))
	defer srv.Close()

	doc, err := NewAuctionClient(srv.URL + "/").FetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseLive, doc.AuctionState.Phase)
	assert.Equal(t, 150, doc.AuctionState.CurrentBid)
	assert.Equal(t, 200, doc.Config.ThresholdBid)
}

func TestFetchStateNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewAuctionClient(srv.URL).FetchState(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestFetchStateBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewAuctionClient(srv.URL).FetchState(context.Background())
	assert.Error(t, err)
}

func TestLoginAndVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		switch r.URL.Path {
		case "/api/admin/verify-password":
			json.NewEncoder(w).Encode(map[string]bool{"ok": req.Password == "hunter2"})
		case "/api/admin/login":
			if req.Password != "hunter2" {
				http.Error(w, "nope", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAuctionClient(srv.URL)
	ctx := context.Background()

	ok, err := c.VerifyPassword(ctx, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.VerifyPassword(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	token, err := c.Login(ctx, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	_, err = c.Login(ctx, "wrong")
	assert.Error(t, err)
}
