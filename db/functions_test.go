package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/functions-go"
	"go.uber.org/zap/zaptest"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

func fakeFunctions(t *testing.T, handler http.HandlerFunc) (*functions.Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return functions.NewClient(srv.URL+"/functions/v1", "service-key", nil), &hits
}

func TestCompletionNotifier_Payload(t *testing.T) {
	fc, hits := fakeFunctions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/v1/on-completed", r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"user_id":  "u1",
			"anime_id": float64(154587),
			"title":    "Frieren",
		}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	n := NewCompletionNotifier(fc, "on-completed", zaptest.NewLogger(t))
	err := n.NotifyCompleted(context.Background(), &types.ListItem{UserID: "u1", AnimeID: 154587, Title: "Frieren"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestCompletionNotifier_Disabled(t *testing.T) {
	fc, hits := fakeFunctions(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	item := &types.ListItem{UserID: "u1", AnimeID: 1, Title: "x"}

	assert.NoError(t, NewCompletionNotifier(fc, "", zaptest.NewLogger(t)).NotifyCompleted(context.Background(), item))
	assert.NoError(t, NewCompletionNotifier(nil, "on-completed", zaptest.NewLogger(t)).NotifyCompleted(context.Background(), item))

	var n *CompletionNotifier
	assert.NoError(t, n.NotifyCompleted(context.Background(), item))
	assert.Zero(t, atomic.LoadInt32(hits), "nothing is invoked without a function name")
}
