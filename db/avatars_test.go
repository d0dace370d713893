package db

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage_go "github.com/supabase-community/storage-go"
)

func fakeStorage(t *testing.T, handler http.HandlerFunc) (*AvatarStore, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	base := srv.URL + "/storage/v1"
	return NewAvatarStore(storage_go.NewClient(base, "service-key", nil), "avatars"), base
}

func TestAvatarStore_Upload(t *testing.T) {
	var body []byte
	store, _ := fakeStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/avatars/u1/1700000000.png", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		var err error
		body, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"Key":"avatars/u1/1700000000.png"}`))
	})

	err := store.Upload(context.Background(), "u1/1700000000.png", "image/png", []byte("\x89PNG"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), body)
}

func TestAvatarStore_UploadFailure(t *testing.T) {
	store, _ := fakeStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"statusCode":"403","error":"Unauthorized","message":"new row violates row-level security policy"}`))
	})

	err := store.Upload(context.Background(), "u1/a.png", "image/png", []byte("x"))
	assert.ErrorContains(t, err, "failed to upload avatar")
}

func TestAvatarStore_PublicURLRoundTrip(t *testing.T) {
	store, base := fakeStorage(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("public urls are built locally, got %s %s", r.Method, r.URL)
	})

	u := store.PublicURL("u1/1700000000.png")
	assert.Equal(t, base+"/object/public/avatars/u1/1700000000.png", u)

	path, ok := store.PathOf(u)
	require.True(t, ok)
	assert.Equal(t, "u1/1700000000.png", path)

	_, ok = store.PathOf("https://cdn.example.com/u1/1700000000.png")
	assert.False(t, ok, "foreign urls are not ours to delete")
	_, ok = store.PathOf(store.PublicURL(""))
	assert.False(t, ok)
}

func TestAvatarStore_Remove(t *testing.T) {
	store, _ := fakeStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/storage/v1/object/avatars", r.URL.Path)
		var body struct {
			Prefixes []string `json:"prefixes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"u1/old.png"}, body.Prefixes)
		_, _ = w.Write([]byte(`[]`))
	})

	require.NoError(t, store.Remove(context.Background(), "u1/old.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Remove(ctx, "u1/old.png"), context.Canceled)
}
