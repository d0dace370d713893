package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/gotrue-go"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

const gotrueUserID = "6f1c2a4e-8a52-4d8a-9a3b-1f7f1f0c2b11"

func newGoTrue(t *testing.T, handler http.HandlerFunc) *GoTrue {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon", r.Header.Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	g := NewGoTrue(gotrue.New("ref", "anon").WithCustomGoTrueURL(srv.URL + "/auth/v1"))
	g.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGoTrue_SignUpNeedsConfirmation(t *testing.T) {
	g := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "levi@example.com", body["email"])
		assert.Equal(t, map[string]any{"username": "levi"}, body["data"])

		writeJSON(t, w, map[string]any{"id": gotrueUserID, "email": "levi@example.com"})
	})

	user, session, err := g.SignUp("levi@example.com", "secret123", map[string]any{"username": "levi"})
	require.NoError(t, err)
	assert.Nil(t, session, "no session until the email is confirmed")
	assert.Equal(t, &types.User{ID: gotrueUserID, Email: "levi@example.com"}, user)
}

func TestGoTrue_SignUpAutoconfirm(t *testing.T) {
	g := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    3600,
			"expires_at":    1711976400,
			"user":          map[string]any{"id": gotrueUserID, "email": "levi@example.com"},
		})
	})

	user, session, err := g.SignUp("levi@example.com", "secret123", nil)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, gotrueUserID, user.ID)
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, "refresh", session.RefreshToken)
	assert.Equal(t, time.Unix(1711976400, 0).UTC(), session.ExpiresAt)
	assert.Equal(t, *user, session.User)
}

func TestGoTrue_SignInAndRefresh(t *testing.T) {
	g := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			writeJSON(t, w, map[string]any{
				"access_token": "a1", "refresh_token": "r1", "expires_at": 1711980000,
				"user": map[string]any{"id": gotrueUserID, "email": "levi@example.com"},
			})
		case "refresh_token":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r1", body["refresh_token"])
			writeJSON(t, w, map[string]any{
				"access_token": "a2", "refresh_token": "r2", "expires_in": 600,
				"user": map[string]any{"id": gotrueUserID, "email": "levi@example.com"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	s, err := g.SignIn("levi@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a1", s.AccessToken)
	assert.Equal(t, time.Unix(1711980000, 0).UTC(), s.ExpiresAt, "expires_at is used as is")
	assert.Equal(t, gotrueUserID, s.User.ID)

	s, err = g.Refresh(s.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", s.AccessToken)
	assert.Equal(t, time.Date(2024, 4, 1, 12, 10, 0, 0, time.UTC), s.ExpiresAt, "expires_in counts from now")
}

func TestGoTrue_UserAndSignOut(t *testing.T) {
	g := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/user":
			writeJSON(t, w, map[string]any{"id": gotrueUserID, "email": "levi@example.com"})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	user, err := g.User("token-1")
	require.NoError(t, err)
	assert.Equal(t, &types.User{ID: gotrueUserID, Email: "levi@example.com"}, user)
	assert.NoError(t, g.SignOut("token-1"))
}

func TestGoTrue_ErrorMapping(t *testing.T) {
	for code, want := range map[int]error{
		http.StatusBadRequest:          types.ErrUnauthorized,
		http.StatusConflict:            types.ErrConflict,
		http.StatusUnprocessableEntity: types.ErrInvalid,
	} {
		g := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			writeJSON(t, w, map[string]any{"msg": "nope"})
		})
		_, err := g.SignIn("levi@example.com", "wrong")
		assert.ErrorIs(t, err, want, code)
	}
}
