package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

type fakeBackend struct {
	signUpUser    *types.User
	signUpSession *types.Session
	signUpData    map[string]any
	session       *types.Session
	user          *types.User
	err           error
	userCalls     int
}

func (f *fakeBackend) SignUp(email, password string, data map[string]any) (*types.User, *types.Session, error) {
	f.signUpData = data
	return f.signUpUser, f.signUpSession, f.err
}
func (f *fakeBackend) SignIn(email, password string) (*types.Session, error) { return f.session, f.err }
func (f *fakeBackend) Refresh(token string) (*types.Session, error)         { return f.session, f.err }
func (f *fakeBackend) SignOut(token string) error                           { return f.err }
func (f *fakeBackend) User(token string) (*types.User, error) {
	f.userCalls++
	return f.user, f.err
}

type fakeProfiles struct {
	upserted []*types.Profile
	err      error
}

func (f *fakeProfiles) Upsert(ctx context.Context, p *types.Profile) (*types.Profile, error) {
	f.upserted = append(f.upserted, p)
	return p, f.err
}

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func userClaims(now time.Time, role string) supabaseClaims {
	return supabaseClaims{
		Email: "eren@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "8c5d1f0e-9a53-4c3b-8a43-5c4b8e1c0f11",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestVerify_LocalJWT(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := &fakeBackend{}
	svc := NewService(backend, &fakeProfiles{}, secret, clock, zap.NewNop())

	token := sign(t, userClaims(clock.Now(), "authenticated"), secret)
	user, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "8c5d1f0e-9a53-4c3b-8a43-5c4b8e1c0f11", user.ID)
	assert.Equal(t, "eren@example.com", user.Email)
	assert.Zero(t, backend.userCalls, "local verification does not call Supabase")

	clock.Advance(2 * time.Hour)
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, types.ErrUnauthorized, "expired")
}

func TestVerify_Rejects(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewService(&fakeBackend{}, &fakeProfiles{}, secret, clock, zap.NewNop())

	cases := map[string]string{
		"wrong key": sign(t, userClaims(clock.Now(), "authenticated"), "another-secret-another-secret-another"),
		"anon role": sign(t, userClaims(clock.Now(), "anon"), secret),
		"no expiry": sign(t, supabaseClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, secret),
		"no sub":    sign(t, supabaseClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour))}}, secret),
		"garbage":   "not-a-jwt",
		"empty":     "",
	}
	for name, tok := range cases {
		_, err := svc.Verify(context.Background(), tok)
		assert.ErrorIs(t, err, types.ErrUnauthorized, name)
	}
}

func TestVerify_FallsBackToBackend(t *testing.T) {
	backend := &fakeBackend{user: &types.User{ID: "u1"}}
	svc := NewService(backend, &fakeProfiles{}, "", clockwork.NewFakeClock(), zap.NewNop())

	user, err := svc.Verify(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, 1, backend.userCalls)
}

func TestSignUp_CreatesProfile(t *testing.T) {
	backend := &fakeBackend{signUpUser: &types.User{ID: "u1", Email: "a@b.co"}}
	profiles := &fakeProfiles{}
	svc := NewService(backend, profiles, "", clockwork.NewFakeClock(), zap.NewNop())

	user, session, err := svc.SignUp(context.Background(), " a@b.co ", "hunter22", "armin")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Nil(t, session, "confirmation pending")
	assert.Equal(t, "armin", backend.signUpData["username"])
	require.Len(t, profiles.upserted, 1)
	assert.Equal(t, "armin", profiles.upserted[0].Username)
}

func TestSignUp_ProfileFailureIsNotFatal(t *testing.T) {
	backend := &fakeBackend{signUpUser: &types.User{ID: "u1"}}
	svc := NewService(backend, &fakeProfiles{err: errors.New("boom")}, "", clockwork.NewFakeClock(), zap.NewNop())

	_, _, err := svc.SignUp(context.Background(), "a@b.co", "hunter22", "armin")
	assert.NoError(t, err)
}

func TestSignUp_Validation(t *testing.T) {
	svc := NewService(&fakeBackend{}, &fakeProfiles{}, "", clockwork.NewFakeClock(), zap.NewNop())

	_, _, err := svc.SignUp(context.Background(), "nope", "hunter22", "armin")
	assert.ErrorIs(t, err, types.ErrInvalid)
	_, _, err = svc.SignUp(context.Background(), "a@b.co", "123", "armin")
	assert.ErrorIs(t, err, types.ErrInvalid)
	_, _, err = svc.SignUp(context.Background(), "a@b.co", "hunter22", "x")
	assert.ErrorIs(t, err, types.ErrInvalid)
	_, err = svc.Refresh(context.Background(), " ")
	assert.ErrorIs(t, err, types.ErrInvalid)
}

func TestRequireUser(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewService(&fakeBackend{}, &fakeProfiles{}, secret, clock, zap.NewNop())

	var seen *types.User
	h := svc.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, userClaims(clock.Now(), "authenticated"), secret))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "eren@example.com", seen.Email)
}

func TestGotrueError(t *testing.T) {
	err := gotrueError("sign in", errors.New(`response status code 400: {"error":"invalid_grant"}`))
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	err = gotrueError("sign up", errors.New(`response status code 422: {"msg":"User already registered"}`))
	assert.ErrorIs(t, err, types.ErrInvalid)

	err = gotrueError("sign up", errors.New("dial tcp: refused"))
	assert.False(t, errors.Is(err, types.ErrInvalid))
	assert.ErrorContains(t, err, "dial tcp")
}
