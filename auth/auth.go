// Package auth owns the user session: sign up/in/out through Supabase Auth and
// verification of the bearer token carried by API requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

const minPasswordLength = 6

type ProfileWriter interface {
	Upsert(ctx context.Context, p *types.Profile) (*types.Profile, error)
}

type Service struct {
	backend   Backend
	profiles  ProfileWriter
	jwtSecret []byte
	clock     clockwork.Clock
	logger    *zap.Logger
}

func NewService(backend Backend, profiles ProfileWriter, jwtSecret string, clock clockwork.Clock, logger *zap.Logger) *Service {
	s := &Service{
		backend:  backend,
		profiles: profiles,
		clock:    clock,
		logger:   logger,
	}
	if jwtSecret != "" {
		s.jwtSecret = []byte(jwtSecret)
	}
	return s
}

// SignUp registers an account and creates its profile row. The returned
// session is nil when the project requires email confirmation first.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (*types.User, *types.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, nil, err
	}
	if err := types.ValidateUsername(username); err != nil {
		return nil, nil, err
	}

	user, session, err := s.backend.SignUp(email, password, map[string]any{"username": username})
	if err != nil {
		return nil, nil, err
	}

	if user.ID != "" {
		_, err := s.profiles.Upsert(ctx, &types.Profile{
			ID:        user.ID,
			Username:  username,
			UpdatedAt: s.clock.Now(),
		})
		if err != nil {
			s.logger.Warn("profile creation after sign up failed",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, session, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*types.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	return s.backend.SignIn(email, password)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*types.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, types.Invalidf("refresh_token is required")
	}
	return s.backend.Refresh(refreshToken)
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	return s.backend.SignOut(accessToken)
}

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verify resolves the user behind an access token. With a JWT secret the
// token is checked locally; otherwise Supabase Auth is asked.
func (s *Service) Verify(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing bearer token: %w", types.ErrUnauthorized)
	}
	if len(s.jwtSecret) == 0 {
		return s.backend.User(token)
	}

	claims := &supabaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %v", types.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject: %w", types.ErrUnauthorized)
	}
	if claims.Role != "" && claims.Role != "authenticated" {
		return nil, fmt.Errorf("token role %q: %w", claims.Role, types.ErrUnauthorized)
	}
	return &types.User{ID: claims.Subject, Email: claims.Email}, nil
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return types.Invalidf("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return types.Invalidf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *types.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (*types.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*types.User)
	return u, ok && u != nil
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.Verify(r.Context(), BearerToken(r))
		if err != nil {
			status := utils.StatusFor(err)
			if !errors.Is(err, types.ErrUnauthorized) {
				s.logger.Warn("token verification failed", zap.Error(err))
			}
			utils.WriteError(w, status, errors.New(http.StatusText(status)))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
