package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/supabase-community/gotrue-go"
	gotypes "github.com/supabase-community/gotrue-go/types"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// Backend is the slice of Supabase Auth the service needs.
type Backend interface {
	// SignUp returns a nil session when the project requires email confirmation.
	SignUp(email, password string, data map[string]any) (*types.User, *types.Session, error)
	SignIn(email, password string) (*types.Session, error)
	Refresh(refreshToken string) (*types.Session, error)
	SignOut(accessToken string) error
	User(accessToken string) (*types.User, error)
}

// GoTrue adapts gotrue-go to Backend.
type GoTrue struct {
	client gotrue.Client
	now    func() time.Time
}

func NewGoTrue(client gotrue.Client) *GoTrue {
	return &GoTrue{client: client, now: time.Now}
}

func (g *GoTrue) SignUp(email, password string, data map[string]any) (*types.User, *types.Session, error) {
	resp, err := g.client.Signup(gotypes.SignupRequest{
		Email:    email,
		Password: password,
		Data:     data,
	})
	if err != nil {
		return nil, nil, gotrueError("sign up", err)
	}

	user := &types.User{ID: resp.ID.String(), Email: resp.Email}
	if resp.AccessToken == "" {
		return user, nil, nil
	}
	return user, &types.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    g.expiry(resp.ExpiresAt, resp.ExpiresIn),
		User:         *user,
	}, nil
}

func (g *GoTrue) SignIn(email, password string) (*types.Session, error) {
	resp, err := g.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, gotrueError("sign in", err)
	}
	return g.session(resp), nil
}

func (g *GoTrue) Refresh(refreshToken string) (*types.Session, error) {
	resp, err := g.client.RefreshToken(refreshToken)
	if err != nil {
		return nil, gotrueError("refresh", err)
	}
	return g.session(resp), nil
}

func (g *GoTrue) SignOut(accessToken string) error {
	if err := g.client.WithToken(accessToken).Logout(); err != nil {
		return gotrueError("sign out", err)
	}
	return nil
}

func (g *GoTrue) User(accessToken string) (*types.User, error) {
	resp, err := g.client.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, gotrueError("get user", err)
	}
	return &types.User{ID: resp.ID.String(), Email: resp.Email}, nil
}

func (g *GoTrue) session(resp *gotypes.TokenResponse) *types.Session {
	return &types.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    g.expiry(resp.ExpiresAt, resp.ExpiresIn),
		User:         types.User{ID: resp.User.ID.String(), Email: resp.User.Email},
	}
}

func (g *GoTrue) expiry(expiresAt int64, expiresIn int) time.Time {
	if expiresAt > 0 {
		return time.Unix(expiresAt, 0).UTC()
	}
	return g.now().Add(time.Duration(expiresIn) * time.Second).UTC()
}

var statusPattern = regexp.MustCompile(`status code (\d{3})`)

// gotrue-go reports failures as "response status code <n>: <body>".
func gotrueError(op string, err error) error {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	code, _ := strconv.Atoi(m[1])
	switch code {
	case 400, 401, 403:
		return fmt.Errorf("%s: %w: %v", op, types.ErrUnauthorized, err)
	case 409:
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	case 422:
		return fmt.Errorf("%s: %w: %v", op, types.ErrInvalid, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
