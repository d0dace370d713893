// Package profile manages the public profile of a user: username, bio and
// avatar picture.
package profile

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

const (
	maxBio        = 500
	MaxAvatarSize = 2 << 20
)

var avatarExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type Store interface {
	Get(ctx context.Context, userID string) (*types.Profile, error)
	Upsert(ctx context.Context, p *types.Profile) (*types.Profile, error)
}

type Avatars interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	PublicURL(path string) string
	PathOf(publicURL string) (string, bool)
	Remove(ctx context.Context, path string) error
}

type Service struct {
	store   Store
	avatars Avatars
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewService(store Store, avatars Avatars, clock clockwork.Clock, logger *zap.Logger) *Service {
	return &Service{store: store, avatars: avatars, clock: clock, logger: logger}
}

// Get returns the stored profile, or an empty one for users that never saved it.
func (s *Service) Get(ctx context.Context, userID string) (*types.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return &types.Profile{ID: userID}, nil
	}
	return p, err
}

type UpdateRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (*types.Profile, error) {
	if req.Username == nil && req.Bio == nil {
		return nil, types.Invalidf("nothing to update")
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := types.ValidateUsername(name); err != nil {
			return nil, err
		}
		p.Username = name
	}
	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > maxBio {
			return nil, types.Invalidf("bio cannot exceed %d characters", maxBio)
		}
		p.Bio = *req.Bio
	}
	p.UpdatedAt = s.clock.Now()
	return s.store.Upsert(ctx, p)
}

// UploadAvatar stores a new picture under <user>/<uuid>.<ext>, points the
// profile at it and removes the previous one.
func (s *Service) UploadAvatar(ctx context.Context, userID, contentType string, data []byte) (*types.Profile, error) {
	declared, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, types.Invalidf("invalid content type %q", contentType)
	}
	ext, ok := avatarExt[declared]
	if !ok {
		return nil, types.Invalidf("avatar must be png, jpeg, webp or gif")
	}
	switch {
	case len(data) == 0:
		return nil, types.Invalidf("avatar is empty")
	case len(data) > MaxAvatarSize:
		return nil, types.Invalidf("avatar cannot exceed %d bytes", MaxAvatarSize)
	}
	if sniffed := http.DetectContentType(data); sniffed != declared {
		return nil, types.Invalidf("avatar content is %s, not %s", sniffed, declared)
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := p.AvatarURL

	path := fmt.Sprintf("%s/%s.%s", userID, uuid.NewString(), ext)
	if err := s.avatars.Upload(ctx, path, declared, data); err != nil {
		return nil, err
	}

	p.AvatarURL = s.avatars.PublicURL(path)
	p.UpdatedAt = s.clock.Now()
	saved, err := s.store.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}

	if old, ok := s.avatars.PathOf(previous); ok && old != path {
		if err := s.avatars.Remove(ctx, old); err != nil {
			s.logger.Warn("failed to remove previous avatar", zap.String("path", old), zap.Error(err))
		}
	}
	s.logger.Info("avatar updated", zap.String("user_id", userID), zap.Int("bytes", len(data)))
	return saved, nil
}
