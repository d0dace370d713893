package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

const profilesTable = "profiles"

type ProfileStore struct {
	client *supabase.Client
}

func NewProfileStore(client *supabase.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*types.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := s.client.From(profilesTable).
		Select("*", "", false).
		Eq("id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, translate("get profile", err)
	}
	return firstProfile(data, userID)
}

// Upsert writes the whole profile row keyed by id.
func (s *ProfileStore) Upsert(ctx context.Context, p *types.Profile) (*types.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := map[string]any{
		"id":         p.ID,
		"username":   p.Username,
		"avatar_url": p.AvatarURL,
		"bio":        p.Bio,
		"updated_at": utils.NowDate(p.UpdatedAt),
	}
	data, _, err := s.client.From(profilesTable).
		Upsert(row, "id", "representation", "").
		Execute()
	if err != nil {
		return nil, translate("upsert profile", err)
	}
	return firstProfile(data, p.ID)
}

func firstProfile(data []byte, userID string) (*types.Profile, error) {
	var profiles []*types.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, types.ErrNotFound)
	}
	return profiles[0], nil
}
