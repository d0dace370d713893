package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

const animeListTable = "anime_list"

// ListStore reads and writes anime_list rows. Every query is scoped by user_id
// because the service key bypasses row level security.
type ListStore struct {
	client *supabase.Client
}

func NewListStore(client *supabase.Client) *ListStore {
	return &ListStore{client: client}
}

func (s *ListStore) ListByUser(ctx context.Context, userID string) ([]*types.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := s.client.From(animeListTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, translate("list items", err)
	}

	var items []*types.ListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode list items: %w", err)
	}
	return items, nil
}

func (s *ListStore) Get(ctx context.Context, userID string, animeID int) (*types.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := s.client.From(animeListTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("anime_id", strconv.Itoa(animeID)).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, translate("get list item", err)
	}
	return firstItem(data, animeID)
}

func (s *ListStore) Insert(ctx context.Context, item *types.ListItem) (*types.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := map[string]any{
		"user_id":     item.UserID,
		"anime_id":    item.AnimeID,
		"title":       item.Title,
		"cover_image": item.CoverImage,
		"episodes":    item.Episodes,
		"status":      item.Status,
		"progress":    item.Progress,
		"score":       item.Score,
		"notes":       item.Notes,
		"created_at":  utils.NowDate(item.CreatedAt),
		"updated_at":  utils.NowDate(item.UpdatedAt),
	}

	data, _, err := s.client.From(animeListTable).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, translate("insert list item", err)
	}
	return firstItem(data, item.AnimeID)
}

// Update applies a partial column map to one row and returns the stored result.
func (s *ListStore) Update(ctx context.Context, userID string, animeID int, fields map[string]any) (*types.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := s.client.From(animeListTable).
		Update(fields, "representation", "").
		Eq("user_id", userID).
		Eq("anime_id", strconv.Itoa(animeID)).
		Execute()
	if err != nil {
		return nil, translate("update list item", err)
	}
	return firstItem(data, animeID)
}

func (s *ListStore) Delete(ctx context.Context, userID string, animeID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := s.client.From(animeListTable).
		Delete("representation", "").
		Eq("user_id", userID).
		Eq("anime_id", strconv.Itoa(animeID)).
		Execute()
	if err != nil {
		return translate("delete list item", err)
	}
	_, err = firstItem(data, animeID)
	return err
}

func firstItem(data []byte, animeID int) (*types.ListItem, error) {
	var items []*types.ListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode list item: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("list item %d: %w", animeID, types.ErrNotFound)
	}
	return items[0], nil
}
