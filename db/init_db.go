package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/functions-go"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/supabase-go"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/config"
)

// Clients groups the Supabase SDK handles the service talks to.
type Clients struct {
	Supabase  *supabase.Client
	Auth      gotrue.Client
	Functions *functions.Client
}

func InitDB(cfg config.SupabaseConfig) (*Clients, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("supabase url and key are required")
	}

	client, err := supabase.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &Clients{
		Supabase:  client,
		Auth:      client.Auth,
		Functions: client.Functions,
	}, nil
}
