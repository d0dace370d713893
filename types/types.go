package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalid      = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
)

// Invalidf wraps ErrInvalid with a readable reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type MediaType string

const (
	MediaAnime MediaType = "ANIME"
	MediaManga MediaType = "MANGA"
)

func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(MediaAnime):
		return MediaAnime, nil
	case string(MediaManga):
		return MediaManga, nil
	}
	return "", Invalidf("unknown media type %q", s)
}

type ListStatus string

const (
	StatusWatching    ListStatus = "watching"
	StatusCompleted   ListStatus = "completed"
	StatusOnHold      ListStatus = "on_hold"
	StatusDropped     ListStatus = "dropped"
	StatusPlanToWatch ListStatus = "plan_to_watch"
)

// Statuses lists every list status in display order.
var Statuses = []ListStatus{
	StatusWatching,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
	StatusPlanToWatch,
}

func ParseListStatus(s string) (ListStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, st := range Statuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", Invalidf("unknown list status %q", s)
}

// ListItem is a row of the anime_list table, identified by (UserID, AnimeID).
type ListItem struct {
	ID         int64      `json:"id,omitempty"`
	UserID     string     `json:"user_id"`
	AnimeID    int        `json:"anime_id"`
	Title      string     `json:"title"`
	CoverImage string     `json:"cover_image"`
	Episodes   int        `json:"episodes"`
	Status     ListStatus `json:"status"`
	Progress   int        `json:"progress"`
	Score      float64    `json:"score"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type Stats struct {
	Total           int                `json:"total"`
	ByStatus        map[ListStatus]int `json:"by_status"`
	EpisodesWatched int                `json:"episodes_watched"`
	MeanScore       float64            `json:"mean_score"`
	ScoredCount     int                `json:"scored_count"`
	CompletionRate  float64            `json:"completion_rate"`
}

type ListPage struct {
	Items   []*ListItem `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Pages   int         `json:"pages"`
}

// CarouselCard is the compact shape shown in a home carousel.
type CarouselCard struct {
	AnimeID    int        `json:"anime_id"`
	Title      string     `json:"title"`
	CoverImage string     `json:"cover_image"`
	Episodes   int        `json:"episodes,omitempty"`
	Progress   int        `json:"progress,omitempty"`
	Status     ListStatus `json:"status,omitempty"`
}

type Carousel struct {
	Name    string          `json:"name"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	HasPrev bool            `json:"has_prev"`
	HasNext bool            `json:"has_next"`
	Cards   []*CarouselCard `json:"cards"`
}

// ValidateUsername accepts 3 to 32 characters of letters, digits and underscores.
func ValidateUsername(name string) error {
	if len(name) < 3 || len(name) > 32 {
		return Invalidf("username must be between 3 and 32 characters")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return Invalidf("username may only contain letters, digits and underscores")
		}
	}
	return nil
}
