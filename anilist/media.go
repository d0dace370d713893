package anilist

import "github.com/Nokitomo/anime-mondo-italiano-sub000/types"

type Title struct {
	Romaji        string `json:"romaji"`
	English       string `json:"english"`
	Native        string `json:"native"`
	UserPreferred string `json:"userPreferred"`
}

// Preferred picks the first non-empty title, favouring the English one.
func (t Title) Preferred() string {
	for _, s := range []string{t.English, t.UserPreferred, t.Romaji, t.Native} {
		if s != "" {
			return s
		}
	}
	return ""
}

type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
	Color      string `json:"color"`
}

func (c CoverImage) Best() string {
	for _, s := range []string{c.ExtraLarge, c.Large, c.Medium} {
		if s != "" {
			return s
		}
	}
	return ""
}

type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type AiringEpisode struct {
	AiringAt        int64 `json:"airingAt"`
	TimeUntilAiring int64 `json:"timeUntilAiring"`
	Episode         int   `json:"episode"`
}

type RelationEdge struct {
	RelationType string `json:"relationType"`
	Node         *Media `json:"node"`
}

type Relations struct {
	Edges []*RelationEdge `json:"edges"`
}

type Media struct {
	ID                int             `json:"id"`
	IDMal             int             `json:"idMal"`
	Title             Title           `json:"title"`
	Type              types.MediaType `json:"type"`
	Format            string          `json:"format"`
	Status            string          `json:"status"`
	Description       string          `json:"description"`
	Episodes          int             `json:"episodes"`
	Chapters          int             `json:"chapters"`
	Volumes           int             `json:"volumes"`
	Duration          int             `json:"duration"`
	Genres            []string        `json:"genres"`
	AverageScore      int             `json:"averageScore"`
	Popularity        int             `json:"popularity"`
	Season            string          `json:"season"`
	SeasonYear        int             `json:"seasonYear"`
	CoverImage        CoverImage      `json:"coverImage"`
	BannerImage       string          `json:"bannerImage"`
	StartDate         FuzzyDate       `json:"startDate"`
	NextAiringEpisode *AiringEpisode  `json:"nextAiringEpisode"`
	Relations         *Relations      `json:"relations,omitempty"`
}

// Units is the episode count for anime and the chapter count for manga.
// Zero means AniList does not know it yet.
func (m *Media) Units() int {
	if m.Type == types.MediaManga {
		return m.Chapters
	}
	return m.Episodes
}

type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

type MediaPage struct {
	PageInfo PageInfo `json:"pageInfo"`
	Media    []*Media `json:"media"`
}
