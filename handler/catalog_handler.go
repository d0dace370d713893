package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

type Catalog interface {
	Search(ctx context.Context, p anilist.SearchParams) (*anilist.MediaPage, error)
	Trending(ctx context.Context, mt types.MediaType, page, perPage int) (*anilist.MediaPage, error)
	PopularThisSeason(ctx context.Context, page, perPage int) (*anilist.MediaPage, error)
	Upcoming(ctx context.Context, page, perPage int) (*anilist.MediaPage, error)
	Media(ctx context.Context, id int) (*anilist.Media, error)
}

type CatalogHandler struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewCatalogHandler(c Catalog, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

func (h *CatalogHandler) HandleRequests(router *mux.Router) {
	router.HandleFunc("/catalog/search", h.Search).Methods("GET")
	router.HandleFunc("/catalog/trending", h.Trending).Methods("GET")
	router.HandleFunc("/catalog/popular", h.Popular).Methods("GET")
	router.HandleFunc("/catalog/upcoming", h.Upcoming).Methods("GET")
	router.HandleFunc("/catalog/media/{id}", h.Media).Methods("GET")
}

func paging(r *http.Request) (int, int, error) {
	page, err := utils.QueryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	perPage, err := utils.QueryInt(r, "per_page", 20)
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := paging(r)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	q := r.URL.Query()
	mt, err := types.ParseMediaType(q.Get("type"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	result, err := h.catalog.Search(r.Context(), anilist.SearchParams{
		Query:   q.Get("q"),
		Type:    mt,
		Genre:   q.Get("genre"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, result)
}

func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := paging(r)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	mt, err := types.ParseMediaType(r.URL.Query().Get("type"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	result, err := h.catalog.Trending(r.Context(), mt, page, perPage)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, result)
}

func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := paging(r)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	result, err := h.catalog.PopularThisSeason(r.Context(), page, perPage)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, result)
}

func (h *CatalogHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := paging(r)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	result, err := h.catalog.Upcoming(r.Context(), page, perPage)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, result)
}

func (h *CatalogHandler) Media(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(mux.Vars(r), "id")
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	media, err := h.catalog.Media(r.Context(), id)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, media)
}
