package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tomnomnom/linkheader"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/tracker"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

type ListService interface {
	List(ctx context.Context, userID string, q tracker.Query) (*types.ListPage, error)
	Get(ctx context.Context, userID string, animeID int) (*types.ListItem, error)
	Add(ctx context.Context, userID string, req tracker.AddRequest) (*types.ListItem, error)
	Update(ctx context.Context, userID string, animeID int, req tracker.UpdateRequest) (*types.ListItem, error)
	Increment(ctx context.Context, userID string, animeID int) (*types.ListItem, error)
	Remove(ctx context.Context, userID string, animeID int) error
	Stats(ctx context.Context, userID string) (*types.Stats, error)
	Export(ctx context.Context, userID, format string) ([]byte, error)
}

type ListHandler struct {
	list   ListService
	logger *zap.Logger
}

func NewListHandler(list ListService, logger *zap.Logger) *ListHandler {
	return &ListHandler{list: list, logger: logger}
}

func (h *ListHandler) HandleRequests(router *mux.Router) {
	router.HandleFunc("/list", h.List).Methods("GET")
	router.HandleFunc("/list", h.Add).Methods("POST")
	router.HandleFunc("/list/stats", h.Stats).Methods("GET")
	router.HandleFunc("/list/export", h.Export).Methods("GET")
	router.HandleFunc("/list/{animeId:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/list/{animeId:[0-9]+}", h.Update).Methods("PATCH")
	router.HandleFunc("/list/{animeId:[0-9]+}", h.Remove).Methods("DELETE")
	router.HandleFunc("/list/{animeId:[0-9]+}/increment", h.Increment).Methods("POST")
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	page, err := utils.QueryInt(r, "page", 1)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	perPage, err := utils.QueryInt(r, "per_page", 0)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := h.list.List(r.Context(), userID, tracker.Query{
		Status:  q.Get("status"),
		Search:  q.Get("q"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	w.Header().Set("Link", pageLinks(r.URL, result.Page, result.Pages).String())
	utils.WriteJsonResponse(w, http.StatusOK, result)
}

// pageLinks builds the first/prev/next/last relations for a paged listing,
// keeping every other query parameter of the request.
func pageLinks(u *url.URL, page, pages int) linkheader.Links {
	at := func(p int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(p))
		return u.Path + "?" + q.Encode()
	}

	links := linkheader.Links{{URL: at(1), Rel: "first"}}
	if page > 1 {
		links = append(links, linkheader.Link{URL: at(page - 1), Rel: "prev"})
	}
	if page < pages {
		links = append(links, linkheader.Link{URL: at(page + 1), Rel: "next"})
	}
	return append(links, linkheader.Link{URL: at(pages), Rel: "last"})
}

func (h *ListHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	var body tracker.AddRequest
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	item, err := h.list.Add(r.Context(), userID, body)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusCreated, item)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	animeID, err := utils.PathInt(mux.Vars(r), "animeId")
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	item, err := h.list.Get(r.Context(), userID, animeID)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, item)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	animeID, err := utils.PathInt(mux.Vars(r), "animeId")
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	var body tracker.UpdateRequest
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	item, err := h.list.Update(r.Context(), userID, animeID, body)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, item)
}

func (h *ListHandler) Increment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	animeID, err := utils.PathInt(mux.Vars(r), "animeId")
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	item, err := h.list.Increment(r.Context(), userID, animeID)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, item)
}

func (h *ListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	animeID, err := utils.PathInt(mux.Vars(r), "animeId")
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	if err := h.list.Remove(r.Context(), userID, animeID); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}

	stats, err := h.list.Stats(r.Context(), userID)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, stats)
}

func (h *ListHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	data, err := h.list.Export(r.Context(), userID, format)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	w.Header().Set("Content-Type", tracker.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "animeit-list."+format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("export write failed", zap.Error(err))
	}
}
