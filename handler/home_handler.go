package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

type HomeService interface {
	Carousels(ctx context.Context, userID, name string, page int) ([]*types.Carousel, error)
}

type HomeHandler struct {
	home   HomeService
	logger *zap.Logger
}

func NewHomeHandler(home HomeService, logger *zap.Logger) *HomeHandler {
	return &HomeHandler{home: home, logger: logger}
}

func (h *HomeHandler) HandleRequests(router *mux.Router) {
	router.HandleFunc("/home", h.Home).Methods("GET")
}

// Home returns all carousels, or one when ?carousel= is set. Without ?page=
// every carousel opens on the page the user last viewed.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	page, err := utils.QueryInt(r, "page", 0)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	carousels, err := h.home.Carousels(r.Context(), userID, r.URL.Query().Get("carousel"), page)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, map[string]any{"carousels": carousels})
}
