package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/profile"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

type ProfileService interface {
	Get(ctx context.Context, userID string) (*types.Profile, error)
	Update(ctx context.Context, userID string, req profile.UpdateRequest) (*types.Profile, error)
	UploadAvatar(ctx context.Context, userID, contentType string, data []byte) (*types.Profile, error)
}

type ProfileHandler struct {
	profiles ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) HandleRequests(router *mux.Router) {
	router.HandleFunc("/profile", h.Get).Methods("GET")
	router.HandleFunc("/profile", h.Update).Methods("PATCH")
	router.HandleFunc("/profile/avatar", h.UploadAvatar).Methods("POST")
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}
	var body profile.UpdateRequest
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	p, err := h.profiles.Update(r.Context(), userID, body)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, p)
}

// UploadAvatar takes the raw image as the request body.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(h.logger, w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, profile.MaxAvatarSize+1))
	if err != nil {
		fail(h.logger, w, r, types.Invalidf("failed to read avatar: %v", err))
		return
	}

	p, err := h.profiles.UploadAvatar(r.Context(), userID, r.Header.Get("Content-Type"), data)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, p)
}
