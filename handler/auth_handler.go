package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/auth"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

type Authenticator interface {
	SignUp(ctx context.Context, email, password, username string) (*types.User, *types.Session, error)
	SignIn(ctx context.Context, email, password string) (*types.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*types.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type AuthHandler struct {
	auth   Authenticator
	logger *zap.Logger
}

func NewAuthHandler(a Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: a, logger: logger}
}

// HandleRequests registers the public auth routes. /auth/me is registered
// on the protected router with HandleProtected.
func (h *AuthHandler) HandleRequests(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.SignUp).Methods("POST")
	router.HandleFunc("/auth/signin", h.SignIn).Methods("POST")
	router.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	router.HandleFunc("/auth/signout", h.SignOut).Methods("POST")
}

func (h *AuthHandler) HandleProtected(router *mux.Router) {
	router.HandleFunc("/auth/me", h.Me).Methods("GET")
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	type RequestBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}

	var body RequestBody
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	user, session, err := h.auth.SignUp(r.Context(), body.Email, body.Password, body.Username)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response := map[string]any{"user": user, "session": session}
	if session == nil {
		response["message"] = "check your inbox to confirm the email address"
	}
	utils.WriteJsonResponse(w, http.StatusCreated, response)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	type RequestBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var body RequestBody
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	session, err := h.auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, session)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := utils.ReadJSON(r, &body); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	session, err := h.auth.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, session)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		fail(h.logger, w, r, types.ErrUnauthorized)
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		fail(h.logger, w, r, types.ErrUnauthorized)
		return
	}
	utils.WriteJsonResponse(w, http.StatusOK, user)
}
