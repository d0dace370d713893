// Package handler exposes the services over the /api/v1 JSON API.
package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/auth"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

// fail writes err with the status it maps to. Upstream failures are logged,
// client mistakes only at debug level.
func fail(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := utils.StatusFor(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}
	utils.WriteError(w, status, err)
}

// currentUser returns the id stored by auth.RequireUser.
func currentUser(logger *zap.Logger, w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		fail(logger, w, r, errors.Join(types.ErrUnauthorized, errors.New("missing user")))
		return "", false
	}
	return user.ID, true
}
