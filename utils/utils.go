package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// maxBodyBytes bounds JSON request bodies; avatars use their own limit.
const maxBodyBytes = 1 << 20

func WriteJsonResponse(w http.ResponseWriter, statusCode int, v any) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(v)

}

func WriteError(w http.ResponseWriter, statusCode int, err error) error {
	return WriteJsonResponse(w, statusCode, map[string]any{"error": err.Error()})
}

// StatusFor maps a service error onto the HTTP status the API reports.
func StatusFor(err error) int {
	var rateLimited *anilist.RateLimitError
	switch {
	case errors.Is(err, types.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &rateLimited):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// ReadJSON decodes a JSON request body into v.
func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return types.Invalidf("malformed json body: %v", err)
	}
	return nil
}

// QueryInt reads an integer query parameter, returning def when it is absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.Invalidf("%s must be an integer", key)
	}
	return n, nil
}

// PathInt parses a positive integer route variable.
func PathInt(vars map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(vars[key])
	if err != nil || n <= 0 {
		return 0, types.Invalidf("please provide a valid %s", key)
	}
	return n, nil
}

func NowDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z")
}
