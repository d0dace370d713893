package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/handler"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

const shutdownTimeout = 10 * time.Second

// Handlers groups the route owners mounted under /api/v1.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	List    *handler.ListHandler
	Profile *handler.ProfileHandler
	Home    *handler.HomeHandler
}

type ApiServer struct {
	addr     string
	logger   *zap.Logger
	handlers Handlers
	guard    mux.MiddlewareFunc
}

// NewServer builds the API server. guard authenticates the protected routes.
func NewServer(addr string, logger *zap.Logger, guard mux.MiddlewareFunc, handlers Handlers) *ApiServer {
	return &ApiServer{
		addr:     addr,
		logger:   logger,
		handlers: handlers,
		guard:    guard,
	}
}

// Router returns the full handler, middleware included.
func (s *ApiServer) Router() http.Handler {
	router := mux.NewRouter()

	subrouter := router.PathPrefix("/api/v1").Subrouter()
	subrouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	s.handlers.Auth.HandleRequests(subrouter)
	s.handlers.Catalog.HandleRequests(subrouter)

	protected := subrouter.NewRoute().Subrouter()
	protected.Use(s.guard)
	s.handlers.Auth.HandleProtected(protected)
	s.handlers.List.HandleRequests(protected)
	s.handlers.Profile.HandleRequests(protected)
	s.handlers.Home.HandleRequests(protected)

	middlewareChain := MiddleWareChain(
		RequestIDMiddleWare,
		CORSMiddleWare,
		LoggerMiddleWare(s.logger),
		RecoveryMiddleWare(s.logger),
	)
	return middlewareChain(router)
}

// RunServer serves until ctx is cancelled, then drains in-flight requests.
func (s *ApiServer) RunServer(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server running", zap.String("addr", s.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type wrappedWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *wrappedWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *wrappedWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

const requestIDHeader = "X-Request-ID"

func RequestIDMiddleWare(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	}
}

func CORSMiddleWare(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Link, X-Total-Count, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func LoggerMiddleWare(logger *zap.Logger) MiddleWare {
	return func(next http.Handler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &wrappedWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			ip := r.Header.Get("X-Real-IP")
			if ip == "" {
				ip = r.Header.Get("X-Forwarded-For")
				if ip == "" {
					ip = r.RemoteAddr
				}
			}

			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("request_id", r.Header.Get(requestIDHeader)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.String("ip", ip),
				zap.Duration("duration", time.Since(start)),
			}
			if wrapped.statusCode >= http.StatusBadRequest {
				logger.Warn("request", fields...)
				return
			}
			logger.Info("request", fields...)
		}
	}
}

func RecoveryMiddleWare(logger *zap.Logger) MiddleWare {
	return func(next http.Handler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic while serving request",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))
					utils.WriteError(w, http.StatusInternalServerError, errors.New("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		}
	}
}

type MiddleWare func(http.Handler) http.HandlerFunc

func MiddleWareChain(middlewares ...MiddleWare) MiddleWare {
	return func(next http.Handler) http.HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next.ServeHTTP
	}
}
