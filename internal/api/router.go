package api

import (
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kdimtricp/instasave/internal/apperr"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.Log.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(app.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Reel-Cache"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", app.HealthHandler)

	r.Group(func(r chi.Router) {
		if app.Limiter != nil {
			r.Use(app.rateLimit)
		}
		r.Post("/analyze-reel", app.AnalyzeReelHandler)
		r.Post("/analyze-upload", app.AnalyzeUploadHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/reels", app.ListReelsHandler)
		r.Get("/reels/{id}", app.GetReelHandler)
		r.Delete("/reels/{id}", app.DeleteReelHandler)
		r.Get("/topics", app.ListTopicsHandler)
	})

	return r
}

// rateLimit applies the per-client token bucket to the analysis routes.
func (app *App) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.Limiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "2")
			app.writeError(w, r, &apperr.Error{Kind: apperr.KindRateLimited, Message: "Too many requests"}, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allowOrigin admits browser extensions by scheme plus the configured
// dashboard origins.
func allowOrigin(origins []string) func(*http.Request, string) bool {
	return func(_ *http.Request, origin string) bool {
		if strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://") {
			return true
		}
		return slices.Contains(origins, "*") || slices.Contains(origins, origin)
	}
}
