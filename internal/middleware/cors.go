package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// wizardExposedHeaders are response headers the kiosk wizard reads: rate
// limit state and the archive file name of a ZIP download.
var wizardExposedHeaders = []string{
	"Content-Disposition",
	"Retry-After",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
}

// CORSOptions builds the cross-origin policy for the wizard front end.
// Development accepts any origin. A wildcard never allows credentials,
// since browsers reject that combination.
func CORSOptions(allowedOrigins []string, isDevelopment bool) cors.Options {
	origins := allowedOrigins
	if isDevelopment {
		origins = []string{"*"}
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   wizardExposedHeaders,
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}

// CORSMiddleware applies CORSOptions.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	return cors.Handler(CORSOptions(allowedOrigins, isDevelopment))
}

// DefaultMiddlewareStack returns the middleware every route shares. Only
// JSON and text bodies are compressed; ZIP archives are already deflated.
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.CleanPath,
		middleware.Recoverer,
		middleware.Compress(5, "application/json", "text/plain"),
	}
}
