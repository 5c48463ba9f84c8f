package api

import (
	"net/http"
	"time"

	conversationapi "github.com/futig/omnistudy/internal/api/conversation"
	"github.com/futig/omnistudy/internal/api/docs"
	"github.com/futig/omnistudy/internal/api/middleware"
	"github.com/futig/omnistudy/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router. requestTimeout bounds
// each request; it must cover one full generation round trip.
func SetupRouter(conversationHandler *conversationapi.Handler, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)               // Recover from panics
	r.Use(chimiddleware.RequestID)               // Add request ID
	r.Use(middleware.Logger(logger))             // Log requests
	r.Use(middleware.CORS)                       // Handle CORS
	r.Use(chimiddleware.Timeout(requestTimeout)) // Default timeout

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	conversationapi.RegisterRoutes(r, conversationHandler)

	return r
}
