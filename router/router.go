package router

import (
	"knoword-api/handler"
	"net/http"

	_ "knoword-api/docs"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter wires every route of the API. requireAuth guards the routes
// that need a valid access token.
func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	requireAuth func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.Handle("POST /auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("GET /auth/verify-email", handler.ErrorHandlingMiddleware(authHandler.VerifyEmail))
	mux.Handle("GET /auth/check-email", handler.ErrorHandlingMiddleware(authHandler.CheckEmail))
	mux.Handle("GET /auth/check-username", handler.ErrorHandlingMiddleware(authHandler.CheckUsername))
	mux.Handle("POST /auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /auth/logout", requireAuth(handler.ErrorHandlingMiddleware(authHandler.Logout)))

	mux.Handle("GET /users/me", requireAuth(handler.ErrorHandlingMiddleware(userHandler.Me)))

	return handler.LoggingMiddleware(mux)
}
