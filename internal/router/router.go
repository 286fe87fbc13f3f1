// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/handler"
	"github.com/braincrm/api-gateway/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication and no
// rate limiting. Currently that is only the health check used by load
// balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth endpoints. The unauthenticated ones
// (login, refresh, forgot/reset password) sit behind the rate limiter;
// logout requires a live bearer token and sits behind the gate.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter, gate echo.MiddlewareFunc) {
	g := e.Group("/api", limiter)
	g.POST("/login", a.Login)
	g.POST("/refresh_token", a.RefreshToken)
	g.POST("/forgot_password", a.ForgotPassword)
	g.POST("/reset_password", a.ResetPassword)

	e.POST("/api/logout", a.Logout, gate)
}

// RegisterRecords wires the generic record passthrough behind the gate.
// The per-operation policy check happens inside the handlers, because
// the resource kind is only known from the path at request time.
func RegisterRecords(e *echo.Echo, r *handler.ResourceHandler, gate echo.MiddlewareFunc) {
	g := e.Group("/api/records", gate)
	g.GET("/:kind", r.List)
	g.POST("/:kind", r.Create)
	g.PUT("/:kind/:id", r.Write)
	g.DELETE("/:kind/:id", r.Unlink)
}

// Gate builds the authentication middleware from the token and user
// stores. Split out so main and tests assemble identical gates.
func Gate(tokens middleware.AccessValidator, users middleware.PrincipalLoader) echo.MiddlewareFunc {
	return middleware.BearerAuth(tokens, users)
}
