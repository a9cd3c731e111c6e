package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/handler"
	"github.com/cinemarket/movie-storefront/internal/middleware"
	"github.com/cinemarket/movie-storefront/internal/model"
)

// RegisterAuth registers all account-related routes. Unauthenticated
// operations live under /v1/auth; the signed-in account surface lives
// under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.ProfileHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/activate", a.Activate)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a refresh token in the body or a bearer
	// token, so it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)
	g.POST("/password-reset/request", a.RequestPasswordReset)
	g.POST("/password-reset/confirm", a.ResetPassword)

	me := e.Group(
		"/v1/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleModerator, model.RoleAdmin),
	)
	me.GET("", a.Me)
	me.PUT("/password", a.ChangePassword)
	me.GET("/profile", p.Get)
	me.PUT("/profile", p.Update)
}
