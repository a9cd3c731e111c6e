package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/handler"
	"github.com/cinemarket/movie-storefront/internal/middleware"
	"github.com/cinemarket/movie-storefront/internal/model"
)

// RegisterCatalog registers the public browse endpoints and the
// moderator catalog CRUD. Public GETs run behind the Redis response
// cache and token-bucket rate limiter; writes bypass both.
func RegisterCatalog(e *echo.Echo, m *handler.MovieHandler, cat *handler.CatalogHandler, jwtSecret string, public ...echo.MiddlewareFunc) {
	g := e.Group("/v1", public...)
	g.GET("/movies", m.List)
	g.GET("/movies/:id", m.Get)
	g.GET("/genres", cat.ListGenres)
	g.GET("/stars", cat.ListStars)
	g.GET("/directors", cat.ListDirectors)
	g.GET("/certifications", cat.ListCertifications)

	mod := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleModerator, model.RoleAdmin),
	)

	// ---- Movies ----
	mod.POST("/movies", m.Create)
	mod.PUT("/movies/:id", m.Update)
	mod.PATCH("/movies/:id", m.Update)
	mod.DELETE("/movies/:id", m.Delete)

	// ---- Genres ----
	mod.POST("/genres", cat.CreateGenre)
	mod.PUT("/genres/:id", cat.UpdateGenre)
	mod.DELETE("/genres/:id", cat.DeleteGenre)

	// ---- Stars ----
	mod.POST("/stars", cat.CreateStar)
	mod.PUT("/stars/:id", cat.UpdateStar)
	mod.DELETE("/stars/:id", cat.DeleteStar)

	// ---- Directors ----
	mod.POST("/directors", cat.CreateDirector)
	mod.PUT("/directors/:id", cat.UpdateDirector)
	mod.DELETE("/directors/:id", cat.DeleteDirector)

	// ---- Certifications ----
	mod.POST("/certifications", cat.CreateCertification)
	mod.PUT("/certifications/:id", cat.UpdateCertification)
	mod.DELETE("/certifications/:id", cat.DeleteCertification)
}
