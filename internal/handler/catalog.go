package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/repository"
)

// CatalogHandler serves the lookup resources movies hang off of:
// genres, stars, directors and certifications. Reads are public;
// writes are moderator-only.
type CatalogHandler struct {
	Genres         *repository.GenreRepo
	Stars          *repository.StarRepo
	Directors      *repository.DirectorRepo
	Certifications *repository.CertificationRepo
}

func NewCatalogHandler(g *repository.GenreRepo, s *repository.StarRepo, d *repository.DirectorRepo, cert *repository.CertificationRepo) *CatalogHandler {
	return &CatalogHandler{Genres: g, Stars: s, Directors: d, Certifications: cert}
}

type nameReq struct {
	Name string `json:"name"`
}

func bindName(c echo.Context) (string, error) {
	var req nameReq
	if err := c.Bind(&req); err != nil {
		return "", echo.ErrBadRequest
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", echo.ErrBadRequest
	}
	return name, nil
}

func lookupErr(c echo.Context, err error, what string) error {
	switch err {
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	case repository.ErrDuplicate:
		return c.JSON(http.StatusConflict, echo.Map{"error": what + " already exists"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": what + " is referenced by movies"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
}

// ----- genres -----

func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	g, err := h.Genres.Create(ctx, name)
	if err != nil {
		return lookupErr(c, err, "genre")
	}
	return c.JSON(http.StatusCreated, g)
}

// ListGenres returns all genres with a movie count per genre.
func (h *CatalogHandler) ListGenres(c echo.Context) error {
	skip, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	genres, err := h.Genres.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, genres)
}

func (h *CatalogHandler) UpdateGenre(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Genres.Update(ctx, id, name); err != nil {
		return lookupErr(c, err, "genre")
	}
	g, err := h.Genres.Get(ctx, id)
	if err != nil {
		return lookupErr(c, err, "genre")
	}
	return c.JSON(http.StatusOK, g)
}

func (h *CatalogHandler) DeleteGenre(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Genres.Delete(ctx, id); err != nil {
		return lookupErr(c, err, "genre")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- stars -----

func (h *CatalogHandler) CreateStar(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Stars.Create(ctx, name)
	if err != nil {
		return lookupErr(c, err, "star")
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *CatalogHandler) ListStars(c echo.Context) error {
	skip, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	stars, err := h.Stars.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, stars)
}

func (h *CatalogHandler) UpdateStar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Stars.Update(ctx, id, name); err != nil {
		return lookupErr(c, err, "star")
	}
	s, err := h.Stars.Get(ctx, id)
	if err != nil {
		return lookupErr(c, err, "star")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) DeleteStar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Stars.Delete(ctx, id); err != nil {
		return lookupErr(c, err, "star")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- directors -----

func (h *CatalogHandler) CreateDirector(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	d, err := h.Directors.Create(ctx, name)
	if err != nil {
		return lookupErr(c, err, "director")
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *CatalogHandler) ListDirectors(c echo.Context) error {
	skip, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	directors, err := h.Directors.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, directors)
}

func (h *CatalogHandler) UpdateDirector(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Directors.Update(ctx, id, name); err != nil {
		return lookupErr(c, err, "director")
	}
	d, err := h.Directors.Get(ctx, id)
	if err != nil {
		return lookupErr(c, err, "director")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *CatalogHandler) DeleteDirector(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Directors.Delete(ctx, id); err != nil {
		return lookupErr(c, err, "director")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- certifications -----

func (h *CatalogHandler) CreateCertification(c echo.Context) error {
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	cert, err := h.Certifications.Create(ctx, name)
	if err != nil {
		return lookupErr(c, err, "certification")
	}
	return c.JSON(http.StatusCreated, cert)
}

func (h *CatalogHandler) ListCertifications(c echo.Context) error {
	skip, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	certs, err := h.Certifications.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, certs)
}

func (h *CatalogHandler) UpdateCertification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	name, err := bindName(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Certifications.Update(ctx, id, name); err != nil {
		return lookupErr(c, err, "certification")
	}
	cert, err := h.Certifications.Get(ctx, id)
	if err != nil {
		return lookupErr(c, err, "certification")
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *CatalogHandler) DeleteCertification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Certifications.Delete(ctx, id); err != nil {
		return lookupErr(c, err, "certification")
	}
	return c.NoContent(http.StatusNoContent)
}
