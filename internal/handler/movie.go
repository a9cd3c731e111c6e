package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/cinemarket/movie-storefront/internal/repository"
)

// MovieHandler serves the public catalog plus the moderator CRUD
// surface for movies.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

func NewMovieHandler(m *repository.MovieRepo) *MovieHandler {
	return &MovieHandler{Movies: m}
}

type movieReq struct {
	Name            string   `json:"name"`
	Year            int      `json:"year"`
	Time            int      `json:"time"`
	IMDb            string   `json:"imdb"`
	Votes           int64    `json:"votes"`
	MetaScore       *string  `json:"meta_score"`
	Gross           *string  `json:"gross"`
	Description     string   `json:"description"`
	Price           string   `json:"price"`
	CertificationID uint64   `json:"certification_id"`
	GenreIDs        []uint64 `json:"genre_ids"`
	DirectorIDs     []uint64 `json:"director_ids"`
	StarIDs         []uint64 `json:"star_ids"`
}

func (req movieReq) toInput() (repository.MovieInput, string) {
	in := repository.MovieInput{
		Name:            strings.TrimSpace(req.Name),
		Year:            req.Year,
		Time:            req.Time,
		Votes:           req.Votes,
		Description:     strings.TrimSpace(req.Description),
		CertificationID: req.CertificationID,
		GenreIDs:        req.GenreIDs,
		DirectorIDs:     req.DirectorIDs,
		StarIDs:         req.StarIDs,
	}
	if in.Name == "" {
		return in, "name is required"
	}
	if req.Year < 1888 || req.Year > time.Now().Year()+5 {
		return in, "invalid year"
	}
	if req.Time <= 0 {
		return in, "time must be positive minutes"
	}
	var err error
	if in.IMDb, err = decimal.NewFromString(req.IMDb); err != nil {
		return in, "invalid imdb rating"
	}
	if in.Price, err = decimal.NewFromString(req.Price); err != nil || in.Price.IsNegative() {
		return in, "invalid price"
	}
	if req.MetaScore != nil {
		ms, err := decimal.NewFromString(*req.MetaScore)
		if err != nil {
			return in, "invalid meta_score"
		}
		in.MetaScore = &ms
	}
	if req.Gross != nil {
		g, err := decimal.NewFromString(*req.Gross)
		if err != nil {
			return in, "invalid gross"
		}
		in.Gross = &g
	}
	return in, ""
}

// Create handles POST /v1/movies (moderator).
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, msg := req.toInput()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Movies.Create(ctx, in)
	if err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create movie"})
	}
	detail, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load movie failed"})
	}
	return c.JSON(http.StatusCreated, detail)
}

// Update handles PUT /v1/movies/:id (moderator).
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, msg := req.toInput()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Movies.Update(ctx, id, in); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case repository.ErrDuplicate:
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	detail, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load movie failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// Delete handles DELETE /v1/movies/:id (moderator). A movie sitting in
// any cart cannot be removed.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Movies.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie is referenced by carts"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/movies/:id. The id may be numeric or the public
// UUID.
func (h *MovieHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw := c.Param("id")
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		detail, err := h.Movies.GetByID(ctx, id)
		return h.respondDetail(c, detail, err)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	detail, err := h.Movies.GetByUUID(ctx, u)
	return h.respondDetail(c, detail, err)
}

func (h *MovieHandler) respondDetail(c echo.Context, detail any, err error) error {
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// List handles GET /v1/movies with filtering, sorting and pagination.
func (h *MovieHandler) List(c echo.Context) error {
	q := repository.MovieListQuery{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Sort:   strings.TrimSpace(c.QueryParam("sort")),
	}
	q.Skip, q.Limit = pagination(c)
	if y := c.QueryParam("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		q.Year = n
	}
	if g := c.QueryParam("genre_id"); g != "" {
		n, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid genre_id"})
		}
		q.GenreID = n
	}
	for param, dst := range map[string]**decimal.Decimal{
		"min_imdb":  &q.MinIMDb,
		"max_imdb":  &q.MaxIMDb,
		"min_price": &q.MinPrice,
		"max_price": &q.MaxPrice,
	} {
		if v := c.QueryParam(param); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param})
			}
			*dst = &d
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, total, err := h.Movies.List(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": movies,
		"total": total,
		"skip":  q.Skip,
		"limit": q.Limit,
	})
}
