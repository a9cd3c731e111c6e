package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// ProfileHandler serves the optional descriptive data users attach to
// their accounts.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: u}
}

type profileResp struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Avatar      *string `json:"avatar"`
	Gender      *string `json:"gender"`
	DateOfBirth *string `json:"date_of_birth"`
	Info        *string `json:"info"`
}

func toProfileResp(p model.Profile) profileResp {
	resp := profileResp{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Avatar:    p.Avatar,
		Gender:    p.Gender,
		Info:      p.Info,
	}
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format("2006-01-02")
		resp.DateOfBirth = &s
	}
	return resp
}

// Get returns the caller's profile, creating an empty row on first
// access.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Users.GetProfile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}

// Update replaces the caller's profile fields. Absent JSON fields are
// cleared; this is a full update, not a patch.
func (h *ProfileHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileResp
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Gender != nil {
		g := strings.ToUpper(strings.TrimSpace(*req.Gender))
		if g != "MAN" && g != "WOMAN" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "gender must be MAN or WOMAN"})
		}
		req.Gender = &g
	}
	p := model.Profile{
		UserID:    uid,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		Gender:    req.Gender,
		Info:      req.Info,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_of_birth must be YYYY-MM-DD"})
		}
		p.DateOfBirth = &dob
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Users.UpdateProfile(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toProfileResp(updated))
}
