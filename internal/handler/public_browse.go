package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-management/internal/repository"
)

// PublicHandler serves unauthenticated browse endpoints.  These routes
// sit behind the Redis response cache, so they must stay side-effect
// free and only expose active properties.
type PublicHandler struct {
	Properties *repository.PropertyRepo
}

// NewPublicHandler constructs a PublicHandler and panics if the repository is nil.
func NewPublicHandler(properties *repository.PropertyRepo) *PublicHandler {
	if properties == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Properties: properties}
}

// ListProperties handles GET /v1/properties.  The optional ?city= query
// parameter filters by exact city name.
func (h *PublicHandler) ListProperties(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	city := strings.TrimSpace(c.QueryParam("city"))
	props, err := h.Properties.ListActive(ctx, city)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, props)
}

// GetProperty handles GET /v1/properties/:id.  Inactive properties are
// reported as not found so delisting hides them from guests.
func (h *PublicHandler) GetProperty(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !p.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
	}
	return c.JSON(http.StatusOK, p)
}
