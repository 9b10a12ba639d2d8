package handler

import (
    "context"   // bounded contexts for DB calls
    "errors"    // errors.Is comparisons
    "net/http"  // HTTP status codes
    "strings"   // trimming utilities
    "time"      // date parsing and timeouts

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
)

// TenantHandler groups the repositories tenants need to book properties
// and manage their own reservations.  The amount of a reservation is
// always recomputed server-side from the property's nightly rate; the
// client never supplies a price.
type TenantHandler struct {
	Properties   *repository.PropertyRepo
	Reservations *repository.ReservationRepo
}

// NewTenantHandler constructs a TenantHandler and panics if any dependency is nil.
func NewTenantHandler(properties *repository.PropertyRepo, reservations *repository.ReservationRepo) *TenantHandler {
	if properties == nil || reservations == nil {
		panic("nil repository passed to NewTenantHandler")
	}
	return &TenantHandler{Properties: properties, Reservations: reservations}
}

const dateLayout = "2006-01-02"

// CreateReservation handles POST /v1/properties/:id/reservations.  The
// date range is half-open: the end date is checkout day and is not
// charged.  The existence check, the overlap check and the insert run in
// one transaction so two tenants cannot book the same nights.
func (h *TenantHandler) CreateReservation(c echo.Context) error {
	tenantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	propertyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid property id"})
	}
	var body struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(body.StartDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(body.EndDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after start_date"})
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date is in the past"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	prop, err := h.Properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !prop.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "property is not available"})
	}

	nights := int64(end.Sub(start).Hours() / 24)
	amount := prop.NightlyRate.Mul(decimal.NewFromInt(nights))

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := h.Reservations.HasOverlapTx(ctx, tx, propertyID, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "dates are already booked"})
	}

	res := &model.Reservation{
		PropertyID: propertyID,
		TenantID:   tenantID,
		StartDate:  start,
		EndDate:    end,
		Status:     model.ReservationPending,
		Amount:     amount,
	}
	if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reservation"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit"})
	}
	committed = true
	return c.JSON(http.StatusCreated, res)
}

// ListMyReservations handles GET /v1/my-reservations.
func (h *TenantHandler) ListMyReservations(c echo.Context) error {
	tenantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	out, err := h.Reservations.ListByTenant(ctx, tenantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, out)
}

// GetMyReservation handles GET /v1/my-reservations/:id.
func (h *TenantHandler) GetMyReservation(c echo.Context) error {
	tenantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Reservations.GetForTenant(ctx, id, tenantID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}

// CancelMyReservation handles POST /v1/my-reservations/:id/cancel.  Paid
// reservations cannot be cancelled; billing already closed them.
func (h *TenantHandler) CancelMyReservation(c echo.Context) error {
	tenantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Reservations.Cancel(ctx, id, tenantID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "paid reservations cannot be cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not cancel reservation"})
	}
	return c.NoContent(http.StatusNoContent)
}
