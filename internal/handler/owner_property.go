package handler

import (
    "context"      // bounded contexts for DB calls
    "errors"       // errors.Is comparisons against repository sentinels
    "net/http"     // HTTP status codes
    "regexp"       // invoice series validation
    "strings"      // trimming utilities
    "time"         // DB call timeouts

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
)

// OwnerHandler groups the repositories owners need to manage their
// properties, their billing ledger and incoming reservations.  All
// methods assume JWT authentication and role validation already ran in
// middleware; they still re-resolve the owner row so the ledger id never
// comes from client input.
type OwnerHandler struct {
	Owners       *repository.OwnerRepo       // owner ledger rows
	Properties   *repository.PropertyRepo    // property persistence
	Reservations *repository.ReservationRepo // reservation state transitions
}

// NewOwnerHandler constructs an OwnerHandler and panics if any dependency is nil.
func NewOwnerHandler(owners *repository.OwnerRepo, properties *repository.PropertyRepo, reservations *repository.ReservationRepo) *OwnerHandler {
	if owners == nil || properties == nil || reservations == nil {
		panic("nil repository passed to NewOwnerHandler")
	}
	return &OwnerHandler{Owners: owners, Properties: properties, Reservations: reservations}
}

// seriesPattern limits invoice series to short uppercase labels that fit
// the owners.invoice_series column.
var seriesPattern = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

type propertyReq struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	NightlyRate string `json:"nightly_rate"`
	IsActive    *bool  `json:"is_active"`
}

func (h *OwnerHandler) withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// CreateProperty handles POST /v1/owner/properties.
func (h *OwnerHandler) CreateProperty(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body propertyReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	address := strings.TrimSpace(body.Address)
	city := strings.TrimSpace(body.City)
	if name == "" || address == "" || city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, address and city are required"})
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(body.NightlyRate))
	if err != nil || !rate.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nightly_rate must be a positive decimal"})
	}
	p := &model.Property{OwnerID: owner.ID, Name: name, Address: address, City: city, NightlyRate: rate}
	if err := h.Properties.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create property"})
	}
	return c.JSON(http.StatusCreated, p)
}

// ListProperties handles GET /v1/owner/properties and returns every
// property of the authenticated owner, active or not.
func (h *OwnerHandler) ListProperties(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	props, err := h.Properties.ListByOwner(ctx, owner.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, props)
}

// GetProperty handles GET /v1/owner/properties/:id.
func (h *OwnerHandler) GetProperty(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	p, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if p.OwnerID != owner.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProperty handles PUT /v1/owner/properties/:id.  Omitted fields
// keep their current values.
func (h *OwnerHandler) UpdateProperty(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body propertyReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	p, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPropertyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if v := strings.TrimSpace(body.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(body.Address); v != "" {
		p.Address = v
	}
	if v := strings.TrimSpace(body.City); v != "" {
		p.City = v
	}
	if v := strings.TrimSpace(body.NightlyRate); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil || !rate.IsPositive() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "nightly_rate must be a positive decimal"})
		}
		p.NightlyRate = rate
	}
	if body.IsActive != nil {
		p.IsActive = *body.IsActive
	}
	if err := h.Properties.Update(ctx, p, owner.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrPropertyNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update property"})
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProperty handles DELETE /v1/owner/properties/:id.  Properties
// with live reservations are not deactivated; the client must wait for
// them to finish or be cancelled.
func (h *OwnerHandler) DeleteProperty(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	busy, err := h.Reservations.HasActiveByProperty(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if busy {
		return c.JSON(http.StatusConflict, echo.Map{"error": "property has active reservations"})
	}
	if err := h.Properties.Deactivate(ctx, id, owner.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrPropertyNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "property not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete property"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateLedger handles PUT /v1/owner/ledger.  It relabels the invoice
// series for future invoices; the sequence counter is deliberately left
// untouched so numbering continues where it was.
func (h *OwnerHandler) UpdateLedger(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		InvoiceSeries string `json:"invoice_series"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	series := strings.ToUpper(strings.TrimSpace(body.InvoiceSeries))
	if !seriesPattern.MatchString(series) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invoice_series must be 1-16 uppercase letters or digits"})
	}
	if err := h.Owners.UpdateInvoiceSeries(ctx, owner.ID, series); err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "owner not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update ledger"})
	}
	owner.InvoiceSeries = &series
	return c.JSON(http.StatusOK, owner)
}

// ConfirmReservation handles POST /v1/reservations/:id/confirm and moves
// a PENDING reservation on one of the owner's properties to CONFIRMED.
func (h *OwnerHandler) ConfirmReservation(c echo.Context) error {
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	owner, err := currentOwner(ctx, c, h.Owners)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Reservations.Confirm(ctx, id, owner.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not confirm reservation"})
	}
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}
