package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
    "github.com/iliyamo/property-management/internal/service"
)

// OwnerResolver maps an authenticated user to their owner ledger row.
type OwnerResolver interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Owner, error)
}

// ReservationOwners resolves which owner a reservation belongs to, used
// for read-side authorization on invoice queries.
type ReservationOwners interface {
	OwnerOf(ctx context.Context, reservationID uint64) (uint64, error)
}

// BillingHandler exposes the invoice issuer and the invoice query
// surface over HTTP.  Issuance itself is delegated entirely to the
// billing service; the handler only translates identity, input and the
// error taxonomy.
type BillingHandler struct {
	Billing      *service.BillingService
	Owners       OwnerResolver
	Reservations ReservationOwners
}

// NewBillingHandler constructs a BillingHandler and panics if any dependency is nil.
func NewBillingHandler(billing *service.BillingService, owners OwnerResolver, reservations ReservationOwners) *BillingHandler {
	if billing == nil || owners == nil || reservations == nil {
		panic("nil dependency passed to NewBillingHandler")
	}
	return &BillingHandler{Billing: billing, Owners: owners, Reservations: reservations}
}

func (h *BillingHandler) owner(ctx context.Context, c echo.Context) (*model.Owner, error) {
	uid, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	return h.Owners.GetByUserID(ctx, uid)
}

// IssueInvoice handles POST /v1/reservations/:id/invoice.  A 409 always
// means the reservation exists but cannot be billed: either it already
// was (duplicate submit) or it is cancelled.
func (h *BillingHandler) IssueInvoice(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	owner, err := h.owner(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		PaymentMethod string `json:"payment_method"`
		Amount        string `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	method := strings.TrimSpace(body.PaymentMethod)
	if method == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method is required"})
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a decimal"})
	}

	inv, err := h.Billing.IssueInvoice(ctx, owner.ID, reservationID, method, amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrOwnerNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "owner ledger not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrAlreadyBilled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already billed"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue invoice"})
	}
	return c.JSON(http.StatusCreated, inv)
}

// GetInvoice handles GET /v1/invoices/:id.  Owners can only read
// invoices issued against their own reservations.
func (h *BillingHandler) GetInvoice(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.owner(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	inv, err := h.Billing.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	actual, err := h.Reservations.OwnerOf(ctx, inv.ReservationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if actual != owner.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, inv)
}

// ListReservationInvoices handles GET /v1/reservations/:id/invoices.
func (h *BillingHandler) ListReservationInvoices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.owner(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	actual, err := h.Reservations.OwnerOf(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if actual != owner.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	invs, err := h.Billing.ListInvoicesForReservation(ctx, reservationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, invs)
}

// ListInvoices handles GET /v1/invoices with limit/offset pagination.
func (h *BillingHandler) ListInvoices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.owner(ctx, c); err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	invs, err := h.Billing.ListInvoices(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, invs)
}
