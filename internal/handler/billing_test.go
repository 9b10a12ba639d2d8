package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
    "github.com/iliyamo/property-management/internal/service"
    "github.com/iliyamo/property-management/internal/testutil"
)

// fakeOwners resolves user ids to owner ledger rows without a database.
type fakeOwners map[uint64]*model.Owner

func (f fakeOwners) GetByUserID(ctx context.Context, userID uint64) (*model.Owner, error) {
	if o, ok := f[userID]; ok {
		return o, nil
	}
	return nil, repository.ErrOwnerNotFound
}

// fakeReservationOwners maps reservation ids to owner ids.
type fakeReservationOwners map[uint64]uint64

func (f fakeReservationOwners) OwnerOf(ctx context.Context, reservationID uint64) (uint64, error) {
	if id, ok := f[reservationID]; ok {
		return id, nil
	}
	return 0, repository.ErrReservationNotFound
}

const (
	testUserID        = uint64(7)
	testOwnerID       = uint64(1)
	testReservationID = uint64(100)
)

func newBillingTestHandler() (*BillingHandler, *testutil.InMemoryBillingStore) {
	store := testutil.NewInMemoryBillingStore()
	store.AddOwner(testOwnerID, "INV", 0)
	store.AddReservation(testReservationID, 10, testOwnerID, model.ReservationConfirmed, decimal.RequireFromString("200.00"))

	owners := fakeOwners{testUserID: {ID: testOwnerID, UserID: testUserID, Name: "owner"}}
	resOwners := fakeReservationOwners{testReservationID: testOwnerID}
	return NewBillingHandler(service.NewBillingService(store), owners, resOwners), store
}

// invoke runs a handler method against a synthetic request carrying the
// authenticated user id, the way the JWT middleware would.
func invoke(h echo.HandlerFunc, method, target, body string, userID uint64, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(userID)) // JWT numeric claims decode as float64
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	_ = h(c)
	return rec
}

func TestIssueInvoiceEndpointCreates(t *testing.T) {
	h, store := newBillingTestHandler()

	rec := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "100")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, "INV-000001", inv.InvoiceNumber)
	assert.Equal(t, testReservationID, inv.ReservationID)
	assert.Equal(t, model.ReservationPaid, store.ReservationStatus(testReservationID))
}

func TestIssueInvoiceEndpointDuplicate(t *testing.T) {
	h, _ := newBillingTestHandler()

	first := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "100")
	require.Equal(t, http.StatusCreated, first.Code)

	second := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "100")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "already billed")
}

func TestIssueInvoiceEndpointUnknownReservation(t *testing.T) {
	h, _ := newBillingTestHandler()
	rec := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/999/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueInvoiceEndpointForeignOwner(t *testing.T) {
	h, store := newBillingTestHandler()
	// A second owner whose user id resolves but who does not own the
	// reservation.
	h.Owners.(fakeOwners)[8] = &model.Owner{ID: 2, UserID: 8, Name: "other"}
	store.AddOwner(2, "OTH", 0)

	rec := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, 8, "id", "100")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, model.ReservationConfirmed, store.ReservationStatus(testReservationID))
}

func TestIssueInvoiceEndpointBadInput(t *testing.T) {
	h, _ := newBillingTestHandler()

	missingMethod := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"amount":"200.00"}`, testUserID, "id", "100")
	assert.Equal(t, http.StatusBadRequest, missingMethod.Code)

	badAmount := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"abc"}`, testUserID, "id", "100")
	assert.Equal(t, http.StatusBadRequest, badAmount.Code)

	negative := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"-1.00"}`, testUserID, "id", "100")
	assert.Equal(t, http.StatusBadRequest, negative.Code)

	badID := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/x/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "x")
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestIssueInvoiceEndpointNoLedger(t *testing.T) {
	h, _ := newBillingTestHandler()
	// User 99 has no owner row at all.
	rec := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, 99, "id", "100")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetInvoiceEndpoint(t *testing.T) {
	h, _ := newBillingTestHandler()
	created := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "100")
	require.Equal(t, http.StatusCreated, created.Code)
	var inv model.Invoice
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &inv))

	rec := invoke(h.GetInvoice, http.MethodGet, "/v1/invoices/1", "", testUserID, "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)

	missing := invoke(h.GetInvoice, http.MethodGet, "/v1/invoices/999", "", testUserID, "id", "999")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestListReservationInvoicesEndpoint(t *testing.T) {
	h, _ := newBillingTestHandler()
	created := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/100/invoice",
		`{"payment_method":"card","amount":"200.00"}`, testUserID, "id", "100")
	require.Equal(t, http.StatusCreated, created.Code)

	rec := invoke(h.ListReservationInvoices, http.MethodGet, "/v1/reservations/100/invoices", "", testUserID, "id", "100")
	require.Equal(t, http.StatusOK, rec.Code)
	var invs []model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invs))
	require.Len(t, invs, 1)
	assert.Equal(t, "INV-000001", invs[0].InvoiceNumber)

	missing := invoke(h.ListReservationInvoices, http.MethodGet, "/v1/reservations/999/invoices", "", testUserID, "id", "999")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestListInvoicesEndpoint(t *testing.T) {
	h, store := newBillingTestHandler()
	store.AddReservation(101, 10, testOwnerID, model.ReservationConfirmed, decimal.RequireFromString("90.00"))
	for _, id := range []string{"100", "101"} {
		rec := invoke(h.IssueInvoice, http.MethodPost, "/v1/reservations/"+id+"/invoice",
			`{"payment_method":"card","amount":"90.00"}`, testUserID, "id", id)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := invoke(h.ListInvoices, http.MethodGet, "/v1/invoices?limit=1", "", testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	var invs []model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invs))
	assert.Len(t, invs, 1)
}
