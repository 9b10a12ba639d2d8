package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/property-management/internal/model"
)

// BillingTx is the unit of work for one invoice issuance.  All methods
// operate inside a single store transaction: nothing is visible outside
// it until Commit, and Rollback undoes every step including the counter
// increment.  Implementations must enforce the global lock order –
// LockReservation before AllocateInvoiceNumber.
type BillingTx interface {
    // LockReservation locks the reservation row for update and
    // validates its billing state (the reservation gate).
    LockReservation(ctx context.Context, reservationID uint64) (*BillingSnapshot, error)
    // AllocateInvoiceNumber increments the owner's ledger counter
    // under an exclusive row lock and returns the formatted number
    // (the sequence allocator).
    AllocateInvoiceNumber(ctx context.Context, ownerID uint64) (string, error)
    // InsertInvoice writes the immutable invoice row and fills in the
    // generated ID.
    InsertInvoice(ctx context.Context, inv *model.Invoice) error
    // MarkReservationPaid flips the locked reservation to PAID and
    // stamps payment method, invoice number and invoice date.
    MarkReservationPaid(ctx context.Context, reservationID uint64, paymentMethod, invoiceNumber string, at time.Time) error
    Commit() error
    Rollback() error
}

// BillingStore is the boundary the invoice issuer works against: a
// transaction factory plus the lock-free read surface.
type BillingStore interface {
    Begin(ctx context.Context) (BillingTx, error)
    GetInvoice(ctx context.Context, id uint64) (*model.Invoice, error)
    ListInvoicesByReservation(ctx context.Context, reservationID uint64) ([]model.Invoice, error)
    ListInvoices(ctx context.Context, limit, offset int) ([]model.Invoice, error)
}

// mysqlBillingStore implements BillingStore over the MySQL repositories.
type mysqlBillingStore struct {
    db           *sql.DB
    owners       *OwnerRepo
    reservations *ReservationRepo
    invoices     *InvoiceRepo
}

// NewBillingStore builds the MySQL-backed BillingStore from the shared
// DB handle and the individual repositories.
func NewBillingStore(db *sql.DB, owners *OwnerRepo, reservations *ReservationRepo, invoices *InvoiceRepo) BillingStore {
    return &mysqlBillingStore{db: db, owners: owners, reservations: reservations, invoices: invoices}
}

func (s *mysqlBillingStore) Begin(ctx context.Context) (BillingTx, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    return &mysqlBillingTx{store: s, tx: tx}, nil
}

func (s *mysqlBillingStore) GetInvoice(ctx context.Context, id uint64) (*model.Invoice, error) {
    return s.invoices.GetByID(ctx, id)
}

func (s *mysqlBillingStore) ListInvoicesByReservation(ctx context.Context, reservationID uint64) ([]model.Invoice, error) {
    return s.invoices.ListByReservation(ctx, reservationID)
}

func (s *mysqlBillingStore) ListInvoices(ctx context.Context, limit, offset int) ([]model.Invoice, error) {
    return s.invoices.List(ctx, limit, offset)
}

// mysqlBillingTx delegates each step to the corresponding repository's
// Tx method on the one open *sql.Tx.
type mysqlBillingTx struct {
    store *mysqlBillingStore
    tx    *sql.Tx
}

func (t *mysqlBillingTx) LockReservation(ctx context.Context, reservationID uint64) (*BillingSnapshot, error) {
    return t.store.reservations.LockForBillingTx(ctx, t.tx, reservationID)
}

func (t *mysqlBillingTx) AllocateInvoiceNumber(ctx context.Context, ownerID uint64) (string, error) {
    return t.store.owners.AllocateInvoiceNumberTx(ctx, t.tx, ownerID)
}

func (t *mysqlBillingTx) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
    return t.store.invoices.CreateTx(ctx, t.tx, inv)
}

func (t *mysqlBillingTx) MarkReservationPaid(ctx context.Context, reservationID uint64, paymentMethod, invoiceNumber string, at time.Time) error {
    return t.store.reservations.MarkPaidTx(ctx, t.tx, reservationID, paymentMethod, invoiceNumber, at)
}

func (t *mysqlBillingTx) Commit() error   { return t.tx.Commit() }
func (t *mysqlBillingTx) Rollback() error { return t.tx.Rollback() }
