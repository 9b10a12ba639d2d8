package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/property-management/internal/model"
)

// InvoiceRepo provides create and read access to the invoices table.
// Invoices are immutable: there is no update or delete path.  A row's
// existence is the durable proof that the owner's ledger counter was
// consumed.
type InvoiceRepo struct {
    db *sql.DB
}

// NewInvoiceRepo returns a new InvoiceRepo bound to the given database.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

const invoiceColumns = `id, reservation_id, invoice_number, issue_date, paid_date, amount, payment_method, created_at`

func scanInvoice(row interface {
    Scan(dest ...interface{}) error
}) (*model.Invoice, error) {
    var inv model.Invoice
    err := row.Scan(
        &inv.ID, &inv.ReservationID, &inv.InvoiceNumber,
        &inv.IssueDate, &inv.PaidDate, &inv.Amount, &inv.PaymentMethod,
        &inv.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &inv, nil
}

// CreateTx inserts an invoice row within the caller's transaction and
// populates the generated ID on the passed model.  The unique keys on
// reservation_id and invoice_number back up the gate and allocator: a
// violation here rolls the whole issuance back.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
    const q = `INSERT INTO invoices (reservation_id, invoice_number, issue_date, paid_date, amount, payment_method)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        inv.ReservationID, inv.InvoiceNumber,
        inv.IssueDate.UTC().Format("2006-01-02 15:04:05"),
        inv.PaidDate.UTC().Format("2006-01-02 15:04:05"),
        inv.Amount, inv.PaymentMethod)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    inv.ID = uint64(id)
    return nil
}

// GetByID fetches an invoice by primary key.  It returns
// ErrInvoiceNotFound when no row exists.  Reads never mutate anything.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uint64) (*model.Invoice, error) {
    const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`
    inv, err := scanInvoice(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrInvoiceNotFound
        }
        return nil, err
    }
    return inv, nil
}

// ListByReservation returns all invoices attached to a reservation,
// newest issue date first.  With the unique key on reservation_id this
// is zero or one row; the slice shape keeps the read surface uniform.
func (r *InvoiceRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Invoice, error) {
    const q = `SELECT ` + invoiceColumns + ` FROM invoices
               WHERE reservation_id = ? ORDER BY issue_date DESC`
    return r.list(ctx, q, reservationID)
}

// List returns a page of invoices ordered by issue date descending.
func (r *InvoiceRepo) List(ctx context.Context, limit, offset int) ([]model.Invoice, error) {
    const q = `SELECT ` + invoiceColumns + ` FROM invoices
               ORDER BY issue_date DESC, id DESC LIMIT ? OFFSET ?`
    return r.list(ctx, q, limit, offset)
}

func (r *InvoiceRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Invoice, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Invoice, 0)
    for rows.Next() {
        inv, err := scanInvoice(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *inv)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
