package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and the
// billing gate that flips a reservation from unpaid to PAID exactly
// once.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can compose multi-repo
// operations inside a single transaction.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// BillingSnapshot is what the billing gate hands back to the invoice
// issuer after locking a reservation row: enough context to allocate a
// number from the right owner ledger and to cross-check the amount.
type BillingSnapshot struct {
    ReservationID uint64
    PropertyID    uint64
    OwnerID       uint64
    Status        string
    Amount        decimal.Decimal
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction.  It populates the generated ID on the provided record.
// The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations (property_id, tenant_id, start_date, end_date, status, amount)
               VALUES (?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.PropertyID, res.TenantID,
        res.StartDate.UTC().Format("2006-01-02"), res.EndDate.UTC().Format("2006-01-02"),
        res.Status, res.Amount)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    got, err := r.getTx(ctx, tx, res.ID)
    if err != nil {
        return err
    }
    *res = *got
    return nil
}

const reservationColumns = `id, property_id, tenant_id, start_date, end_date, status, amount,
       payment_method, invoice_number, invoice_date, created_at, updated_at`

func scanReservation(row interface {
    Scan(dest ...interface{}) error
}) (*model.Reservation, error) {
    var res model.Reservation
    var method, number sql.NullString
    var invDate sql.NullTime
    err := row.Scan(
        &res.ID, &res.PropertyID, &res.TenantID, &res.StartDate, &res.EndDate,
        &res.Status, &res.Amount, &method, &number, &invDate,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if method.Valid {
        m := method.String
        res.PaymentMethod = &m
    }
    if number.Valid {
        n := number.String
        res.InvoiceNumber = &n
    }
    if invDate.Valid {
        d := invDate.Time
        res.InvoiceDate = &d
    }
    return &res, nil
}

func (r *ReservationRepo) getTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    return res, nil
}

// GetByID retrieves a reservation by its ID regardless of ownership.
// It returns ErrReservationNotFound when no row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    return res, nil
}

// GetForTenant returns a reservation owned by the given tenant.  It
// returns ErrReservationNotFound when the row does not exist and
// ErrForbidden when it belongs to a different tenant.
func (r *ReservationRepo) GetForTenant(ctx context.Context, reservationID, tenantID uint64) (*model.Reservation, error) {
    res, err := r.GetByID(ctx, reservationID)
    if err != nil {
        return nil, err
    }
    if res.TenantID != tenantID {
        return nil, ErrForbidden
    }
    return res, nil
}

// ListByTenant returns all reservations created by the given tenant,
// newest first.  When no reservations exist an empty slice is returned.
func (r *ReservationRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE tenant_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, tenantID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// OwnerOf resolves which owner a reservation belongs to by joining
// through its property.  It returns ErrReservationNotFound when the
// reservation does not exist.
func (r *ReservationRepo) OwnerOf(ctx context.Context, reservationID uint64) (uint64, error) {
    const q = `SELECT p.owner_id FROM reservations r
               JOIN properties p ON p.id = r.property_id
               WHERE r.id = ?`
    var ownerID uint64
    if err := r.db.QueryRowContext(ctx, q, reservationID).Scan(&ownerID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, ErrReservationNotFound
        }
        return 0, err
    }
    return ownerID, nil
}

// Confirm transitions a PENDING reservation to CONFIRMED on behalf of
// the owner of its property.  It returns ErrForbidden when the caller
// does not own the property and ErrConflict when the reservation is not
// PENDING.
func (r *ReservationRepo) Confirm(ctx context.Context, reservationID, ownerID uint64) error {
    actual, err := r.OwnerOf(ctx, reservationID)
    if err != nil {
        return err
    }
    if actual != ownerID {
        return ErrForbidden
    }
    res, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`,
        model.ReservationConfirmed, reservationID, model.ReservationPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// Cancel transitions a tenant's own reservation to CANCELLED.  PAID
// reservations cannot be cancelled here; that returns ErrConflict.
func (r *ReservationRepo) Cancel(ctx context.Context, reservationID, tenantID uint64) error {
    res, err := r.GetForTenant(ctx, reservationID, tenantID)
    if err != nil {
        return err
    }
    if res.Status == model.ReservationPaid {
        return ErrConflict
    }
    _, err = r.db.ExecContext(ctx,
        `UPDATE reservations SET status = ? WHERE id = ? AND status <> ?`,
        model.ReservationCancelled, reservationID, model.ReservationPaid)
    return err
}

// HasActiveByProperty reports whether a property still has reservations
// that are not cancelled.  Used to refuse property deletion.
func (r *ReservationRepo) HasActiveByProperty(ctx context.Context, propertyID uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE property_id = ? AND status <> ?`,
        propertyID, model.ReservationCancelled).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// HasOverlapTx reports whether any non-cancelled reservation on the
// property intersects the half-open range [start, end).  Runs inside
// the caller's transaction so the check and the insert see the same
// snapshot.
func (r *ReservationRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, propertyID uint64, start, end time.Time) (bool, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE property_id = ? AND status <> ?
                 AND start_date < ? AND end_date > ?`
    var n int
    err := tx.QueryRowContext(ctx, q,
        propertyID, model.ReservationCancelled,
        end.UTC().Format("2006-01-02"), start.UTC().Format("2006-01-02")).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// LockForBillingTx is the billing gate.  It locks the reservation row
// for update within the caller's transaction (the join also resolves
// the owning property and owner) and validates the billing state:
//
//   - ErrReservationNotFound when no such reservation exists,
//   - ErrAlreadyBilled when status is already PAID (duplicate guard),
//   - ErrConflict when the reservation is CANCELLED.
//
// A concurrent issuance attempt for the same reservation blocks on this
// row lock until the first transaction ends, then re-reads the now-PAID
// state and fails with ErrAlreadyBilled.  This lock must always be taken
// before the owner row lock.
func (r *ReservationRepo) LockForBillingTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (*BillingSnapshot, error) {
    const q = `SELECT r.id, r.property_id, p.owner_id, r.status, r.amount
               FROM reservations r
               JOIN properties p ON p.id = r.property_id
               WHERE r.id = ?
               FOR UPDATE`
    var snap BillingSnapshot
    err := tx.QueryRowContext(ctx, q, reservationID).Scan(
        &snap.ReservationID, &snap.PropertyID, &snap.OwnerID, &snap.Status, &snap.Amount)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    switch snap.Status {
    case model.ReservationPaid:
        return nil, ErrAlreadyBilled
    case model.ReservationCancelled:
        return nil, ErrConflict
    }
    return &snap, nil
}

// MarkPaidTx stamps the billed state onto a locked reservation row:
// status PAID, the payment method, the allocated invoice number and the
// invoice date.  It must only be called after LockForBillingTx in the
// same transaction.
func (r *ReservationRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, reservationID uint64, paymentMethod, invoiceNumber string, at time.Time) error {
    const q = `UPDATE reservations
               SET status = ?, payment_method = ?, invoice_number = ?, invoice_date = ?
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q,
        model.ReservationPaid, paymentMethod, invoiceNumber,
        at.UTC().Format("2006-01-02"), reservationID)
    return err
}
