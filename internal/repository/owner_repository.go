package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/iliyamo/property-management/internal/model"
)

// defaultInvoiceSeries is used when an owner has no invoice_series set.
const defaultInvoiceSeries = "INV"

// OwnerRepo provides access to the owners table, which doubles as the
// invoice ledger: invoice_series and last_invoice_number together form
// the per-owner counter state that invoice numbers are allocated from.
// The counter is never cached in memory – it is re-read under a row
// lock on every allocation.
type OwnerRepo struct {
    db *sql.DB
}

// NewOwnerRepo returns a new OwnerRepo bound to the given database.
func NewOwnerRepo(db *sql.DB) *OwnerRepo { return &OwnerRepo{db: db} }

// Create inserts a new owner row for a user with a zeroed invoice
// counter.  The generated ID is populated on the passed model.
func (r *OwnerRepo) Create(ctx context.Context, o *model.Owner) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO owners (user_id, name, invoice_series) VALUES (?, ?, ?)`,
        o.UserID, o.Name, o.InvoiceSeries)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    return nil
}

// GetByUserID resolves the owner row belonging to a user account.  It
// returns ErrOwnerNotFound when the user has no owner record.
func (r *OwnerRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Owner, error) {
    const q = `SELECT id, user_id, name, invoice_series, last_invoice_number, created_at, updated_at
               FROM owners WHERE user_id = ?`
    return r.scanOne(r.db.QueryRowContext(ctx, q, userID))
}

// GetByID fetches an owner by its primary key.  It returns
// ErrOwnerNotFound when no such owner exists.
func (r *OwnerRepo) GetByID(ctx context.Context, id uint64) (*model.Owner, error) {
    const q = `SELECT id, user_id, name, invoice_series, last_invoice_number, created_at, updated_at
               FROM owners WHERE id = ?`
    return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *OwnerRepo) scanOne(row *sql.Row) (*model.Owner, error) {
    var o model.Owner
    var series sql.NullString
    err := row.Scan(&o.ID, &o.UserID, &o.Name, &series, &o.LastInvoiceNumber, &o.CreatedAt, &o.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrOwnerNotFound
        }
        return nil, err
    }
    if series.Valid {
        s := series.String
        o.InvoiceSeries = &s
    }
    return &o, nil
}

// UpdateInvoiceSeries relabels the owner's invoice series.  The counter
// is deliberately left untouched so numbers stay unique for the owner
// across relabels.
func (r *OwnerRepo) UpdateInvoiceSeries(ctx context.Context, ownerID uint64, series string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE owners SET invoice_series = ? WHERE id = ?`, series, ownerID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is 0 both for a missing row and for a no-op
        // update to the same series; re-check existence.
        var id uint64
        if err := r.db.QueryRowContext(ctx, `SELECT id FROM owners WHERE id = ?`, ownerID).Scan(&id); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrOwnerNotFound
            }
            return err
        }
    }
    return nil
}

// AllocateInvoiceNumberTx atomically reads-and-increments the owner's
// invoice counter inside the caller's transaction and returns the
// formatted invoice number for the new value.
//
// Locking mechanism: the SELECT ... FOR UPDATE takes an exclusive row
// lock on the owner row that InnoDB holds until the transaction commits
// or rolls back, so concurrent allocators for the same owner queue on
// the store's native lock wait.  The increment is only durable on
// commit; a rollback releases the lock with the old value in place and
// the number is handed to whichever transaction acquires the lock next.
// That keeps the committed sequence gapless.
//
// The caller must already hold the reservation row lock before calling
// this: reservation before owner is the single global lock order on
// every path that touches both rows.
//
// It returns ErrOwnerNotFound when the owner row does not exist and
// never retries internally.
func (r *OwnerRepo) AllocateInvoiceNumberTx(ctx context.Context, tx *sql.Tx, ownerID uint64) (string, error) {
    var series sql.NullString
    var last uint64
    err := tx.QueryRowContext(ctx,
        `SELECT invoice_series, last_invoice_number FROM owners WHERE id = ? FOR UPDATE`,
        ownerID).Scan(&series, &last)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return "", ErrOwnerNotFound
        }
        return "", err
    }
    next := last + 1
    if _, err := tx.ExecContext(ctx,
        `UPDATE owners SET last_invoice_number = ? WHERE id = ?`, next, ownerID); err != nil {
        return "", err
    }
    return FormatInvoiceNumber(series.String, next), nil
}

// FormatInvoiceNumber renders the externally visible invoice number as
// SERIES-NNNNNN, zero-padded to six digits, substituting the default
// series when none is configured.
func FormatInvoiceNumber(series string, n uint64) string {
    if series == "" {
        series = defaultInvoiceSeries
    }
    return fmt.Sprintf("%s-%06d", series, n)
}
