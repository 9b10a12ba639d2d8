// Package service implements the billing ledger on top of the
// repository layer: the invoice issuer, the read-only invoice queries
// and the invoice.issued event publisher.
package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/queue"
    "github.com/iliyamo/property-management/internal/repository"
)

// ErrInvalidAmount is returned when an issuance request carries a zero
// or negative amount.
var ErrInvalidAmount = errors.New("invalid amount")

// BillingService is the only entry point that creates invoices.  It
// drives the reservation gate and the sequence allocator inside one
// store transaction and commits or rolls back as a single atomic unit.
// Queries go straight to the store without locking.
type BillingService struct {
    store repository.BillingStore
    // now is swappable so tests control issue timestamps.
    now func() time.Time
    // publish sends the post-commit invoice.issued event; nil disables
    // eventing (tests, setups without a broker).
    publish func(ctx context.Context, ev queue.InvoiceIssuedEvent) error
}

// NewBillingService constructs a BillingService over the given store.
// Eventing is off until EnablePublisher is called.
func NewBillingService(store repository.BillingStore) *BillingService {
    if store == nil {
        panic("nil store passed to NewBillingService")
    }
    return &BillingService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// EnablePublisher turns on post-commit event publishing.
func (s *BillingService) EnablePublisher(publish func(ctx context.Context, ev queue.InvoiceIssuedEvent) error) {
    s.publish = publish
}

// WithClock overrides the time source.  Intended for tests.
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
    s.now = now
    return s
}

// IssueInvoice bills a reservation: it locks the reservation row,
// verifies the caller owns it, allocates the next invoice number from
// the owner's ledger, writes the invoice, flips the reservation to PAID
// and commits.  On any failure the whole transaction rolls back and no
// partial state survives – the allocated number is released with the
// rollback and reused by the next issuance.
//
// The reservation lock is always taken before the owner lock so that
// concurrent issuances for different reservations of one owner cannot
// deadlock.
//
// Error taxonomy: repository.ErrReservationNotFound /
// repository.ErrOwnerNotFound (absent rows), repository.ErrAlreadyBilled
// (duplicate guard), repository.ErrForbidden (foreign owner),
// repository.ErrConflict (cancelled reservation), ErrInvalidAmount, or
// the store failure itself.  None are retried here; retry policy
// belongs to the caller.
func (s *BillingService) IssueInvoice(ctx context.Context, ownerID, reservationID uint64, paymentMethod string, amount decimal.Decimal) (*model.Invoice, error) {
    if !amount.IsPositive() {
        return nil, ErrInvalidAmount
    }

    tx, err := s.store.Begin(ctx)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    snap, err := tx.LockReservation(ctx, reservationID)
    if err != nil {
        return nil, err
    }
    if snap.OwnerID != ownerID {
        return nil, repository.ErrForbidden
    }

    number, err := tx.AllocateInvoiceNumber(ctx, snap.OwnerID)
    if err != nil {
        return nil, err
    }

    now := s.now()
    inv := &model.Invoice{
        ReservationID: reservationID,
        InvoiceNumber: number,
        IssueDate:     now,
        PaidDate:      now,
        Amount:        amount,
        PaymentMethod: paymentMethod,
    }
    if err := tx.InsertInvoice(ctx, inv); err != nil {
        return nil, err
    }
    if err := tx.MarkReservationPaid(ctx, reservationID, paymentMethod, number, now); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true

    // Re-read the committed record so the caller sees exactly what the
    // store persisted (DB-side defaults included).
    stored, err := s.store.GetInvoice(ctx, inv.ID)
    if err != nil {
        return nil, err
    }

    if s.publish != nil {
        ev := queue.InvoiceIssuedEvent{
            InvoiceID:     stored.ID,
            InvoiceNumber: stored.InvoiceNumber,
            ReservationID: stored.ReservationID,
            OwnerID:       snap.OwnerID,
            Amount:        stored.Amount.StringFixed(2),
            PaymentMethod: stored.PaymentMethod,
            IssuedAt:      stored.IssueDate.UTC().Format(time.RFC3339),
        }
        if err := s.publish(ctx, ev); err != nil {
            // Event delivery is best effort; the invoice is committed.
            log.Printf("billing: publish invoice.issued failed: %v", err)
        }
    }
    return stored, nil
}

// GetInvoice fetches one invoice by id.  It returns
// repository.ErrInvoiceNotFound when no such invoice exists and never
// mutates anything.
func (s *BillingService) GetInvoice(ctx context.Context, id uint64) (*model.Invoice, error) {
    return s.store.GetInvoice(ctx, id)
}

// ListInvoicesForReservation returns the invoices attached to a
// reservation ordered by issue date descending; an empty slice when
// none exist.
func (s *BillingService) ListInvoicesForReservation(ctx context.Context, reservationID uint64) ([]model.Invoice, error) {
    return s.store.ListInvoicesByReservation(ctx, reservationID)
}

// ListInvoices returns a page of invoices.  Limit is clamped to 1..100
// and negative offsets are treated as zero.
func (s *BillingService) ListInvoices(ctx context.Context, limit, offset int) ([]model.Invoice, error) {
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    if offset < 0 {
        offset = 0
    }
    return s.store.ListInvoices(ctx, limit, offset)
}
