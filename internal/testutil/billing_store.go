// Package testutil provides in-memory stand-ins for the MySQL-backed
// stores so service and handler behavior can be exercised without a
// database.  The billing store reproduces the semantics the issuer
// relies on: exclusive per-row locks held until the transaction ends,
// staged writes that only become visible on commit, and unique
// constraints on the invoice table.
package testutil

import (
    "context"
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
)

type ownerState struct {
    rowMu  sync.Mutex // held by a billing tx from allocation to commit/rollback
    series string
    last   uint64
}

type reservationState struct {
    rowMu         sync.Mutex // held by a billing tx from gate to commit/rollback
    propertyID    uint64
    ownerID       uint64
    status        string
    amount        decimal.Decimal
    paymentMethod *string
    invoiceNumber *string
    invoiceDate   *time.Time
}

// InMemoryBillingStore implements repository.BillingStore.
type InMemoryBillingStore struct {
    mu            sync.Mutex
    owners        map[uint64]*ownerState
    reservations  map[uint64]*reservationState
    invoices      map[uint64]model.Invoice
    nextInvoiceID uint64

    // Failure injection: when set, the corresponding tx step returns
    // the error without staging anything.
    FailOnInsertInvoice error
    FailOnMarkPaid      error
}

// NewInMemoryBillingStore creates an empty in-memory billing store.
func NewInMemoryBillingStore() *InMemoryBillingStore {
    return &InMemoryBillingStore{
        owners:       make(map[uint64]*ownerState),
        reservations: make(map[uint64]*reservationState),
        invoices:     make(map[uint64]model.Invoice),
    }
}

// AddOwner seeds an owner ledger row.  An empty series means unset.
func (s *InMemoryBillingStore) AddOwner(id uint64, series string, last uint64) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.owners[id] = &ownerState{series: series, last: last}
}

// AddReservation seeds a reservation row in the given status.
func (s *InMemoryBillingStore) AddReservation(id, propertyID, ownerID uint64, status string, amount decimal.Decimal) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.reservations[id] = &reservationState{propertyID: propertyID, ownerID: ownerID, status: status, amount: amount}
}

// OwnerCounter reports the committed counter value for an owner.
func (s *InMemoryBillingStore) OwnerCounter(id uint64) uint64 {
    s.mu.Lock()
    defer s.mu.Unlock()
    if o, ok := s.owners[id]; ok {
        return o.last
    }
    return 0
}

// ReservationStatus reports the committed status of a reservation.
func (s *InMemoryBillingStore) ReservationStatus(id uint64) string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if r, ok := s.reservations[id]; ok {
        return r.status
    }
    return ""
}

// ReservationInvoiceNumber reports the committed invoice number stamped
// on a reservation, or nil when unbilled.
func (s *InMemoryBillingStore) ReservationInvoiceNumber(id uint64) *string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if r, ok := s.reservations[id]; ok {
        return r.invoiceNumber
    }
    return nil
}

// InvoiceCount reports how many invoices have been committed.
func (s *InMemoryBillingStore) InvoiceCount() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.invoices)
}

// Begin opens a new billing transaction.
func (s *InMemoryBillingStore) Begin(ctx context.Context) (repository.BillingTx, error) {
    return &inMemoryBillingTx{store: s}, nil
}

// GetInvoice returns a committed invoice by id.
func (s *InMemoryBillingStore) GetInvoice(ctx context.Context, id uint64) (*model.Invoice, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    inv, ok := s.invoices[id]
    if !ok {
        return nil, repository.ErrInvoiceNotFound
    }
    cp := inv
    return &cp, nil
}

// ListInvoicesByReservation returns committed invoices for one
// reservation, issue date descending.
func (s *InMemoryBillingStore) ListInvoicesByReservation(ctx context.Context, reservationID uint64) ([]model.Invoice, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Invoice, 0)
    for _, inv := range s.invoices {
        if inv.ReservationID == reservationID {
            out = append(out, inv)
        }
    }
    sortInvoices(out)
    return out, nil
}

// ListInvoices returns a page of committed invoices, issue date descending.
func (s *InMemoryBillingStore) ListInvoices(ctx context.Context, limit, offset int) ([]model.Invoice, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    all := make([]model.Invoice, 0, len(s.invoices))
    for _, inv := range s.invoices {
        all = append(all, inv)
    }
    sortInvoices(all)
    if offset >= len(all) {
        return []model.Invoice{}, nil
    }
    all = all[offset:]
    if limit < len(all) {
        all = all[:limit]
    }
    return all, nil
}

func sortInvoices(invs []model.Invoice) {
    sort.Slice(invs, func(i, j int) bool {
        if !invs[i].IssueDate.Equal(invs[j].IssueDate) {
            return invs[i].IssueDate.After(invs[j].IssueDate)
        }
        return invs[i].ID > invs[j].ID
    })
}

// inMemoryBillingTx stages all writes and applies them on Commit.  Row
// mutexes taken by LockReservation / AllocateInvoiceNumber are held
// until Commit or Rollback, matching FOR UPDATE semantics.
type inMemoryBillingTx struct {
    store *InMemoryBillingStore
    done  bool

    lockedReservation *reservationState
    lockedOwner       *ownerState

    stagedCounter  *uint64 // new last_invoice_number for the locked owner
    stagedInvoices []model.Invoice
    stagedPaid     *struct {
        reservationID uint64
        paymentMethod string
        invoiceNumber string
        at            time.Time
    }
}

func (t *inMemoryBillingTx) LockReservation(ctx context.Context, reservationID uint64) (*repository.BillingSnapshot, error) {
    t.store.mu.Lock()
    rs, ok := t.store.reservations[reservationID]
    t.store.mu.Unlock()
    if !ok {
        return nil, repository.ErrReservationNotFound
    }

    // Block here like a store-level lock wait queue would.
    rs.rowMu.Lock()
    t.lockedReservation = rs

    // Re-read state under the row lock: a transaction that was blocked
    // behind the winner observes the now-PAID status.
    t.store.mu.Lock()
    snap := &repository.BillingSnapshot{
        ReservationID: reservationID,
        PropertyID:    rs.propertyID,
        OwnerID:       rs.ownerID,
        Status:        rs.status,
        Amount:        rs.amount,
    }
    t.store.mu.Unlock()

    switch snap.Status {
    case model.ReservationPaid:
        return nil, repository.ErrAlreadyBilled
    case model.ReservationCancelled:
        return nil, repository.ErrConflict
    }
    return snap, nil
}

func (t *inMemoryBillingTx) AllocateInvoiceNumber(ctx context.Context, ownerID uint64) (string, error) {
    t.store.mu.Lock()
    o, ok := t.store.owners[ownerID]
    t.store.mu.Unlock()
    if !ok {
        return "", repository.ErrOwnerNotFound
    }

    o.rowMu.Lock()
    t.lockedOwner = o

    t.store.mu.Lock()
    next := o.last + 1
    series := o.series
    t.store.mu.Unlock()

    t.stagedCounter = &next
    return repository.FormatInvoiceNumber(series, next), nil
}

func (t *inMemoryBillingTx) InsertInvoice(ctx context.Context, inv *model.Invoice) error {
    if err := t.store.FailOnInsertInvoice; err != nil {
        return err
    }
    t.store.mu.Lock()
    t.store.nextInvoiceID++
    inv.ID = t.store.nextInvoiceID
    inv.CreatedAt = time.Now().UTC()
    t.store.mu.Unlock()
    t.stagedInvoices = append(t.stagedInvoices, *inv)
    return nil
}

func (t *inMemoryBillingTx) MarkReservationPaid(ctx context.Context, reservationID uint64, paymentMethod, invoiceNumber string, at time.Time) error {
    if err := t.store.FailOnMarkPaid; err != nil {
        return err
    }
    t.stagedPaid = &struct {
        reservationID uint64
        paymentMethod string
        invoiceNumber string
        at            time.Time
    }{reservationID, paymentMethod, invoiceNumber, at}
    return nil
}

func (t *inMemoryBillingTx) Commit() error {
    if t.done {
        return errors.New("transaction already finished")
    }
    t.store.mu.Lock()

    // Unique constraints on reservation_id and invoice_number.
    for _, staged := range t.stagedInvoices {
        for _, existing := range t.store.invoices {
            if existing.ReservationID == staged.ReservationID || existing.InvoiceNumber == staged.InvoiceNumber {
                t.store.mu.Unlock()
                t.finish()
                return errors.New("duplicate invoice")
            }
        }
    }

    if t.stagedCounter != nil && t.lockedOwner != nil {
        t.lockedOwner.last = *t.stagedCounter
    }
    for _, staged := range t.stagedInvoices {
        t.store.invoices[staged.ID] = staged
    }
    if p := t.stagedPaid; p != nil {
        if rs, ok := t.store.reservations[p.reservationID]; ok {
            rs.status = model.ReservationPaid
            method := p.paymentMethod
            number := p.invoiceNumber
            date := p.at
            rs.paymentMethod = &method
            rs.invoiceNumber = &number
            rs.invoiceDate = &date
        }
    }
    t.store.mu.Unlock()
    t.finish()
    return nil
}

func (t *inMemoryBillingTx) Rollback() error {
    if t.done {
        return nil
    }
    // Discard staged state; the counter increment never happened as far
    // as anyone else can tell.
    t.stagedCounter = nil
    t.stagedInvoices = nil
    t.stagedPaid = nil
    t.finish()
    return nil
}

// finish releases row locks in reverse acquisition order.
func (t *inMemoryBillingTx) finish() {
    t.done = true
    if t.lockedOwner != nil {
        t.lockedOwner.rowMu.Unlock()
        t.lockedOwner = nil
    }
    if t.lockedReservation != nil {
        t.lockedReservation.rowMu.Unlock()
        t.lockedReservation = nil
    }
}
