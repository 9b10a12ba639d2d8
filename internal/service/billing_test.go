package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/queue"
    "github.com/iliyamo/property-management/internal/repository"
    "github.com/iliyamo/property-management/internal/testutil"
)

const (
    ownerID       = uint64(1)
    propertyID    = uint64(10)
    reservationID = uint64(100)
)

func newBillingFixture() (*testutil.InMemoryBillingStore, *BillingService) {
    store := testutil.NewInMemoryBillingStore()
    store.AddOwner(ownerID, "INV", 0)
    store.AddReservation(reservationID, propertyID, ownerID, model.ReservationConfirmed, decimal.RequireFromString("100.00"))
    return store, NewBillingService(store)
}

func TestIssueInvoiceSequence(t *testing.T) {
    store, svc := newBillingFixture()
    store.AddReservation(101, propertyID, ownerID, model.ReservationConfirmed, decimal.RequireFromString("150.00"))
    store.AddReservation(102, propertyID, ownerID, model.ReservationPending, decimal.RequireFromString("80.00"))

    amount := decimal.RequireFromString("100.00")
    want := []string{"INV-000001", "INV-000002", "INV-000003"}
    for i, resID := range []uint64{reservationID, 101, 102} {
        inv, err := svc.IssueInvoice(context.Background(), ownerID, resID, "card", amount)
        require.NoError(t, err)
        assert.Equal(t, want[i], inv.InvoiceNumber)
        assert.Equal(t, resID, inv.ReservationID)
        assert.True(t, amount.Equal(inv.Amount))
        assert.Equal(t, model.ReservationPaid, store.ReservationStatus(resID))
        num := store.ReservationInvoiceNumber(resID)
        require.NotNil(t, num)
        assert.Equal(t, want[i], *num)
    }
    assert.Equal(t, uint64(3), store.OwnerCounter(ownerID))
}

func TestIssueInvoiceSeriesFallback(t *testing.T) {
    store := testutil.NewInMemoryBillingStore()
    store.AddOwner(2, "", 41) // no series configured
    store.AddReservation(200, 20, 2, model.ReservationConfirmed, decimal.RequireFromString("55.00"))
    svc := NewBillingService(store)

    inv, err := svc.IssueInvoice(context.Background(), 2, 200, "cash", decimal.RequireFromString("55.00"))
    require.NoError(t, err)
    assert.Equal(t, "INV-000042", inv.InvoiceNumber)
}

func TestIssueInvoiceUnknownReservation(t *testing.T) {
    store, svc := newBillingFixture()
    _, err := svc.IssueInvoice(context.Background(), ownerID, 999, "card", decimal.RequireFromString("100.00"))
    assert.ErrorIs(t, err, repository.ErrReservationNotFound)
    assert.Equal(t, uint64(0), store.OwnerCounter(ownerID))
    assert.Equal(t, 0, store.InvoiceCount())
}

func TestIssueInvoiceUnknownOwner(t *testing.T) {
    store := testutil.NewInMemoryBillingStore()
    // Reservation points at an owner without a ledger row.
    store.AddReservation(300, 30, 3, model.ReservationConfirmed, decimal.RequireFromString("70.00"))
    svc := NewBillingService(store)

    _, err := svc.IssueInvoice(context.Background(), 3, 300, "card", decimal.RequireFromString("70.00"))
    assert.ErrorIs(t, err, repository.ErrOwnerNotFound)
    assert.Equal(t, model.ReservationConfirmed, store.ReservationStatus(300))
    assert.Equal(t, 0, store.InvoiceCount())
}

func TestIssueInvoiceForeignOwner(t *testing.T) {
    store, svc := newBillingFixture()
    _, err := svc.IssueInvoice(context.Background(), 77, reservationID, "card", decimal.RequireFromString("100.00"))
    assert.ErrorIs(t, err, repository.ErrForbidden)
    assert.Equal(t, uint64(0), store.OwnerCounter(ownerID))
    assert.Equal(t, model.ReservationConfirmed, store.ReservationStatus(reservationID))
}

func TestIssueInvoiceAlreadyBilled(t *testing.T) {
    store, svc := newBillingFixture()
    amount := decimal.RequireFromString("100.00")

    first, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", amount)
    require.NoError(t, err)

    _, err = svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", amount)
    assert.ErrorIs(t, err, repository.ErrAlreadyBilled)

    invs, err := svc.ListInvoicesForReservation(context.Background(), reservationID)
    require.NoError(t, err)
    require.Len(t, invs, 1)
    assert.Equal(t, first.InvoiceNumber, invs[0].InvoiceNumber)
    assert.Equal(t, uint64(1), store.OwnerCounter(ownerID))
}

func TestIssueInvoiceCancelledReservation(t *testing.T) {
    store, svc := newBillingFixture()
    store.AddReservation(101, propertyID, ownerID, model.ReservationCancelled, decimal.RequireFromString("60.00"))
    _, err := svc.IssueInvoice(context.Background(), ownerID, 101, "card", decimal.RequireFromString("60.00"))
    assert.ErrorIs(t, err, repository.ErrConflict)
    assert.Equal(t, 0, store.InvoiceCount())
}

func TestIssueInvoiceInvalidAmount(t *testing.T) {
    _, svc := newBillingFixture()
    _, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", decimal.Zero)
    assert.ErrorIs(t, err, ErrInvalidAmount)
    _, err = svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", decimal.RequireFromString("-5.00"))
    assert.ErrorIs(t, err, ErrInvalidAmount)
}

// A forced failure after the number was allocated must roll everything
// back, and the next successful issuance must reuse the number: the
// committed sequence stays gapless.
func TestIssueInvoiceRollbackKeepsSequenceGapless(t *testing.T) {
    store, svc := newBillingFixture()
    amount := decimal.RequireFromString("100.00")

    boom := errors.New("storage blew up")
    store.FailOnInsertInvoice = boom
    _, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", amount)
    assert.ErrorIs(t, err, boom)

    // Nothing moved: counter, reservation, invoice table.
    assert.Equal(t, uint64(0), store.OwnerCounter(ownerID))
    assert.Equal(t, model.ReservationConfirmed, store.ReservationStatus(reservationID))
    assert.Equal(t, 0, store.InvoiceCount())

    store.FailOnInsertInvoice = nil
    inv, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", amount)
    require.NoError(t, err)
    assert.Equal(t, "INV-000001", inv.InvoiceNumber)
}

func TestIssueInvoiceAtomicityOnLateFailure(t *testing.T) {
    store, svc := newBillingFixture()

    boom := errors.New("update failed")
    store.FailOnMarkPaid = boom
    _, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", decimal.RequireFromString("100.00"))
    assert.ErrorIs(t, err, boom)

    assert.Equal(t, uint64(0), store.OwnerCounter(ownerID))
    assert.Equal(t, model.ReservationConfirmed, store.ReservationStatus(reservationID))
    assert.Nil(t, store.ReservationInvoiceNumber(reservationID))
    assert.Equal(t, 0, store.InvoiceCount())
}

// Five simultaneous issuance requests for one reservation: exactly one
// succeeds, the rest observe AlreadyBilled after blocking on the
// reservation lock, and exactly one invoice exists afterwards.
func TestConcurrentIssuanceSameReservation(t *testing.T) {
    store, svc := newBillingFixture()
    amount := decimal.RequireFromString("100.00")

    const attempts = 5
    var wg sync.WaitGroup
    results := make(chan error, attempts)
    numbers := make(chan string, attempts)

    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            inv, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", amount)
            if err == nil {
                numbers <- inv.InvoiceNumber
            }
            results <- err
        }()
    }
    wg.Wait()
    close(results)
    close(numbers)

    successes, alreadyBilled := 0, 0
    for err := range results {
        switch {
        case err == nil:
            successes++
        case errors.Is(err, repository.ErrAlreadyBilled):
            alreadyBilled++
        default:
            t.Fatalf("unexpected error: %v", err)
        }
    }
    assert.Equal(t, 1, successes)
    assert.Equal(t, attempts-1, alreadyBilled)

    winner := <-numbers
    invs, err := svc.ListInvoicesForReservation(context.Background(), reservationID)
    require.NoError(t, err)
    require.Len(t, invs, 1)
    assert.Equal(t, winner, invs[0].InvoiceNumber)
    assert.Equal(t, uint64(1), store.OwnerCounter(ownerID))
}

// Concurrent issuances for different reservations of the same owner
// serialize on the owner lock: all succeed with pairwise distinct,
// dense numbers.
func TestConcurrentIssuanceSameOwner(t *testing.T) {
    store, svc := newBillingFixture()
    const attempts = 5
    for i := 1; i < attempts; i++ {
        store.AddReservation(reservationID+uint64(i), propertyID, ownerID, model.ReservationConfirmed, decimal.RequireFromString("100.00"))
    }

    var wg sync.WaitGroup
    numbers := make(chan string, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(resID uint64) {
            defer wg.Done()
            inv, err := svc.IssueInvoice(context.Background(), ownerID, resID, "card", decimal.RequireFromString("100.00"))
            if assert.NoError(t, err) {
                numbers <- inv.InvoiceNumber
            }
        }(reservationID + uint64(i))
    }
    wg.Wait()
    close(numbers)

    got := make(map[string]bool)
    for n := range numbers {
        got[n] = true
    }
    require.Len(t, got, attempts)
    for _, want := range []string{"INV-000001", "INV-000002", "INV-000003", "INV-000004", "INV-000005"} {
        assert.True(t, got[want], "missing %s", want)
    }
    assert.Equal(t, uint64(attempts), store.OwnerCounter(ownerID))
}

func TestGetInvoiceIdempotentRead(t *testing.T) {
    _, svc := newBillingFixture()
    inv, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "card", decimal.RequireFromString("100.00"))
    require.NoError(t, err)

    first, err := svc.GetInvoice(context.Background(), inv.ID)
    require.NoError(t, err)
    second, err := svc.GetInvoice(context.Background(), inv.ID)
    require.NoError(t, err)
    assert.Equal(t, first, second)

    _, err = svc.GetInvoice(context.Background(), 9999)
    assert.ErrorIs(t, err, repository.ErrInvoiceNotFound)
}

func TestListInvoicesPagination(t *testing.T) {
    store, svc := newBillingFixture()
    base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
    tick := 0
    svc.WithClock(func() time.Time {
        tick++
        return base.Add(time.Duration(tick) * time.Minute)
    })
    for i := 1; i < 4; i++ {
        store.AddReservation(reservationID+uint64(i), propertyID, ownerID, model.ReservationConfirmed, decimal.RequireFromString("100.00"))
    }
    for i := 0; i < 4; i++ {
        _, err := svc.IssueInvoice(context.Background(), ownerID, reservationID+uint64(i), "card", decimal.RequireFromString("100.00"))
        require.NoError(t, err)
    }

    page, err := svc.ListInvoices(context.Background(), 2, 0)
    require.NoError(t, err)
    require.Len(t, page, 2)
    // Newest issue date first.
    assert.True(t, page[0].IssueDate.After(page[1].IssueDate))

    rest, err := svc.ListInvoices(context.Background(), 2, 2)
    require.NoError(t, err)
    assert.Len(t, rest, 2)

    empty, err := svc.ListInvoices(context.Background(), 10, 50)
    require.NoError(t, err)
    assert.Empty(t, empty)
}

func TestIssueInvoicePublishesEvent(t *testing.T) {
    _, svc := newBillingFixture()
    var got *queue.InvoiceIssuedEvent
    svc.EnablePublisher(func(ctx context.Context, ev queue.InvoiceIssuedEvent) error {
        got = &ev
        return nil
    })

    inv, err := svc.IssueInvoice(context.Background(), ownerID, reservationID, "transfer", decimal.RequireFromString("100.00"))
    require.NoError(t, err)
    require.NotNil(t, got)
    assert.Equal(t, inv.ID, got.InvoiceID)
    assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
    assert.Equal(t, reservationID, got.ReservationID)
    assert.Equal(t, ownerID, got.OwnerID)
    assert.Equal(t, "100.00", got.Amount)
    assert.Equal(t, "transfer", got.PaymentMethod)
}
