// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrAlreadyBilled is the duplicate-invoice
// guard raised when billing a reservation that is already PAID.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because
// of conflicting state, such as deleting a property that still has
// active reservations or billing a cancelled reservation. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrOwnerNotFound is returned by the sequence allocator when the
// owner ledger row does not exist.
var ErrOwnerNotFound = errors.New("owner not found")

// ErrPropertyNotFound is returned when a property lookup fails.
var ErrPropertyNotFound = errors.New("property not found")

// ErrReservationNotFound is returned when a reservation lookup fails.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrAlreadyBilled is returned when an invoice is requested for a
// reservation whose status is already PAID. It must stay
// distinguishable from ErrReservationNotFound so clients can tell
// "already invoiced" apart from "does not exist".
var ErrAlreadyBilled = errors.New("reservation already billed")

// ErrInvoiceNotFound is returned when an invoice lookup by id fails.
var ErrInvoiceNotFound = errors.New("invoice not found")
