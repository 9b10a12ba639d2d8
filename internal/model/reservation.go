package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Reservation status values.  PAID is reachable only through the invoice
// issuer; the transition is one-way.
const (
    ReservationPending   = "PENDING"
    ReservationConfirmed = "CONFIRMED"
    ReservationPaid      = "PAID"
    ReservationCancelled = "CANCELLED"
)

// Reservation records a tenant's booking of a property for a date range.
// InvoiceNumber is non-null exactly when Status is PAID; at most one
// invoice ever attaches to a reservation.
//
// Fields:
//  ID            – primary key identifier.
//  PropertyID    – property being booked.
//  TenantID      – user who made the booking.
//  StartDate     – first night of the stay.
//  EndDate       – checkout date (exclusive).
//  Status        – state of the reservation (PENDING, CONFIRMED, PAID,
//                  CANCELLED).
//  Amount        – total price for the stay.
//  PaymentMethod – how the reservation was paid (set on billing).
//  InvoiceNumber – number of the invoice billed against this reservation
//                  (nullable until billed, unique across reservations).
//  InvoiceDate   – date the invoice was issued (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
    ID            uint64          // reservations.id
    PropertyID    uint64          // reservations.property_id
    TenantID      uint64          // reservations.tenant_id
    StartDate     time.Time       // reservations.start_date
    EndDate       time.Time       // reservations.end_date
    Status        string          // reservations.status
    Amount        decimal.Decimal // reservations.amount
    PaymentMethod *string         // reservations.payment_method (nullable)
    InvoiceNumber *string         // reservations.invoice_number (nullable)
    InvoiceDate   *time.Time      // reservations.invoice_date (nullable)
    CreatedAt     time.Time       // reservations.created_at
    UpdatedAt     time.Time       // reservations.updated_at
}
