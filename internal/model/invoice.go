package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Invoice is the immutable billing record produced by a committed
// issuance transaction.  There is no update path; rows are only ever
// created and read.  Its existence is the durable proof that the owner's
// ledger counter was consumed.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation this invoice bills (globally unique).
//  InvoiceNumber – formatted number, e.g. INV-000042 (globally unique).
//  IssueDate     – when the invoice was issued.
//  PaidDate      – when the payment was recorded.
//  Amount        – billed amount.
//  PaymentMethod – payment method reported by the caller.
//  CreatedAt     – creation timestamp.
type Invoice struct {
    ID            uint64          `json:"id"`             // invoices.id
    ReservationID uint64          `json:"reservation_id"` // invoices.reservation_id
    InvoiceNumber string          `json:"invoice_number"` // invoices.invoice_number
    IssueDate     time.Time       `json:"issue_date"`     // invoices.issue_date
    PaidDate      time.Time       `json:"paid_date"`      // invoices.paid_date
    Amount        decimal.Decimal `json:"amount"`         // invoices.amount
    PaymentMethod string          `json:"payment_method"` // invoices.payment_method
    CreatedAt     time.Time       `json:"created_at"`     // invoices.created_at
}
