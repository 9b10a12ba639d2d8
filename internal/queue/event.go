// Package queue defines message payloads exchanged over the message broker.
package queue

// InvoiceIssuedEvent is published after an issuance transaction commits.
// It contains enough information for downstream consumers to log, notify,
// or trigger accounting exports without querying the primary database.
type InvoiceIssuedEvent struct {
    InvoiceID     uint64 `json:"invoice_id"`
    InvoiceNumber string `json:"invoice_number"`
    ReservationID uint64 `json:"reservation_id"`
    OwnerID       uint64 `json:"owner_id"`
    Amount        string `json:"amount"`
    PaymentMethod string `json:"payment_method"`
    IssuedAt      string `json:"issued_at"`
}
