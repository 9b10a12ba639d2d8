package model

import "time"

// Owner represents a landlord account holding the invoice ledger state.
// Each owner carries its own invoice series and counter; invoice numbers
// are allocated from these two columns and from nowhere else.  The
// counter only moves forward, and only inside a committed issuance
// transaction.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – user account this owner belongs to.
//  Name              – display name used on invoices.
//  InvoiceSeries     – series prefix for invoice numbers (nullable; the
//                      allocator falls back to "INV" when unset).
//  LastInvoiceNumber – last allocated sequence value for this owner.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type Owner struct {
    ID                uint64    // owners.id
    UserID            uint64    // owners.user_id
    Name              string    // owners.name
    InvoiceSeries     *string   // owners.invoice_series (nullable)
    LastInvoiceNumber uint64    // owners.last_invoice_number
    CreatedAt         time.Time // owners.created_at
    UpdatedAt         time.Time // owners.updated_at
}
