package repository

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
    assert.Equal(t, "INV-000001", FormatInvoiceNumber("INV", 1))
    assert.Equal(t, "RENT-000042", FormatInvoiceNumber("RENT", 42))
    // Counters wider than six digits keep growing without truncation.
    assert.Equal(t, "INV-1000000", FormatInvoiceNumber("INV", 1000000))
    // An unset series falls back to the default.
    assert.Equal(t, "INV-000007", FormatInvoiceNumber("", 7))
}
