package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Property is a rentable unit listed by an owner.  Reservations always
// reference a property, and the property resolves which owner's ledger
// an invoice is numbered from.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – owning landlord.
//  Name        – human readable label.
//  Address     – street address.
//  City        – city, used for public browse filtering.
//  NightlyRate – price per night.
//  IsActive    – whether the property accepts new reservations.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Property struct {
    ID          uint64          // properties.id
    OwnerID     uint64          // properties.owner_id
    Name        string          // properties.name
    Address     string          // properties.address
    City        string          // properties.city
    NightlyRate decimal.Decimal // properties.nightly_rate
    IsActive    bool            // properties.is_active
    CreatedAt   time.Time       // properties.created_at
    UpdatedAt   time.Time       // properties.updated_at
}
