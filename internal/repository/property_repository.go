package repository // repository holds data access logic for domain entities

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/property-management/internal/model"
)

// PropertyRepo provides methods to create and retrieve properties.  It
// embeds a database handle to perform queries and commands.
type PropertyRepo struct {
    db *sql.DB
}

// NewPropertyRepo constructs a PropertyRepo with the given DB handle.
func NewPropertyRepo(db *sql.DB) *PropertyRepo {
    return &PropertyRepo{db: db}
}

const propertyColumns = `id, owner_id, name, address, city, nightly_rate, is_active, created_at, updated_at`

func scanProperty(row interface {
    Scan(dest ...interface{}) error
}) (*model.Property, error) {
    var p model.Property
    err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.City,
        &p.NightlyRate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// Create inserts a new property.  OwnerID, Name, Address, City and
// NightlyRate must be set.  After insert the record is read back so the
// ID, active flag and timestamps are populated.
func (r *PropertyRepo) Create(ctx context.Context, p *model.Property) error {
    const qInsert = `INSERT INTO properties (owner_id, name, address, city, nightly_rate)
                     VALUES (?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, p.OwnerID, p.Name, p.Address, p.City, p.NightlyRate)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)

    const qSelect = `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`
    got, err := scanProperty(r.db.QueryRowContext(ctx, qSelect, p.ID))
    if err != nil {
        return err
    }
    *p = *got
    return nil
}

// GetByID retrieves a property by its ID regardless of owner.  It
// returns ErrPropertyNotFound when no row is found.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*model.Property, error) {
    const q = `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`
    p, err := scanProperty(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrPropertyNotFound
        }
        return nil, err
    }
    return p, nil
}

// ListByOwner returns all properties belonging to an owner, newest
// first.  An empty slice is returned when the owner has none.
func (r *PropertyRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Property, error) {
    const q = `SELECT ` + propertyColumns + ` FROM properties
               WHERE owner_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, ownerID)
}

// ListActive returns active properties for public browse, optionally
// filtered by city.  An empty city matches everything.
func (r *PropertyRepo) ListActive(ctx context.Context, city string) ([]model.Property, error) {
    if city != "" {
        const q = `SELECT ` + propertyColumns + ` FROM properties
                   WHERE is_active = 1 AND city = ? ORDER BY created_at DESC`
        return r.list(ctx, q, city)
    }
    const q = `SELECT ` + propertyColumns + ` FROM properties
               WHERE is_active = 1 ORDER BY created_at DESC`
    return r.list(ctx, q)
}

func (r *PropertyRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Property, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Property, 0)
    for rows.Next() {
        p, err := scanProperty(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// Update modifies a property's mutable fields after validating that the
// caller owns it.  It returns ErrPropertyNotFound when the property does
// not exist and ErrForbidden when it belongs to another owner.
func (r *PropertyRepo) Update(ctx context.Context, p *model.Property, ownerID uint64) error {
    existing, err := r.GetByID(ctx, p.ID)
    if err != nil {
        return err
    }
    if existing.OwnerID != ownerID {
        return ErrForbidden
    }
    const q = `UPDATE properties SET name = ?, address = ?, city = ?, nightly_rate = ?, is_active = ?
               WHERE id = ?`
    _, err = r.db.ExecContext(ctx, q, p.Name, p.Address, p.City, p.NightlyRate, p.IsActive, p.ID)
    return err
}

// Deactivate soft-deletes a property by clearing its active flag.  The
// handler is responsible for refusing the call while non-cancelled
// reservations exist.
func (r *PropertyRepo) Deactivate(ctx context.Context, propertyID, ownerID uint64) error {
    existing, err := r.GetByID(ctx, propertyID)
    if err != nil {
        return err
    }
    if existing.OwnerID != ownerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, `UPDATE properties SET is_active = 0 WHERE id = ?`, propertyID)
    return err
}
