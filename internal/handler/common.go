package handler // handler defines http handlers

import (
    "context"
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-management/internal/model"
    "github.com/iliyamo/property-management/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT numeric claims arrive as float64 after parsing; tokens minted by other
// services may carry the subject as a string.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// currentOwner resolves the authenticated user's owner ledger row.  The
// owners table keys billing state by its own id, not the user id, so every
// owner-facing handler goes through this lookup first.
func currentOwner(ctx context.Context, c echo.Context, owners *repository.OwnerRepo) (*model.Owner, error) {
    uid, err := getUserID(c)
    if err != nil {
        return nil, err
    }
    return owners.GetByUserID(ctx, uid)
}

// parseIDParam parses a numeric path parameter, rejecting zero.
func parseIDParam(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}
