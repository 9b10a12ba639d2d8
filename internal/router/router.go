package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/property-management/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/property-management/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a refresh token in the body or a bearer
	// token and does not itself require the JWT middleware.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "TENANT"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints.  The cache
// middleware is passed in by the caller so the same Redis client and
// configuration apply to every cached route.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	// Browse active properties, optionally filtered by ?city=.
	e.GET("/v1/properties", p.ListProperties, cache)
	// Detail view of one active property.
	e.GET("/v1/properties/:id", p.GetProperty, cache)
}

// RegisterOwner registers endpoints reserved for property owners:
// property CRUD, the invoice ledger, reservation confirmation and
// billing.  All routes require a valid access token with the OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, b *handler.BillingHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OWNER"))

	g.POST("/owner/properties", o.CreateProperty)
	g.GET("/owner/properties", o.ListProperties)
	g.GET("/owner/properties/:id", o.GetProperty)
	g.PUT("/owner/properties/:id", o.UpdateProperty)
	g.DELETE("/owner/properties/:id", o.DeleteProperty)

	// Invoice series management; the sequence counter is never exposed
	// for writing.
	g.PUT("/owner/ledger", o.UpdateLedger)

	g.POST("/reservations/:id/confirm", o.ConfirmReservation)

	// Billing: issuance plus the read-only invoice surface.
	g.POST("/reservations/:id/invoice", b.IssueInvoice)
	g.GET("/reservations/:id/invoices", b.ListReservationInvoices)
	g.GET("/invoices", b.ListInvoices)
	g.GET("/invoices/:id", b.GetInvoice)
}

// RegisterTenant registers endpoints for tenants: creating reservations
// on public properties and managing their own bookings.
func RegisterTenant(e *echo.Echo, t *handler.TenantHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("TENANT"))

	g.POST("/properties/:id/reservations", t.CreateReservation)
	g.GET("/my-reservations", t.ListMyReservations)
	g.GET("/my-reservations/:id", t.GetMyReservation)
	g.POST("/my-reservations/:id/cancel", t.CancelMyReservation)
}
