package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/property-management/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	wrapped := JWTAuth(testSecret)(h)
	if len(roles) > 0 {
		wrapped = JWTAuth(testSecret)(RequireRole(roles...)(h))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NotNil(t, wrapped)
	_ = wrapped(e.NewContext(req, rec))
	return rec
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	rec := runProtected(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsGarbage(t *testing.T) {
	rec := runProtected(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "OWNER", 5)
	require.NoError(t, err)
	rec := runProtected(t, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleEnforcesRole(t *testing.T) {
	owner, err := utils.NewAccessToken(testSecret, 42, "OWNER", 5)
	require.NoError(t, err)
	tenant, err := utils.NewAccessToken(testSecret, 43, "TENANT", 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, runProtected(t, "Bearer "+owner.Token, "OWNER").Code)
	assert.Equal(t, http.StatusForbidden, runProtected(t, "Bearer "+tenant.Token, "OWNER").Code)
	assert.Equal(t, http.StatusOK, runProtected(t, "Bearer "+tenant.Token, "OWNER", "TENANT").Code)
}
