package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/dluzirna/dluzirna/internal/auth"
	"github.com/dluzirna/dluzirna/internal/database/testutil"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/internal/services"
)

func newAuthFixture(t *testing.T) (*iauth.JWTService, *services.UserService, *models.User, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "dluzirna", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	users, err := services.NewUserService(db, nil)
	require.NoError(t, err)

	admin := &models.User{Email: "spravce@dluzirna.cz", Password: "hash", Role: models.RoleAdmin}
	customer := &models.User{Email: "jan@example.com", Password: "hash", Role: models.RoleCustomer}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(customer).Error)

	return jwt, users, admin, customer
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secure", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	jwt, _, admin, _ := newAuthFixture(t)

	r := gin.New()
	r.GET("/secure", Auth(jwt), func(c *gin.Context) { c.String(200, "ok") })

	require.Equal(t, 401, get(r, "").Code)
	require.Equal(t, 401, get(r, "not-a-jwt").Code)

	token, err := jwt.GenerateAccessToken(admin.ID, string(admin.Role), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 200, get(r, token).Code)
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	jwt, users, _, customer := newAuthFixture(t)

	r := gin.New()
	r.GET("/secure", OptionalAuth(jwt), LoadViewer(users), func(c *gin.Context) {
		if viewer := Viewer(c); viewer != nil {
			c.String(200, viewer.Email)
			return
		}
		c.String(200, "anonymous")
	})

	// No token and a garbage token both pass through as anonymous.
	w := get(r, "")
	require.Equal(t, 200, w.Code)
	require.Equal(t, "anonymous", w.Body.String())

	w = get(r, "garbage")
	require.Equal(t, 200, w.Code)
	require.Equal(t, "anonymous", w.Body.String())

	token, err := jwt.GenerateAccessToken(customer.ID, string(customer.Role), "sess-1")
	require.NoError(t, err)
	w = get(r, token)
	require.Equal(t, 200, w.Code)
	require.Equal(t, "jan@example.com", w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	jwt, users, admin, customer := newAuthFixture(t)

	r := gin.New()
	r.GET("/secure", OptionalAuth(jwt), LoadViewer(users), RequireAdmin(), func(c *gin.Context) {
		c.String(200, "ok")
	})

	require.Equal(t, 401, get(r, "").Code)

	customerToken, err := jwt.GenerateAccessToken(customer.ID, string(customer.Role), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 403, get(r, customerToken).Code)

	adminToken, err := jwt.GenerateAccessToken(admin.ID, string(admin.Role), "sess-2")
	require.NoError(t, err)
	require.Equal(t, 200, get(r, adminToken).Code)
}

func TestRequireCustomer(t *testing.T) {
	jwt, users, admin, customer := newAuthFixture(t)

	r := gin.New()
	r.GET("/secure", OptionalAuth(jwt), LoadViewer(users), RequireCustomer(), func(c *gin.Context) {
		c.String(200, "ok")
	})

	customerToken, err := jwt.GenerateAccessToken(customer.ID, string(customer.Role), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 200, get(r, customerToken).Code)

	adminToken, err := jwt.GenerateAccessToken(admin.ID, string(admin.Role), "sess-2")
	require.NoError(t, err)
	require.Equal(t, 403, get(r, adminToken).Code)
}
