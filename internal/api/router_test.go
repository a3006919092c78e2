package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dluzirna/dluzirna/internal/app"
	iauth "github.com/dluzirna/dluzirna/internal/auth"
	"github.com/dluzirna/dluzirna/internal/cache"
	"github.com/dluzirna/dluzirna/internal/database/testutil"
	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/crypto"
)

type routerFixture struct {
	router *gin.Engine
	admin  *models.User
	debts  *services.DebtService
}

// recordedNotifier satisfies services.DebtNotifier without a mail transport.
type recordedNotifier struct{ sent int }

func (n *recordedNotifier) NotifyDebt(context.Context, *models.Debt, i18n.Locale) error {
	n.sent++
	return nil
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	hash, err := crypto.HashPassword("spravne-heslo")
	require.NoError(t, err)
	admin := &models.User{Email: "spravce@dluzirna.cz", Password: hash, Role: models.RoleAdmin}
	require.NoError(t, db.Create(admin).Error)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "dluzirna", AccessTokenTTL: 15 * time.Minute})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwt, iauth.SessionConfig{})
	require.NoError(t, err)
	users, err := services.NewUserService(db, nil)
	require.NoError(t, err)
	debts, err := services.NewDebtService(db, &recordedNotifier{}, nil)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Throttle.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true

	router, err := NewRouter(Deps{
		DB:       db,
		Config:   cfg,
		JWT:      jwt,
		Sessions: sessions,
		Users:    users,
		Debts:    debts,
		Store:    cache.NewMemoryStore(),
	})
	require.NoError(t, err)

	return &routerFixture{router: router, admin: admin, debts: debts}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, payload)
	require.NoError(t, err)
	req.RemoteAddr = "127.0.0.1:9999" // loopback skips the throttles
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "router-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, 200, w.Code, w.Body.String())

	var envelope struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Tokens.AccessToken)
	return envelope.Data.Tokens.AccessToken
}

func TestRouterEndToEndFlow(t *testing.T) {
	f := newRouterFixture(t)

	// Root redirects to the default locale.
	w := f.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, 302, w.Code)
	require.Equal(t, "/cs/", w.Header().Get("Location"))

	adminToken := f.login(t, "spravce@dluzirna.cz", "spravne-heslo")

	// Admin creates a debt; the token comes back in the admin payload.
	w = f.do(t, http.MethodPost, "/api/admin/pohledavky", adminToken, gin.H{
		"amount":         "25000.00",
		"due_date":       "2026-10-01",
		"customer_email": "jan@example.com",
		"description":    "Faktura 2026-001",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID     string `json:"id"`
			Token  string `json:"token"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.Token)
	require.Equal(t, "notified", created.Data.Status)

	// Anonymous token view succeeds and never exposes ownership flags as true.
	w = f.do(t, http.MethodGet, "/cs/pohledavky/"+created.Data.Token, "", nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"full_disclosure":false`)

	// A wrong token is plain not-found.
	w = f.do(t, http.MethodGet, "/cs/pohledavky/neexistuje", "", nil)
	require.Equal(t, 404, w.Code)

	// The customer registers with the billed address and sees the linked debt.
	w = f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "jan@example.com",
		"password": "tajneheslo",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	customerToken := f.login(t, "jan@example.com", "tajneheslo")
	w = f.do(t, http.MethodGet, "/api/zakaznik/pohledavky", customerToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), created.Data.ID)

	// The customer cannot touch the admin surface.
	w = f.do(t, http.MethodGet, "/api/admin/pohledavky", customerToken, nil)
	require.Equal(t, 403, w.Code)

	// The admin dashboard aggregates the book.
	w = f.do(t, http.MethodGet, "/api/admin/dashboard", adminToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"total":1`)
}

func TestRouterAuthBoundaries(t *testing.T) {
	f := newRouterFixture(t)

	require.Equal(t, 200, f.do(t, http.MethodGet, "/health", "", nil).Code)
	require.Equal(t, 401, f.do(t, http.MethodGet, "/api/auth/me", "", nil).Code)
	require.Equal(t, 401, f.do(t, http.MethodGet, "/api/admin/pohledavky", "", nil).Code)
	require.Equal(t, 401, f.do(t, http.MethodGet, "/api/zakaznik/pohledavky", "", nil).Code)
	require.Equal(t, 404, f.do(t, http.MethodGet, "/xx/pohledavky/token", "", nil).Code)
	require.Equal(t, 404, f.do(t, http.MethodGet, "/neznama-cesta", "", nil).Code)
}

func TestRouterResendNotification(t *testing.T) {
	f := newRouterFixture(t)
	adminToken := f.login(t, "spravce@dluzirna.cz", "spravne-heslo")

	w := f.do(t, http.MethodPost, "/api/admin/pohledavky", adminToken, gin.H{
		"amount":         "100",
		"due_date":       "2026-10-01",
		"customer_email": "jan@example.com",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/admin/pohledavky/%s/send_notification", created.Data.ID)
	w = f.do(t, http.MethodPatch, path, adminToken, gin.H{"locale": "en"})
	require.Equal(t, 200, w.Code, w.Body.String())
}

func TestRouterLocalePrefixedNamespaces(t *testing.T) {
	f := newRouterFixture(t)
	adminToken := f.login(t, "spravce@dluzirna.cz", "spravne-heslo")

	// Every API namespace is reachable under the locale prefix.
	w := f.do(t, http.MethodGet, "/cs/admin/pohledavky", adminToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/en/api/auth/register", "", gin.H{
		"email":    "eva@example.com",
		"password": "tajneheslo",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	customerToken := f.login(t, "eva@example.com", "tajneheslo")
	w = f.do(t, http.MethodGet, "/cs/zakaznik/pohledavky", customerToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())

	// Role checks hold under the prefix too.
	require.Equal(t, 403, f.do(t, http.MethodGet, "/en/admin/pohledavky", customerToken, nil).Code)
	require.Equal(t, 401, f.do(t, http.MethodGet, "/cs/zakaznik/pohledavky", "", nil).Code)

	// The path locale drives the formatted fields when the payload names none.
	w = f.do(t, http.MethodPost, "/en/admin/pohledavky", adminToken, gin.H{
		"amount":         "25000.00",
		"due_date":       "2026-10-01",
		"customer_email": "eva@example.com",
	})
	require.Equal(t, 201, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "CZK")

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(t, http.MethodGet, "/cs/admin/pohledavky/"+created.Data.ID, adminToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "Kč")
}

func TestRouterCreateDebtWithCustomerLink(t *testing.T) {
	f := newRouterFixture(t)
	adminToken := f.login(t, "spravce@dluzirna.cz", "spravne-heslo")

	w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "petr@example.com",
		"password": "tajneheslo",
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var registered struct {
		Data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.Data.User.ID)

	// A malformed link is rejected before it reaches the database.
	w = f.do(t, http.MethodPost, "/api/admin/pohledavky", adminToken, gin.H{
		"amount":           "500",
		"due_date":         "2026-11-01",
		"customer_email":   "jiny@example.com",
		"customer_user_id": "neni-uuid",
	})
	require.Equal(t, 422, w.Code, w.Body.String())

	// The admin links the debt to an account at creation even though it is
	// billed to another address.
	w = f.do(t, http.MethodPost, "/api/admin/pohledavky", adminToken, gin.H{
		"amount":           "500",
		"due_date":         "2026-11-01",
		"customer_email":   "jiny@example.com",
		"customer_user_id": registered.Data.User.ID,
	})
	require.Equal(t, 201, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	customerToken := f.login(t, "petr@example.com", "tajneheslo")
	w = f.do(t, http.MethodGet, "/api/zakaznik/pohledavky", customerToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), created.Data.ID)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	require.Equal(t, 200, f.do(t, http.MethodGet, "/health", "", nil).Code)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, 200, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "dluzirna_api_latency_seconds"))
}
