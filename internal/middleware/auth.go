package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/abilities"
	iauth "github.com/dluzirna/dluzirna/internal/auth"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	CtxViewerKey    = "viewer"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth resolves a bearer token when one is presented but never rejects
// the request. The public token-view route uses it so a logged-in customer is
// recognised as the debt owner while anonymous visitors pass through.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := jwt.ValidateAccessToken(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// LoadViewer resolves the authenticated claims into a user record. The viewer
// stays unset for anonymous requests and for claims whose account no longer
// exists, so stale tokens degrade to anonymous instead of erroring.
func LoadViewer(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := c.Get(CtxUserIDKey); ok {
			if user, err := users.GetByID(c.Request.Context(), id.(string)); err == nil {
				c.Set(CtxViewerKey, user)
			}
		}
		c.Next()
	}
}

// RequireAdmin aborts unless the loaded viewer resolves to debt-management
// rights. An unauthenticated request gets 401, an authenticated non-admin 403.
func RequireAdmin() gin.HandlerFunc {
	return requireAbility(func(a abilities.Ability) bool { return a.ManageDebts })
}

// RequireCustomer aborts unless the loaded viewer may list their own debts.
func RequireCustomer() gin.HandlerFunc {
	return requireAbility(func(a abilities.Ability) bool { return a.ListOwnDebts })
}

func requireAbility(allowed func(abilities.Ability) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := Viewer(c)
		if viewer == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allowed(abilities.Resolve(abilities.ForUser(viewer))) {
			response.Error(c, errors.ErrAccessDenied)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Viewer returns the loaded user, or nil for anonymous requests.
func Viewer(c *gin.Context) *models.User {
	if v, ok := c.Get(CtxViewerKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func setClaims(c *gin.Context, claims *iauth.Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	if claims.SessionID != "" {
		c.Set(CtxSessionIDKey, claims.SessionID)
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(authz[7:]), true
}
