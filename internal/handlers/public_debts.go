package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/middleware"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/response"
)

// PublicDebtHandler serves the token-credentialed debt view. The token in the
// URL is the sole credential; possession grants the public disclosure level
// without any login.
type PublicDebtHandler struct {
	debts *services.DebtService
}

func NewPublicDebtHandler(debts *services.DebtService) *PublicDebtHandler {
	return &PublicDebtHandler{debts: debts}
}

// GET /:locale/pohledavky/:token
func (h *PublicDebtHandler) Show(c *gin.Context) {
	viewer := middleware.Viewer(c)
	locale := middleware.Locale(c)

	disclosure, err := h.debts.ResolveToken(c.Request.Context(), viewer, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := debtJSON(disclosure.Debt, locale, time.Now())
	payload["full_disclosure"] = disclosure.FullDisclosure
	if disclosure.FullDisclosure {
		payload["customer_email"] = disclosure.Debt.CustomerEmail
		payload["notified_at"] = disclosure.Debt.NotifiedAt
		payload["viewed_at"] = disclosure.Debt.ViewedAt
	}

	response.Success(c, http.StatusOK, payload)
}

// Homepage serves the localized landing payload.
// GET /:locale/
func Homepage(c *gin.Context) {
	locale := middleware.Locale(c)
	response.Success(c, http.StatusOK, gin.H{
		"locale": locale,
		"title":  locale.T("page.homepage.title"),
	})
}

// RootRedirect sends bare-root requests to the default locale.
// GET /
func RootRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "/"+string(i18n.DefaultLocale)+"/")
}
