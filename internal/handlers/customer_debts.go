package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/abilities"
	"github.com/dluzirna/dluzirna/internal/middleware"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
)

// CustomerDebtHandler serves the authenticated customer's own debts. Every
// read goes through a lookup scoped to the viewer, so records belonging to
// other customers are indistinguishable from missing ones.
type CustomerDebtHandler struct {
	debts *services.DebtService
}

func NewCustomerDebtHandler(debts *services.DebtService) *CustomerDebtHandler {
	return &CustomerDebtHandler{debts: debts}
}

// GET /api/zakaznik/pohledavky
func (h *CustomerDebtHandler) Index(c *gin.Context) {
	debts, err := h.debts.ListForCustomer(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now()
	locale := middleware.Locale(c)
	items := make([]gin.H, len(debts))
	for i := range debts {
		items[i] = debtJSON(&debts[i], locale, now)
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/zakaznik/pohledavky/:id
func (h *CustomerDebtHandler) Show(c *gin.Context) {
	viewer := middleware.Viewer(c)
	debt, err := h.debts.GetForCustomer(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	// The scoped lookup already filtered by owner; the ability check guards
	// against a future lookup path forgetting the scope.
	if !abilities.Resolve(abilities.ForUser(viewer)).CanViewDebt(debt) {
		response.Error(c, errors.ErrNotFound)
		return
	}

	payload := debtJSON(debt, middleware.Locale(c), time.Now())
	payload["notified_at"] = debt.NotifiedAt
	payload["viewed_at"] = debt.ViewedAt
	response.Success(c, http.StatusOK, payload)
}
