package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dluzirna/dluzirna/internal/middleware"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/internal/services"
	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
)

// AdminDebtHandler owns the admin debt CRUD surface and the dashboard.
type AdminDebtHandler struct {
	debts *services.DebtService
}

func NewAdminDebtHandler(debts *services.DebtService) *AdminDebtHandler {
	return &AdminDebtHandler{debts: debts}
}

type createDebtRequest struct {
	Amount         string  `json:"amount" validate:"required"`
	DueDate        string  `json:"due_date" validate:"required"`
	CustomerEmail  string  `json:"customer_email" validate:"required,email"`
	Description    string  `json:"description"`
	CustomerUserID *string `json:"customer_user_id" validate:"omitempty,uuid"`
	Locale         string  `json:"locale"`
}

// POST /api/admin/pohledavky
func (h *AdminDebtHandler) Create(c *gin.Context) {
	var req createDebtRequest
	if !bindAndValidate(c, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, errors.NewValidation("amount must be a decimal number"))
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		response.Error(c, errors.NewValidation("due date must use the YYYY-MM-DD format"))
		return
	}

	locale := requestLocale(c, req.Locale)
	debt, err := h.debts.Create(c.Request.Context(), middleware.Viewer(c), services.CreateDebtInput{
		Amount:         amount,
		DueDate:        dueDate,
		CustomerEmail:  req.CustomerEmail,
		Description:    req.Description,
		CustomerUserID: req.CustomerUserID,
		Locale:         locale,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, adminDebtJSON(debt, locale, time.Now()))
}

// GET /api/admin/pohledavky
func (h *AdminDebtHandler) List(c *gin.Context) {
	opts := services.ListDebtsOptions{
		Page:    parseIntQuery(c, "page", 1),
		PerPage: parseIntQuery(c, "per_page", 0),
		Status:  models.DebtStatus(c.Query("status")),
		Search:  c.Query("search"),
		Overdue: c.Query("overdue") == "true",
	}
	if opts.Status != "" && !opts.Status.Valid() {
		response.Error(c, errors.NewValidation("status is not a known lifecycle value"))
		return
	}

	debts, total, err := h.debts.List(c.Request.Context(), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now()
	locale := middleware.Locale(c)
	items := make([]gin.H, len(debts))
	for i := range debts {
		items[i] = adminDebtJSON(&debts[i], locale, now)
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:       opts.Page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GET /api/admin/pohledavky/:id
func (h *AdminDebtHandler) Get(c *gin.Context) {
	debt, err := h.debts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, adminDebtJSON(debt, middleware.Locale(c), time.Now()))
}

type updateDebtRequest struct {
	Amount           *string `json:"amount"`
	DueDate          *string `json:"due_date"`
	CustomerEmail    *string `json:"customer_email"`
	Description      *string `json:"description"`
	Status           *string `json:"status"`
	SendNotification bool    `json:"send_notification"`
	Locale           string  `json:"locale"`
}

// PATCH /api/admin/pohledavky/:id
func (h *AdminDebtHandler) Update(c *gin.Context) {
	var req updateDebtRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateDebtInput{
		CustomerEmail:    req.CustomerEmail,
		Description:      req.Description,
		SendNotification: req.SendNotification,
		Locale:           requestLocale(c, req.Locale),
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			response.Error(c, errors.NewValidation("amount must be a decimal number"))
			return
		}
		input.Amount = &amount
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			response.Error(c, errors.NewValidation("due date must use the YYYY-MM-DD format"))
			return
		}
		input.DueDate = &dueDate
	}
	if req.Status != nil {
		status := models.DebtStatus(*req.Status)
		input.Status = &status
	}

	debt, err := h.debts.Update(c.Request.Context(), middleware.Viewer(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, adminDebtJSON(debt, input.Locale, time.Now()))
}

// DELETE /api/admin/pohledavky/:id
func (h *AdminDebtHandler) Delete(c *gin.Context) {
	if err := h.debts.Delete(c.Request.Context(), middleware.Viewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type resendRequest struct {
	Locale string `json:"locale"`
}

// PATCH /api/admin/pohledavky/:id/send_notification
func (h *AdminDebtHandler) SendNotification(c *gin.Context) {
	var req resendRequest
	// An empty body means the path locale.
	_ = c.ShouldBindJSON(&req)

	locale := requestLocale(c, req.Locale)
	debt, err := h.debts.ResendNotification(c.Request.Context(), middleware.Viewer(c), c.Param("id"), locale)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, adminDebtJSON(debt, locale, time.Now()))
}

// GET /api/admin/dashboard
func (h *AdminDebtHandler) Dashboard(c *gin.Context) {
	stats, err := h.debts.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now()
	locale := middleware.Locale(c)
	recent := make([]gin.H, len(stats.Recent))
	for i := range stats.Recent {
		recent[i] = adminDebtJSON(&stats.Recent[i], locale, now)
	}

	response.Success(c, http.StatusOK, gin.H{
		"total":   stats.Total,
		"pending": stats.Pending,
		"overdue": stats.Overdue,
		"recent":  recent,
	})
}
