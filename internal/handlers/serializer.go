package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/models"
)

// debtJSON renders a debt for the public and customer paths. The formatted
// fields follow the request locale; the raw values stay machine-readable.
func debtJSON(debt *models.Debt, locale i18n.Locale, now time.Time) gin.H {
	return gin.H{
		"id":                 debt.ID,
		"amount":             debt.Amount.String(),
		"amount_formatted":   locale.FormatAmount(debt.Amount),
		"due_date":           debt.DueDate.Format("2006-01-02"),
		"due_date_formatted": locale.FormatDate(debt.DueDate),
		"description":        debt.Description,
		"status":             debt.Status,
		"overdue":            debt.Overdue(now),
		"created_at":         debt.CreatedAt,
	}
}

// adminDebtJSON extends the public shape with the fields only admins see,
// including the token used to build the public link.
func adminDebtJSON(debt *models.Debt, locale i18n.Locale, now time.Time) gin.H {
	payload := debtJSON(debt, locale, now)
	payload["customer_email"] = debt.CustomerEmail
	payload["customer_user_id"] = debt.CustomerUserID
	payload["token"] = debt.Token
	payload["notified_at"] = debt.NotifiedAt
	payload["viewed_at"] = debt.ViewedAt
	return payload
}

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	}
}
