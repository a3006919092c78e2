package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/middleware"
	apperrors "github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
	appvalidator "github.com/dluzirna/dluzirna/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation.
// On failure the error response is written and false returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, apperrors.NewValidation("invalid JSON payload"))
		return false
	}

	if err := appvalidator.Struct(dest); err != nil {
		response.Error(c, apperrors.NewValidation(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	fe, ok := err.(appvalidator.FieldErrors)
	if !ok || len(fe) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(fe))
	for _, failure := range fe {
		field := strings.ReplaceAll(failure.Field, "_", " ")
		switch failure.Tag {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, failure.Param))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
		default:
			if failure.Param != "" {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
			}
		}
	}
	return strings.Join(messages, "; ")
}

// requestLocale prefers an explicit payload locale, falling back to the one
// resolved from the path.
func requestLocale(c *gin.Context, explicit string) i18n.Locale {
	if explicit != "" {
		return i18n.Parse(explicit)
	}
	return middleware.Locale(c)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
