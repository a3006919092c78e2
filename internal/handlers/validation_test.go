package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appvalidator "github.com/dluzirna/dluzirna/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	err := appvalidator.FieldErrors{
		{Field: "email", Tag: "required"},
		{Field: "password", Tag: "min", Param: "8"},
	}
	require.Equal(t, "email is required; password must be at least 8 characters", formatValidationError(err))

	require.Equal(t, "invalid request payload", formatValidationError(nil))
	require.Equal(t, "invalid request payload", formatValidationError(appvalidator.FieldErrors{}))
}

func TestParseIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=3&junk=abc", nil)

	require.Equal(t, 3, parseIntQuery(c, "page", 1))
	require.Equal(t, 1, parseIntQuery(c, "junk", 1))
	require.Equal(t, 25, parseIntQuery(c, "missing", 25))
}
