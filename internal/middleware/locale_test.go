package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dluzirna/dluzirna/internal/i18n"
)

func TestLocaleParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/:locale/stranka", LocaleParam(), func(c *gin.Context) {
		c.String(200, string(Locale(c)))
	})

	for code, want := range map[string]string{"cs": "cs", "en": "en"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/"+code+"/stranka", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)
		require.Equal(t, want, w.Body.String())
	}

	for _, code := range []string{"de", "czech", "xx"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/"+code+"/stranka", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, 404, w.Code)
	}
}

func TestLocaleDefaultsWithoutParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/stranka", func(c *gin.Context) {
		c.String(200, string(Locale(c)))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/stranka", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, string(i18n.DefaultLocale), w.Body.String())
}
