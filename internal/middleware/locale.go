package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
)

const CtxLocaleKey = "locale"

// LocaleParam validates the :locale route segment. Anything other than the
// supported locale codes is a 404, matching the locale-scoped URL space.
func LocaleParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("locale")
		if !i18n.Valid(code) {
			response.Error(c, errors.ErrNotFound)
			c.Abort()
			return
		}
		c.Set(CtxLocaleKey, i18n.Parse(code))
		c.Next()
	}
}

// Locale returns the request locale, falling back to the default when the
// route carries no locale segment.
func Locale(c *gin.Context) i18n.Locale {
	if v, ok := c.Get(CtxLocaleKey); ok {
		if locale, ok := v.(i18n.Locale); ok {
			return locale
		}
	}
	return i18n.DefaultLocale
}
