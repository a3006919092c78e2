package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/response"
)

// Health returns a readiness payload, checking database connectivity.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				response.Error(c, errors.New("SERVICE_UNAVAILABLE", "Database unreachable", http.StatusServiceUnavailable))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
