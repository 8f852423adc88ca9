package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

// IDValidator проверяет, что параметр с указанным именем является валидным идентификатором.
// Использование: router.GET("/escrows/:id", IDValidator("id"), handler.GetEscrow)
func IDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "параметр " + paramName + " обязателен",
			})
			c.Abort()
			return
		}

		if !objectid.IsValid(idStr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "параметр " + paramName + " должен быть валидным идентификатором",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
