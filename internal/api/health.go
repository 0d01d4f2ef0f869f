package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck は /api/healthCheck のハンドラーです。
// ストアや外部依存には一切アクセスせず、即座に稼働中レスポンスを返します。
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccess(http.StatusOK, []any{}, "Server is running"))
}
