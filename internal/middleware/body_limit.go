package middleware

import (
	"net/http"

	"go-gin-event-management/internal/response"

	"github.com/gin-gonic/gin"
)

// BodyLimit 限制 request body 大小；超過 Content-Length 直接回 413，
// 沒帶長度的則交給 MaxBytesReader 在讀取時截斷
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Abort(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
